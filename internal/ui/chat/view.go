// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/datachat-tui/internal/transcript"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	if m.showSessions {
		return m.renderSessionPicker()
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatusBar(),
		m.theme.InputContainer.Width(m.width - 2).Render(m.textarea.View()),
		m.renderHelp(),
	}
	return strings.Join(sections, "\n")
}

// =============================================================================
// HEADER AND STATUS
// =============================================================================

func (m Model) renderHeader() string {
	_, title := m.ctrl.ActiveConversation()
	left := m.theme.HeaderTitle.Render("datachat") + "  " +
		m.theme.HeaderMeta.Render(truncateToWidth(title, m.width/2))

	var right string
	if label := m.ctrl.DatasetLabel(); label != "" {
		right = m.theme.ModeAnalysis.Render("analysis: " + label)
	} else {
		right = m.theme.ModeChat.Render("chat")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatusBar() string {
	var parts []string

	switch {
	case m.ctrl.IsStreaming():
		parts = append(parts, m.spinner.View()+" "+m.theme.Thinking.Render("streaming"))
	case m.ctrl.IsLoading():
		parts = append(parts, m.spinner.View()+" "+m.theme.Thinking.Render("thinking"))
	}

	if m.pendingImage != "" {
		parts = append(parts, m.theme.HeaderMeta.Render("image: "+m.pendingImage))
	}

	if m.status != "" {
		style := m.theme.HeaderMeta
		if m.statusErr {
			style = m.theme.ErrorText
		}
		parts = append(parts, style.Render(m.status))
	}

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderHelp() string {
	bindings := []struct{ k, desc string }{
		{"Enter", "send"},
		{"C-s", "sessions"},
		{"C-n", "new"},
		{"C-g/C-b", "rate"},
		{"Esc", "cancel"},
		{"C-c", "quit"},
	}
	var sb strings.Builder
	for i, b := range bindings {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(m.theme.ShortcutKey.Render(b.k))
		sb.WriteString(" ")
		sb.WriteString(m.theme.ShortcutDesc.Render(b.desc))
	}
	return sb.String()
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

func (m Model) renderTranscript() string {
	msgs := m.ctrl.Transcript().Messages()
	if len(msgs) == 0 {
		return m.theme.HeaderMeta.Render("\n  Start a conversation, or /csv <path> to analyze a dataset.")
	}

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderMessage(msg))
	}
	return sb.String()
}

func (m Model) renderMessage(msg *transcript.Message) string {
	bubble := m.theme.AssistantBubble
	if msg.Role == transcript.RoleUser {
		bubble = m.theme.UserBubble
	}

	header := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	if m.cfg.UI.ShowTimestamps {
		header += " " + m.theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	}
	if msg.Feedback != transcript.FeedbackNone {
		mark := "▲"
		if msg.Feedback == transcript.FeedbackDislike {
			mark = "▼"
		}
		header += " " + m.theme.FeedbackMark.Render(mark)
	}

	body := msg.DisplayContent()
	if body == "" && msg.Open() {
		body = m.theme.Thinking.Render("...")
	} else {
		body = m.renderBody(body)
	}

	var extras []string
	if msg.ImageURL != "" {
		extras = append(extras, m.theme.PlotBadge.Render("image attached"))
	}
	if n := len(msg.Plots); n > 0 {
		label := fmt.Sprintf("%d plot", n)
		if n > 1 {
			label += "s"
		}
		extras = append(extras, m.theme.PlotBadge.Render(label))
	}
	if len(extras) > 0 {
		body += "\n" + strings.Join(extras, " ")
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return bubble.Width(width).Render(header + "\n" + body)
}

// renderBody renders message content: glamour markdown when enabled,
// otherwise plain text with highlighted code fences.
func (m Model) renderBody(content string) string {
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return components.ParseCodeBlocks(content, m.width-8)
}

// =============================================================================
// SESSION PICKER
// =============================================================================

func (m Model) renderSessionPicker() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Conversations"))
	sb.WriteString("\n\n")

	if len(m.sessions) == 0 {
		sb.WriteString(m.theme.HeaderMeta.Render("  loading..."))
	}

	activeID, _ := m.ctrl.ActiveConversation()
	for i, s := range m.sessions {
		title := truncateToWidth(s.Title, m.width-20)
		line := fmt.Sprintf("%s  %s", title, s.UpdatedAt.Local().Format("Jan 02 15:04"))
		if s.ID == activeID {
			line = "* " + line
		} else {
			line = "  " + line
		}

		style := m.theme.SessionItem
		if i == m.sessionCursor {
			style = m.theme.SessionSelected
		}
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("enter switch · d delete · esc back"))
	return sb.String()
}

// truncateToWidth trims s to the given display width, honoring wide runes.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
