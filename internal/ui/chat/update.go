// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/datachat-tui/internal/controller"
	"github.com/jeranaias/datachat-tui/internal/transcript"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.showSessions {
			return m.updateSessionPicker(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctrl.CancelTurn()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Cancel):
			if m.ctrl.IsStreaming() {
				m.ctrl.CancelTurn()
				return m, nil
			}

		case key.Matches(msg, m.keys.Sessions):
			m.showSessions = true
			m.sessionCursor = 0
			return m, loadSessionsCmd(m.ctrl)

		case key.Matches(msg, m.keys.NewChat):
			return m, newSessionCmd(m.ctrl)

		case key.Matches(msg, m.keys.Like):
			return m.toggleLastFeedback(transcript.FeedbackLike)

		case key.Matches(msg, m.keys.Dislike):
			return m.toggleLastFeedback(transcript.FeedbackDislike)

		case key.Matches(msg, m.keys.Submit):
			return m.submit()

		case key.Matches(msg, m.keys.Up):
			m.viewport.LineUp(1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.viewport.LineDown(1)
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
		}

	case TranscriptChangedMsg:
		m.refreshViewport(true)

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.cfg = msg.Config
			m.refreshViewport(false)
		}

	case turnFinishedMsg:
		m.refreshViewport(true)
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error(), true)
		}

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.showSessions = false
			return m, m.setStatus(msg.err.Error(), true)
		}
		m.sessions = msg.sessions

	case sessionSwitchedMsg:
		m.showSessions = false
		m.refreshViewport(true)
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error(), true)
		}

	case datasetAttachedMsg:
		m.refreshViewport(true)
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error(), true)
		}
		return m, m.setStatus("analyzing "+msg.label, false)

	case statusMsg:
		return m, m.setStatus(msg.text, msg.isErr)

	case clearStatusMsg:
		m.status = ""

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// INPUT HANDLING
// =============================================================================

// submit dispatches the input line: slash commands run locally, everything
// else becomes a turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" && m.pendingImage == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		return m.runSlashCommand(text)
	}

	if m.ctrl.IsLoading() {
		return m, m.setStatus("still working on the previous message", true)
	}

	opts := controller.TurnOptions{ImagePath: m.pendingImage}
	m.pendingImage = ""
	m.textarea.Reset()
	return m, submitTurnCmd(m.ctrl, text, opts)
}

func (m Model) runSlashCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]
	m.textarea.Reset()

	switch cmd {
	case "/quit", "/exit":
		m.ctrl.CancelTurn()
		return m, tea.Quit

	case "/new":
		return m, newSessionCmd(m.ctrl)

	case "/sessions":
		m.showSessions = true
		m.sessionCursor = 0
		return m, loadSessionsCmd(m.ctrl)

	case "/csv":
		if len(args) != 1 {
			return m, m.setStatus("usage: /csv <path>", true)
		}
		return m, attachDatasetCmd(m.ctrl, args[0])

	case "/cleardata":
		return m, clearDatasetCmd(m.ctrl)

	case "/image":
		if len(args) != 1 {
			return m, m.setStatus("usage: /image <path>", true)
		}
		m.pendingImage = args[0]
		return m, m.setStatus("image staged for next message", false)

	case "/saveplots":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		written, err := m.ctrl.ExportPlots(dir)
		if err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		if len(written) == 0 {
			return m, m.setStatus("no plots in this conversation", false)
		}
		return m, m.setStatus(fmt.Sprintf("saved %d plot(s) to %s", len(written), dir), false)

	default:
		return m, m.setStatus("unknown command "+cmd, true)
	}
}

// toggleLastFeedback applies feedback to the most recent assistant message.
func (m Model) toggleLastFeedback(fb transcript.Feedback) (tea.Model, tea.Cmd) {
	msgs := m.ctrl.Transcript().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == transcript.RoleAssistant && !msgs[i].Open() {
			go m.ctrl.ToggleFeedback(context.Background(), msgs[i].ID, fb)
			return m, nil
		}
	}
	return m, nil
}

// =============================================================================
// SESSION PICKER
// =============================================================================

func (m Model) updateSessionPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s":
		m.showSessions = false

	case "up", "k":
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}

	case "down", "j":
		if m.sessionCursor < len(m.sessions)-1 {
			m.sessionCursor++
		}

	case "enter":
		if m.sessionCursor < len(m.sessions) {
			return m, switchSessionCmd(m.ctrl, m.sessions[m.sessionCursor].ID)
		}

	case "d", "delete":
		if m.sessionCursor < len(m.sessions) {
			id := m.sessions[m.sessionCursor].ID
			return m, deleteSessionCmd(m.ctrl, id)
		}

	case "ctrl+c", "ctrl+q":
		return m, tea.Quit
	}
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	inputHeight := m.textarea.Height() + 2
	chromeHeight := 3 // header + status + help
	vpHeight := height - inputHeight - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(width - 4)
	m.refreshViewport(false)
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow && atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusErr = isErr
	return clearStatusAfterCmd(4 * time.Second)
}
