// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/controller"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
//
// IMPORTANT: the controller is held by pointer and shared with the goroutine
// running the active turn; Bubble Tea copies the model on every Update, so
// nothing with identity lives in the model by value.
type Model struct {
	ctrl  *controller.Controller
	cfg   *config.Config
	theme *styles.Theme
	keys  KeyMap

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// Transient status line
	status    string
	statusErr bool

	// Image staged for the next turn via /image
	pendingImage string

	// Session picker state
	showSessions  bool
	sessions      []api.Conversation
	sessionCursor int
}

// New creates the chat model.
func New(ctrl *controller.Controller, cfg *config.Config) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask something... (/csv to attach a dataset, /quit to exit)"
	ta.Prompt = "> "
	ta.CharLimit = 8000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	var renderer *glamour.TermRenderer
	if cfg.UI.Markdown {
		// Glamour failure falls back to the plain rendering path.
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	}

	return Model{
		ctrl:     ctrl,
		cfg:      cfg,
		theme:    styles.NewTheme(),
		keys:     DefaultKeyMap(),
		textarea: ta,
		spinner:  sp,
		renderer: renderer,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}
