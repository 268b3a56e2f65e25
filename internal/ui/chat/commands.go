// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/datachat-tui/internal/controller"
)

// =============================================================================
// CONTROLLER COMMANDS
// =============================================================================

// submitTurnCmd runs a full turn in a goroutine. Progress arrives through
// TranscriptChangedMsg via the notify callback; this command only reports
// the final outcome.
func submitTurnCmd(ctrl *controller.Controller, text string, opts controller.TurnOptions) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.SubmitTurn(context.Background(), text, opts)
		return turnFinishedMsg{err: err}
	}
}

// loadSessionsCmd fetches the conversation list for the picker.
func loadSessionsCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := ctrl.Conversations(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// switchSessionCmd makes a conversation active.
func switchSessionCmd(ctrl *controller.Controller, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sessionSwitchedMsg{err: ctrl.LoadConversation(ctx, id)}
	}
}

// newSessionCmd creates a fresh conversation and switches to it.
func newSessionCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sessionSwitchedMsg{err: ctrl.NewConversation(ctx)}
	}
}

// deleteSessionCmd removes a conversation.
func deleteSessionCmd(ctrl *controller.Controller, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sessionSwitchedMsg{err: ctrl.DeleteConversation(ctx, id)}
	}
}

// attachDatasetCmd uploads a CSV and enters analysis mode.
func attachDatasetCmd(ctrl *controller.Controller, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()
		err := ctrl.AttachDataset(ctx, path)
		return datasetAttachedMsg{label: filepath.Base(path), err: err}
	}
}

// clearDatasetCmd leaves analysis mode.
func clearDatasetCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ctrl.ClearAnalysisMode(ctx)
		return statusMsg{text: "dataset detached"}
	}
}

// clearStatusAfterCmd removes transient status text after a delay.
func clearStatusAfterCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
