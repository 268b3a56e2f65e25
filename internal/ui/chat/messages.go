// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/config"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// TranscriptChangedMsg wakes the render loop after the controller mutates
// the transcript. Sent from the controller's notify callback via
// Program.Send, so it arrives from outside the Update loop.
type TranscriptChangedMsg struct{}

// ConfigReloadedMsg carries a fresh configuration after the config file
// changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// turnFinishedMsg reports that SubmitTurn returned.
type turnFinishedMsg struct {
	err error
}

// sessionsLoadedMsg carries the conversation list for the session picker.
type sessionsLoadedMsg struct {
	sessions []api.Conversation
	err      error
}

// sessionSwitchedMsg reports a conversation switch, create, or delete.
type sessionSwitchedMsg struct {
	err error
}

// datasetAttachedMsg reports a CSV attach attempt.
type datasetAttachedMsg struct {
	label string
	err   error
}

// statusMsg shows transient text in the status bar.
type statusMsg struct {
	text  string
	isErr bool
}

// clearStatusMsg removes the transient status text.
type clearStatusMsg struct{}
