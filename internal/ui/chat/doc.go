// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The model wraps the session controller: user input becomes turns, the
// controller's notify callback wakes the render loop while a stream is in
// flight, and the transcript store is the single source of truth for what
// is on screen.
//
// # Slash Commands
//
//   - /new            start a fresh conversation
//   - /sessions       open the conversation picker
//   - /csv <path>     attach a CSV dataset for analysis
//   - /cleardata      detach the dataset and leave analysis mode
//   - /image <path>   attach an image to the next message
//   - /saveplots [dir] save generated plots as PNG files
//   - /quit           exit
package chat
