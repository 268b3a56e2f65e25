// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the datachat command-line interface.
//
// Commands:
//
//	datachat            Launch the TUI (default)
//	datachat chat       Interactive REPL without the TUI
//	datachat sessions   List conversations
//	datachat config     Show the resolved configuration
//	datachat version    Print version information
//
// Global flags:
//
//	--chat-url URL      Override the chat service endpoint
//	--storage-url URL   Override the storage service endpoint
//	--no-color          Disable colored output
package cli
