// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies a top-level CLI command.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed command-line arguments.
type Args struct {
	// Endpoint overrides
	ChatURL    string
	StorageURL string

	// Output control
	NoColor bool
	Quiet   bool

	// Unparsed remainder for the selected command
	Raw []string

	// Unknown holds the unrecognized command name for error reporting.
	Unknown string
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name) and
// returns the command and its arguments.
func Parse(argv []string) (Command, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--no-color":
			args.NoColor = true
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--chat-url" && i+1 < len(argv):
			i++
			args.ChatURL = argv[i]
		case strings.HasPrefix(arg, "--chat-url="):
			args.ChatURL = strings.TrimPrefix(arg, "--chat-url=")
		case arg == "--storage-url" && i+1 < len(argv):
			i++
			args.StorageURL = argv[i]
		case strings.HasPrefix(arg, "--storage-url="):
			args.StorageURL = strings.TrimPrefix(arg, "--storage-url=")
		case arg == "--help" || arg == "-h":
			return CmdHelp, args
		case arg == "--version":
			return CmdVersion, args
		default:
			remaining = append(remaining, arg)
		}
		i++
	}

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "chat":
		return CmdChat, args
	case "sessions", "list":
		return CmdSessions, args
	case "config":
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		args.Unknown = cmd
		return CmdUnknown, args
	}
}
