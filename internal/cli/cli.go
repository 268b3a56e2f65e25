// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command dispatch and handlers for datachat.

package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/cache"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/controller"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usageText = `datachat - terminal client for the DataChat services

Chat with streamed responses, attach images, and run CSV analysis
sessions against a DataChat backend, from a TUI or a plain REPL.

Usage:
  datachat                   Start the TUI (default)
  datachat chat              Interactive REPL
  datachat sessions          List conversations
  datachat config            Show the resolved configuration
  datachat version           Print version information

Flags:
  --chat-url URL             Override the chat service endpoint
  --storage-url URL          Override the storage service endpoint
  --no-color                 Disable colored output
  -q, --quiet                Minimal output

Version: %s
`

// Run parses argv and dispatches to the selected command. It returns the
// process exit code.
func Run(argv []string) int {
	cmd, args := Parse(argv)

	if args.NoColor {
		DisableColor()
	}

	switch cmd {
	case CmdVersion:
		printVersion()
		return 0

	case CmdHelp:
		fmt.Printf(usageText, Version)
		return 0

	case CmdUnknown:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args.Unknown)
		fmt.Printf(usageText, Version)
		return 2

	case CmdConfig:
		if err := handleConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
			return 1
		}
		return 0

	case CmdSessions:
		if err := handleSessions(args); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
			return 1
		}
		return 0

	case CmdChat:
		if err := handleChat(args); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
			return 1
		}
		return 0

	default:
		if err := handleTUI(args); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", render(errorStyle, "[Error]"), err)
			return 1
		}
		return 0
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("datachat version %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// WIRING
// =============================================================================

// loadConfig loads the configuration and applies CLI overrides on top of
// file and environment values.
func loadConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.ChatURL != "" {
		cfg.Services.ChatURL = args.ChatURL
	}
	if args.StorageURL != "" {
		cfg.Services.StorageURL = args.StorageURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildController wires the API clients, controller, and optional offline
// mirror from configuration. The returned cleanup closes the mirror.
func buildController(cfg *config.Config) (*controller.Controller, func(), error) {
	timeout := time.Duration(cfg.Services.TimeoutSecs) * time.Second

	storage := api.NewStorageClientWithConfig(&api.StorageConfig{
		BaseURL: cfg.Services.StorageURL,
		Timeout: timeout,
	})
	chat := api.NewChatClientWithConfig(&api.ChatConfig{
		BaseURL: cfg.Services.ChatURL,
		Timeout: timeout,
	})

	// Warn early when the chat service is down; turns would only fail
	// later with the apology fallback.
	probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := chat.CheckRunning(probeCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s chat service unreachable at %s; responses will fail until it is up\n",
			render(warningStyle, "[Warning]"), cfg.Services.ChatURL)
	}
	cancel()

	ctrl := controller.New(storage, chat)

	cleanup := func() {}
	if cfg.Cache.Enabled {
		if path, err := cfg.CachePath(); err == nil {
			// RELIABILITY: a broken mirror never blocks startup
			if mirror, err := cache.Open(path); err == nil {
				ctrl.SetMirror(mirror)
				cleanup = func() { mirror.Close() }
			}
		}
	}

	return ctrl, cleanup, nil
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// handleChat runs the plain-terminal REPL.
func handleChat(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("chat requires an interactive terminal")
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctrl, cleanup, err := buildController(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if err := ctrl.Bootstrap(ctx); err != nil {
		return fmt.Errorf("could not reach the storage service: %w", err)
	}

	return RunChat(ctrl, cfg, args.Quiet)
}

// handleConfig prints the resolved configuration as TOML.
func handleConfig(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	path, err := config.ConfigPath()
	if err == nil {
		fmt.Println(render(infoStyle, "# "+path))
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}
