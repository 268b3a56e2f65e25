// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - TUI launcher for datachat.

package cli

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/ui/chat"
)

// Global program reference so the controller's notify callback can wake
// the render loop from the turn goroutine.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// handleTUI starts the full-screen terminal interface.
func handleTUI(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("the TUI requires an interactive terminal (try 'datachat sessions')")
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
		return fmt.Errorf("could not reach the storage service at %s: %w", cfg.Services.StorageURL, err)
	}

	m := chat.New(ctrl, cfg)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	ctrl.SetNotify(func() {
		programMu.Lock()
		ref := programRef
		programMu.Unlock()
		if ref != nil {
			ref.Send(chat.TranscriptChangedMsg{})
		}
	})
	defer ctrl.SetNotify(nil)

	// Live-reload endpoint changes while the TUI is running.
	if path, err := config.ConfigPath(); err == nil {
		if w, err := config.NewWatcher(path, func(updated *config.Config) {
			programMu.Lock()
			ref := programRef
			programMu.Unlock()
			if ref != nil {
				ref.Send(chat.ConfigReloadedMsg{Config: updated})
			}
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running datachat: %w", err)
	}
	return nil
}
