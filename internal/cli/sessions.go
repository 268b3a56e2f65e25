// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Conversation listing for the datachat CLI.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/datachat-tui/internal/api"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// handleSessions lists conversations newest-first. When the backend is
// unreachable, the controller falls back to the offline mirror.
func handleSessions(args Args) error {
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
	convs, err := ctrl.Conversations(ctx)
	if err != nil {
		if api.IsUnreachable(err) {
			return fmt.Errorf("storage service unreachable at %s and no offline mirror available", cfg.Services.StorageURL)
		}
		return err
	}

	if len(convs) == 0 {
		fmt.Println(render(infoStyle, "No conversations yet."))
		return nil
	}

	fmt.Printf("%-8s %-20s %s\n", "ID", "UPDATED", "TITLE")
	for _, conv := range convs {
		fmt.Printf("%-8d %-20s %s\n", conv.ID, conv.UpdatedAt.Format("2006-01-02 15:04"),
			util.TruncateRunes(conv.Title, util.TitleMaxRunes))
	}
	return nil
}
