// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
	}{
		{"fits", "hello", 10},
		{"exact", "hello", 5},
		{"truncated", "a much longer title than fits", 10},
		{"wide runes", "日本語のタイトルです", 8},
		{"zero width", "hello", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateToWidth(tt.input, tt.width)
			if w := runewidth.StringWidth(got); w > tt.width {
				t.Errorf("width = %d, want <= %d (%q)", w, tt.width, got)
			}
		})
	}

	if got := truncateToWidth("hello", 10); got != "hello" {
		t.Errorf("short strings must pass through unchanged, got %q", got)
	}
}
