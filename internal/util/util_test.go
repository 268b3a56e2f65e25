// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max", "hello", 2, "he"},
		{"multibyte preserved", "日本語のテキストです", 6, "日本語..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		if got := DeriveTitle("  Hello  "); got != "Hello" {
			t.Errorf("DeriveTitle = %q, want %q", got, "Hello")
		}
	})

	t.Run("newlines flattened", func(t *testing.T) {
		if got := DeriveTitle("line one\r\nline two"); got != "line one line two" {
			t.Errorf("DeriveTitle = %q, want %q", got, "line one line two")
		}
	})

	t.Run("long text truncated with marker", func(t *testing.T) {
		got := DeriveTitle(strings.Repeat("a", 80))
		if len([]rune(got)) != TitleMaxRunes+3 {
			t.Errorf("truncated title length = %d, want %d", len([]rune(got)), TitleMaxRunes+3)
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("truncated title should end with ellipsis, got %q", got)
		}
	})

	t.Run("exactly fifty runes not truncated", func(t *testing.T) {
		in := strings.Repeat("b", 50)
		if got := DeriveTitle(in); got != in {
			t.Errorf("DeriveTitle = %q, want %q", got, in)
		}
	})
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("content = %q, want %q", data, "first")
	}

	// Overwrite replaces the whole file
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content after overwrite = %q, want %q", data, "second")
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}
