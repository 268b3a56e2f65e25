// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Services.ChatURL != "http://127.0.0.1:8001" {
		t.Errorf("ChatURL = %q", cfg.Services.ChatURL)
	}
	if cfg.Services.StorageURL != "http://127.0.0.1:8002" {
		t.Errorf("StorageURL = %q", cfg.Services.StorageURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want default", cfg.UI.Theme)
	}
}

func TestLoadFromPath_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[services]
chat_url = "http://chat.internal:9000"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Services.ChatURL != "http://chat.internal:9000" {
		t.Errorf("ChatURL = %q", cfg.Services.ChatURL)
	}
	if cfg.Services.StorageURL != "http://127.0.0.1:8002" {
		t.Errorf("StorageURL = %q, want default fill", cfg.Services.StorageURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if cfg.History.MaxEntries != 1000 {
		t.Errorf("MaxEntries = %d, want default fill", cfg.History.MaxEntries)
	}
}

func TestLoadFromPath_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("this is not toml = ["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DATACHAT_CHAT_URL", "http://override:1234")
	t.Setenv("DATACHAT_THEME", "auto")
	t.Setenv("DATACHAT_NO_MARKDOWN", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Services.ChatURL != "http://override:1234" {
		t.Errorf("ChatURL = %q", cfg.Services.ChatURL)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if cfg.UI.Markdown {
		t.Error("Markdown should be disabled by DATACHAT_NO_MARKDOWN=1")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"https endpoint", func(c *Config) { c.Services.ChatURL = "https://chat.example.com" }, false},
		{"bad scheme", func(c *Config) { c.Services.StorageURL = "ftp://storage" }, true},
		{"missing host", func(c *Config) { c.Services.ChatURL = "http://" }, true},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }, true},
		{"negative timeout", func(c *Config) { c.Services.TimeoutSecs = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveToPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Services.ChatURL = "http://roundtrip:8001"
	cfg.UI.CompactMode = true

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# datachat configuration file") {
		t.Error("expected header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Services.ChatURL != "http://roundtrip:8001" {
		t.Errorf("ChatURL = %q after round trip", loaded.Services.ChatURL)
	}
	if !loaded.UI.CompactMode {
		t.Error("CompactMode lost in round trip")
	}
}
