// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete datachat configuration.
type Config struct {
	Version string `toml:"version"`

	// Services are the backend endpoints.
	Services ServicesConfig `toml:"services"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// History configuration for the REPL
	History HistoryConfig `toml:"history"`

	// Cache configuration for the offline mirror
	Cache CacheConfig `toml:"cache"`
}

// ServicesConfig contains the backend service endpoints.
type ServicesConfig struct {
	// ChatURL is the base URL of the chat (generation) service
	ChatURL string `toml:"chat_url"`
	// StorageURL is the base URL of the storage (persistence) service
	StorageURL string `toml:"storage_url"`
	// TimeoutSecs is the request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
	// ShowTimestamps displays message timestamps
	ShowTimestamps bool `toml:"show_timestamps"`
	// Markdown enables glamour-rendered assistant messages
	Markdown bool `toml:"markdown"`
}

// HistoryConfig contains REPL input history configuration.
type HistoryConfig struct {
	// Enabled controls whether input history is persisted
	Enabled bool `toml:"enabled"`
	// Path is the history file path (empty = default ~/.datachat/history)
	Path string `toml:"path"`
	// MaxEntries caps the number of persisted lines
	MaxEntries int `toml:"max_entries"`
}

// CacheConfig contains the offline conversation mirror configuration.
type CacheConfig struct {
	// Enabled controls whether the local mirror is maintained
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database path (empty = default ~/.datachat/cache.db)
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Services: ServicesConfig{
			ChatURL:     "http://127.0.0.1:8001",
			StorageURL:  "http://127.0.0.1:8002",
			TimeoutSecs: 30,
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			ShowTimestamps: true,
			Markdown:       true,
		},

		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},

		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the datachat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".datachat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the configured REPL history file path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// CachePath returns the configured offline mirror database path.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when the file does not exist. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file is not an error: defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Services.ChatURL == "" {
		c.Services.ChatURL = defaults.Services.ChatURL
	}
	if c.Services.StorageURL == "" {
		c.Services.StorageURL = defaults.Services.StorageURL
	}
	if c.Services.TimeoutSecs == 0 {
		c.Services.TimeoutSecs = defaults.Services.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = defaults.History.MaxEntries
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DATACHAT_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DATACHAT_CHAT_URL"); v != "" {
		c.Services.ChatURL = v
	}
	if v := os.Getenv("DATACHAT_STORAGE_URL"); v != "" {
		c.Services.StorageURL = v
	}
	if v := os.Getenv("DATACHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DATACHAT_NO_MARKDOWN"); v != "" {
		c.UI.Markdown = !(v == "1" || strings.ToLower(v) == "true")
	}
	if v := os.Getenv("DATACHAT_NO_CACHE"); v != "" {
		c.Cache.Enabled = !(v == "1" || strings.ToLower(v) == "true")
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"chat_url":    c.Services.ChatURL,
		"storage_url": c.Services.StorageURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: unsupported scheme %q", name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%s: missing host", name)
		}
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("theme: unknown value %q", c.UI.Theme)
	}

	if c.Services.TimeoutSecs < 0 {
		return fmt.Errorf("timeout_secs: must be non-negative")
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# datachat configuration file\n")
	buf.WriteString("# Generated by datachat - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
