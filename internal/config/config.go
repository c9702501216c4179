// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for docchat.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides:
//   - ~/.docchat/config.toml
//   - DOCCHAT_* environment variables
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docchat configuration.
type Config struct {
	// Backend holds the remote API settings.
	Backend BackendConfig `toml:"backend"`

	// Streaming holds the simulated-stream pacing knobs.
	Streaming StreamingConfig `toml:"streaming"`

	// Watch holds the upload outbox watcher settings.
	Watch WatchConfig `toml:"watch"`

	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// BackendConfig contains remote API settings.
type BackendConfig struct {
	// BaseURL is the backend base URL.
	BaseURL string `toml:"base_url"`
	// Origin is the Origin header declared on every request.
	Origin string `toml:"origin"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// StreamingConfig contains reveal pacing settings, all in milliseconds.
type StreamingConfig struct {
	BaseDelayMs     int `toml:"base_delay_ms"`
	SentencePauseMs int `toml:"sentence_pause_ms"`
	// CompressThreshold is the rune count past which pacing compresses.
	CompressThreshold int `toml:"compress_threshold"`
}

// WatchConfig contains the outbox watcher settings.
type WatchConfig struct {
	// Enabled turns the outbox watcher on.
	Enabled bool `toml:"enabled"`
	// OutboxDir is the watched directory; files dropped here are
	// validated and uploaded. Empty means ~/.docchat/outbox.
	OutboxDir string `toml:"outbox_dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Path is the log file location. Empty means ~/.docchat/docchat.log.
	Path string `toml:"path"`
	// Level is "debug", "info", "warn", or "error".
	Level string `toml:"level"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8000",
			Origin:      "http://localhost:3000",
			TimeoutSecs: 60,
		},
		Streaming: StreamingConfig{
			BaseDelayMs:       18,
			SentencePauseMs:   180,
			CompressThreshold: 1200,
		},
		Watch: WatchConfig{Enabled: false},
		Log:   LogConfig{Level: "info"},
	}
}

// Dir returns the docchat config directory, ~/.docchat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docchat"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default location, applying
// environment overrides. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.toml"))
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies DOCCHAT_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCCHAT_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("DOCCHAT_ORIGIN"); v != "" {
		cfg.Backend.Origin = v
	}
	if v := os.Getenv("DOCCHAT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.TimeoutSecs = n
		}
	}
	if v := os.Getenv("DOCCHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DOCCHAT_OUTBOX"); v != "" {
		cfg.Watch.Enabled = true
		cfg.Watch.OutboxDir = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSecs <= 0 {
		return fmt.Errorf("backend.timeout_secs must be positive, got %d", c.Backend.TimeoutSecs)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug|info|warn|error", c.Log.Level)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// LogPath returns the log file path, defaulting under the config dir.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	dir, err := Dir()
	if err != nil {
		return "docchat.log"
	}
	return filepath.Join(dir, "docchat.log")
}

// OutboxDir returns the watched outbox directory.
func (c *Config) OutboxDir() string {
	if c.Watch.OutboxDir != "" {
		return c.Watch.OutboxDir
	}
	dir, err := Dir()
	if err != nil {
		return "outbox"
	}
	return filepath.Join(dir, "outbox")
}
