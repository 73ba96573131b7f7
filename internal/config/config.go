// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for ragdesk.
//
// Supports both TOML and JSON formats, with sensible defaults, environment
// variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.ragdesk/config.toml
//   - ~/.ragdesk/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragdesk configuration.
type Config struct {
	// BackendURL is the base URL of the RAG backend.
	BackendURL string `toml:"backend_url" json:"backend_url"`

	// DataDir overrides the directory where sessions and history live
	// (empty = ~/.ragdesk).
	DataDir string `toml:"data_dir" json:"data_dir"`

	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Stream  StreamConfig  `toml:"stream" json:"stream"`
	History HistoryConfig `toml:"history" json:"history"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ChatConfig contains the retrieval and generation parameters sent with
// every chat request.
type ChatConfig struct {
	// TopK is the number of retrieved chunks per query. 0 means "use the
	// backend's advertised default".
	TopK int `toml:"top_k" json:"top_k"`
	// Temperature is the sampling temperature.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps the generated answer length.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// IncludeContext asks the backend to return the retrieved context
	// alongside the answer.
	IncludeContext bool `toml:"include_context" json:"include_context"`
	// TimeoutSecs bounds a chat completion end to end.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// StreamConfig controls the simulated streaming of answers.
type StreamConfig struct {
	// CharsPerSecond is the reveal rate. 0 means the built-in default.
	CharsPerSecond float64 `toml:"chars_per_second" json:"chars_per_second"`
	// Disabled shows answers instantly instead of revealing them.
	Disabled bool `toml:"disabled" json:"disabled"`
}

// HistoryConfig controls the local full-text message index.
type HistoryConfig struct {
	// Enabled turns the search index on.
	Enabled bool `toml:"enabled" json:"enabled"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// Plain skips the TUI and runs the line-oriented REPL
	Plain bool `toml:"plain" json:"plain"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		BackendURL: "http://127.0.0.1:8080",

		Chat: ChatConfig{
			TopK:           0, // defer to the backend default
			Temperature:    0.2,
			MaxTokens:      1024,
			IncludeContext: false,
			TimeoutSecs:    120,
		},

		Stream: StreamConfig{
			CharsPerSecond: 45,
		},

		History: HistoryConfig{
			Enabled: true,
		},

		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragdesk configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragdesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
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

// Load loads configuration from the config file(s). Tries TOML first, then
// JSON, and falls back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finish(cfg)
		}
	}

	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadJSON(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is selected by extension, everything else decodes as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# ragdesk configuration file")
	fmt.Fprintln(file, "# Generated by ragdesk - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.BackendURL == "" {
		errs = append(errs, ValidationError{
			Field:   "backend_url",
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.BackendURL),
		})
	}

	if c.Chat.TopK < 0 || c.Chat.TopK > 50 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_k",
			Message: fmt.Sprintf("must be 0-50, got %d", c.Chat.TopK),
		})
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be 0.0-2.0, got %g", c.Chat.Temperature),
		})
	}
	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: "must be non-negative",
		})
	}
	if c.Chat.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Stream.CharsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "stream.chars_per_second",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.BackendURL == "" {
		c.BackendURL = defaults.BackendURL
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = defaults.Chat.Temperature
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = defaults.Chat.MaxTokens
	}
	if c.Chat.TimeoutSecs == 0 {
		c.Chat.TimeoutSecs = defaults.Chat.TimeoutSecs
	}
	if c.Stream.CharsPerSecond == 0 {
		c.Stream.CharsPerSecond = defaults.Stream.CharsPerSecond
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGDESK_BACKEND_URL: overrides backend_url
//   - RAGDESK_DATA_DIR: overrides data_dir
//   - RAGDESK_TOP_K: overrides chat.top_k
//   - RAGDESK_THEME: overrides ui.theme
//   - RAGDESK_PLAIN: set to "1" or "true" to run the line-oriented REPL
//   - RAGDESK_NO_STREAM: set to "1" or "true" to show answers instantly
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGDESK_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("RAGDESK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("RAGDESK_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.TopK = n
		}
	}
	if v := os.Getenv("RAGDESK_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("RAGDESK_PLAIN"); v != "" {
		c.UI.Plain = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("RAGDESK_NO_STREAM"); v != "" {
		c.Stream.Disabled = v == "1" || strings.ToLower(v) == "true"
	}
}

// =============================================================================
// DERIVED PATHS
// =============================================================================

// ResolveDataDir returns the effective data directory, creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance. Loads configuration on
// first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}
