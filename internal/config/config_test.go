// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
backend_url = "http://10.0.0.5:9000"

[chat]
top_k = 8
temperature = 0.5

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.BackendURL != "http://10.0.0.5:9000" {
		t.Errorf("backend_url = %q", cfg.BackendURL)
	}
	if cfg.Chat.TopK != 8 || cfg.Chat.Temperature != 0.5 {
		t.Errorf("chat = %+v", cfg.Chat)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Unspecified fields keep defaults.
	if cfg.Chat.MaxTokens != 1024 {
		t.Errorf("max_tokens = %d, want default 1024", cfg.Chat.MaxTokens)
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"backend_url": "http://localhost:8081", "stream": {"chars_per_second": 90}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8081" {
		t.Errorf("backend_url = %q", cfg.BackendURL)
	}
	if cfg.Stream.CharsPerSecond != 90 {
		t.Errorf("chars_per_second = %g", cfg.Stream.CharsPerSecond)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.BackendURL = "" }},
		{"relative url", func(c *Config) { c.BackendURL = "not-a-url" }},
		{"negative top_k", func(c *Config) { c.Chat.TopK = -1 }},
		{"huge top_k", func(c *Config) { c.Chat.TopK = 999 }},
		{"hot temperature", func(c *Config) { c.Chat.Temperature = 3.0 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "hotdog" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAGDESK_BACKEND_URL", "http://override:1234")
	t.Setenv("RAGDESK_TOP_K", "12")
	t.Setenv("RAGDESK_PLAIN", "true")
	t.Setenv("RAGDESK_NO_STREAM", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.BackendURL != "http://override:1234" {
		t.Errorf("backend_url = %q", cfg.BackendURL)
	}
	if cfg.Chat.TopK != 12 {
		t.Errorf("top_k = %d", cfg.Chat.TopK)
	}
	if !cfg.UI.Plain || !cfg.Stream.Disabled {
		t.Errorf("plain=%v stream.disabled=%v", cfg.UI.Plain, cfg.Stream.Disabled)
	}
}

func TestEnvOverrideIgnoresGarbageTopK(t *testing.T) {
	t.Setenv("RAGDESK_TOP_K", "not-a-number")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Chat.TopK != 0 {
		t.Errorf("top_k = %d, want untouched 0", cfg.Chat.TopK)
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.BackendURL = "http://roundtrip:8080"
	cfg.Chat.TopK = 6

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.BackendURL != "http://roundtrip:8080" || loaded.Chat.TopK != 6 {
		t.Fatalf("round trip = %+v", loaded)
	}
}

func TestSaveJSONAtomic(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := SaveJSON(Default(), path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.BackendURL != Default().BackendURL {
		t.Fatalf("loaded = %+v", loaded)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}
