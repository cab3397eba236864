package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// isolate points every config and data directory at a temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

// TestLoad_Defaults tests the built-in values when no file exists
func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := &Config{
		DBPath:         filepath.Join(dir, "data", "todos", "todos.db"),
		SearchDebounce: 300 * time.Millisecond,
		WatchDebounce:  100 * time.Millisecond,
		DefaultAvatar:  schema.DefaultAvatar,
		ServerPort:     8080,
		LogMaxSizeMB:   10,
		Color:          true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteFile_RoundTrip tests that a written file loads back unchanged
func TestWriteFile_RoundTrip(t *testing.T) {
	isolate(t)

	cfg := Defaults()
	cfg.DBPath = "/tmp/elsewhere.db"
	cfg.SearchDebounce = 150 * time.Millisecond
	cfg.ServerPort = 9090
	cfg.Color = false

	path := DefaultFilePath()
	if err := WriteFile(path, cfg, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if !strings.Contains(string(data), `debounce = "150ms"`) {
		t.Errorf("config file missing readable duration:\n%s", data)
	}

	got, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.File != path {
		t.Errorf("File = %q, want %q", got.File, path)
	}
	got.File = ""
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if err := WriteFile(path, cfg, false); err == nil {
		t.Error("WriteFile() over an existing file succeeded without force")
	}
	if err := WriteFile(path, cfg, true); err != nil {
		t.Errorf("WriteFile() with force failed: %v", err)
	}
}

// TestLoad_EnvOverrides tests TODOS_* environment variables
func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TODOS_SERVER_PORT", "7070")
	t.Setenv("TODOS_SEARCH_DEBOUNCE", "1s")
	t.Setenv("TODOS_DB_PATH", "/var/lib/todos.db")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ServerPort != 7070 {
		t.Errorf("ServerPort = %d, want 7070", cfg.ServerPort)
	}
	if cfg.SearchDebounce != time.Second {
		t.Errorf("SearchDebounce = %v, want 1s", cfg.SearchDebounce)
	}
	if cfg.DBPath != "/var/lib/todos.db" {
		t.Errorf("DBPath = %q, want /var/lib/todos.db", cfg.DBPath)
	}
}

// TestLoad_ExplicitMissingFile tests that a named file must exist
func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(New(), filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load() with a missing explicit file succeeded, want error")
	}
}

// TestValidate tests rejection of out-of-range values
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"negative debounce", func(c *Config) { c.SearchDebounce = -time.Second }},
		{"port too large", func(c *Config) { c.ServerPort = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}
