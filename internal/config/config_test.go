package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != "foodmemory.db" {
		t.Errorf("Expected default database path, got %q", cfg.DatabasePath)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Expected default listen address, got %q", cfg.Listen)
	}
	if cfg.LocationBias != "Orange County, CA" {
		t.Errorf("Expected default location bias, got %q", cfg.LocationBias)
	}
}

func TestLoadLayering(t *testing.T) {
	// File layer.
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := "database_path: from-file.db\nlisten: \":9999\"\nallowed_chat_ids:\n  - 1\n  - 2\n"
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Env layer overrides the file.
	t.Setenv("FOODMEMORY_LISTEN", ":7777")

	// Flag layer overrides env and file, but only for flags that changed.
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database-path", "foodmemory.db", "")
	flags.String("listen", ":8080", "")
	flags.String("places-api-key", "", "")
	if err := flags.Parse([]string{"--database-path=from-flag.db"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := Load(configFile, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatabasePath != "from-flag.db" {
		t.Errorf("Expected flag to win for database path, got %q", cfg.DatabasePath)
	}
	if cfg.Listen != ":7777" {
		t.Errorf("Expected env to win over file for listen, got %q", cfg.Listen)
	}
	if len(cfg.AllowedChatIDs) != 2 {
		t.Errorf("Expected 2 allowed chat IDs from file, got %v", cfg.AllowedChatIDs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", nil); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestAllowedChat(t *testing.T) {
	testCases := []struct {
		name    string
		allowed []int64
		chatID  int64
		want    bool
	}{
		{"empty list allows everyone", nil, 42, true},
		{"listed chat", []int64{1, 42}, 42, true},
		{"unlisted chat", []int64{1, 2}, 42, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{AllowedChatIDs: tc.allowed}
			if got := cfg.AllowedChat(tc.chatID); got != tc.want {
				t.Errorf("AllowedChat(%d) = %v, want %v", tc.chatID, got, tc.want)
			}
		})
	}
}
