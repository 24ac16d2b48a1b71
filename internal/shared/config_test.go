package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./genrefy.db" {
			t.Errorf("expected database path ./genrefy.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Organizer.JobRetention.Duration != time.Hour {
			t.Errorf("expected job retention 1h, got %s", config.Organizer.JobRetention)
		}

		if config.Reconcile.Workers != 4 {
			t.Errorf("expected 4 reconcile workers, got %d", config.Reconcile.Workers)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("embedded config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/api/auth/callback"

[organizer]
create_timeout = "2m"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Organizer.CreateTimeout.Duration != 2*time.Minute {
			t.Errorf("expected create timeout 2m, got %s", config.Organizer.CreateTimeout)
		}

		if config.Organizer.ClassifyBatchSize != 50 {
			t.Errorf("missing keys should keep defaults, got batch size %d", config.Organizer.ClassifyBatchSize)
		}
	})

	t.Run("Invalid Values", func(t *testing.T) {
		tt := []struct {
			name string
			body string
		}{
			{name: "bad duration", body: "[organizer]\nfetch_timeout = \"soon\"\n"},
			{name: "zero workers", body: "[reconcile]\nworkers = 0\n"},
			{name: "oversized batch", body: "[organizer]\nclassify_batch_size = 51\n"},
			{name: "zero rate", body: "[spotify]\nrate_limit = 0.0\n"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tc.body), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				if _, err := LoadConfig(configPath); err == nil {
					t.Error("expected load to fail")
				}
			})
		}
	})

	t.Run("Duration", func(t *testing.T) {
		var d Duration
		if err := d.UnmarshalText([]byte("90s")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Duration != 90*time.Second {
			t.Errorf("expected 90s, got %s", d)
		}

		text, _ := d.MarshalText()
		if string(text) != "1m30s" {
			t.Errorf("expected 1m30s, got %s", text)
		}

		if err := d.UnmarshalText([]byte("ninety")); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		config := DefaultConfig()
		config.Client.Session = "sess-123"
		config.Organizer.JobRetention = Duration{2 * time.Hour}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.Client.Session != "sess-123" {
			t.Errorf("expected session sess-123, got %q", loaded.Client.Session)
		}
		if loaded.Organizer.JobRetention.Duration != 2*time.Hour {
			t.Errorf("expected job retention 2h, got %s", loaded.Organizer.JobRetention)
		}

		if err := SaveConfig(configPath, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for nil config, got %v", err)
		}
	})
}
