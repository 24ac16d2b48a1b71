package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Organizer   OrganizerConfig   `toml:"organizer"`
	Reconcile   ReconcileConfig   `toml:"reconcile"`
	Client      ClientConfig      `toml:"client"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SpotifyAPIConfig controls outbound request pacing.
type SpotifyAPIConfig struct {
	BaseURL   string   `toml:"base_url"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
	Timeout   Duration `toml:"timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	FrontendURL    string   `toml:"frontend_url"`
	AllowedOrigins []string `toml:"allowed_origins"`
	CookieSecure   bool     `toml:"cookie_secure"`
}

// OrganizerConfig tunes the organize job.
type OrganizerConfig struct {
	MinPlaylistSize   int      `toml:"min_playlist_size"`
	ClassifyBatchSize int      `toml:"classify_batch_size"`
	FetchTimeout      Duration `toml:"fetch_timeout"`
	ClassifyTimeout   Duration `toml:"classify_timeout"`
	CreateTimeout     Duration `toml:"create_timeout"`
	JobRetention      Duration `toml:"job_retention"`
	FreeTierFooter    string   `toml:"free_tier_footer"`
	PropagateEdits    bool     `toml:"propagate_edits"`
}

// ReconcileConfig tunes bulk synchronization.
type ReconcileConfig struct {
	Workers   int      `toml:"workers"`
	RateLimit float64  `toml:"rate_limit"`
	Timeout   Duration `toml:"timeout"`
}

// ClientConfig is read by CLI commands that talk to a running server.
type ClientConfig struct {
	ServerURL string `toml:"server_url"`
	Session   string `toml:"session"`
}

// LogConfig sets the log level by name (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration wraps [time.Duration] so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail deep inside a job.
func (c *Config) Validate() error {
	switch {
	case c.Organizer.MinPlaylistSize < 1:
		return fmt.Errorf("%w: organizer.min_playlist_size must be at least 1", ErrInvalidConfig)
	case c.Organizer.ClassifyBatchSize < 1 || c.Organizer.ClassifyBatchSize > 50:
		return fmt.Errorf("%w: organizer.classify_batch_size must be between 1 and 50", ErrInvalidConfig)
	case c.Reconcile.Workers < 1:
		return fmt.Errorf("%w: reconcile.workers must be at least 1", ErrInvalidConfig)
	case c.Spotify.RateLimit <= 0 || c.Reconcile.RateLimit <= 0:
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes config to path as TOML, replacing the file.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
