package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Plex     PlexConfig     `toml:"plex"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// PlexConfig contains the plex.tv client identity, the stored token, and discovery tuning.
type PlexConfig struct {
	ClientID         string `toml:"client_id"`
	Product          string `toml:"product"`
	Version          string `toml:"version"`
	Platform         string `toml:"platform"`
	BaseURL          string `toml:"base_url"`
	AuthAppURL       string `toml:"auth_app_url"`
	Token            string `toml:"token"`
	HistoryLimit     int    `toml:"history_limit"`
	PollIntervalSecs int    `toml:"poll_interval_secs"`
	PollTimeoutSecs  int    `toml:"poll_timeout_secs"`
	ProbeTimeoutSecs int    `toml:"probe_timeout_secs"`
	ProbeWorkers     int    `toml:"probe_workers"`
}

// PollInterval returns the delay between PIN status checks.
func (p PlexConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSecs) * time.Second
}

// PollTimeout returns how long a PIN login waits before giving up.
func (p PlexConfig) PollTimeout() time.Duration {
	return time.Duration(p.PollTimeoutSecs) * time.Second
}

// ProbeTimeout returns the per-server deadline used while listing libraries.
func (p PlexConfig) ProbeTimeout() time.Duration {
	return time.Duration(p.ProbeTimeoutSecs) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls the default log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
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

// SaveConfig writes the configuration back to path. The file holds the Plex token, so it is written 0600.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file when present and lets environment variables override file settings.
//
// Recognized: PLEX_CLIENT_ID, PLEX_TOKEN, PLEX_BASE_URL, WRAPPED_DB_PATH, WRAPPED_LOG_LEVEL.
func (c *Config) ApplyEnv(files ...string) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(files...)

	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	override("PLEX_CLIENT_ID", &c.Plex.ClientID)
	override("PLEX_TOKEN", &c.Plex.Token)
	override("PLEX_BASE_URL", &c.Plex.BaseURL)
	override("WRAPPED_DB_PATH", &c.Database.Path)
	override("WRAPPED_LOG_LEVEL", &c.Logging.Level)
}

// EnsureClientID generates a client identifier when none is configured and reports whether it did.
//
// plex.tv ties PINs and device entries to this value, so callers should persist it.
func (c *Config) EnsureClientID() bool {
	if c.Plex.ClientID != "" {
		return false
	}
	c.Plex.ClientID = GenerateID()
	return true
}
