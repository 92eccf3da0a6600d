package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Hostname    string `toml:"hostname"`
	Port        int    `toml:"port"`
	CORSOrigins string `toml:"cors_origins"`
}

// AuthConfig holds session token settings
type AuthConfig struct {
	Secret string `toml:"secret"`
}

// CacheConfig holds feed page cache settings
type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
	MaxEntries int `toml:"max_entries"`
}

// RefreshConfig holds source refresh throttling settings
type RefreshConfig struct {
	WindowMinutes     int `toml:"window_minutes"`
	StaleAfterMinutes int `toml:"stale_after_minutes"`
	ScanMinutes       int `toml:"scan_minutes"`
	QueueSize         int `toml:"queue_size"`
}

// AIConfig holds generative API settings. APIKey is the server-wide fallback
// used when a user has not stored their own key.
type AIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// IngestConfig holds settings for the external fetch functions
type IngestConfig struct {
	FetchBaseURL   string `toml:"fetch_base_url"`
	FetchToken     string `toml:"fetch_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config is the top-level configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Cache   CacheConfig   `toml:"cache"`
	Refresh RefreshConfig `toml:"refresh"`
	AI      AIConfig      `toml:"ai"`
	Ingest  IngestConfig  `toml:"ingest"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Hostname:    "localhost",
			Port:        8080,
			CORSOrigins: "http://localhost:3001",
		},
		Cache: CacheConfig{
			TTLSeconds: 30,
			MaxEntries: 1024,
		},
		Refresh: RefreshConfig{
			WindowMinutes:     5,
			StaleAfterMinutes: 15,
			ScanMinutes:       5,
			QueueSize:         256,
		},
		AI: AIConfig{
			Model: "gemini-1.5-flash-latest",
		},
		Ingest: IngestConfig{
			TimeoutSeconds: 30,
		},
	}
}

// Load reads the TOML config at path on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) RefreshWindow() time.Duration {
	return time.Duration(c.Refresh.WindowMinutes) * time.Minute
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Refresh.StaleAfterMinutes) * time.Minute
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Refresh.ScanMinutes) * time.Minute
}

func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingest.TimeoutSeconds) * time.Second
}
