package shared

import (
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
	Storage     StorageConfig     `toml:"storage"`
	Cache       CacheConfig       `toml:"cache"`
	Search      SearchConfig      `toml:"search"`
	Credentials CredentialsConfig `toml:"credentials"`
	Logging     LoggingConfig     `toml:"logging"`
}

// StorageConfig selects and locates the key-value backend.
type StorageConfig struct {
	Driver   string `toml:"driver"` // bolt, sqlite or memory
	Path     string `toml:"path"`
	MaxBytes int64  `toml:"max_bytes"` // 0 disables the capacity limit
}

// CacheConfig contains offline content cache settings.
type CacheConfig struct {
	MaxItems int `toml:"max_items"`
}

// SearchConfig contains search, throttle and quota settings.
type SearchConfig struct {
	Source      string      `toml:"source"` // youtube, spotify or demo
	Fallback    string      `toml:"fallback"`
	Domain      string      `toml:"domain"`
	BaseURL     string      `toml:"base_url"`
	Cooldown    Duration    `toml:"cooldown"`
	CacheTTL    Duration    `toml:"cache_ttl"`
	QuotaWindow Duration    `toml:"quota_window"`
	CostPerCall int         `toml:"cost_per_call"`
	MaxResults  int         `toml:"max_results"`
	Keys        []KeyConfig `toml:"keys"`
}

// KeyConfig describes a single API key slot.
type KeyConfig struct {
	Key    string `toml:"key"`
	Domain string `toml:"domain"`
	Limit  int    `toml:"limit"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// LoggingConfig controls log level and optional file rotation.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Duration wraps [time.Duration] so it can be written as "2s" or "24h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required for %s", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.MaxBytes < 0 {
		return fmt.Errorf("%w: storage.max_bytes must not be negative", ErrInvalidConfig)
	}
	if c.Cache.MaxItems <= 0 {
		return fmt.Errorf("%w: cache.max_items must be positive", ErrInvalidConfig)
	}

	if !validSource(c.Search.Source) {
		return fmt.Errorf("%w: unknown search source %q", ErrInvalidConfig, c.Search.Source)
	}
	if c.Search.Fallback != "" && !validSource(c.Search.Fallback) {
		return fmt.Errorf("%w: unknown search fallback %q", ErrInvalidConfig, c.Search.Fallback)
	}
	if c.Search.CostPerCall <= 0 {
		return fmt.Errorf("%w: search.cost_per_call must be positive", ErrInvalidConfig)
	}
	if c.Search.QuotaWindow.Duration <= 0 {
		return fmt.Errorf("%w: search.quota_window must be positive", ErrInvalidConfig)
	}
	for i, k := range c.Search.Keys {
		if k.Limit <= 0 {
			return fmt.Errorf("%w: search.keys[%d].limit must be positive", ErrInvalidConfig, i)
		}
	}
	return nil
}

func validSource(s string) bool {
	switch s {
	case "youtube", "spotify", "demo":
		return true
	}
	return false
}
