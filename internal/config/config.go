// Package config provides configuration loading for the CLI.
// Configuration sources (in priority order): env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "90s" / "2m" strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all client configuration.
type Config struct {
	// Backend base URL (default "http://localhost:8000")
	BaseURL string `yaml:"base_url"`
	// HTTP request timeout (default 60s)
	Timeout Duration `yaml:"timeout,omitempty"`

	// Token storage
	TokenPath   string `yaml:"token_path,omitempty"`
	SealedToken bool   `yaml:"sealed_token"`
	KeyPath     string `yaml:"key_path,omitempty"`

	// Local records cache (SQLite)
	CachePath string `yaml:"cache_path,omitempty"`

	// Watch polling schedule: a Go duration or a cron expression
	WatchSchedule string `yaml:"watch_schedule"`

	// Log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// OTLP trace endpoint; empty disables tracing
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "tradutor", "config.yaml")
}

// Default returns configuration with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:       "http://localhost:8000",
		Timeout:       Duration(60 * time.Second),
		WatchSchedule: "30s",
		LogLevel:      "info",
	}
}

// Load reads configuration from a file, then overlays environment variables.
// A missing file is not an error: defaults plus env apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("TRADUTOR_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TRADUTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse TRADUTOR_TIMEOUT: %w", err)
		}
		cfg.Timeout = Duration(d)
	}
	if v := os.Getenv("TRADUTOR_TOKEN_PATH"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("TRADUTOR_SEALED_TOKEN"); v != "" {
		cfg.SealedToken = v == "true" || v == "1"
	}
	if v := os.Getenv("TRADUTOR_KEY_PATH"); v != "" {
		cfg.KeyPath = v
	}
	if v := os.Getenv("TRADUTOR_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("TRADUTOR_WATCH_SCHEDULE"); v != "" {
		cfg.WatchSchedule = v
	}
	if v := os.Getenv("TRADUTOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRADUTOR_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fields that would only fail later at first use.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	if c.SealedToken && c.KeyPath == "" {
		c.KeyPath = filepath.Join(filepath.Dir(c.tokenPath()), "token.key")
	}
	return nil
}

func (c *Config) tokenPath() string {
	if c.TokenPath != "" {
		return c.TokenPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "token.json"
	}
	return filepath.Join(home, ".config", "tradutor", "token.json")
}

// ResolvedTokenPath returns the effective token file location.
func (c *Config) ResolvedTokenPath() string { return c.tokenPath() }

// ResolvedCachePath returns the effective records cache location.
func (c *Config) ResolvedCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "records.db"
	}
	return filepath.Join(home, ".config", "tradutor", "records.db")
}
