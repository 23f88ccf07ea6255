// Package config loads the service configuration from an optional YAML file
// with environment variable overrides on top. Environment always wins so
// container deployments can run without a config file at all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from the "12h30m" notation in
// both YAML and environment values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

// UnmarshalText implements encoding.TextUnmarshaler, used for environment
// overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: malformed duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level service configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" envconfig:"SPOTS_LISTEN"`

	// SQLitePath is the local cache database path. ":memory:" is accepted
	// for throwaway instances.
	SQLitePath string `yaml:"sqlite_path" envconfig:"SPOTS_SQLITE_PATH"`

	// RemoteURL is the base URL of the hosted catalog backend.
	RemoteURL string `yaml:"remote_url" envconfig:"SPOTS_REMOTE_URL"`

	// RemoteAPIKey authenticates requests to the catalog backend.
	RemoteAPIKey string `yaml:"remote_api_key" envconfig:"SPOTS_REMOTE_API_KEY"`

	// Timezone is the IANA zone all availability math is evaluated in.
	Timezone string `yaml:"timezone" envconfig:"SPOTS_TIMEZONE"`

	// Freshness is how long a cached building row is served without
	// contacting the remote catalog.
	Freshness Duration `yaml:"freshness" envconfig:"SPOTS_FRESHNESS"`

	// RefreshCron is a cron-style schedule string for the periodic
	// background refresh. Empty disables the schedule.
	RefreshCron string `yaml:"refresh" envconfig:"SPOTS_REFRESH_CRON"`

	// BatchSize is how many buildings one refresh batch covers.
	BatchSize int `yaml:"batch_size" envconfig:"SPOTS_BATCH_SIZE"`

	// PageSize is how many building rows one remote listing request returns.
	PageSize int `yaml:"page_size" envconfig:"SPOTS_PAGE_SIZE"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		SQLitePath:  "spots.db",
		Timezone:    "America/Chicago",
		Freshness:   Duration(24 * time.Hour),
		RefreshCron: "*/30 * * * *",
		BatchSize:   10,
		PageSize:    50,
	}
}

// Normalize fills in missing or zero values with defaults so partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "spots.db"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Chicago"
	}
	if c.Freshness <= 0 {
		c.Freshness = Duration(24 * time.Hour)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.RemoteURL == "" {
		return errors.New("config: remote_url is required")
	}
	return nil
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and defaults. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// First run without a file; environment and defaults apply.
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg.Normalize()
	return cfg, nil
}
