package climate

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/citygarden/pkg/retry"
)

// Config configures the Open-Meteo archive client.
type Config struct {
	Enabled   bool         `toml:"enabled"`
	BaseURL   string       `toml:"base_url"`
	Year      int          `toml:"year"`
	Timezone  string       `toml:"timezone"`
	Timeout   string       `toml:"timeout"`
	CacheSize int          `toml:"cache_size"`
	CacheTTL  string       `toml:"cache_ttl"`
	Retry     retry.Config `toml:"retry"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled string
	BaseURL string
	Year    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Year != 0 {
		c.Year = overlay.Year
	}
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
	c.Retry.Merge(&overlay.Retry)
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://archive-api.open-meteo.com/v1/archive"
	}
	if c.Year == 0 {
		c.Year = time.Now().Year() - 1
	}
	if c.Timezone == "" {
		c.Timezone = "auto"
	}
	if c.Timeout == "" {
		c.Timeout = "15s"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 256
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "24h"
	}
}

func (c *Config) loadEnv(env *Env) error {
	if v := lookup(env.Enabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env.Enabled, err)
		}
		c.Enabled = b
	}
	if v := lookup(env.BaseURL); v != "" {
		c.BaseURL = v
	}
	if v := lookup(env.Year); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env.Year, err)
		}
		c.Year = year
	}
	return nil
}

func (c *Config) validate() error {
	if c.Year < 1940 {
		return fmt.Errorf("year %d predates the archive", c.Year)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if err := c.Retry.Finalize(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
