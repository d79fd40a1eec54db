package safety

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config configures the Azure AI Content Safety client.
type Config struct {
	Enabled    bool   `toml:"enabled"`
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	APIVersion string `toml:"api_version"`
	// MaxSeverity is the highest severity accepted in any category.
	// Azure reports image severities as 0, 2, 4, or 6.
	MaxSeverity int    `toml:"max_severity"`
	MaxRetries  int32  `toml:"max_retries"`
	Timeout     string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled  string
	Endpoint string
	APIKey   string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.APIVersion == "" {
		c.APIVersion = "2023-10-01"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}

	if env != nil {
		if v := lookup(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
		if v := lookup(env.Endpoint); v != "" {
			c.Endpoint = v
		}
		if v := lookup(env.APIKey); v != "" {
			c.APIKey = v
		}
	}

	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxSeverity < 0 {
		return fmt.Errorf("max_severity must not be negative")
	}
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("endpoint required when enabled")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.APIVersion != "" {
		c.APIVersion = overlay.APIVersion
	}
	if overlay.MaxSeverity != 0 {
		c.MaxSeverity = overlay.MaxSeverity
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
