package plans

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls the scheduled purge of old plans.
type RetentionConfig struct {
	Enabled bool `toml:"enabled"`
	// Schedule is a standard five-field cron expression or descriptor.
	Schedule string `toml:"schedule"`
	MaxAge   string `toml:"max_age"`
}

// RetentionEnv maps config fields to environment variable names for override injection.
type RetentionEnv struct {
	Enabled  string
	Schedule string
	MaxAge   string
}

// MaxAgeDuration returns MaxAge as a time.Duration.
func (c *RetentionConfig) MaxAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxAge)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RetentionConfig) Finalize(env *RetentionEnv) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RetentionConfig) Merge(overlay *RetentionConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Schedule != "" {
		c.Schedule = overlay.Schedule
	}
	if overlay.MaxAge != "" {
		c.MaxAge = overlay.MaxAge
	}
}

func (c *RetentionConfig) loadDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@daily"
	}
	if c.MaxAge == "" {
		c.MaxAge = "720h"
	}
}

func (c *RetentionConfig) loadEnv(env *RetentionEnv) error {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.Enabled, err)
			}
			c.Enabled = b
		}
	}
	if env.Schedule != "" {
		if v := os.Getenv(env.Schedule); v != "" {
			c.Schedule = v
		}
	}
	if env.MaxAge != "" {
		if v := os.Getenv(env.MaxAge); v != "" {
			c.MaxAge = v
		}
	}
	return nil
}

func (c *RetentionConfig) validate() error {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return fmt.Errorf("invalid max_age: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("max_age must be positive")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	return nil
}
