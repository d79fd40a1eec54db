package workflow

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls pipeline execution.
type Config struct {
	// Timeout bounds a whole pipeline run.
	Timeout         string `toml:"timeout"`
	OutputContainer string `toml:"output_container"`
	MaxSteps        int    `toml:"max_steps"`
	// PlantImageConcurrency bounds parallel plant image generations.
	PlantImageConcurrency int `toml:"plant_image_concurrency"`
	// PlantImageRate paces plant image requests per second. Zero disables pacing.
	PlantImageRate  float64 `toml:"plant_image_rate"`
	PlantImageBurst int     `toml:"plant_image_burst"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Timeout               string
	OutputContainer       string
	PlantImageConcurrency string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.OutputContainer != "" {
		c.OutputContainer = overlay.OutputContainer
	}
	if overlay.MaxSteps != 0 {
		c.MaxSteps = overlay.MaxSteps
	}
	if overlay.PlantImageConcurrency != 0 {
		c.PlantImageConcurrency = overlay.PlantImageConcurrency
	}
	if overlay.PlantImageRate != 0 {
		c.PlantImageRate = overlay.PlantImageRate
	}
	if overlay.PlantImageBurst != 0 {
		c.PlantImageBurst = overlay.PlantImageBurst
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.OutputContainer == "" {
		c.OutputContainer = "images"
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = 20
	}
	if c.PlantImageConcurrency == 0 {
		c.PlantImageConcurrency = 4
	}
	if c.PlantImageBurst == 0 {
		c.PlantImageBurst = 1
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.OutputContainer != "" {
		if v := os.Getenv(env.OutputContainer); v != "" {
			c.OutputContainer = v
		}
	}
	if env.PlantImageConcurrency != "" {
		if v := os.Getenv(env.PlantImageConcurrency); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.PlantImageConcurrency, err)
			}
			c.PlantImageConcurrency = n
		}
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.PlantImageConcurrency < 1 {
		return fmt.Errorf("plant_image_concurrency must be positive")
	}
	if c.PlantImageRate < 0 {
		return fmt.Errorf("plant_image_rate must not be negative")
	}
	if c.MaxSteps < 5 {
		return fmt.Errorf("max_steps (%d) is below the pipeline length", c.MaxSteps)
	}
	return nil
}
