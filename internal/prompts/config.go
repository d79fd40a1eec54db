package prompts

import (
	"fmt"
	"os"
)

// Config locates prompt template overrides.
type Config struct {
	// Dir holds YAML files that replace or extend the embedded defaults.
	// Empty uses the defaults only.
	Dir string `toml:"dir"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Dir string
}

// Finalize applies environment variable overrides and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil && env.Dir != "" {
		if v := os.Getenv(env.Dir); v != "" {
			c.Dir = v
		}
	}

	if c.Dir == "" {
		return nil
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("prompt dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("prompt dir %s is not a directory", c.Dir)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
}
