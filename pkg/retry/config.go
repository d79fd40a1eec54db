// Package retry runs operations with exponential backoff for transient
// failures such as rate limits, 5xx responses, and network timeouts.
package retry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds backoff parameters. The first call counts as attempt one.
type Config struct {
	MaxAttempts  int     `toml:"max_attempts"`
	InitialDelay string  `toml:"initial_delay"`
	MaxDelay     string  `toml:"max_delay"`
	Multiplier   float64 `toml:"multiplier"`
	Jitter       float64 `toml:"jitter"`
}

// DefaultConfig returns 3 attempts starting at 500ms and doubling to at most 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: "500ms",
		MaxDelay:     "10s",
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Disabled returns a single-attempt configuration.
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

// Finalize fills unset fields from DefaultConfig and validates durations.
func (c *Config) Finalize() error {
	def := DefaultConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay == "" {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay == "" {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier == 0 {
		c.Multiplier = def.Multiplier
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.InitialDelay); err != nil {
		return fmt.Errorf("invalid initial_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxDelay); err != nil {
		return fmt.Errorf("invalid max_delay: %w", err)
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("jitter must be between 0 and 1")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.InitialDelay != "" {
		c.InitialDelay = overlay.InitialDelay
	}
	if overlay.MaxDelay != "" {
		c.MaxDelay = overlay.MaxDelay
	}
	if overlay.Multiplier != 0 {
		c.Multiplier = overlay.Multiplier
	}
	if overlay.Jitter != 0 {
		c.Jitter = overlay.Jitter
	}
}

// Delay returns the wait before the retry following attempt (0-indexed):
// min(max, initial * multiplier^attempt), scaled by a random jitter factor.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	initial, _ := time.ParseDuration(c.InitialDelay)
	ceiling, _ := time.ParseDuration(c.MaxDelay)

	mult := c.Multiplier
	if mult == 0 {
		mult = 1
	}

	delay := float64(initial) * math.Pow(mult, float64(attempt))
	if ceiling > 0 && delay > float64(ceiling) {
		delay = float64(ceiling)
	}
	if c.Jitter > 0 {
		delay *= 1.0 + (rand.Float64()*2-1)*c.Jitter
	}
	return time.Duration(delay)
}
