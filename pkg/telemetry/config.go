// Package telemetry configures OpenTelemetry tracing and Prometheus metrics.
package telemetry

import (
	"fmt"
	"os"
	"strconv"
)

// Exporters accepted by Config.Exporter.
const (
	ExporterNoop   = "noop"
	ExporterStdout = "stdout"
)

// Config controls span export.
type Config struct {
	Enabled     bool   `toml:"enabled"`
	Exporter    string `toml:"exporter"`
	ServiceName string `toml:"service_name"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Enabled  string
	Exporter string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Exporter == "" {
		c.Exporter = ExporterNoop
	}
	if c.ServiceName == "" {
		c.ServiceName = "citygarden"
	}

	if env != nil {
		if env.Enabled != "" {
			if v := os.Getenv(env.Enabled); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("invalid %s: %w", env.Enabled, err)
				}
				c.Enabled = b
			}
		}
		if env.Exporter != "" {
			if v := os.Getenv(env.Exporter); v != "" {
				c.Exporter = v
			}
		}
	}

	switch c.Exporter {
	case ExporterNoop, ExporterStdout:
		return nil
	default:
		return fmt.Errorf("unsupported exporter: %s", c.Exporter)
	}
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Exporter != "" {
		c.Exporter = overlay.Exporter
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
}
