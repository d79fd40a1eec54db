package storage

import (
	"fmt"
	"os"

	"github.com/JaimeStill/citygarden/pkg/formatting"
)

// Backend names accepted in configuration.
const (
	BackendAzure = "azure"
	BackendGCS   = "gcs"
)

// Config selects a blob backend and the containers it must provide.
// Azure authenticates with ConnectionString when set, otherwise with
// ServiceURL and the default Azure credential chain. GCS uses application
// default credentials and treats containers as bucket names.
type Config struct {
	Backend          string   `toml:"backend"`
	ConnectionString string   `toml:"connection_string"`
	ServiceURL       string   `toml:"service_url"`
	Containers       []string `toml:"containers"`
	MaxDownloadSize  string   `toml:"max_download_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend          string
	ConnectionString string
	ServiceURL       string
	MaxDownloadSize  string
}

// MaxDownloadBytes returns MaxDownloadSize as a byte count.
func (c *Config) MaxDownloadBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxDownloadSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if len(overlay.Containers) > 0 {
		c.Containers = overlay.Containers
	}
	if overlay.MaxDownloadSize != "" {
		c.MaxDownloadSize = overlay.MaxDownloadSize
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendAzure
	}
	if c.MaxDownloadSize == "" {
		c.MaxDownloadSize = "20MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, field *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	set(env.Backend, &c.Backend)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.ServiceURL, &c.ServiceURL)
	set(env.MaxDownloadSize, &c.MaxDownloadSize)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendAzure:
		if c.ConnectionString == "" && c.ServiceURL == "" {
			return fmt.Errorf("connection_string or service_url required")
		}
	case BackendGCS:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}

	if n, err := formatting.ParseBytes(c.MaxDownloadSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_download_size %q", c.MaxDownloadSize)
	}
	for _, name := range c.Containers {
		if err := validateKey(name); err != nil {
			return fmt.Errorf("container %q: %w", name, err)
		}
	}
	return nil
}
