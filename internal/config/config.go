// Package config loads service configuration from TOML files with
// environment overlays and CITYGARDEN_* variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/citygarden/internal/climate"
	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/internal/safety"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/database"
	"github.com/JaimeStill/citygarden/pkg/storage"
	"github.com/JaimeStill/citygarden/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCitygardenEnv             = "CITYGARDEN_ENV"
	EnvCitygardenShutdownTimeout = "CITYGARDEN_SHUTDOWN_TIMEOUT"
	EnvCitygardenVersion         = "CITYGARDEN_VERSION"
)

var databaseEnv = &database.Env{
	URL:             "CITYGARDEN_DB_DSN",
	Host:            "CITYGARDEN_DB_HOST",
	Port:            "CITYGARDEN_DB_PORT",
	Name:            "CITYGARDEN_DB_NAME",
	User:            "CITYGARDEN_DB_USER",
	Password:        "CITYGARDEN_DB_PASSWORD",
	SSLMode:         "CITYGARDEN_DB_SSL_MODE",
	MaxOpenConns:    "CITYGARDEN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CITYGARDEN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CITYGARDEN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CITYGARDEN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Backend:          "CITYGARDEN_STORAGE_BACKEND",
	ConnectionString: "CITYGARDEN_STORAGE_CONNECTION_STRING",
	ServiceURL:       "CITYGARDEN_STORAGE_SERVICE_URL",
	MaxDownloadSize:  "CITYGARDEN_STORAGE_MAX_DOWNLOAD_SIZE",
}

var aiEnv = &ai.Env{
	Chat: ai.ProviderEnv{
		Provider:   "CITYGARDEN_AI_CHAT_PROVIDER",
		Model:      "CITYGARDEN_AI_CHAT_MODEL",
		APIKey:     "CITYGARDEN_AI_CHAT_API_KEY",
		Endpoint:   "CITYGARDEN_AI_CHAT_ENDPOINT",
		APIVersion: "CITYGARDEN_AI_CHAT_API_VERSION",
		Region:     "CITYGARDEN_AI_CHAT_REGION",
	},
	Images: ai.ProviderEnv{
		Provider:   "CITYGARDEN_AI_IMAGES_PROVIDER",
		Model:      "CITYGARDEN_AI_IMAGES_MODEL",
		EditModel:  "CITYGARDEN_AI_IMAGES_EDIT_MODEL",
		APIKey:     "CITYGARDEN_AI_IMAGES_API_KEY",
		Endpoint:   "CITYGARDEN_AI_IMAGES_ENDPOINT",
		APIVersion: "CITYGARDEN_AI_IMAGES_API_VERSION",
	},
	Timeout: "CITYGARDEN_AI_TIMEOUT",
}

var safetyEnv = &safety.Env{
	Enabled:  "CITYGARDEN_SAFETY_ENABLED",
	Endpoint: "CITYGARDEN_SAFETY_ENDPOINT",
	APIKey:   "CITYGARDEN_SAFETY_API_KEY",
}

var climateEnv = &climate.Env{
	Enabled: "CITYGARDEN_CLIMATE_ENABLED",
	BaseURL: "CITYGARDEN_CLIMATE_BASE_URL",
	Year:    "CITYGARDEN_CLIMATE_YEAR",
}

var workflowEnv = &workflow.Env{
	Timeout:               "CITYGARDEN_WORKFLOW_TIMEOUT",
	OutputContainer:       "CITYGARDEN_WORKFLOW_OUTPUT_CONTAINER",
	PlantImageConcurrency: "CITYGARDEN_WORKFLOW_PLANT_IMAGE_CONCURRENCY",
}

var tracingEnv = &telemetry.Env{
	Enabled:  "CITYGARDEN_TRACING_ENABLED",
	Exporter: "CITYGARDEN_TRACING_EXPORTER",
}

var retentionEnv = &plans.RetentionEnv{
	Enabled:  "CITYGARDEN_RETENTION_ENABLED",
	Schedule: "CITYGARDEN_RETENTION_SCHEDULE",
	MaxAge:   "CITYGARDEN_RETENTION_MAX_AGE",
}

var promptsEnv = &prompts.Env{
	Dir: "CITYGARDEN_PROMPTS_DIR",
}

// Config is the root configuration for the citygarden service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	API             APIConfig             `toml:"api"`
	AI              ai.Config             `toml:"ai"`
	Safety          safety.Config         `toml:"safety"`
	Climate         climate.Config        `toml:"climate"`
	Workflow        workflow.Config       `toml:"workflow"`
	Tracing         telemetry.Config      `toml:"tracing"`
	Retention       plans.RetentionConfig `toml:"retention"`
	Prompts         prompts.Config        `toml:"prompts"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the CITYGARDEN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCitygardenEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase resolves only the database section from the same files and
// environment as Load. The remaining sections are not validated.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	return &cfg.Database, nil
}

func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.AI.Merge(&overlay.AI)
	c.Safety.Merge(&overlay.Safety)
	c.Climate.Merge(&overlay.Climate)
	c.Workflow.Merge(&overlay.Workflow)
	c.Tracing.Merge(&overlay.Tracing)
	c.Retention.Merge(&overlay.Retention)
	c.Prompts.Merge(&overlay.Prompts)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.AI.Finalize(aiEnv); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Safety.Finalize(safetyEnv); err != nil {
		return fmt.Errorf("safety: %w", err)
	}
	if err := c.Climate.Finalize(climateEnv); err != nil {
		return fmt.Errorf("climate: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Tracing.Finalize(tracingEnv); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Retention.Finalize(retentionEnv); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	if err := c.Prompts.Finalize(promptsEnv); err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	if c.Server.WriteTimeoutDuration() <= c.Workflow.TimeoutDuration() {
		return fmt.Errorf("server write_timeout (%s) must exceed workflow timeout (%s)",
			c.Server.WriteTimeout, c.Workflow.Timeout)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCitygardenShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCitygardenVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCitygardenEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
