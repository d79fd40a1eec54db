package ai

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

var (
	chatProviders  = []string{ProviderOpenAI, ProviderAzure, ProviderGoogle, ProviderAnthropic, ProviderBedrock}
	imageProviders = []string{ProviderOpenAI, ProviderAzure, ProviderGoogle}
)

// Config holds model provider settings for completions and image generation.
type Config struct {
	Chat    ProviderConfig `toml:"chat"`
	Images  ProviderConfig `toml:"images"`
	Breaker BreakerConfig  `toml:"breaker"`
	Timeout string         `toml:"timeout"`
}

// ProviderConfig identifies a provider, its model, and its credentials.
// Endpoint and APIVersion apply to Azure; Region applies to Bedrock.
// An empty APIKey for Azure selects Entra ID credentials.
type ProviderConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	EditModel   string  `toml:"edit_model"`
	APIKey      string  `toml:"api_key"`
	Endpoint    string  `toml:"endpoint"`
	APIVersion  string  `toml:"api_version"`
	Region      string  `toml:"region"`
	Size        string  `toml:"size"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	MaxRetries  int     `toml:"max_retries"`
}

// BreakerConfig configures the circuit breaker wrapped around each client.
type BreakerConfig struct {
	MaxFailures uint32 `toml:"max_failures"`
	Timeout     string `toml:"timeout"`
	Interval    string `toml:"interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Chat    ProviderEnv
	Images  ProviderEnv
	Timeout string
}

// ProviderEnv maps provider fields to environment variable names.
type ProviderEnv struct {
	Provider   string
	Model      string
	EditModel  string
	APIKey     string
	Endpoint   string
	APIVersion string
	Region     string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// TimeoutDuration returns the breaker open-state timeout.
func (c *BreakerConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// IntervalDuration returns the closed-state count reset interval.
func (c *BreakerConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
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
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	c.Chat.Merge(&overlay.Chat)
	c.Images.Merge(&overlay.Images)

	if overlay.Breaker.MaxFailures != 0 {
		c.Breaker.MaxFailures = overlay.Breaker.MaxFailures
	}
	if overlay.Breaker.Timeout != "" {
		c.Breaker.Timeout = overlay.Breaker.Timeout
	}
	if overlay.Breaker.Interval != "" {
		c.Breaker.Interval = overlay.Breaker.Interval
	}
}

// Merge overwrites non-zero fields from overlay.
func (c *ProviderConfig) Merge(overlay *ProviderConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.EditModel != "" {
		c.EditModel = overlay.EditModel
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.APIVersion != "" {
		c.APIVersion = overlay.APIVersion
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Size != "" {
		c.Size = overlay.Size
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "2m"
	}

	if c.Chat.Provider == "" {
		c.Chat.Provider = ProviderAzure
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o"
	}
	if c.Chat.APIVersion == "" {
		c.Chat.APIVersion = "2024-12-01-preview"
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = 4096
	}
	if c.Chat.MaxRetries == 0 {
		c.Chat.MaxRetries = 2
	}

	if c.Images.Provider == "" {
		c.Images.Provider = ProviderOpenAI
	}
	if c.Images.Model == "" {
		c.Images.Model = "gpt-image-1"
	}
	if c.Images.EditModel == "" {
		c.Images.EditModel = c.Images.Model
	}
	if c.Images.Size == "" {
		c.Images.Size = "1024x1024"
	}
	if c.Images.APIVersion == "" {
		c.Images.APIVersion = c.Chat.APIVersion
	}
	if c.Images.MaxRetries == 0 {
		c.Images.MaxRetries = 2
	}

	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.Timeout == "" {
		c.Breaker.Timeout = "30s"
	}
	if c.Breaker.Interval == "" {
		c.Breaker.Interval = "1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	c.Chat.loadEnv(&env.Chat)
	c.Images.loadEnv(&env.Images)
}

func (c *ProviderConfig) loadEnv(env *ProviderEnv) {
	set := func(name string, field *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	set(env.Provider, &c.Provider)
	set(env.Model, &c.Model)
	set(env.EditModel, &c.EditModel)
	set(env.APIKey, &c.APIKey)
	set(env.Endpoint, &c.Endpoint)
	set(env.APIVersion, &c.APIVersion)
	set(env.Region, &c.Region)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Breaker.Timeout); err != nil {
		return fmt.Errorf("invalid breaker timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Breaker.Interval); err != nil {
		return fmt.Errorf("invalid breaker interval: %w", err)
	}
	if err := c.Chat.validate(chatProviders); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := c.Images.validate(imageProviders); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	return nil
}

func (c *ProviderConfig) validate(allowed []string) error {
	if !slices.Contains(allowed, c.Provider) {
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.Provider == ProviderAzure && c.Endpoint == "" {
		return fmt.Errorf("endpoint required for azure")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %s", strconv.FormatFloat(c.Temperature, 'f', -1, 64))
	}
	return nil
}
