package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/citygarden/pkg/formatting"
	"github.com/JaimeStill/citygarden/pkg/middleware"
	"github.com/JaimeStill/citygarden/pkg/openapi"
	"github.com/JaimeStill/citygarden/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CITYGARDEN_CORS_ENABLED",
	Origins:          "CITYGARDEN_CORS_ORIGINS",
	AllowedMethods:   "CITYGARDEN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CITYGARDEN_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CITYGARDEN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CITYGARDEN_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "CITYGARDEN_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "CITYGARDEN_PAGINATION_MAX_PAGE_SIZE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:  "CITYGARDEN_AUTH_ENABLED",
	Issuer:   "CITYGARDEN_AUTH_ISSUER",
	ClientID: "CITYGARDEN_AUTH_CLIENT_ID",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "CITYGARDEN_OPENAPI_TITLE",
	Description: "CITYGARDEN_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, request limits, CORS, auth, rate limiting,
// pagination, and OpenAPI document settings.
type APIConfig struct {
	BasePath    string                     `toml:"base_path"`
	MaxBodySize string                     `toml:"max_body_size"`
	CORS        middleware.CORSConfig      `toml:"cors"`
	Auth        middleware.AuthConfig      `toml:"auth"`
	RateLimit   middleware.RateLimitConfig `toml:"rate_limit"`
	Pagination  pagination.Config          `toml:"pagination"`
	OpenAPI     openapi.Config             `toml:"openapi"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 1 << 20
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.RateLimit.Finalize(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.RateLimit.Merge(&overlay.RateLimit)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("CITYGARDEN_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("CITYGARDEN_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}
