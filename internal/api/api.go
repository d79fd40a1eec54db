// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/citygarden/internal/config"
	"github.com/JaimeStill/citygarden/internal/infrastructure"
	"github.com/JaimeStill/citygarden/pkg/middleware"
	"github.com/JaimeStill/citygarden/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware,
// and registers the retention sweeper with the lifecycle.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}
	if err := domain.Retention.Start(runtime.Lifecycle); err != nil {
		return nil, fmt.Errorf("retention start failed: %w", err)
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}

	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.API.RateLimit.Enabled {
		m.Use(middleware.RateLimit(&cfg.API.RateLimit, runtime.Logger))
	}

	if cfg.API.Auth.Enabled {
		verifier, err := middleware.NewVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		m.Use(middleware.Auth(verifier, cfg.API.Auth.SkipPaths, runtime.Logger))
	}

	return m, nil
}
