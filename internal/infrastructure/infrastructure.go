// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, database, storage, model clients,
// telemetry, prompts, content screening, and climate lookups) that domain
// systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/JaimeStill/citygarden/internal/climate"
	"github.com/JaimeStill/citygarden/internal/config"
	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/internal/safety"
	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/database"
	"github.com/JaimeStill/citygarden/pkg/lifecycle"
	"github.com/JaimeStill/citygarden/pkg/storage"
	"github.com/JaimeStill/citygarden/pkg/telemetry"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage, and model access.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Chat      ai.Client
	Images    ai.ImageClient
	Metrics   *telemetry.Metrics
	Prompts   *prompts.Catalog
	Safety    *safety.Client
	// Climate is nil when climate lookups are disabled.
	Climate *climate.Client

	tracing func(context.Context) error
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	storeCfg := cfg.Storage
	if !slices.Contains(storeCfg.Containers, cfg.Workflow.OutputContainer) {
		storeCfg.Containers = append(slices.Clone(storeCfg.Containers), cfg.Workflow.OutputContainer)
	}
	store, err := storage.New(ctx, &storeCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	chat, images, err := newAI(ctx, &cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("ai init failed: %w", err)
	}

	tracing, err := telemetry.Setup(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	catalog, err := prompts.Load(&cfg.Prompts, logger)
	if err != nil {
		return nil, fmt.Errorf("prompts init failed: %w", err)
	}

	screener, err := safety.New(&cfg.Safety, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("safety init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Chat:      chat,
		Images:    images,
		Metrics:   telemetry.NewMetrics("citygarden"),
		Prompts:   catalog,
		Safety:    screener,
		tracing:   tracing,
	}
	if cfg.Climate.Enabled {
		infra.Climate = climate.New(&cfg.Climate, logger)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown
// coordination; the tracer provider is flushed on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if i.tracing != nil {
		i.Lifecycle.OnShutdown("tracing", i.tracing)
	}
	return nil
}
