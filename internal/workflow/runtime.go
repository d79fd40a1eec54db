package workflow

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/citygarden/internal/climate"
	"github.com/JaimeStill/citygarden/internal/prompts"
	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/telemetry"
)

// Prompts renders instruction templates.
type Prompts interface {
	Render(key prompts.Key, data any) (string, error)
	Require(keys ...prompts.Key) error
}

// Uploader persists generated images and returns their URLs.
type Uploader interface {
	Upload(ctx context.Context, container, name string, data []byte, contentType string) (string, error)
}

// Climate supplies a monthly climate profile for a site.
type Climate interface {
	Summary(ctx context.Context, latitude, longitude float64) (*climate.Summary, error)
}

// Runtime bundles the dependencies that workflow stages require.
// It is constructed by higher-level composition code from Infrastructure.
type Runtime struct {
	Chat    ai.Client
	Images  ai.ImageClient
	Storage Uploader
	Prompts Prompts
	// Climate is optional; nil skips the climate summary.
	Climate Climate
	// Metrics is optional.
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}
