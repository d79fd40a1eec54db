// Package plans runs garden planning requests through the pipeline and
// keeps a record of every run.
package plans

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/pagination"
)

// System defines the public contract for plan domain operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Plan], error)

	Find(ctx context.Context, id uuid.UUID) (*Plan, error)
	Create(ctx context.Context, req CreateRequest) (*Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Purge(ctx context.Context, before time.Time) (int, error)
}

// Blobs reads caller photos and removes generated images.
type Blobs interface {
	Download(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}

// Screener rejects unsafe photos before they reach the pipeline.
type Screener interface {
	Screen(ctx context.Context, images [][]byte) error
}

// Runner executes the planning pipeline.
type Runner interface {
	Execute(ctx context.Context, in workflow.Input) (*workflow.Result, error)
}
