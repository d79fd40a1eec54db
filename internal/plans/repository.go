package plans

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/pagination"
	"github.com/JaimeStill/citygarden/pkg/query"
	"github.com/JaimeStill/citygarden/pkg/repository"
)

const insertPlan = `
	INSERT INTO plans(id, status, location, latitude, longitude, style_preferences, image_urls, analysis,
		plant_recommendations, final_output, garden_image_url, plant_images, path, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING id, status, location, latitude, longitude, style_preferences, image_urls, analysis,
		plant_recommendations, final_output, garden_image_url, plant_images, path, error, created_at`

var domainErrors = repository.DomainErrors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidRequest,
}

type repo struct {
	db         *sql.DB
	blobs      Blobs
	screener   Screener
	runner     Runner
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a plan repository implementing the System interface.
func New(
	db *sql.DB,
	blobs Blobs,
	screener Screener,
	runner Runner,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		blobs:      blobs,
		screener:   screener,
		runner:     runner,
		logger:     logger.With("system", "plans"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Plan], error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "location", "style_preferences")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderBy(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count plans: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	plans, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPlan)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}

	result := pagination.NewPageResult(plans, total, page)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Plan, error) {
	q, args := query.NewBuilder(projection).BuildSingle("id", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPlan)
	if err != nil {
		return nil, domainErrors.MapError(err)
	}
	return &p, nil
}

// Create loads and screens the photos, runs the pipeline, and records the
// run. A pipeline failure is recorded as a failed plan and returned
// alongside the error.
func (r *repo) Create(ctx context.Context, req CreateRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	images, err := r.download(ctx, req.ImageURLs)
	if err != nil {
		return nil, err
	}

	if err := r.screener.Screen(ctx, images); err != nil {
		return nil, fmt.Errorf("screen images: %w", err)
	}

	res, runErr := r.runner.Execute(ctx, workflow.Input{
		Images:           images,
		Latitude:         *req.Location.Latitude,
		Longitude:        *req.Location.Longitude,
		StylePreferences: req.UserPreferences.Style(),
		Location:         req.Location.Address,
	})

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate plan id: %w", err)
	}
	record := fromResult(id, req, res, runErr)

	// The request context may already be done when the pipeline failed on
	// cancellation; the record is still written.
	saved, err := r.insert(context.WithoutCancel(ctx), &record)
	if err != nil {
		r.cleanup(context.WithoutCancel(ctx), record.generatedURLs())
		return nil, err
	}

	r.logger.Info("plan created", "id", saved.ID, "status", saved.Status)

	if runErr != nil {
		return saved, fmt.Errorf("plan %s: %w", saved.ID, runErr)
	}
	return saved, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM plans WHERE id = $1", id)
	})
	if err != nil {
		return domainErrors.MapError(err)
	}

	r.cleanup(ctx, p.generatedURLs())

	r.logger.Info("plan deleted", "id", id)
	return nil
}

// Purge deletes plans created before the cutoff along with their
// generated images and returns the number of plans removed.
func (r *repo) Purge(ctx context.Context, before time.Time) (int, error) {
	purged, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Plan, error) {
		return repository.QueryMany(
			ctx, tx,
			"DELETE FROM plans WHERE created_at < $1 RETURNING id, garden_image_url, plant_images",
			[]any{before},
			scanGenerated,
		)
	})
	if err != nil {
		return 0, fmt.Errorf("purge plans: %w", err)
	}

	for _, p := range purged {
		r.cleanup(ctx, p.generatedURLs())
	}

	if len(purged) > 0 {
		r.logger.Info("plans purged", "count", len(purged), "before", before)
	}
	return len(purged), nil
}

func (r *repo) insert(ctx context.Context, p *Plan) (*Plan, error) {
	args, err := insertArgs(p)
	if err != nil {
		return nil, err
	}

	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Plan, error) {
		return repository.QueryOne(ctx, tx, insertPlan, args, scanPlan)
	})
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", domainErrors.MapError(err))
	}
	return &saved, nil
}

// download fetches every photo concurrently, preserving request order.
func (r *repo) download(ctx context.Context, urls []string) ([][]byte, error) {
	images := make([][]byte, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			data, err := r.blobs.Download(gctx, u)
			if err != nil {
				return fmt.Errorf("%w: image %d: %w", ErrImageLoad, i, err)
			}
			images[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (r *repo) cleanup(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := r.blobs.Delete(ctx, u); err != nil {
			r.logger.Warn("generated image delete failed", "url", u, "error", err)
		}
	}
}
