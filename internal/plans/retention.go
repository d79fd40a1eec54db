package plans

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/citygarden/pkg/lifecycle"
)

// Purger removes plans created before a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// Sweeper purges plans older than the configured age on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	schedule cron.Schedule
	purger   Purger
	maxAge   time.Duration
	enabled  bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweeper creates a Sweeper. Nothing is scheduled until Start.
func NewSweeper(cfg *RetentionConfig, purger Purger, logger *slog.Logger) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule: %w", err)
	}

	return &Sweeper{
		cron:     cron.New(),
		schedule: schedule,
		purger:   purger,
		maxAge:   cfg.MaxAgeDuration(),
		enabled:  cfg.Enabled,
		logger:   logger.With("system", "retention"),
		now:      time.Now,
	}, nil
}

// Sweep purges plans older than the retention age once.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)

	n, err := s.purger.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("retention sweep finished", "purged", n, "cutoff", cutoff)
	return n, nil
}

// Start schedules the sweep and registers the cron scheduler with the
// lifecycle. A disabled sweeper registers nothing.
func (s *Sweeper) Start(lc *lifecycle.Coordinator) error {
	if !s.enabled {
		s.logger.Info("retention disabled")
		return nil
	}

	root := lc.Context()
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.Sweep(root); err != nil {
			s.logger.Warn("retention sweep failed", "error", err)
		}
	}))

	lc.OnStartup("retention", func(ctx context.Context) error {
		s.cron.Start()
		s.logger.Info("retention scheduled", "max_age", s.maxAge)
		return nil
	})

	lc.OnShutdown("retention", func(ctx context.Context) error {
		select {
		case <-s.cron.Stop().Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("retention sweep still running: %w", ctx.Err())
		}
	})

	return nil
}
