package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen indicates a provider is failing fast after repeated errors.
var ErrCircuitOpen = errors.New("circuit open")

func newBreaker[T any](name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.IntervalDuration(),
		Timeout:     cfg.TimeoutDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	})
}

func breakerError(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrCircuitOpen, name, err)
	}
	return err
}

// BreakerClient guards a Client with a circuit breaker.
type BreakerClient struct {
	inner   Client
	name    string
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps inner with a circuit breaker named name.
func NewBreaker(inner Client, name string, cfg BreakerConfig, logger *slog.Logger) *BreakerClient {
	return &BreakerClient{
		inner:   inner,
		name:    name,
		breaker: newBreaker[string](name, cfg, logger),
	}
}

func (b *BreakerClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		return "", breakerError(b.name, err)
	}
	return out, nil
}

// State returns the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

// BreakerImageClient guards an ImageClient with a circuit breaker.
type BreakerImageClient struct {
	inner   ImageClient
	name    string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewImageBreaker wraps inner with a circuit breaker named name.
func NewImageBreaker(inner ImageClient, name string, cfg BreakerConfig, logger *slog.Logger) *BreakerImageClient {
	return &BreakerImageClient{
		inner:   inner,
		name:    name,
		breaker: newBreaker[[]byte](name, cfg, logger),
	}
}

func (b *BreakerImageClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	out, err := b.breaker.Execute(func() ([]byte, error) {
		return b.inner.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, breakerError(b.name, err)
	}
	return out, nil
}

func (b *BreakerImageClient) Edit(ctx context.Context, prompt string, images [][]byte) ([]byte, error) {
	out, err := b.breaker.Execute(func() ([]byte, error) {
		return b.inner.Edit(ctx, prompt, images)
	})
	if err != nil {
		return nil, breakerError(b.name, err)
	}
	return out, nil
}

// State returns the current breaker state.
func (b *BreakerImageClient) State() gobreaker.State {
	return b.breaker.State()
}
