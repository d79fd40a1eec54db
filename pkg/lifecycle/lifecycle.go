// Package lifecycle coordinates named startup and shutdown hooks across
// subsystems.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Hook is a named lifecycle function.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Coordinator runs startup hooks concurrently, records their failures, and
// runs shutdown hooks concurrently once the root context is cancelled.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startupWg sync.WaitGroup
	errMu     sync.Mutex
	errs      []error

	shutdownMu sync.Mutex
	shutdown   []namedHook

	readyMu sync.RWMutex
	ready   bool
}

// New creates a Coordinator with a cancellable root context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's root context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup starts fn immediately in its own goroutine. A non-nil error
// is reported by WaitForStartup.
func (c *Coordinator) OnStartup(name string, fn Hook) {
	c.startupWg.Go(func() {
		if err := fn(c.ctx); err != nil {
			c.errMu.Lock()
			c.errs = append(c.errs, fmt.Errorf("%s: %w", name, err))
			c.errMu.Unlock()
		}
	})
}

// OnShutdown registers fn to run after the root context is cancelled. The
// context passed to fn expires with the Shutdown timeout.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()
	c.shutdown = append(c.shutdown, namedHook{name: name, fn: fn})
}

// Ready reports whether startup completed without errors.
func (c *Coordinator) Ready() bool {
	c.readyMu.RLock()
	defer c.readyMu.RUnlock()
	return c.ready
}

// WaitForStartup blocks until all startup hooks return. It marks the
// coordinator ready when none failed and otherwise returns their joined errors.
func (c *Coordinator) WaitForStartup() error {
	c.startupWg.Wait()

	c.errMu.Lock()
	err := errors.Join(c.errs...)
	c.errMu.Unlock()

	if err != nil {
		return err
	}

	c.readyMu.Lock()
	c.ready = true
	c.readyMu.Unlock()
	return nil
}

// Shutdown cancels the root context, marks the coordinator not ready, and
// runs shutdown hooks concurrently within timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.readyMu.Lock()
	c.ready = false
	c.readyMu.Unlock()
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.shutdownMu.Lock()
	hooks := c.shutdown
	c.shutdownMu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Go(func() {
			if err := h.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				mu.Unlock()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return errors.Join(errs...)
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
