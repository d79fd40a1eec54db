package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/citygarden/pkg/retry"
)

func fast(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: "1ms",
		MaxDelay:     "5ms",
		Multiplier:   2,
	}
}

func TestDoSuccess(t *testing.T) {
	calls := 0
	got, err := retry.Do(context.Background(), fast(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	got, err := retry.Do(context.Background(), fast(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &retry.StatusError{Code: http.StatusServiceUnavailable}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fast(5), func(context.Context) (int, error) {
		calls++
		return 0, &retry.StatusError{Code: http.StatusBadRequest}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := &retry.StatusError{Code: http.StatusTooManyRequests}
	_, err := retry.Do(context.Background(), fast(4), func(context.Context) (int, error) {
		calls++
		return 0, transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 4, calls)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxAttempts: 3, InitialDelay: "1h", MaxDelay: "1h", Multiplier: 1}

	calls := 0
	_, err := retry.Do(ctx, cfg, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &retry.StatusError{Code: http.StatusBadGateway}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &retry.StatusError{Code: 429}, true},
		{"request timeout", &retry.StatusError{Code: 408}, true},
		{"bad gateway", &retry.StatusError{Code: 502}, true},
		{"not implemented", &retry.StatusError{Code: 501}, false},
		{"bad request", &retry.StatusError{Code: 400}, false},
		{"wrapped status", fmt.Errorf("fetch: %w", &retry.StatusError{Code: 503}), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"message pattern", errors.New("upstream: Service Unavailable"), true},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.IsTransient(tt.err))
		})
	}
}

func TestDelay(t *testing.T) {
	cfg := retry.Config{InitialDelay: "100ms", MaxDelay: "1s", Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, time.Second, cfg.Delay(10))
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(-1))
}

func TestDelayJitterBounds(t *testing.T) {
	cfg := retry.Config{InitialDelay: "100ms", MaxDelay: "1s", Multiplier: 2, Jitter: 0.5}

	for range 50 {
		d := cfg.Delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestConfigFinalize(t *testing.T) {
	var cfg retry.Config
	require.NoError(t, cfg.Finalize())
	def := retry.DefaultConfig()
	assert.Equal(t, def.MaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, def.InitialDelay, cfg.InitialDelay)
	assert.Equal(t, def.MaxDelay, cfg.MaxDelay)
	assert.Equal(t, def.Multiplier, cfg.Multiplier)

	bad := retry.Config{InitialDelay: "soon"}
	assert.Error(t, bad.Finalize())
}
