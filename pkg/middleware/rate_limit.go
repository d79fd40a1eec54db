package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds request rates per client address.
type RateLimitConfig struct {
	Enabled           bool   `toml:"enabled"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Burst             int    `toml:"burst"`
	MaxClients        int    `toml:"max_clients"`
	IdleTTL           string `toml:"idle_ttl"`
}

// Finalize applies defaults and validation.
func (c *RateLimitConfig) Finalize() error {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 10
	}
	if c.Burst <= 0 {
		c.Burst = 3
	}
	if c.MaxClients <= 0 {
		c.MaxClients = 10000
	}
	if c.IdleTTL == "" {
		c.IdleTTL = "10m"
	}
	if _, err := time.ParseDuration(c.IdleTTL); err != nil {
		return fmt.Errorf("invalid idle_ttl: %w", err)
	}
	return nil
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *RateLimitConfig) Merge(overlay *RateLimitConfig) {
	c.Enabled = overlay.Enabled
	if overlay.RequestsPerMinute > 0 {
		c.RequestsPerMinute = overlay.RequestsPerMinute
	}
	if overlay.Burst > 0 {
		c.Burst = overlay.Burst
	}
	if overlay.MaxClients > 0 {
		c.MaxClients = overlay.MaxClients
	}
	if overlay.IdleTTL != "" {
		c.IdleTTL = overlay.IdleTTL
	}
}

// RateLimit returns middleware that applies a token bucket per client IP.
// Buckets for idle clients expire after IdleTTL. Requests over the limit
// receive 429 with a Retry-After hint.
func RateLimit(cfg *RateLimitConfig, logger *slog.Logger) Func {
	ttl, _ := time.ParseDuration(cfg.IdleTTL)
	limiters := expirable.NewLRU[string, *rate.Limiter](cfg.MaxClients, nil, ttl)
	every := rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	retryAfter := strconv.Itoa(int(math.Ceil(time.Minute.Seconds() / float64(cfg.RequestsPerMinute))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			limiter, ok := limiters.Get(client)
			if !ok {
				limiter = rate.NewLimiter(every, cfg.Burst)
				limiters.Add(client, limiter)
			}

			if !limiter.Allow() {
				logger.Warn("rate limit exceeded", "client", client, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfter)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintln(w, `{"error":"rate limit exceeded"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
