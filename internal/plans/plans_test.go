package plans_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/citygarden/internal/plans"
	"github.com/JaimeStill/citygarden/internal/safety"
	"github.com/JaimeStill/citygarden/internal/workflow"
	"github.com/JaimeStill/citygarden/pkg/ai"
	"github.com/JaimeStill/citygarden/pkg/graph"
	"github.com/JaimeStill/citygarden/pkg/pagination"
	"github.com/JaimeStill/citygarden/pkg/storage"
)

func ptr[T any](v T) *T { return &v }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() plans.CreateRequest {
	return plans.CreateRequest{
		ImageURLs: []string{"https://photos.test/a.jpg", "https://photos.test/b.jpg"},
		UserPreferences: plans.UserPreferences{
			GrowType:   "vegetables",
			SubType:    "herbs",
			CycleType:  "perennial",
			WinterType: "hardy",
		},
		Location: plans.Location{
			Latitude:  ptr(52.52),
			Longitude: ptr(13.405),
			Address:   "Berlin",
		},
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*plans.CreateRequest)
		ok     bool
	}{
		{"valid", func(*plans.CreateRequest) {}, true},
		{"no images", func(r *plans.CreateRequest) { r.ImageURLs = nil }, false},
		{"too many images", func(r *plans.CreateRequest) {
			r.ImageURLs = []string{"a", "b", "c", "d"}
		}, false},
		{"three images", func(r *plans.CreateRequest) {
			r.ImageURLs = []string{"a", "b", "c"}
		}, true},
		{"blank url", func(r *plans.CreateRequest) { r.ImageURLs = []string{" "} }, false},
		{"missing latitude", func(r *plans.CreateRequest) { r.Location.Latitude = nil }, false},
		{"missing longitude", func(r *plans.CreateRequest) { r.Location.Longitude = nil }, false},
		{"latitude high", func(r *plans.CreateRequest) { r.Location.Latitude = ptr(90.5) }, false},
		{"latitude edge", func(r *plans.CreateRequest) { r.Location.Latitude = ptr(-90.0) }, true},
		{"longitude low", func(r *plans.CreateRequest) { r.Location.Longitude = ptr(-180.1) }, false},
		{"longitude edge", func(r *plans.CreateRequest) { r.Location.Longitude = ptr(180.0) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, plans.ErrInvalidRequest) {
				t.Fatalf("Validate() = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestUserPreferencesStyle(t *testing.T) {
	got := validRequest().UserPreferences.Style()
	want := "preferred grow type: vegetables herbs, preferred cycle type: perennial, preferred winter type: hardy"
	if got != want {
		t.Errorf("Style() = %q, want %q", got, want)
	}

	empty := plans.UserPreferences{GrowType: "flowers"}.Style()
	if !strings.HasPrefix(empty, "preferred grow type: flowers, ") {
		t.Errorf("Style() = %q, want trimmed grow type", empty)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", plans.ErrNotFound, http.StatusNotFound},
		{"duplicate", plans.ErrDuplicate, http.StatusConflict},
		{"invalid", fmt.Errorf("%w: x", plans.ErrInvalidRequest), http.StatusBadRequest},
		{"image missing", fmt.Errorf("%w: %w", plans.ErrImageLoad, storage.ErrNotFound), http.StatusNotFound},
		{"image too large", fmt.Errorf("%w: %w", plans.ErrImageLoad, storage.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{"image upstream", fmt.Errorf("%w: boom", plans.ErrImageLoad), http.StatusBadGateway},
		{"unsafe", fmt.Errorf("screen: %w", safety.ErrUnsafeContent), http.StatusBadRequest},
		{"safety upstream", safety.ErrUpstream, http.StatusBadGateway},
		{"pipeline input", workflow.ErrInvalidInput, http.StatusBadRequest},
		{"circuit open", ai.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"cancelled", &graph.NodeError{Node: "analyze", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plans.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{
		"status":         {"rejected"},
		"created_before": {"2026-03-01T00:00:00Z"},
		"created_after":  {"2026-02-01T00:00:00Z"},
	}

	f, err := plans.FiltersFromQuery(values)
	if err != nil {
		t.Fatalf("FiltersFromQuery() error = %v", err)
	}
	if f.Status == nil || *f.Status != "rejected" {
		t.Errorf("Status = %v, want rejected", f.Status)
	}
	if f.CreatedBefore == nil || !f.CreatedBefore.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedBefore = %v", f.CreatedBefore)
	}
	if f.CreatedAfter == nil || !f.CreatedAfter.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAfter = %v", f.CreatedAfter)
	}

	empty, err := plans.FiltersFromQuery(url.Values{})
	if err != nil || empty.Status != nil || empty.CreatedBefore != nil || empty.CreatedAfter != nil {
		t.Errorf("FiltersFromQuery(empty) = %+v, %v; want zero", empty, err)
	}

	if _, err := plans.FiltersFromQuery(url.Values{"created_after": {"yesterday"}}); !errors.Is(err, plans.ErrInvalidRequest) {
		t.Errorf("FiltersFromQuery(bad time) error = %v, want ErrInvalidRequest", err)
	}
}

type fakeBlobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func (f *fakeBlobs) Download(_ context.Context, u string) ([]byte, error) {
	if b, ok := f.data[u]; ok {
		return b, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBlobs) Delete(_ context.Context, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, u)
	return nil
}

type fakeScreener struct {
	err  error
	seen [][]byte
}

func (f *fakeScreener) Screen(_ context.Context, images [][]byte) error {
	f.seen = images
	return f.err
}

type fakeRunner struct {
	calls int
}

func (f *fakeRunner) Execute(context.Context, workflow.Input) (*workflow.Result, error) {
	f.calls++
	return nil, errors.New("runner should not be reached")
}

func TestCreateStopsBeforePipeline(t *testing.T) {
	blobs := &fakeBlobs{data: map[string][]byte{
		"https://photos.test/a.jpg": []byte("a"),
		"https://photos.test/b.jpg": []byte("b"),
	}}

	tests := []struct {
		name     string
		mutate   func(*plans.CreateRequest)
		screen   error
		wantErr  error
		screened bool
	}{
		{
			name:    "invalid request",
			mutate:  func(r *plans.CreateRequest) { r.ImageURLs = nil },
			wantErr: plans.ErrInvalidRequest,
		},
		{
			name:    "image missing",
			mutate:  func(r *plans.CreateRequest) { r.ImageURLs[1] = "https://photos.test/missing.jpg" },
			wantErr: storage.ErrNotFound,
		},
		{
			name:     "unsafe content",
			mutate:   func(*plans.CreateRequest) {},
			screen:   fmt.Errorf("%w: violence severity 4", safety.ErrUnsafeContent),
			wantErr:  safety.ErrUnsafeContent,
			screened: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screener := &fakeScreener{err: tt.screen}
			runner := &fakeRunner{}
			sys := plans.New(nil, blobs, screener, runner, discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

			req := validRequest()
			tt.mutate(&req)

			p, err := sys.Create(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if p != nil {
				t.Errorf("Create() plan = %+v, want nil", p)
			}
			if runner.calls != 0 {
				t.Errorf("runner calls = %d, want 0", runner.calls)
			}
			if tt.screened {
				if len(screener.seen) != 2 || string(screener.seen[0]) != "a" || string(screener.seen[1]) != "b" {
					t.Errorf("screened images = %q, want request order", screener.seen)
				}
			}
		})
	}
}

func TestRetentionConfig(t *testing.T) {
	var cfg plans.RetentionConfig
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Enabled || cfg.Schedule != "@daily" || cfg.MaxAgeDuration() != 720*time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}

	t.Setenv("TEST_RETENTION_ENABLED", "true")
	t.Setenv("TEST_RETENTION_SCHEDULE", "0 3 * * *")
	env := &plans.RetentionEnv{Enabled: "TEST_RETENTION_ENABLED", Schedule: "TEST_RETENTION_SCHEDULE"}

	cfg = plans.RetentionConfig{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize(env) error = %v", err)
	}
	if !cfg.Enabled || cfg.Schedule != "0 3 * * *" {
		t.Errorf("env overrides = %+v", cfg)
	}

	for _, bad := range []plans.RetentionConfig{
		{Schedule: "every day"},
		{MaxAge: "soon"},
		{MaxAge: "-1h"},
	} {
		if err := bad.Finalize(nil); err == nil {
			t.Errorf("Finalize(%+v) = nil, want error", bad)
		}
	}

	base := plans.RetentionConfig{Schedule: "@daily", MaxAge: "720h"}
	base.Merge(&plans.RetentionConfig{Enabled: true, MaxAge: "48h"})
	if !base.Enabled || base.Schedule != "@daily" || base.MaxAge != "48h" {
		t.Errorf("Merge() = %+v", base)
	}
}
