// Package storage stores generated images and fetches caller-supplied
// photos, with Azure Blob Storage and Google Cloud Storage backends.
// Blobs are addressed by URL so stored results can be returned to clients
// as-is.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/citygarden/pkg/lifecycle"
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that ensures the configured containers exist.
	Start(lc *lifecycle.Coordinator) error
	// Upload writes data to container/name and returns the blob URL.
	Upload(ctx context.Context, container, name string, data []byte, contentType string) (string, error)
	// Download returns the bytes behind url. URLs owned by the backend are
	// read with its credentials; other http(s) URLs are fetched directly.
	Download(ctx context.Context, url string) ([]byte, error)
	// Delete removes the blob at url. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, url string) error
}

// New creates the storage system selected by cfg.Backend. Clients are
// created eagerly but no request is made until Start or the first operation.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "backend", cfg.Backend)
	fetch := newFetcher(cfg.MaxDownloadBytes())

	switch cfg.Backend {
	case BackendAzure:
		return newAzure(cfg, fetch, logger)
	case BackendGCS:
		return newGCS(ctx, cfg, fetch, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == ".." || seg == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
