package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/JaimeStill/citygarden/pkg/lifecycle"
)

const gcsPublicHost = "storage.googleapis.com"

type gcsStore struct {
	client  *gcs.Client
	buckets []string
	limit   int64
	fetch   *fetcher
	logger  *slog.Logger
}

func newGCS(ctx context.Context, cfg *Config, fetch *fetcher, logger *slog.Logger) (*gcsStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &gcsStore{
		client:  client,
		buckets: cfg.Containers,
		limit:   cfg.MaxDownloadBytes(),
		fetch:   fetch,
		logger:  logger,
	}, nil
}

func (g *gcsStore) Start(lc *lifecycle.Coordinator) error {
	g.logger.Info("starting storage system")

	lc.OnStartup("storage", func(ctx context.Context) error {
		var errs []error
		for _, name := range g.buckets {
			if _, err := g.client.Bucket(name).Attrs(ctx); err != nil {
				g.logger.Error("storage bucket unavailable", "bucket", name, "error", err)
				errs = append(errs, fmt.Errorf("bucket %s: %w", name, err))
				continue
			}
			g.logger.Info("storage bucket ready", "bucket", name)
		}
		return errors.Join(errs...)
	})

	lc.OnShutdown("storage", func(context.Context) error {
		return g.client.Close()
	})

	return nil
}

func (g *gcsStore) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	if err := validateKey(bucket); err != nil {
		return "", err
	}
	if err := validateKey(name); err != nil {
		return "", err
	}

	w := g.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("upload object %s/%s: %w", bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload object %s/%s: %w", bucket, name, err)
	}

	return objectURL(bucket, name), nil
}

func (g *gcsStore) Download(ctx context.Context, raw string) ([]byte, error) {
	bucket, name, ok := parseGCSURL(raw)
	if !ok {
		return g.fetch.get(ctx, raw)
	}

	r, err := g.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, name)
		}
		return nil, fmt.Errorf("download object %s/%s: %w", bucket, name, err)
	}
	defer r.Close()

	return readLimited(r, g.limit)
}

func (g *gcsStore) Delete(ctx context.Context, raw string) error {
	bucket, name, ok := parseGCSURL(raw)
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, redact(raw))
	}

	if err := g.client.Bucket(bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object %s/%s: %w", bucket, name, err)
	}
	return nil
}

func objectURL(bucket, name string) string {
	return (&url.URL{Scheme: "https", Host: gcsPublicHost, Path: "/" + bucket + "/" + name}).String()
}

// parseGCSURL accepts gs://bucket/object and unsigned
// https://storage.googleapis.com/bucket/object URLs.
func parseGCSURL(raw string) (bucket, name string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	var path string
	switch {
	case u.Scheme == "gs":
		path = u.Host + u.Path
	case u.Scheme == "https" && u.Host == gcsPublicHost && u.RawQuery == "":
		path = strings.TrimPrefix(u.Path, "/")
	default:
		return "", "", false
	}

	bucket, name, found := strings.Cut(path, "/")
	if !found || validateKey(bucket) != nil || validateKey(name) != nil {
		return "", "", false
	}
	return bucket, name, true
}
