package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JaimeStill/citygarden/pkg/formatting"
	"github.com/JaimeStill/citygarden/pkg/retry"
)

// fetcher downloads blobs that the configured backend does not own, such
// as SAS links or public object URLs supplied by callers.
type fetcher struct {
	client  *http.Client
	limit   int64
	backoff retry.Config
}

func newFetcher(limit int64) *fetcher {
	return &fetcher{
		client:  &http.Client{Timeout: 60 * time.Second},
		limit:   limit,
		backoff: retry.DefaultConfig(),
	}
}

func (f *fetcher) get(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, redact(raw))
	}

	return retry.Do(ctx, f.backoff, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", redact(raw), err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, redact(raw))
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("fetch %s: %w", redact(raw), &retry.StatusError{Code: resp.StatusCode})
		}

		return readLimited(resp.Body, f.limit)
	})
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %s", ErrTooLarge, formatting.FormatBytes(limit, 0))
	}
	return data, nil
}

// redact strips query strings so SAS tokens never reach logs or errors.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
