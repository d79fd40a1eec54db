package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/citygarden/pkg/lifecycle"
	"github.com/JaimeStill/citygarden/pkg/storage"
)

const devKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

// blobServer is a minimal in-memory blob endpoint covering single-shot and
// block uploads, downloads, and deletes.
type blobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *blobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := r.URL.Path
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		switch r.URL.Query().Get("comp") {
		case "block":
			b.blobs[key+"#staged"] = append(b.blobs[key+"#staged"], data...)
		case "blocklist":
			b.blobs[key] = b.blobs[key+"#staged"]
			delete(b.blobs, key+"#staged")
		case "":
			// Small payloads arrive as a single Put Blob.
			if r.Header.Get("x-ms-blob-type") == "BlockBlob" {
				b.blobs[key] = data
			}
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := b.blobs[key]
		if !ok {
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case http.MethodDelete:
		if _, ok := b.blobs[key]; !ok {
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(b.blobs, key)
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newAzure(t *testing.T, maxSize string) (storage.System, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(&blobServer{blobs: map[string][]byte{}})
	t.Cleanup(srv.Close)

	cfg := &storage.Config{
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" + devKey +
			";BlobEndpoint=" + srv.URL + "/devstoreaccount1;",
		Containers:      []string{"gardenimages"},
		MaxDownloadSize: maxSize,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}

	sys, err := storage.New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return sys, srv
}

func TestAzureRoundTrip(t *testing.T) {
	sys, srv := newAzure(t, "1MB")
	ctx := context.Background()

	url, err := sys.Upload(ctx, "gardenimages", "01J-garden_image.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	want := srv.URL + "/devstoreaccount1/gardenimages/01J-garden_image.png"
	if url != want {
		t.Errorf("Upload() url = %q, want %q", url, want)
	}

	data, err := sys.Download(ctx, url)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("Download() = %q", data)
	}

	if err := sys.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := sys.Delete(ctx, url); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := sys.Download(ctx, url); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() after delete error = %v, want ErrNotFound", err)
	}
}

func TestAzureStartCreatesContainers(t *testing.T) {
	sys, _ := newAzure(t, "1MB")
	lc := lifecycle.New()

	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error: %v", err)
	}
	if err := lc.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestUploadKeyValidation(t *testing.T) {
	sys, _ := newAzure(t, "1MB")

	tests := []struct {
		name      string
		container string
		blob      string
		want      error
	}{
		{"empty container", "", "a.png", storage.ErrEmptyKey},
		{"empty name", "images", "", storage.ErrEmptyKey},
		{"traversal", "images", "../a.png", storage.ErrInvalidKey},
		{"dot segment", "images", "x/./a.png", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Upload(context.Background(), tt.container, tt.blob, []byte("x"), "image/png")
			if !errors.Is(err, tt.want) {
				t.Errorf("Upload() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDownloadForeignURL(t *testing.T) {
	sys, _ := newAzure(t, "16B")

	photos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/yard.jpg":
			w.Write([]byte("jpeg"))
		case "/huge.jpg":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer photos.Close()

	data, err := sys.Download(context.Background(), photos.URL+"/yard.jpg?sig=secret")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("Download() = %q", data)
	}

	_, err = sys.Download(context.Background(), photos.URL+"/huge.jpg")
	if !errors.Is(err, storage.ErrTooLarge) {
		t.Errorf("oversized Download() error = %v, want ErrTooLarge", err)
	}

	_, err = sys.Download(context.Background(), photos.URL+"/missing.jpg?sig=secret")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing Download() error = %v, want ErrNotFound", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks query string: %v", err)
	}

	for _, bad := range []string{"ftp://host/a.jpg", "not a url", "/relative.jpg"} {
		if _, err := sys.Download(context.Background(), bad); !errors.Is(err, storage.ErrInvalidURL) {
			t.Errorf("Download(%q) error = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestDeleteForeignURL(t *testing.T) {
	sys, _ := newAzure(t, "1MB")

	err := sys.Delete(context.Background(), "https://example.com/gardenimages/a.png")
	if !errors.Is(err, storage.ErrForeignURL) {
		t.Errorf("Delete() error = %v, want ErrForeignURL", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"azure connection string", storage.Config{ConnectionString: "x"}, false},
		{"azure service url", storage.Config{ServiceURL: "https://acct.blob.core.windows.net"}, false},
		{"azure missing credentials", storage.Config{}, true},
		{"gcs", storage.Config{Backend: storage.BackendGCS, Containers: []string{"plans"}}, false},
		{"unknown backend", storage.Config{Backend: "s3"}, true},
		{"bad size", storage.Config{ConnectionString: "x", MaxDownloadSize: "lots"}, true},
		{"bad container", storage.Config{ConnectionString: "x", Containers: []string{".."}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEnvAndMerge(t *testing.T) {
	t.Setenv("TEST_STORAGE_BACKEND", "gcs")

	cfg := storage.Config{ConnectionString: "x", Containers: []string{"a"}}
	cfg.Merge(&storage.Config{Containers: []string{"b", "c"}, MaxDownloadSize: "5MB"})

	if err := cfg.Finalize(&storage.Env{Backend: "TEST_STORAGE_BACKEND"}); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	if cfg.Backend != storage.BackendGCS {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if len(cfg.Containers) != 2 || cfg.MaxDownloadBytes() != 5*1024*1024 {
		t.Errorf("got containers=%v max=%d", cfg.Containers, cfg.MaxDownloadBytes())
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrInvalidURL, http.StatusBadRequest},
		{storage.ErrForeignURL, http.StatusBadRequest},
		{storage.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
