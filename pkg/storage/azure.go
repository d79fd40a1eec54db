package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/citygarden/pkg/lifecycle"
)

type azure struct {
	client     *azblob.Client
	serviceURL string
	containers []string
	limit      int64
	fetch      *fetcher
	logger     *slog.Logger
}

func newAzure(cfg *Config, fetch *fetcher, logger *slog.Logger) (*azure, error) {
	var (
		client *azblob.Client
		err    error
	)

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("create azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.ServiceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:     client,
		serviceURL: strings.TrimSuffix(client.URL(), "/"),
		containers: cfg.Containers,
		limit:      cfg.MaxDownloadBytes(),
		fetch:      fetch,
		logger:     logger,
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup("storage", func(ctx context.Context) error {
		var errs []error
		for _, name := range a.containers {
			_, err := a.client.CreateContainer(ctx, name, nil)
			if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
				a.logger.Error("storage container initialization failed", "container", name, "error", err)
				errs = append(errs, fmt.Errorf("container %s: %w", name, err))
				continue
			}
			a.logger.Info("storage container ready", "container", name)
		}
		return errors.Join(errs...)
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, container, name string, data []byte, contentType string) (string, error) {
	if err := validateKey(container); err != nil {
		return "", err
	}
	if err := validateKey(name); err != nil {
		return "", err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}
	if _, err := a.client.UploadStream(ctx, container, name, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("upload blob %s/%s: %w", container, name, err)
	}

	return a.client.ServiceClient().NewContainerClient(container).NewBlobClient(name).URL(), nil
}

func (a *azure) Download(ctx context.Context, raw string) ([]byte, error) {
	container, name, ok := a.owned(raw)
	if !ok {
		return a.fetch.get(ctx, raw)
	}

	resp, err := a.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, name)
		}
		return nil, fmt.Errorf("download blob %s/%s: %w", container, name, err)
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, a.limit)
}

func (a *azure) Delete(ctx context.Context, raw string) error {
	container, name, ok := a.owned(raw)
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, redact(raw))
	}

	if _, err := a.client.DeleteBlob(ctx, container, name, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s/%s: %w", container, name, err)
	}
	return nil
}

// owned reports whether raw addresses a blob in this account without a
// SAS token, returning its container and blob name.
func (a *azure) owned(raw string) (container, name string, ok bool) {
	if !strings.HasPrefix(raw, a.serviceURL+"/") {
		return "", "", false
	}

	parts, err := azblob.ParseURL(raw)
	if err != nil || parts.SAS.Signature() != "" {
		return "", "", false
	}
	if validateKey(parts.ContainerName) != nil || validateKey(parts.BlobName) != nil {
		return "", "", false
	}
	return parts.ContainerName, parts.BlobName, true
}
