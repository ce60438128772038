// Package gcs stores blueprint screenshots in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"coipond/internal/domain"
)

// Config selects the bucket and how links to it are built
type Config struct {
	Bucket string
	// PublicBaseURL replaces https://storage.googleapis.com/<bucket> in links,
	// e.g. a CDN domain. Optional.
	PublicBaseURL string
	// EmulatorHost points the client at a fake-gcs-server. Optional.
	EmulatorHost string
}

// BlobStore implements the screenshot blob store on GCS
type BlobStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// New connects to GCS. Application default credentials are used unless the
// emulator is configured.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing GCS bucket name")
	}

	var opts []option.ClientOption
	if cfg.EmulatorHost != "" {
		opts = append(opts,
			option.WithEndpoint(strings.TrimRight(cfg.EmulatorHost, "/")+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	logger.Info("screenshot storage initialized",
		"bucket", cfg.Bucket,
		"public_base_url", baseURL,
		"emulator", cfg.EmulatorHost != "",
	)

	return &BlobStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Put uploads data under key and returns its public URL
func (s *BlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key = strings.TrimLeft(key, "/")
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write %s to GCS: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return PublicURL(s.baseURL, key), nil
}

// Delete removes the object behind a URL returned by Put
func (s *BlobStore) Delete(ctx context.Context, url string) error {
	key, ok := KeyFromURL(s.baseURL, url)
	if !ok {
		return fmt.Errorf("screenshot %s is not in bucket %s: %w", url, s.bucket, domain.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("GCS object %q: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

// Close releases the client
func (s *BlobStore) Close() error {
	return s.client.Close()
}

// PublicURL joins a base URL and an object key
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL recovers the object key from a URL built by PublicURL
func KeyFromURL(baseURL, url string) (string, bool) {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
