package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	cfg "github.com/templui/filesmanager/internal/config"
)

var ErrNotFound = errors.New("blob not found")

// Storage defines the interface for blob storage operations.
// Writes are whole-file: a reader never observes a partially written blob.
type Storage interface {
	// NewPath returns a fresh, collision-free path for a new blob
	NewPath() string

	// Save stores the content of r at path, replacing any existing blob
	Save(ctx context.Context, path string, r io.Reader) error

	// Open returns a reader for the blob at path, or ErrNotFound
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether a blob is stored at path
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the blob at path; missing blobs are not an error
	Delete(ctx context.Context, path string) error
}

// New creates the storage backend selected by STORAGE_DRIVER.
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case cfg.StorageDriverLocal:
		slog.Info("initializing local storage", "root", c.FolderPath)
		return NewLocalStorage(c.FolderPath)
	case cfg.StorageDriverS3:
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
			Prefix:    c.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}
