// Package storage holds the object-store backends used for product and
// category images.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/javajoker/marketplace-backend/internal/config"
)

//go:generate mockgen -destination=mocks/mock_object_store.go -package=mocks . ObjectStore

// ObjectStore persists image bytes under a key and returns a public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// New returns the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(cfg.AWS)
	case "minio":
		store, err := NewMinioStore(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "local":
		return NewLocalStore(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
