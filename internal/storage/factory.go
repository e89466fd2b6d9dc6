package storage

import (
	"context"
	"fmt"

	"github.com/frahmantamala/grievance-management/internal"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// New builds the blob store selected by cfg.Driver.
func New(ctx context.Context, cfg internal.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		basePath := cfg.LocalDir
		if basePath == "" {
			basePath = "./uploads"
		}
		return NewLocalStore(basePath, cfg.MaxUploadBytes)

	case DriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
		}, cfg.MaxUploadBytes)

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
