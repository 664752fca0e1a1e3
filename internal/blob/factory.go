package blob

import (
	"context"
	"fmt"

	"mycoledger/internal/config"
	fsstore "mycoledger/internal/infra/blob/fs"
	memorystore "mycoledger/internal/infra/blob/memory"
	s3store "mycoledger/internal/infra/blob/s3"
)

// Open selects a Store implementation from configuration. An empty driver
// means the filesystem store.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the S3 store wired to a fake transport for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }
