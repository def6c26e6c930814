package blob

import (
	"context"
	"fmt"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/config"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		return NewLocal(cfg.LocalDir, cfg.PublicURL)
	case "s3":
		client, err := NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return NewS3(client, cfg.S3Bucket, cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
