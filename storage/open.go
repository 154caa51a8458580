package storage

import (
	"context"
	"fmt"

	"school-site/config"

	"go.uber.org/zap"
)

// Open wählt den Bildspeicher anhand von BLOB_BACKEND.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (BlobStore, error) {
	switch cfg.BlobBackend {
	case "local":
		return NewLocalStore(cfg.UploadDir, log), nil
	case "s3":
		opts := S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Key:       cfg.S3Key,
			Secret:    cfg.S3Secret,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		}
		client, err := NewS3Client(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return NewS3Store(client, opts, log), nil
	case "gcs":
		return NewGCSStore(ctx, cfg.FirebaseBucket, cfg.FirebaseCredentialsFile, log)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
