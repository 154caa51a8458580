package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSStore speichert Bilder im Firebase-Storage-Bucket.
type GCSStore struct {
	client  *gcs.Client
	bucket  string
	baseURL string
	log     *zap.Logger
}

// NewGCSStore erstellt einen Client für bucket. Ohne Credentials-Datei gelten die Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string, log *zap.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{
		client:  client,
		bucket:  bucket,
		baseURL: fmt.Sprintf("https://storage.googleapis.com/%s/", bucket),
		log:     log,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	key := "uploads/" + name
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("gcs upload %s: %w", key, err)
	}
	s.log.Info("image uploaded", zap.String("bucket", s.bucket), zap.String("key", key))
	return Object{Key: key, URL: s.baseURL + key}, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) KeyFor(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// Close schließt den Client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
