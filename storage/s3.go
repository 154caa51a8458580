package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Options sind die Zugangsdaten eines S3-kompatiblen Speichers.
type S3Options struct {
	Endpoint  string
	Region    string
	Key       string
	Secret    string
	Bucket    string
	PublicURL string
}

// NewS3Client erstellt einen S3-Client für Supabase Storage oder einen anderen S3-Endpunkt.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Store speichert Bilder in einem Bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	log     *zap.Logger
}

// NewS3Store erstellt einen S3Store. Ohne PublicURL wird die Pfad-URL des Endpunkts verwendet.
func NewS3Store(client *s3.Client, opts S3Options, log *zap.Logger) *S3Store {
	base := strings.TrimSuffix(opts.PublicURL, "/")
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimSuffix(opts.Endpoint, "/"), opts.Bucket)
	}
	return &S3Store{client: client, bucket: opts.Bucket, baseURL: base, log: log}
}

// UploadFile lädt Daten unter key hoch und gibt den Link zurück.
func (s *S3Store) UploadFile(ctx context.Context, key, contentType string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Store) Put(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	url, err := s.UploadFile(ctx, name, contentType, data)
	if err != nil {
		return Object{}, fmt.Errorf("s3 upload %s: %w", name, err)
	}
	s.log.Info("image uploaded", zap.String("bucket", s.bucket), zap.String("key", name))
	return Object{Key: name, URL: url}, nil
}

// Delete ist bei S3 idempotent, ein fehlendes Objekt liefert keinen Fehler.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) KeyFor(url string) (string, bool) {
	return keyAfterPrefix(url, s.baseURL+"/")
}

// Close ist ein No-op.
func (s *S3Store) Close() error {
	return nil
}
