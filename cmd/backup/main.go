package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"school-site/config"
	"school-site/models"
	"school-site/storage"
	"school-site/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const backupPrefix = "articles-backup-"

// BackupConfig beschreibt das Backup-Ziel. Die Quelle ist der konfigurierte Artikel-Store.
type BackupConfig struct {
	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starting backup...")

	cfg, err := config.LoadStore()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	var bcfg BackupConfig
	if err := envconfig.Process("", &bcfg); err != nil {
		logging.Fatal("Backup config load error", zap.Error(err))
	}

	ctx := context.Background()

	// 1. Artikel exportieren
	articleStore, err := store.Open(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Failed to open article store", zap.Error(err))
	}
	defer articleStore.Close()

	articles, err := articleStore.All(ctx)
	if err != nil {
		logging.Fatal("Failed to read articles", zap.Error(err))
	}
	data, err := createExport(articles)
	if err != nil {
		logging.Fatal("Failed to create export", zap.Error(err))
	}

	// 2. S3-Client erstellen
	s3Client, err := storage.NewS3Client(ctx, storage.S3Options{
		Endpoint: bcfg.BackupEndpoint,
		Region:   bcfg.BackupRegion,
		Key:      bcfg.BackupAccessKey,
		Secret:   bcfg.BackupSecretKey,
	})
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// 3. Backup hochladen
	key := backupName(time.Now())
	_, err = s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(bcfg.BackupBucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		logging.Fatal("Backup upload failed", zap.Error(err))
	}
	logging.Info("Backup uploaded",
		zap.String("location", fmt.Sprintf("s3://%s/%s", bcfg.BackupBucket, key)),
		zap.Int("articles", len(articles)))

	// 4. Alte Backups rotieren
	if err := rotateBackups(ctx, s3Client, bcfg, logging); err != nil {
		logging.Fatal("Backup rotation failed", zap.Error(err))
	}
	logging.Info("Backup finished")
}

// createExport schreibt die Artikel gzip-komprimiert im Format der articles.json.
func createExport(articles []models.Article) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if err := store.EncodeArticlesFile(gzipWriter, articles); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func backupName(now time.Time) string {
	return fmt.Sprintf("%s%s.json.gz", backupPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

// expiredBackups liefert die Schlüssel aller Backups jenseits der keep neuesten.
func expiredBackups(objects []types.Object, keep int) []string {
	var backups []types.Object
	for _, obj := range objects {
		if obj.Key != nil && obj.LastModified != nil && strings.HasPrefix(*obj.Key, backupPrefix) {
			backups = append(backups, obj)
		}
	}
	if len(backups) <= keep {
		return nil
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].LastModified.After(*backups[j].LastModified)
	})

	keys := make([]string, 0, len(backups)-keep)
	for _, obj := range backups[keep:] {
		keys = append(keys, *obj.Key)
	}
	return keys
}

func rotateBackups(ctx context.Context, client *s3.Client, cfg BackupConfig, logging *zap.Logger) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.BackupBucket),
		Prefix: aws.String(backupPrefix),
	})
	if err != nil {
		return err
	}

	expired := expiredBackups(output.Contents, cfg.KeepBackups)
	if len(expired) == 0 {
		logging.Info("No rotation needed", zap.Int("keep", cfg.KeepBackups))
		return nil
	}

	for _, key := range expired {
		logging.Info("Deleting old backup", zap.String("key", key))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.BackupBucket),
			Key:    aws.String(key),
		})
		if err != nil {
			logging.Error("Failed to delete backup", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
