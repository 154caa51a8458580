package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"school-site/config"
	"school-site/models"
	"school-site/store"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

// Options sind die Kommandozeilenparameter des Imports.
type Options struct {
	File    string `short:"f" long:"file" env:"IMPORT_FILE" description:"articles.json file to import" required:"true"`
	DryRun  bool   `long:"dry-run" description:"Validate and normalize without writing"`
	KeepIDs bool   `long:"keep-ids" description:"Keep the IDs from the file instead of letting the store assign new ones"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.LoadStore()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	f, err := os.Open(opts.File)
	if err != nil {
		logging.Fatal("Failed to open import file", zap.String("file", opts.File), zap.Error(err))
	}
	articles, err := store.DecodeArticlesFile(f)
	f.Close()
	if err != nil {
		logging.Fatal("Failed to parse import file", zap.String("file", opts.File), zap.Error(err))
	}

	ready, skipped := prepareImport(articles, opts.KeepIDs, time.Now().UTC())
	logging.Info("Import prepared",
		zap.Int("articles", len(ready)), zap.Int("skipped", skipped), zap.Bool("dry_run", opts.DryRun))
	if opts.DryRun {
		return
	}

	ctx := context.Background()
	target, err := store.Open(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Failed to open article store", zap.Error(err))
	}
	defer target.Close()

	imported := 0
	for _, a := range ready {
		if _, err := target.Insert(ctx, a); err != nil {
			logging.Error("Failed to import article", zap.String("id", a.ID), zap.String("title", a.Title), zap.Error(err))
			continue
		}
		imported++
	}
	logging.Info("Import finished", zap.Int("imported", imported), zap.Int("failed", len(ready)-imported))
}

// prepareImport normalisiert Kategorien und Autoren und verwirft Artikel ohne Titel oder Inhalt.
func prepareImport(articles []models.Article, keepIDs bool, now time.Time) ([]models.Article, int) {
	ready := make([]models.Article, 0, len(articles))
	skipped := 0
	for _, a := range articles {
		in := models.ArticleInput{
			Title:      a.Title,
			Author:     a.Author,
			Category:   a.Category,
			Content:    a.Content,
			ImageURL:   a.ImageURL,
			IsFeatured: a.IsFeatured,
		}
		if in.Validate() != nil {
			skipped++
			continue
		}
		in = in.Normalize()

		out := models.Article{ImageKey: a.ImageKey, CreatedAt: a.CreatedAt}
		in.Apply(&out)
		if keepIDs {
			out.ID = strings.TrimSpace(a.ID)
		}
		if out.CreatedAt.IsZero() {
			out.CreatedAt = now
		}
		ready = append(ready, out)
	}
	return ready, skipped
}
