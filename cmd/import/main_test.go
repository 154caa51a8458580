package main

import (
	"testing"
	"time"

	"school-site/models"
)

func TestPrepareImport(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	articles := []models.Article{
		{ID: "1714550000000", Title: "Juara", Content: "<p>x</p>", Category: "  Prestasi  ", CreatedAt: created},
		{ID: "2", Title: "", Content: "<p>x</p>"},
		{ID: "3", Title: "Tanpa tanggal", Content: "c", Category: ""},
	}

	ready, skipped := prepareImport(articles, false, now)
	if skipped != 1 || len(ready) != 2 {
		t.Fatalf("Expected 2 ready and 1 skipped, got %d and %d", len(ready), skipped)
	}
	if ready[0].Category != "Prestasi" || ready[0].Author != models.DefaultAuthor || ready[0].ID != "" {
		t.Errorf("Expected normalized article without ID, got %+v", ready[0])
	}
	if !ready[0].CreatedAt.Equal(created) {
		t.Errorf("Expected original CreatedAt, got %v", ready[0].CreatedAt)
	}
	if ready[1].Category != models.DefaultCategory || !ready[1].CreatedAt.Equal(now) {
		t.Errorf("Expected default category and import time, got %+v", ready[1])
	}

	kept, _ := prepareImport(articles, true, now)
	if kept[0].ID != "1714550000000" {
		t.Errorf("Expected ID kept, got %q", kept[0].ID)
	}
}
