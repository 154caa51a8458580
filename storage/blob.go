package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Object beschreibt ein gespeichertes Bild.
type Object struct {
	Key string
	URL string
}

// BlobStore speichert hochgeladene Bilder und liefert deren öffentliche URL.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (Object, error)
	// Delete entfernt ein Objekt. Ein fehlendes Objekt ist kein Fehler.
	Delete(ctx context.Context, key string) error
	// KeyFor ermittelt den Schlüssel zu einer öffentlichen URL, sofern sie zu diesem Speicher gehört.
	KeyFor(url string) (string, bool)
	Close() error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// ObjectName erzeugt "<unixmillis>-<uuid8>-<name>", Leerzeichen werden zu Unterstrichen.
func ObjectName(original string, now time.Time) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" || name == "." {
		name = "image"
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], name)
}

// keyAfterPrefix schneidet prefix ab und prüft, dass ein einfacher Objektname übrig bleibt.
func keyAfterPrefix(url, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") || path.Base(key) != key {
		return "", false
	}
	return key, true
}
