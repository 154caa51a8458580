package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"school-site/models"
)

var (
	// ErrNotFound wird zurückgegeben, wenn kein Artikel mit der ID existiert.
	ErrNotFound = errors.New("article not found")
	// ErrUnavailable kennzeichnet einen nicht erreichbaren oder defekten Speicher.
	ErrUnavailable = errors.New("store unavailable")
	// ErrIndexRequired meldet, dass die Abfrage einen fehlenden zusammengesetzten Index braucht.
	ErrIndexRequired = errors.New("composite index required")
	// ErrInvalidCursor meldet einen nicht dekodierbaren Paginierungs-Cursor.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Cursor ist die Position des letzten Artikels einer Seite.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf liefert die Position eines Artikels.
func CursorOf(a models.Article) Cursor {
	return Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
}

// Encode liefert die opake Form "sekunden.nanos:id", base64url-kodiert.
// Sekunden und Nanos getrennt, damit auch die Nullzeit verlustfrei bleibt.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%d.%09d:%s", c.CreatedAt.Unix(), c.CreatedAt.Nanosecond(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor dekodiert einen Cursor aus Encode.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	stamp, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	secs, nanos, ok := strings.Cut(stamp, ".")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nsec, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil || nsec < 0 || nsec > 999999999 {
		return Cursor{}, fmt.Errorf("%w: nanoseconds %q", ErrInvalidCursor, nanos)
	}
	return Cursor{CreatedAt: time.Unix(sec, nsec).UTC(), ID: id}, nil
}

// Query beschreibt eine Seitenabfrage.
type Query struct {
	// Category filtert auf die getrimmte Kategorie, leer bedeutet alle.
	Category string
	Limit    int
	After    *Cursor
}

// DocumentStore ist die gemeinsame Schnittstelle der Artikel-Backends.
type DocumentStore interface {
	// Insert legt einen Artikel an. Ist ID leer, vergibt der Speicher eine.
	Insert(ctx context.Context, a models.Article) (models.Article, error)
	Get(ctx context.Context, id string) (models.Article, error)
	// Update überschreibt die Felder eines Artikels, CreatedAt bleibt erhalten.
	Update(ctx context.Context, a models.Article) (models.Article, error)
	SetFeatured(ctx context.Context, id string, featured bool) error
	Delete(ctx context.Context, id string) error
	// Query liefert eine Seite in der Reihenfolge createdAt absteigend, id absteigend.
	Query(ctx context.Context, q Query) ([]models.Article, error)
	// Categories liefert die getrimmten, nicht leeren Kategorien ohne Duplikate.
	Categories(ctx context.Context) ([]string, error)
	// All liefert alle Artikel, neueste zuerst.
	All(ctx context.Context) ([]models.Article, error)
	Close() error
}

// Before meldet, ob a in der Listenreihenfolge vor b steht.
func Before(a, b models.Article) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// after meldet, ob a strikt hinter der Cursor-Position liegt.
func after(a models.Article, c Cursor) bool {
	return Before(models.Article{CreatedAt: c.CreatedAt, ID: c.ID}, a)
}

// SortArticles sortiert neueste zuerst.
func SortArticles(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return Before(articles[i], articles[j])
	})
}

// Paginate wendet Filter, Sortierung und Cursor im Speicher an.
func Paginate(all []models.Article, q Query) []models.Article {
	category := models.NormalizeCategory(q.Category)
	filtered := make([]models.Article, 0, len(all))
	for _, a := range all {
		if category != "" && models.NormalizeCategory(a.Category) != category {
			continue
		}
		if q.After != nil && !after(a, *q.After) {
			continue
		}
		filtered = append(filtered, a)
	}
	SortArticles(filtered)
	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered
}

// DistinctCategories trimmt, verwirft leere Werte und entfernt Duplikate. Das Ergebnis ist sortiert.
func DistinctCategories(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = models.NormalizeCategory(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
