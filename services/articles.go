package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"school-site/events"
	"school-site/models"
	"school-site/storage"
	"school-site/store"

	"go.uber.org/zap"
)

const maxPageSize = 100

var (
	// ErrInvalidSort meldet ein unbekanntes Sortierfeld oder eine unbekannte Richtung.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidUpload meldet eine leere Datei oder einen Nicht-Bild-Typ.
	ErrInvalidUpload = errors.New("invalid upload")
)

// ListRequest beschreibt eine Seitenabfrage der öffentlichen Artikelliste.
type ListRequest struct {
	Category string
	PageSize int
	Cursor   string
}

// ArticlePage ist eine Seite der Artikelliste. NextCursor ist nur gesetzt, wenn die Seite voll ist.
// Degraded signalisiert, dass der Speicher nicht erreichbar war und die Seite deshalb leer ist.
type ArticlePage struct {
	Articles   []models.Article
	NextCursor string
	Degraded   bool
}

// CategoriesResult enthält die Kategorien für die Filterleiste.
type CategoriesResult struct {
	Categories []string
	Degraded   bool
}

// Upload ist eine hochgeladene Bilddatei.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArticleService kapselt Listing und Verwaltung der Artikel.
type ArticleService struct {
	store    store.DocumentStore
	blobs    storage.BlobStore
	events   events.Publisher
	log      *zap.Logger
	pageSize int
	now      func() time.Time
}

// NewArticleService erstellt einen ArticleService. pageSize ist die Standard-Seitengröße.
func NewArticleService(s store.DocumentStore, blobs storage.BlobStore, pub events.Publisher, log *zap.Logger, pageSize int) *ArticleService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &ArticleService{
		store:    s,
		blobs:    blobs,
		events:   pub,
		log:      log,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (s *ArticleService) clampPageSize(n int) int {
	if n <= 0 {
		n = s.pageSize
	}
	if n < 1 {
		n = 1
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	return n
}

// ListCategories liefert die getrimmten, nicht leeren Kategorien ohne Duplikate.
func (s *ArticleService) ListCategories(ctx context.Context) CategoriesResult {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		s.log.Warn("failed to list categories", zap.Error(err))
		return CategoriesResult{Categories: []string{}, Degraded: true}
	}
	if categories == nil {
		categories = []string{}
	}
	return CategoriesResult{Categories: categories}
}

// ListArticles liefert eine Seite der Artikel, neueste zuerst.
// Ein Fehler wird nur für einen ungültigen Cursor zurückgegeben.
func (s *ArticleService) ListArticles(ctx context.Context, req ListRequest) (ArticlePage, error) {
	size := s.clampPageSize(req.PageSize)
	q := store.Query{Category: models.NormalizeCategory(req.Category), Limit: size}
	if req.Cursor != "" {
		c, err := store.DecodeCursor(req.Cursor)
		if err != nil {
			return ArticlePage{}, err
		}
		q.After = &c
	}
	listingRequestsCounter.WithLabelValues(strconv.FormatBool(q.Category != "")).Inc()

	articles, err := s.store.Query(ctx, q)
	if errors.Is(err, store.ErrIndexRequired) {
		s.log.Warn("index missing, paginating in memory", zap.String("category", q.Category), zap.Error(err))
		var all []models.Article
		if all, err = s.store.All(ctx); err == nil {
			articles = store.Paginate(all, q)
		}
	}
	if err != nil {
		s.log.Warn("article listing degraded", zap.String("category", q.Category), zap.Error(err))
		degradedListingsCounter.Inc()
		return ArticlePage{Articles: []models.Article{}, Degraded: true}, nil
	}

	page := ArticlePage{Articles: articles}
	if page.Articles == nil {
		page.Articles = []models.Article{}
	}
	if len(articles) == size {
		page.NextCursor = store.CursorOf(articles[len(articles)-1]).Encode()
	}
	return page, nil
}

// FeaturedArticles liefert die hervorgehobenen Artikel für die Startseite, höchstens limit Stück.
func (s *ArticleService) FeaturedArticles(ctx context.Context, limit int) ArticlePage {
	all, err := s.store.All(ctx)
	if err != nil {
		s.log.Warn("featured listing degraded", zap.Error(err))
		degradedListingsCounter.Inc()
		return ArticlePage{Articles: []models.Article{}, Degraded: true}
	}
	featured := []models.Article{}
	for _, a := range all {
		if !a.IsFeatured {
			continue
		}
		featured = append(featured, a)
		if limit > 0 && len(featured) == limit {
			break
		}
	}
	return ArticlePage{Articles: featured}
}

// AdminList liefert alle Artikel sortiert nach createdAt, title oder author.
func (s *ArticleService) AdminList(ctx context.Context, sortBy, order string) ([]models.Article, error) {
	if sortBy == "" {
		sortBy = "createdAt"
	}
	if order == "" {
		order = "desc"
	}
	var less func(a, b models.Article) bool
	switch sortBy {
	case "createdAt":
		less = func(a, b models.Article) bool { return store.Before(b, a) }
	case "title":
		less = func(a, b models.Article) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "author":
		less = func(a, b models.Article) bool { return strings.ToLower(a.Author) < strings.ToLower(b.Author) }
	default:
		return nil, fmt.Errorf("%w: field %q", ErrInvalidSort, sortBy)
	}
	if order != "asc" && order != "desc" {
		return nil, fmt.Errorf("%w: order %q", ErrInvalidSort, order)
	}

	articles, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool {
		if order == "desc" {
			return less(articles[j], articles[i])
		}
		return less(articles[i], articles[j])
	})
	return articles, nil
}

// Get liefert einen Artikel.
func (s *ArticleService) Get(ctx context.Context, id string) (models.Article, error) {
	return s.store.Get(ctx, id)
}

// Create prüft und normalisiert die Eingabe, speichert ein optionales Titelbild und legt den Artikel an.
func (s *ArticleService) Create(ctx context.Context, in models.ArticleInput, upload *Upload) (models.Article, error) {
	if err := in.Validate(); err != nil {
		return models.Article{}, err
	}
	in = in.Normalize()

	var a models.Article
	in.Apply(&a)
	if upload != nil {
		obj, err := s.UploadImage(ctx, *upload)
		if err != nil {
			return models.Article{}, err
		}
		a.ImageURL, a.ImageKey = obj.URL, obj.Key
	}

	created, err := s.store.Insert(ctx, a)
	if err != nil {
		if a.ImageKey != "" {
			s.removeBlob(ctx, a.ImageKey)
		}
		return models.Article{}, fmt.Errorf("insert article: %w", err)
	}
	s.log.Info("article created", zap.String("id", created.ID), zap.String("category", created.Category))
	s.publish(ctx, events.ArticleCreated, created)
	return created, nil
}

// Update überschreibt einen Artikel. Ein ersetztes eigenes Titelbild wird gelöscht.
func (s *ArticleService) Update(ctx context.Context, id string, in models.ArticleInput, upload *Upload) (models.Article, error) {
	if err := in.Validate(); err != nil {
		return models.Article{}, err
	}
	in = in.Normalize()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Article{}, err
	}
	old := existing

	in.Apply(&existing)
	if upload != nil {
		obj, err := s.UploadImage(ctx, *upload)
		if err != nil {
			return models.Article{}, err
		}
		existing.ImageURL, existing.ImageKey = obj.URL, obj.Key
	} else if existing.ImageURL != old.ImageURL {
		existing.ImageKey = ""
	}

	updated, err := s.store.Update(ctx, existing)
	if err != nil {
		if upload != nil {
			s.removeBlob(ctx, existing.ImageKey)
		}
		return models.Article{}, err
	}
	if old.ImageURL != "" && old.ImageURL != updated.ImageURL {
		s.removeImage(ctx, old)
	}
	s.log.Info("article updated", zap.String("id", updated.ID))
	s.publish(ctx, events.ArticleUpdated, updated)
	return updated, nil
}

// ToggleFeatured kehrt das Featured-Flag um und liefert den neuen Stand.
func (s *ArticleService) ToggleFeatured(ctx context.Context, id string) (models.Article, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Article{}, err
	}
	a.IsFeatured = !a.IsFeatured
	if err := s.store.SetFeatured(ctx, id, a.IsFeatured); err != nil {
		return models.Article{}, err
	}
	s.publish(ctx, events.ArticleFeatured, a)
	return a, nil
}

// Delete entfernt den Artikel und sein hochgeladenes Titelbild.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, a)
	s.log.Info("article deleted", zap.String("id", id))
	s.publish(ctx, events.ArticleDeleted, a)
	return nil
}

// UploadImage speichert ein Bild unter einem eindeutigen Namen und liefert dessen URL.
func (s *ArticleService) UploadImage(ctx context.Context, u Upload) (storage.Object, error) {
	if len(u.Data) == 0 {
		return storage.Object{}, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if !strings.HasPrefix(u.ContentType, "image/") {
		return storage.Object{}, fmt.Errorf("%w: content type %q is not an image", ErrInvalidUpload, u.ContentType)
	}
	obj, err := s.blobs.Put(ctx, storage.ObjectName(u.Filename, s.now()), u.ContentType, u.Data)
	if err != nil {
		return storage.Object{}, err
	}
	uploadsCounter.Inc()
	return obj, nil
}

// RefreshStats aktualisiert die Artikel-Gauges, wird per Cron aufgerufen.
func (s *ArticleService) RefreshStats(ctx context.Context) error {
	all, err := s.store.All(ctx)
	if err != nil {
		return err
	}
	featured := 0
	perCategory := map[string]int{}
	for _, a := range all {
		if a.IsFeatured {
			featured++
		}
		if c := models.NormalizeCategory(a.Category); c != "" {
			perCategory[c]++
		}
	}
	articlesGauge.Set(float64(len(all)))
	featuredGauge.Set(float64(featured))
	categoryGauge.Reset()
	for c, n := range perCategory {
		categoryGauge.WithLabelValues(c).Set(float64(n))
	}
	s.log.Info("article stats refreshed", zap.Int("articles", len(all)), zap.Int("featured", featured))
	return nil
}

// removeImage löscht das eigene Titelbild eines Artikels. Fremde URLs bleiben unberührt.
func (s *ArticleService) removeImage(ctx context.Context, a models.Article) {
	key := a.ImageKey
	if key == "" {
		var ok bool
		if key, ok = s.blobs.KeyFor(a.ImageURL); !ok {
			return
		}
	}
	s.removeBlob(ctx, key)
}

func (s *ArticleService) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete image", zap.String("key", key), zap.Error(err))
	}
}

func (s *ArticleService) publish(ctx context.Context, typ string, a models.Article) {
	err := s.events.Publish(ctx, events.Event{
		Type:      typ,
		ArticleID: a.ID,
		Category:  a.Category,
		At:        s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to publish event", zap.String("type", typ), zap.String("id", a.ID), zap.Error(err))
	}
}
