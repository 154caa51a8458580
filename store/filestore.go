package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"school-site/models"

	"go.uber.org/zap"
)

// docID akzeptiert numerische IDs (Date.now() aus Altbeständen) und Strings.
type docID string

func (d *docID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = docID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = docID(n.String())
	return nil
}

type fileArticle struct {
	models.Article
	ID docID `json:"id"`
}

type articlesFile struct {
	Articles []fileArticle `json:"articles"`
}

// DecodeArticlesFile liest eine Datei im Format {"articles":[...]}.
func DecodeArticlesFile(r io.Reader) ([]models.Article, error) {
	var f articlesFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}
	out := make([]models.Article, 0, len(f.Articles))
	for _, fa := range f.Articles {
		a := fa.Article
		a.ID = string(fa.ID)
		out = append(out, a)
	}
	return out, nil
}

// EncodeArticlesFile schreibt Artikel im Format {"articles":[...]}.
func EncodeArticlesFile(w io.Writer, articles []models.Article) error {
	if articles == nil {
		articles = []models.Article{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Articles []models.Article `json:"articles"`
	}{articles})
}

// FileStore speichert alle Artikel in einer lokalen JSON-Datei.
type FileStore struct {
	path string
	log  *zap.Logger
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileStore erstellt einen FileStore. Fehlt die Datei, wird sie beim ersten Schreiben angelegt.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log, now: time.Now}
}

func (s *FileStore) load() ([]models.Article, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, s.path, err)
	}
	defer f.Close()

	articles, err := DecodeArticlesFile(f)
	if errors.Is(err, io.EOF) {
		return []models.Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, s.path, err)
	}
	return articles, nil
}

// save schreibt atomar über eine temporäre Datei und Rename.
func (s *FileStore) save(articles []models.Article) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrUnavailable, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".articles-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeArticlesFile(tmp, articles); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrUnavailable, err)
	}
	return nil
}

func indexOf(articles []models.Article, id string) int {
	for i, a := range articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) Insert(_ context.Context, a models.Article) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return models.Article{}, err
	}

	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now.UTC()
	}
	if a.ID == "" {
		millis := now.UnixMilli()
		for indexOf(articles, strconv.FormatInt(millis, 10)) >= 0 {
			millis++
		}
		a.ID = strconv.FormatInt(millis, 10)
	} else if indexOf(articles, a.ID) >= 0 {
		return models.Article{}, fmt.Errorf("article %s already exists", a.ID)
	}

	articles = append([]models.Article{a}, articles...)
	if err := s.save(articles); err != nil {
		return models.Article{}, err
	}
	s.log.Debug("article stored", zap.String("id", a.ID), zap.String("file", s.path))
	return a, nil
}

func (s *FileStore) Get(_ context.Context, id string) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return models.Article{}, err
	}
	i := indexOf(articles, id)
	if i < 0 {
		return models.Article{}, ErrNotFound
	}
	return articles[i], nil
}

func (s *FileStore) Update(_ context.Context, a models.Article) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return models.Article{}, err
	}
	i := indexOf(articles, a.ID)
	if i < 0 {
		return models.Article{}, ErrNotFound
	}
	a.CreatedAt = articles[i].CreatedAt
	articles[i] = a
	if err := s.save(articles); err != nil {
		return models.Article{}, err
	}
	return a, nil
}

func (s *FileStore) SetFeatured(_ context.Context, id string, featured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(articles, id)
	if i < 0 {
		return ErrNotFound
	}
	articles[i].IsFeatured = featured
	return s.save(articles)
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(articles, id)
	if i < 0 {
		return ErrNotFound
	}
	articles = append(articles[:i], articles[i+1:]...)
	return s.save(articles)
}

func (s *FileStore) Query(_ context.Context, q Query) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return nil, err
	}
	return Paginate(articles, q), nil
}

func (s *FileStore) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return nil, err
	}
	raw := make([]string, 0, len(articles))
	for _, a := range articles {
		raw = append(raw, a.Category)
	}
	return DistinctCategories(raw), nil
}

func (s *FileStore) All(_ context.Context) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	articles, err := s.load()
	if err != nil {
		return nil, err
	}
	SortArticles(articles)
	return articles, nil
}

func (s *FileStore) Close() error { return nil }
