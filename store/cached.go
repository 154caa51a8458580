package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"school-site/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	categoriesKey = "articles:categories"
	generationKey = "articles:gen"
)

// CachedStore legt einen Redis-Cache vor einen DocumentStore.
// Seiten hängen an einem Generationszähler, jede Änderung erhöht ihn und macht so alle Seiten ungültig.
type CachedStore struct {
	DocumentStore
	redis redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedStore erstellt den Cache-Decorator.
func NewCachedStore(inner DocumentStore, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedStore {
	return &CachedStore{DocumentStore: inner, redis: rdb, ttl: ttl, log: log}
}

func articleKey(id string) string {
	return fmt.Sprintf("article:%s", id)
}

func pageKey(gen int64, q Query) string {
	after := "-"
	if q.After != nil {
		after = q.After.Encode()
	}
	return fmt.Sprintf("articles:page:%d:%s:%d:%s", gen, models.NormalizeCategory(q.Category), q.Limit, after)
}

func (s *CachedStore) generation(ctx context.Context) int64 {
	v, err := s.redis.Get(ctx, generationKey).Result()
	if err != nil {
		return 0
	}
	gen, _ := strconv.ParseInt(v, 10, 64)
	return gen
}

func (s *CachedStore) readJSON(ctx context.Context, key string, dst any) bool {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) writeJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate verwirft den Artikel, die Kategorien und über den Zähler alle Seiten.
func (s *CachedStore) invalidate(ctx context.Context, id string) {
	pipe := s.redis.TxPipeline()
	if id != "" {
		pipe.Del(ctx, articleKey(id))
	}
	pipe.Del(ctx, categoriesKey)
	pipe.Incr(ctx, generationKey)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *CachedStore) Get(ctx context.Context, id string) (models.Article, error) {
	var a models.Article
	if s.readJSON(ctx, articleKey(id), &a) {
		return a, nil
	}
	a, err := s.DocumentStore.Get(ctx, id)
	if err != nil {
		return a, err
	}
	s.writeJSON(ctx, articleKey(id), a)
	return a, nil
}

func (s *CachedStore) Query(ctx context.Context, q Query) ([]models.Article, error) {
	key := pageKey(s.generation(ctx), q)
	var articles []models.Article
	if s.readJSON(ctx, key, &articles) {
		return articles, nil
	}
	articles, err := s.DocumentStore.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	s.writeJSON(ctx, key, articles)
	return articles, nil
}

func (s *CachedStore) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if s.readJSON(ctx, categoriesKey, &categories) {
		return categories, nil
	}
	categories, err := s.DocumentStore.Categories(ctx)
	if err != nil {
		return nil, err
	}
	s.writeJSON(ctx, categoriesKey, categories)
	return categories, nil
}

func (s *CachedStore) Insert(ctx context.Context, a models.Article) (models.Article, error) {
	a, err := s.DocumentStore.Insert(ctx, a)
	if err == nil {
		s.invalidate(ctx, a.ID)
	}
	return a, err
}

func (s *CachedStore) Update(ctx context.Context, a models.Article) (models.Article, error) {
	a, err := s.DocumentStore.Update(ctx, a)
	if err == nil {
		s.invalidate(ctx, a.ID)
	}
	return a, err
}

func (s *CachedStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	err := s.DocumentStore.SetFeatured(ctx, id, featured)
	if err == nil {
		s.invalidate(ctx, id)
	}
	return err
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	err := s.DocumentStore.Delete(ctx, id)
	if err == nil {
		s.invalidate(ctx, id)
	}
	return err
}
