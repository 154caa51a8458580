package store

import (
	"context"
	"fmt"

	"school-site/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Open wählt das Backend anhand von STORE_BACKEND und legt bei gesetztem REDIS_ADDR den Cache davor.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (DocumentStore, error) {
	var (
		s   DocumentStore
		err error
	)
	switch cfg.StoreBackend {
	case "file":
		s = NewFileStore(cfg.DataFile, log)
	case "firestore":
		s, err = OpenFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, log)
	case "supabase":
		s, err = OpenPostgres(cfg.DSN(), log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	log.Info("document store ready", zap.String("backend", cfg.StoreBackend))

	if cfg.RedisAddr == "" {
		return s, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable, running without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return s, nil
	}
	log.Info("article cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	return &closingCache{CachedStore: NewCachedStore(s, rdb, cfg.CacheTTL, log), rdb: rdb}, nil
}

type closingCache struct {
	*CachedStore
	rdb *redis.Client
}

func (c *closingCache) Close() error {
	_ = c.rdb.Close()
	return c.CachedStore.Close()
}
