package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStore legt Bilder im Upload-Verzeichnis ab, ausgeliefert unter /uploads/.
type LocalStore struct {
	dir     string
	urlPath string
	log     *zap.Logger
}

// NewLocalStore erstellt einen LocalStore für dir.
func NewLocalStore(dir string, log *zap.Logger) *LocalStore {
	return &LocalStore{dir: dir, urlPath: "/uploads/", log: log}
}

// Dir liefert das Upload-Verzeichnis.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(_ context.Context, name, _ string, data []byte) (Object, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload dir: %w", err)
	}
	key := filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write upload %s: %w", key, err)
	}
	s.log.Info("image stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return Object{Key: key, URL: s.urlPath + key}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload %s: %w", key, err)
	}
	return nil
}

// KeyFor akzeptiert auch relative Pfade "uploads/..." aus älteren Artikeln.
func (s *LocalStore) KeyFor(url string) (string, bool) {
	if strings.HasPrefix(url, "uploads/") {
		url = "/" + url
	}
	return keyAfterPrefix(url, s.urlPath)
}

func (s *LocalStore) Close() error {
	return nil
}
