package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"school-site/models"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations spielt alle ausstehenden Migrationen ein und liefert die Version.
func RunMigrations(db *sql.DB) (uint, bool, error) {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	return m.Version()
}

// PostgresStore speichert Artikel in der Supabase-Postgres-Datenbank.
type PostgresStore struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// OpenPostgres verbindet sich mit der Datenbank und führt die Migrationen aus.
func OpenPostgres(dsn string, log *zap.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrUnavailable, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	version, dirty, err := RunMigrations(sqlDB)
	if err != nil {
		return nil, err
	}
	log.Info("database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return NewPostgresStore(db, log), nil
}

// NewPostgresStore verwendet eine bestehende gorm-Verbindung.
func NewPostgresStore(db *gorm.DB, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log, now: time.Now}
}

func wrapDBError(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *PostgresStore) Insert(ctx context.Context, a models.Article) (models.Article, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return models.Article{}, wrapDBError("insert", err)
	}
	return a, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Article, error) {
	var a models.Article
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return models.Article{}, wrapDBError("get", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a models.Article) (models.Article, error) {
	res := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("id = ?", a.ID).
		Select("title", "author", "category", "content", "image_url", "image_key", "is_featured").
		Updates(&a)
	if res.Error != nil {
		return models.Article{}, wrapDBError("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Article{}, ErrNotFound
	}
	return s.Get(ctx, a.ID)
}

func (s *PostgresStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	res := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Update("is_featured", featured)
	if res.Error != nil {
		return wrapDBError("set featured", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Article{})
	if res.Error != nil {
		return wrapDBError("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]models.Article, error) {
	tx := s.db.WithContext(ctx).Model(&models.Article{})
	if category := models.NormalizeCategory(q.Category); category != "" {
		tx = tx.Where("btrim(category) = ?", category)
	}
	if q.After != nil {
		tx = tx.Where("(created_at, id) < (?, ?)", q.After.CreatedAt, q.After.ID)
	}
	tx = tx.Order("created_at DESC, id DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var articles []models.Article
	if err := tx.Find(&articles).Error; err != nil {
		return nil, wrapDBError("query", err)
	}
	return articles, nil
}

func (s *PostgresStore) Categories(ctx context.Context) ([]string, error) {
	var raw []string
	err := s.db.WithContext(ctx).
		Raw("SELECT DISTINCT btrim(category) FROM articles WHERE btrim(category) <> ''").
		Scan(&raw).Error
	if err != nil {
		return nil, wrapDBError("categories", err)
	}
	return DistinctCategories(raw), nil
}

func (s *PostgresStore) All(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&articles).Error; err != nil {
		return nil, wrapDBError("all", err)
	}
	return articles, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
