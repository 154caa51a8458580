package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Backend für Artikel: file, firestore oder supabase
	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	DataFile     string `envconfig:"DATA_FILE" default:"data/articles.json"`
	PageSize     int    `envconfig:"PAGE_SIZE" default:"10"`

	// Backend für Bilder: local, s3 oder gcs
	BlobBackend string `envconfig:"BLOB_BACKEND" default:"local"`
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"public/uploads"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"5"`

	// Supabase Postgres
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"require"`

	// Firebase
	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseBucket          string `envconfig:"FIREBASE_BUCKET"`

	// S3-kompatibler Speicher (Supabase Storage)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key       string `envconfig:"S3_KEY"`
	S3Secret    string `envconfig:"S3_SECRET"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"uploads"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	SessionSecret  string `envconfig:"SESSION_SECRET"`
	AdminUsersFile string `envconfig:"ADMIN_USERS_FILE" default:"config/admins.yaml"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"*/15 * * * *"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// MaxUploadBytes liefert die maximale Upload-Größe in Bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Validate prüft, ob die für den Webserver nötigen Werte gesetzt sind.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}

	switch c.BlobBackend {
	case "local":
	case "s3":
		if c.S3Endpoint == "" || c.S3Key == "" || c.S3Secret == "" {
			return fmt.Errorf("S3_ENDPOINT, S3_KEY and S3_SECRET are required for blob backend s3")
		}
	case "gcs":
		if c.FirebaseBucket == "" {
			return fmt.Errorf("FIREBASE_BUCKET is required for blob backend gcs")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// ValidateStore prüft nur die Einstellungen des Artikel-Backends.
// Die Kommandozeilenwerkzeuge brauchen weder Session noch Bildspeicher.
func (c *Config) ValidateStore() error {
	switch c.StoreBackend {
	case "file":
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required for store backend file")
		}
	case "firestore":
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for store backend firestore")
		}
	case "supabase":
		if c.DBHost == "" || c.DBUser == "" {
			return fmt.Errorf("DB_HOST and DB_USER are required for store backend supabase")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.Validate()
}

// LoadStore lädt die Konfiguration wie Load, prüft aber nur das Artikel-Backend.
func LoadStore() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.ValidateStore()
}
