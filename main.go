package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school-site/config"
	"school-site/events"
	"school-site/handlers"
	"school-site/services"
	"school-site/storage"
	"school-site/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Stores
	articleStore, err := store.Open(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Failed to open article store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer articleStore.Close()

	blobs, err := storage.Open(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Failed to open image storage", zap.String("backend", cfg.BlobBackend), zap.Error(err))
	}
	defer blobs.Close()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.RabbitMQURL, logging)
		if err != nil {
			logging.Warn("RabbitMQ not reachable, article events disabled", zap.Error(err))
		} else {
			publisher = amqpPublisher
			logging.Info("Publishing article events", zap.String("exchange", events.Exchange))
		}
	}
	defer publisher.Close()

	admins, err := services.LoadAdmins(cfg.AdminUsersFile)
	if err != nil {
		logging.Fatal("Failed to load admin users", zap.String("file", cfg.AdminUsersFile), zap.Error(err))
	}

	// Setup Services
	articleService := services.NewArticleService(articleStore, blobs, publisher, logging, cfg.PageSize)
	authService := services.NewAuthService(admins, logging)

	// Setup Router
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("school_session", sessionStore))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreBackend})
	})
	if local, ok := blobs.(*storage.LocalStore); ok {
		router.Static("/uploads", local.Dir())
	}

	// Setup Routes
	handlers.SetupAuthRoutes(router, authService, logging)
	handlers.SetupArticleRoutes(router, articleService, cfg.MaxUploadBytes(), logging)

	// Setup Cron
	cronScheduler := cron.New()
	refresh := func() {
		if err := articleService.RefreshStats(context.Background()); err != nil {
			logging.Error("Stats refresh failed", zap.Error(err))
		}
	}
	if _, err := cronScheduler.AddFunc(cfg.CronSchedule, refresh); err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	go refresh()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server...")
	<-cronScheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", zap.Error(err))
	}
	logging.Info("Server stopped")
}
