// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/router"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/store/gormstore"
	"github.com/javajoker/storefront-backend/internal/store/memstore"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	configureLogging(cfg.Log)

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.Fatal("Failed to initialize i18n: ", err)
	}
	i18n.SetDefaultLanguage(cfg.I18n.DefaultLocale)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	st, closeStore, err := openStore(cfg)
	if err != nil {
		logrus.Fatal("Failed to open store: ", err)
	}
	defer closeStore()

	bus, err := openBus(cfg.Redis)
	if err != nil {
		logrus.Fatal("Failed to connect event bus: ", err)
	}

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.Fatal("Failed to initialize storage: ", err)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.NewAuthService(st, cfg).EnsureAdmin(seedCtx); err != nil {
		cancelSeed()
		logrus.Fatal("Failed to seed admin account: ", err)
	}
	cancelSeed()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limiters := middleware.NewRateLimiters(cfg.RateLimit)
	defer limiters.Stop()

	r := router.Initialize(cfg, st, bus, storageService, limiters)

	// Create HTTP server. Event streams are long-lived, so there is no write
	// timeout on the server itself.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
			"redis": cfg.Redis.Enabled,
			"s3":    storageService.UsesS3(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Closing the bus ends open event streams so Shutdown does not wait on them.
	if err := bus.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close event bus")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logrus.Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}

	return gormstore.New(db), func() { database.Close(db) }, nil
}

func openBus(cfg config.RedisConfig) (events.Bus, error) {
	if !cfg.Enabled {
		return events.NewHub(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return events.NewRedisBus(client), nil
}
