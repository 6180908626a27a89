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
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/database"
	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/middleware"
	"github.com/ecocart/storefront-api/internal/repository"
	"github.com/ecocart/storefront-api/internal/repository/memory"
	mongostore "github.com/ecocart/storefront-api/internal/repository/mongo"
	"github.com/ecocart/storefront-api/internal/repository/postgres"
	"github.com/ecocart/storefront-api/internal/router"
	"github.com/ecocart/storefront-api/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx := context.Background()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize store")
	}

	// Order event publisher
	var publisher services.Publisher = services.LogPublisher{}
	if cfg.Redis.Enabled {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()
		publisher = services.NewRedisPublisher(rdb)
	}

	notifier := services.NewNotificationService(publisher, cfg.Notifier)
	notifier.Start()

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	limiters := middleware.DefaultRateLimiters()
	stopLimiters := make(chan struct{})
	limiters.Run(stopLimiters)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, router.Dependencies{
		Store:    store,
		Notifier: notifier,
		Storage:  storage,
		Limiters: limiters,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	close(stopLimiters)

	// Drain queued order events before the store goes away
	if err := notifier.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Notification queue not fully drained")
	}

	if err := store.Close(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Failed to close store")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, err
		}
		return mongostore.NewStore(db), nil

	case config.StoreDriverMemory:
		logrus.Warn("Using in-memory store, data will not survive a restart")
		return memory.NewStore(), nil

	default:
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db); err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	}
}
