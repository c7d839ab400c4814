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

	"github.com/javajoker/marketplace-backend/internal/cache"
	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/database"
	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/jobs"
	"github.com/javajoker/marketplace-backend/internal/middleware"
	"github.com/javajoker/marketplace-backend/internal/router"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/storage"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	utils.InitLogger(cfg.Environment, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.Fatal("Failed to initialize i18n: ", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	if err := database.SeedInitialData(db, cfg.Seed); err != nil {
		logrus.Fatal("Failed to seed initial data: ", err)
	}

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatal("Failed to initialize object storage: ", err)
	}
	logrus.WithField("driver", store.Name()).Info("Object storage ready")

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logrus.Fatal("Failed to connect to redis: ", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	limiters := middleware.NewRateLimiters(cfg.RateLimit)
	statistics := services.NewStatisticsService(db, redisClient, cfg.Redis.StatsTTL)

	sweepers := map[string]jobs.Sweeper{"statistics": statistics}
	for name, limiter := range limiters.Sweepers() {
		sweepers["rate_limit."+name] = limiter
	}
	scheduler := jobs.NewScheduler(cfg.RateLimit.SweepSchedule, sweepers)
	if err := scheduler.Start(); err != nil {
		logrus.Fatal("Failed to start job scheduler: ", err)
	}
	defer scheduler.Stop()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, router.Dependencies{
		DB:         db,
		Redis:      redisClient,
		Store:      store,
		Limiters:   limiters,
		Statistics: statistics,
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
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
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

	logrus.Info("Server exited")
}
