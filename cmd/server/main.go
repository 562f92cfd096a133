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
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/api"
	"github.com/quantfeed/dcalab-go/internal/api/handlers"
	"github.com/quantfeed/dcalab-go/internal/cache"
	"github.com/quantfeed/dcalab-go/internal/config"
	"github.com/quantfeed/dcalab-go/internal/database"
	"github.com/quantfeed/dcalab-go/internal/provider"
	"github.com/quantfeed/dcalab-go/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// Upstream quote provider behind the Redis price cache
	providerClient := provider.NewClient(
		cfg.Provider.BaseURL,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second,
		cfg.Provider.RequestsPerMinute,
		logger,
	)
	priceCache := cache.NewRedisPriceCache(
		redis.Client,
		time.Duration(cfg.Provider.CacheTTLMinutes)*time.Minute,
		logger,
	)
	marketData := services.NewMarketDataService(providerClient, priceCache, logger)

	// Engine components
	builder := services.NewMarketDataBuilder(logger)
	simulator := services.NewSimulator(logger)
	overlays := services.NewOverlayService(logger)
	portfolioRepo := database.NewPortfolioRepository(db.Pool)

	backtestHandler := handlers.NewBacktestHandler(
		marketData, builder, simulator, overlays, portfolioRepo, cfg, logger,
	)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	api.SetupRoutes(router, backtestHandler, db, redis)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"service": "dcalab",
			"port":    cfg.Server.Port,
		}).Info("Application startup")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
	return nil
}
