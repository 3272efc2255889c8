// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hongquyngo/safety-stock/internal/api"
	"github.com/hongquyngo/safety-stock/internal/cache"
	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/repository/postgres"
	"github.com/hongquyngo/safety-stock/internal/service"
	"github.com/hongquyngo/safety-stock/internal/storage"
	"github.com/hongquyngo/safety-stock/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Server.Mode, cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	demandCache, err := cache.NewDemandCache(context.Background(), cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, demand cache disabled")
		demandCache = cache.NewNoopDemandCache()
	}

	opts := []service.Option{}
	if cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := storage.NewMinioClient(ctx, cfg.Storage)
		cancel()
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, report uploads disabled")
		} else {
			opts = append(opts, service.WithReportWriter(storage.NewReportWriter(store, cfg.Storage.Prefix)))
		}
	}

	// Initialize services
	safetyStockService := service.NewSafetyStockService(
		postgres.NewDemandRepository(db.DB),
		postgres.NewSafetyStockRepository(db),
		demandCache,
		cfg.Calculation,
		opts...,
	)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{SafetyStockService: safetyStockService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
