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
	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/api"
	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/feed"
	"github.com/jobfeed/feedengine/pkg/config"
	"github.com/jobfeed/feedengine/pkg/logging"
	"github.com/jobfeed/feedengine/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Feed Engine API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to the record store and migrate the feed table
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate feed schema", zap.Error(err))
	}

	// Connect to the ranked cache; a disabled cache degrades reads only
	ranked, err := cache.New(&cfg.Redis, cfg.Feed.CacheKey)
	if err != nil {
		logger.Fatal("Failed to connect to ranked cache", zap.Error(err))
	}
	defer ranked.Close()

	// Wire the engine
	repo := db.NewRepository(database.DB)
	feedRepo := db.NewFeedRepository(repo)
	payloads := feed.NewPayloadResolver(
		db.NewJobRepository(repo),
		db.NewCompanyRepository(repo),
		db.NewPromotionRepository(repo),
	)
	reader := feed.NewReader(feedRepo, ranked, payloads, &cfg.Feed)
	ingestor := feed.NewIngestor(feedRepo, ranked, &cfg.Feed)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	router := api.NewRouter(reader, ingestor, database, ranked)
	router.SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
