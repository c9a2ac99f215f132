package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/feed"
	"github.com/jobfeed/feedengine/pkg/config"
	"github.com/jobfeed/feedengine/pkg/logging"
)

const usage = `Usage: feedctl <command> [flags]

Commands:
  rebuild   Re-derive the feed from current source data and repopulate the cache
  prune     Trim the ranked cache and delete stale retired entries

Prune flags:
  -keep N   Number of newest entries to keep in the cache (default from config)
  -days D   Delete retired entries older than this many days (default from config)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()
	logger := logging.GetLogger()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate feed schema", zap.Error(err))
	}

	ranked, err := cache.New(&cfg.Redis, cfg.Feed.CacheKey)
	if err != nil {
		logger.Fatal("Failed to connect to ranked cache", zap.Error(err))
	}
	defer ranked.Close()

	repo := db.NewRepository(database.DB)
	maintenance := feed.NewMaintenance(
		db.NewFeedRepository(repo),
		db.NewJobRepository(repo),
		db.NewCompanyRepository(repo),
		db.NewPromotionRepository(repo),
		ranked,
		&cfg.Feed,
	)

	ctx := context.Background()

	switch os.Args[1] {
	case "rebuild":
		if err := maintenance.Rebuild(ctx); err != nil {
			logger.Fatal("Rebuild failed", zap.Error(err))
		}
		logger.Info("Feed rebuilt and cache repopulated")

	case "prune":
		fs := flag.NewFlagSet("prune", flag.ExitOnError)
		keep := fs.Int64("keep", cfg.Feed.PruneKeep, "number of newest entries to keep in the cache")
		days := fs.Int("days", cfg.Feed.RetentionDays, "delete retired entries older than this many days")
		fs.Parse(os.Args[2:])

		retention := time.Duration(*days) * 24 * time.Hour
		if err := maintenance.Prune(ctx, *keep, retention); err != nil {
			logger.Fatal("Prune failed", zap.Error(err))
		}
		logger.Info("Prune completed")

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}
