package feed

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/models"
	"github.com/jobfeed/feedengine/pkg/config"
)

// testEnv wires a sqlite-backed record store and a miniredis-backed ranked
// cache, mirroring the production wiring in cmd/server.
type testEnv struct {
	gdb        *gorm.DB
	feedRepo   *db.FeedRepository
	jobs       *db.JobRepository
	companies  *db.CompanyRepository
	promotions *db.PromotionRepository
	ranked     *cache.RankedSet
	cfg        *config.FeedConfig
}

func testFeedConfig() *config.FeedConfig {
	return &config.FeedConfig{
		JobBonus:        100_000,
		CompanyBonus:    50_000,
		PromotionUnit:   1_000_000,
		CacheKey:        "feed:test",
		DefaultPageSize: 20,
		MaxPageSize:     100,
		PruneKeep:       50_000,
		RetentionDays:   180,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "feed.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.FeedEntry{},
		&models.Company{},
		&models.Job{},
		&models.PromotionPackage{},
		&models.Promotion{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	mr := miniredis.RunT(t)
	ranked, err := cache.New(&config.RedisConfig{URL: "redis://" + mr.Addr(), Enabled: true}, "feed:test")
	if err != nil {
		t.Fatalf("failed to create ranked set: %v", err)
	}
	t.Cleanup(func() { ranked.Close() })

	repo := db.NewRepository(gdb)
	return &testEnv{
		gdb:        gdb,
		feedRepo:   db.NewFeedRepository(repo),
		jobs:       db.NewJobRepository(repo),
		companies:  db.NewCompanyRepository(repo),
		promotions: db.NewPromotionRepository(repo),
		ranked:     ranked,
		cfg:        testFeedConfig(),
	}
}

func (e *testEnv) newIngestor() *Ingestor {
	return NewIngestor(e.feedRepo, e.ranked, e.cfg)
}

func (e *testEnv) newReader(ranked *cache.RankedSet) *Reader {
	payloads := NewPayloadResolver(e.jobs, e.companies, e.promotions)
	return NewReader(e.feedRepo, ranked, payloads, e.cfg)
}

func (e *testEnv) newMaintenance() *Maintenance {
	return NewMaintenance(e.feedRepo, e.jobs, e.companies, e.promotions, e.ranked, e.cfg)
}
