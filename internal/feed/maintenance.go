package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/models"
	"github.com/jobfeed/feedengine/pkg/config"
	"github.com/jobfeed/feedengine/pkg/logging"
)

// Maintenance owns the rebuild and prune jobs. Both run inline in whatever
// scheduler invokes them; neither spawns goroutines.
type Maintenance struct {
	feedRepo   *db.FeedRepository
	jobs       *db.JobRepository
	companies  *db.CompanyRepository
	promotions *db.PromotionRepository
	ranked     *cache.RankedSet
	cfg        *config.FeedConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewMaintenance creates the maintenance job runner
func NewMaintenance(feedRepo *db.FeedRepository, jobs *db.JobRepository, companies *db.CompanyRepository, promotions *db.PromotionRepository, ranked *cache.RankedSet, cfg *config.FeedConfig) *Maintenance {
	return &Maintenance{
		feedRepo:   feedRepo,
		jobs:       jobs,
		companies:  companies,
		promotions: promotions,
		ranked:     ranked,
		cfg:        cfg,
		logger:     logging.WithComponent("feed-maintenance"),
		now:        time.Now,
	}
}

// Rebuild re-derives the canonical feed from current collaborator source
// data: open jobs, active companies, active feed-placed promotions. The
// feed table is wiped first; every re-created entry is mirrored into the
// ranked cache. Safe to run against a populated cache because the store
// upsert is keyed by (event_kind, target) and the zset by entry id.
func (m *Maintenance) Rebuild(ctx context.Context) error {
	if err := m.feedRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wiping feed entries: %w", err)
	}

	now := m.now()
	var created int

	jobs, err := m.jobs.Open(ctx, now)
	if err != nil {
		return fmt.Errorf("loading open jobs: %w", err)
	}
	for _, j := range jobs {
		target := models.TargetRef{Kind: models.TargetKindJob, ID: j.ID}
		if err := m.recreate(ctx, models.EventJobPosted, target, Score(now, m.cfg.JobBonus)); err != nil {
			return err
		}
		created++
	}

	companies, err := m.companies.Active(ctx)
	if err != nil {
		return fmt.Errorf("loading active companies: %w", err)
	}
	for _, c := range companies {
		target := models.TargetRef{Kind: models.TargetKindCompany, ID: c.ID}
		if err := m.recreate(ctx, models.EventCompanyJoined, target, Score(now, m.cfg.CompanyBonus)); err != nil {
			return err
		}
		created++
	}

	promotions, err := m.promotions.ActiveFeedPlaced(ctx)
	if err != nil {
		return fmt.Errorf("loading active promotions: %w", err)
	}
	for _, p := range promotions {
		target := models.TargetRef{Kind: models.TargetKindPromotion, ID: p.ID}
		bonus := m.cfg.PromotionUnit * p.PriorityWeight()
		if err := m.recreate(ctx, models.EventPromotionActive, target, Score(now, bonus)); err != nil {
			return err
		}
		created++
	}

	m.logger.Info("Feed rebuilt",
		zap.Int("entries", created),
		zap.Int("jobs", len(jobs)),
		zap.Int("companies", len(companies)),
		zap.Int("promotions", len(promotions)))
	return nil
}

func (m *Maintenance) recreate(ctx context.Context, kind string, target models.TargetRef, score float64) error {
	id, err := m.feedRepo.CreateOrReactivate(ctx, kind, target, score)
	if err != nil {
		return fmt.Errorf("recreating %s entry for %s: %w", kind, target, err)
	}
	if err := m.ranked.Upsert(ctx, id, score); err != nil {
		m.logger.Warn("ranked cache mirror failed during rebuild",
			zap.Int64("entry_id", id), zap.Error(err))
	}
	return nil
}

// Prune bounds both stores: the ranked cache is trimmed to its keep-count
// newest entries by score, and retired rows older than the retention
// horizon are deleted from the feed table. The two actions are
// independent; a cache failure does not block the durable cleanup.
func (m *Maintenance) Prune(ctx context.Context, keep int64, retention time.Duration) error {
	removed, err := m.ranked.TrimToNewest(ctx, keep)
	if err != nil {
		m.logger.Warn("ranked cache trim skipped", zap.Error(err))
	} else if removed > 0 {
		m.logger.Info("Ranked cache trimmed", zap.Int64("removed", removed), zap.Int64("kept", keep))
	}

	cutoff := m.now().Add(-retention)
	deleted, err := m.feedRepo.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("deleting stale feed entries: %w", err)
	}
	m.logger.Info("Stale feed entries deleted",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
	return nil
}
