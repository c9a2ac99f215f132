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

// JobCreated notifies that a job posting was created
type JobCreated struct {
	Target   models.TargetRef
	ClosesAt *time.Time
}

// CompanyCreated notifies that an organization signed up
type CompanyCreated struct {
	Target models.TargetRef
	Active bool
}

// PromotionStateChanged notifies that a paid promotion changed state
type PromotionStateChanged struct {
	Target         models.TargetRef
	Placement      string
	Status         string
	PriorityWeight int64
}

// Ingestor turns collaborator lifecycle notifications into feed entries:
// upsert into the record store first, then mirror into the ranked cache.
// Delivery is expected at-least-once; the store upsert keyed by
// (event_kind, target) makes duplicates harmless.
type Ingestor struct {
	feedRepo *db.FeedRepository
	ranked   *cache.RankedSet
	cfg      *config.FeedConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestor creates a new ingestor
func NewIngestor(feedRepo *db.FeedRepository, ranked *cache.RankedSet, cfg *config.FeedConfig) *Ingestor {
	return &Ingestor{
		feedRepo: feedRepo,
		ranked:   ranked,
		cfg:      cfg,
		logger:   logging.WithComponent("feed-ingestor"),
		now:      time.Now,
	}
}

// HandleJobCreated records an open job in the feed. Closed-on-arrival jobs
// are skipped; jobs never emit a deactivation, their feed presence is
// permanent once created.
func (in *Ingestor) HandleJobCreated(ctx context.Context, n JobCreated) error {
	now := in.now()
	if n.ClosesAt != nil && n.ClosesAt.Before(now) {
		return nil
	}
	return in.activate(ctx, models.EventJobPosted, n.Target, Score(now, in.cfg.JobBonus))
}

// HandleCompanyCreated records an active company signup in the feed
func (in *Ingestor) HandleCompanyCreated(ctx context.Context, n CompanyCreated) error {
	if !n.Active {
		return nil
	}
	return in.activate(ctx, models.EventCompanyJoined, n.Target, Score(in.now(), in.cfg.CompanyBonus))
}

// HandlePromotionStateChanged activates a promotion entry while the
// promotion is active and placed in the feed, and retires it when the
// promotion expires, is cancelled, or leaves the feed placement.
func (in *Ingestor) HandlePromotionStateChanged(ctx context.Context, n PromotionStateChanged) error {
	switch {
	case n.Status == models.PromotionStatusActive && n.Placement == models.PlacementFeed:
		weight := n.PriorityWeight
		if weight < 1 {
			weight = 1
		}
		return in.activate(ctx, models.EventPromotionActive, n.Target, Score(in.now(), in.cfg.PromotionUnit*weight))

	case n.Status == models.PromotionStatusExpired,
		n.Status == models.PromotionStatusCancelled,
		n.Status == models.PromotionStatusActive && n.Placement != models.PlacementFeed:
		return in.deactivate(ctx, models.EventPromotionActive, n.Target)
	}
	// pending and other states do not touch the feed
	return nil
}

// activate upserts the authoritative row, then mirrors it. A store failure
// aborts before any cache mutation and propagates so the emitter can
// retry; a mirror failure after a successful write is logged and swallowed
// since the store stays authoritative and rebuild or the fallback read
// restores visibility.
func (in *Ingestor) activate(ctx context.Context, kind string, target models.TargetRef, score float64) error {
	id, err := in.feedRepo.CreateOrReactivate(ctx, kind, target, score)
	if err != nil {
		return fmt.Errorf("feed entry upsert for %s %s: %w", kind, target, err)
	}
	if err := in.ranked.Upsert(ctx, id, score); err != nil {
		in.logger.Warn("ranked cache mirror failed",
			zap.Int64("entry_id", id),
			zap.String("event_kind", kind),
			zap.Error(err))
	}
	return nil
}

func (in *Ingestor) deactivate(ctx context.Context, kind string, target models.TargetRef) error {
	ids, err := in.feedRepo.Deactivate(ctx, kind, target)
	if err != nil {
		return fmt.Errorf("feed entry deactivate for %s %s: %w", kind, target, err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := in.ranked.Remove(ctx, ids...); err != nil {
		in.logger.Warn("ranked cache eviction failed",
			zap.Int64s("entry_ids", ids),
			zap.String("event_kind", kind),
			zap.Error(err))
	}
	return nil
}
