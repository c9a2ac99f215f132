package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobfeed/feedengine/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FeedRepository provides feed entry database operations
type FeedRepository struct {
	*Repository
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(repo *Repository) *FeedRepository {
	return &FeedRepository{Repository: repo}
}

// CreateOrReactivate inserts a feed entry for (kind, target) or refreshes
// the existing row in place: score overwritten, is_active set. An existing
// row is matched regardless of its current active state, preferring the
// active one so reactivation reuses the retired row rather than stacking a
// new one. When no row exists two concurrent calls can both reach the
// insert; the conflict clause on the partial unique index turns the loser
// into the update arm, so the engine never holds two active rows for the
// same pair. Returns the row id for cache mirroring.
func (r *FeedRepository) CreateOrReactivate(ctx context.Context, kind string, target models.TargetRef, score float64) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.FeedEntry{}).
			Select("id").
			Where("event_kind = ? AND target_kind = ? AND target_id = ?", kind, target.Kind, target.ID).
			Order("is_active DESC, id DESC").
			Limit(1)

		res := tx.Model(&models.FeedEntry{}).
			Where("id = (?)", sub).
			Updates(map[string]interface{}{"score": score, "is_active": true})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			var entry models.FeedEntry
			if err := tx.Select("id").
				Where("event_kind = ? AND target_kind = ? AND target_id = ? AND is_active = ?",
					kind, target.Kind, target.ID, true).
				Order("id DESC").
				First(&entry).Error; err != nil {
				return err
			}
			id = entry.ID
			return nil
		}

		entry := models.FeedEntry{
			EventKind:  kind,
			TargetKind: target.Kind,
			TargetID:   target.ID,
			CreatedAt:  time.Now().UTC(),
			Score:      score,
			IsActive:   true,
			Meta:       "{}",
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "event_kind"},
				{Name: "target_kind"},
				{Name: "target_id"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "is_active"},
			}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":     score,
				"is_active": true,
			}),
		}).Create(&entry).Error; err != nil {
			return err
		}
		id = entry.ID
		return nil
	})
	return id, err
}

// Deactivate retires any active row for (kind, target). It returns every
// row id recorded for the pair, active or not, so the caller can evict
// stale members from the ranked cache. No-op when nothing matches.
func (r *FeedRepository) Deactivate(ctx context.Context, kind string, target models.TargetRef) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FeedEntry{}).
			Where("event_kind = ? AND target_kind = ? AND target_id = ?", kind, target.Kind, target.ID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.FeedEntry{}).
			Where("id IN ? AND is_active = ?", ids, true).
			Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Page returns up to limit active entries in (score desc, id desc) order,
// bounded below maxScoreExclusive when given and optionally restricted to a
// set of event kinds. This is the direct-store pagination path used when
// the ranked cache is unavailable.
func (r *FeedRepository) Page(ctx context.Context, limit int, maxScoreExclusive *float64, kinds []string) ([]models.FeedEntry, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if maxScoreExclusive != nil {
		q = q.Where("score < ?", *maxScoreExclusive)
	}
	if len(kinds) > 0 {
		q = q.Where("event_kind IN ?", kinds)
	}
	var entries []models.FeedEntry
	if err := q.Order("score DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByIDs retrieves entries by id in a single batched query
func (r *FeedRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.FeedEntry, error) {
	result := make(map[int64]models.FeedEntry, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var entries []models.FeedEntry
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		result[e.ID] = e
	}
	return result, nil
}

// DeleteInactiveBefore bulk-deletes retired rows created before cutoff.
// Active rows are never touched.
func (r *FeedRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_active = ? AND created_at < ?", false, cutoff).
		Delete(&models.FeedEntry{})
	return res.RowsAffected, res.Error
}

// DeleteAll wipes the feed table. Only the rebuild job calls this.
func (r *FeedRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.FeedEntry{}).Error
}
