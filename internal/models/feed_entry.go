package models

import (
	"fmt"
	"time"
)

// Event kind constants
const (
	EventJobPosted       = "job_posted"
	EventCompanyJoined   = "company_joined"
	EventPromotionActive = "promotion_active"
)

// ValidEventKind reports whether s is a known event kind
func ValidEventKind(s string) bool {
	switch s {
	case EventJobPosted, EventCompanyJoined, EventPromotionActive:
		return true
	}
	return false
}

// TargetRef is a polymorphic reference to an entity owned by another
// domain. The feed engine never dereferences it beyond (kind, id).
type TargetRef struct {
	Kind string
	ID   int64
}

func (t TargetRef) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// FeedEntry is the durable, authoritative feed record. The partial unique
// index guarantees at most one active entry per (event_kind, target);
// retired entries for the same pair may accumulate until pruned.
type FeedEntry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id;index:idx_feed_score_id,priority:2"`
	EventKind  string    `gorm:"type:varchar(50);not null;column:event_kind;index:idx_feed_kind_active,priority:1;uniqueIndex:ux_feed_active_target,priority:1,where:is_active"`
	TargetKind string    `gorm:"type:varchar(50);not null;column:target_kind;index:idx_feed_target,priority:1;uniqueIndex:ux_feed_active_target,priority:2,where:is_active"`
	TargetID   int64     `gorm:"not null;column:target_id;index:idx_feed_target,priority:2;uniqueIndex:ux_feed_active_target,priority:3,where:is_active"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
	Score      float64   `gorm:"type:decimal(20,6);not null;column:score;index:idx_feed_score_id,priority:1,sort:desc"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active;index:idx_feed_kind_active,priority:2"`
	Meta       string    `gorm:"type:text;column:meta"`
}

// TableName specifies the table name for FeedEntry
func (FeedEntry) TableName() string {
	return "feed_entries"
}

// Target returns the entry's polymorphic target reference
func (e *FeedEntry) Target() TargetRef {
	return TargetRef{Kind: e.TargetKind, ID: e.TargetID}
}
