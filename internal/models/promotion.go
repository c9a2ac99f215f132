package models

import (
	"database/sql"
	"time"
)

// TargetKindPromotion is the target kind under which promotions appear in the feed
const TargetKindPromotion = "promotion"

// Promotion status constants
const (
	PromotionStatusPending   = "pending"
	PromotionStatusActive    = "active"
	PromotionStatusExpired   = "expired"
	PromotionStatusCancelled = "cancelled"
)

// Promotion placement constants
const (
	PlacementFeed     = "feed"
	PlacementHomepage = "homepage"
	PlacementList     = "list"
)

// PromotionPackage configures a purchasable promotion tier. PriorityWeight
// scales the feed recency credit for promotions bought under the package.
type PromotionPackage struct {
	ID             int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name           string `gorm:"type:varchar(100);not null;column:name"`
	DurationDays   int    `gorm:"not null;default:7;column:duration_days"`
	PriorityWeight int64  `gorm:"not null;default:1;column:priority_weight"`
	Placement      string `gorm:"type:varchar(20);not null;default:list;column:placement"`
	IsActive       bool   `gorm:"not null;default:true;column:is_active"`
}

// TableName specifies the table name for PromotionPackage
func (PromotionPackage) TableName() string {
	return "promotion_packages"
}

// Promotion is the read model for paid promotions. Its own target is a
// second polymorphic reference to whatever the promotion advertises.
type Promotion struct {
	ID         int64        `gorm:"primaryKey;autoIncrement;column:id"`
	Kind       string       `gorm:"type:varchar(20);not null;column:kind"`
	PackageID  int64        `gorm:"not null;column:package_id"`
	Placement  string       `gorm:"type:varchar(20);not null;column:placement"`
	Status     string       `gorm:"type:varchar(20);not null;default:pending;column:status"`
	TargetKind string       `gorm:"type:varchar(50);not null;column:target_kind"`
	TargetID   int64        `gorm:"not null;column:target_id"`
	StartAt    sql.NullTime `gorm:"column:start_at"`
	EndAt      sql.NullTime `gorm:"column:end_at"`
	CreatedAt  time.Time    `gorm:"not null;column:created_at"`

	Package *PromotionPackage `gorm:"foreignKey:PackageID;references:ID"`
}

// TableName specifies the table name for Promotion
func (Promotion) TableName() string {
	return "promotions"
}

// PriorityWeight returns the package weight, defaulting to 1 when the
// package is not loaded or carries no weight.
func (p *Promotion) PriorityWeight() int64 {
	if p.Package == nil || p.Package.PriorityWeight < 1 {
		return 1
	}
	return p.Package.PriorityWeight
}
