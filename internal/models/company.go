package models

import "time"

// TargetKindCompany is the target kind under which companies appear in the feed
const TargetKindCompany = "company"

// Company is the read model for organizations
type Company struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `gorm:"type:varchar(255);not null;column:name"`
	Status    bool      `gorm:"not null;default:true;column:status"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Company
func (Company) TableName() string {
	return "companies"
}
