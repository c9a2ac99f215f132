package models

import (
	"database/sql"
	"time"
)

// TargetKindJob is the target kind under which jobs appear in the feed
const TargetKindJob = "job"

// Job is the read model for job postings. The feed engine only reads this
// table: for rebuild source scans and payload shaping.
type Job struct {
	ID        int64           `gorm:"primaryKey;autoIncrement;column:id"`
	Title     string          `gorm:"type:varchar(255);not null;column:title"`
	CompanyID int64           `gorm:"not null;column:company_id"`
	CityName  string          `gorm:"type:varchar(255);column:city_name"`
	Location  sql.NullString  `gorm:"type:varchar(255);column:physical_address"`
	SalaryMin sql.NullFloat64 `gorm:"type:decimal(10,2);column:salary_min"`
	SalaryMax sql.NullFloat64 `gorm:"type:decimal(10,2);column:salary_max"`
	PostedAt  time.Time       `gorm:"not null;column:date_posted"`
	CloseDate sql.NullTime    `gorm:"column:close_date"`

	Company *Company `gorm:"foreignKey:CompanyID;references:ID"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}

// OpenAt reports whether the job is still open at the given instant
func (j *Job) OpenAt(now time.Time) bool {
	return !j.CloseDate.Valid || !j.CloseDate.Time.Before(now)
}
