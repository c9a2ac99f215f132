package db

import (
	"context"
	"time"

	"github.com/jobfeed/feedengine/internal/models"
)

// JobRepository provides read access to job postings
type JobRepository struct {
	*Repository
}

// NewJobRepository creates a new job repository
func NewJobRepository(repo *Repository) *JobRepository {
	return &JobRepository{Repository: repo}
}

// Open returns jobs whose close date is absent or in the future
func (r *JobRepository) Open(ctx context.Context, now time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("close_date IS NULL OR close_date >= ?", now).
		Find(&jobs).Error
	return jobs, err
}

// GetByIDs retrieves jobs with their companies preloaded
func (r *JobRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Job, error) {
	result := make(map[int64]models.Job, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var jobs []models.Job
	if err := r.db.WithContext(ctx).Preload("Company").Where("id IN ?", ids).Find(&jobs).Error; err != nil {
		return nil, err
	}
	for _, j := range jobs {
		result[j.ID] = j
	}
	return result, nil
}

// CompanyRepository provides read access to companies
type CompanyRepository struct {
	*Repository
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(repo *Repository) *CompanyRepository {
	return &CompanyRepository{Repository: repo}
}

// Active returns companies in an active state
func (r *CompanyRepository) Active(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.WithContext(ctx).Where("status = ?", true).Find(&companies).Error
	return companies, err
}

// GetByIDs retrieves companies by id
func (r *CompanyRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Company, error) {
	result := make(map[int64]models.Company, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var companies []models.Company
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&companies).Error; err != nil {
		return nil, err
	}
	for _, c := range companies {
		result[c.ID] = c
	}
	return result, nil
}

// PromotionRepository provides read access to promotions
type PromotionRepository struct {
	*Repository
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(repo *Repository) *PromotionRepository {
	return &PromotionRepository{Repository: repo}
}

// ActiveFeedPlaced returns active promotions placed in the feed, packages
// preloaded so the caller can read priority weights.
func (r *PromotionRepository) ActiveFeedPlaced(ctx context.Context) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Package").
		Where("status = ? AND placement = ?", models.PromotionStatusActive, models.PlacementFeed).
		Find(&promotions).Error
	return promotions, err
}

// GetByIDs retrieves promotions with packages preloaded
func (r *PromotionRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.Promotion, error) {
	result := make(map[int64]models.Promotion, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var promotions []models.Promotion
	if err := r.db.WithContext(ctx).Preload("Package").Where("id IN ?", ids).Find(&promotions).Error; err != nil {
		return nil, err
	}
	for _, p := range promotions {
		result[p.ID] = p
	}
	return result, nil
}
