package feed

import (
	"context"
	"time"

	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/models"
)

// Payload is the discriminated per-item view: exactly one summary is set,
// selected by Type. Targets that no longer resolve yield Type "unknown".
type Payload struct {
	Type      string            `json:"type"`
	Job       *JobSummary       `json:"job,omitempty"`
	Company   *CompanySummary   `json:"company,omitempty"`
	Promotion *PromotionSummary `json:"promotion,omitempty"`
}

// JobSummary is the feed view of a job posting
type JobSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name,omitempty"`
	Location    string    `json:"location,omitempty"`
	City        string    `json:"city,omitempty"`
	SalaryMin   *float64  `json:"salary_min,omitempty"`
	SalaryMax   *float64  `json:"salary_max,omitempty"`
	DatePosted  time.Time `json:"date_posted"`
}

// CompanySummary is the feed view of a company signup
type CompanySummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PromotionSummary is the feed view of an active promotion
type PromotionSummary struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	PackageID int64          `json:"package_id"`
	Target    PromotedTarget `json:"target"`
}

// PromotedTarget points at whatever the promotion advertises
type PromotedTarget struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// summarizer resolves a batch of target ids for one event kind
type summarizer func(ctx context.Context, ids []int64) (map[int64]Payload, error)

// PayloadResolver shapes feed entries into typed payloads. Collaborator
// read models are consulted only here, at presentation time, through a
// kind-keyed lookup table; the record store itself never dereferences a
// target.
type PayloadResolver struct {
	byKind map[string]summarizer
}

// NewPayloadResolver creates a resolver over the collaborator read repositories
func NewPayloadResolver(jobs *db.JobRepository, companies *db.CompanyRepository, promotions *db.PromotionRepository) *PayloadResolver {
	return &PayloadResolver{
		byKind: map[string]summarizer{
			models.EventJobPosted:       jobSummaries(jobs),
			models.EventCompanyJoined:   companySummaries(companies),
			models.EventPromotionActive: promotionSummaries(promotions),
		},
	}
}

// Resolve returns one payload per entry, keyed by entry id. Targets are
// fetched in one batched query per event kind.
func (r *PayloadResolver) Resolve(ctx context.Context, entries []models.FeedEntry) (map[int64]Payload, error) {
	targetsByKind := make(map[string][]int64)
	for _, e := range entries {
		targetsByKind[e.EventKind] = append(targetsByKind[e.EventKind], e.TargetID)
	}

	summariesByKind := make(map[string]map[int64]Payload, len(targetsByKind))
	for kind, ids := range targetsByKind {
		resolve, ok := r.byKind[kind]
		if !ok {
			continue
		}
		summaries, err := resolve(ctx, ids)
		if err != nil {
			return nil, err
		}
		summariesByKind[kind] = summaries
	}

	result := make(map[int64]Payload, len(entries))
	for _, e := range entries {
		if p, ok := summariesByKind[e.EventKind][e.TargetID]; ok {
			result[e.ID] = p
		} else {
			result[e.ID] = Payload{Type: "unknown"}
		}
	}
	return result, nil
}

func jobSummaries(repo *db.JobRepository) summarizer {
	return func(ctx context.Context, ids []int64) (map[int64]Payload, error) {
		jobs, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[int64]Payload, len(jobs))
		for id, j := range jobs {
			s := &JobSummary{
				ID:         j.ID,
				Title:      j.Title,
				City:       j.CityName,
				DatePosted: j.PostedAt,
			}
			if j.Company != nil {
				s.CompanyName = j.Company.Name
			}
			if j.Location.Valid {
				s.Location = j.Location.String
			}
			if j.SalaryMin.Valid {
				v := j.SalaryMin.Float64
				s.SalaryMin = &v
			}
			if j.SalaryMax.Valid {
				v := j.SalaryMax.Float64
				s.SalaryMax = &v
			}
			result[id] = Payload{Type: "job", Job: s}
		}
		return result, nil
	}
}

func companySummaries(repo *db.CompanyRepository) summarizer {
	return func(ctx context.Context, ids []int64) (map[int64]Payload, error) {
		companies, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[int64]Payload, len(companies))
		for id, c := range companies {
			result[id] = Payload{Type: "company", Company: &CompanySummary{
				ID:        c.ID,
				Name:      c.Name,
				CreatedAt: c.CreatedAt,
			}}
		}
		return result, nil
	}
}

func promotionSummaries(repo *db.PromotionRepository) summarizer {
	return func(ctx context.Context, ids []int64) (map[int64]Payload, error) {
		promotions, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[int64]Payload, len(promotions))
		for id, p := range promotions {
			result[id] = Payload{Type: "promotion", Promotion: &PromotionSummary{
				ID:        p.ID,
				Kind:      p.Kind,
				PackageID: p.PackageID,
				Target:    PromotedTarget{Kind: p.TargetKind, ID: p.TargetID},
			}}
		}
		return result, nil
	}
}
