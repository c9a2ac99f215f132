package feed

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/jobfeed/feedengine/internal/models"
)

func seedSources(t *testing.T, gdb *gorm.DB) (openJobs, activeCompanies, feedPromos int) {
	t.Helper()
	now := time.Now().UTC()

	companies := []models.Company{
		{Name: "Acme", Status: true, CreatedAt: now},
		{Name: "Defunct Inc", Status: false, CreatedAt: now},
	}
	if err := gdb.Create(&companies).Error; err != nil {
		t.Fatalf("company seed failed: %v", err)
	}

	jobs := []models.Job{
		{Title: "Open role", CompanyID: companies[0].ID, PostedAt: now},
		{Title: "Closing soon", CompanyID: companies[0].ID, PostedAt: now,
			CloseDate: nullTime(now.Add(time.Hour))},
		{Title: "Closed role", CompanyID: companies[0].ID, PostedAt: now,
			CloseDate: nullTime(now.Add(-time.Hour))},
	}
	if err := gdb.Create(&jobs).Error; err != nil {
		t.Fatalf("job seed failed: %v", err)
	}

	pkg := models.PromotionPackage{Name: "Boost", PriorityWeight: 2, Placement: models.PlacementFeed}
	if err := gdb.Create(&pkg).Error; err != nil {
		t.Fatalf("package seed failed: %v", err)
	}
	promos := []models.Promotion{
		{Kind: "job", PackageID: pkg.ID, Placement: models.PlacementFeed,
			Status: models.PromotionStatusActive, TargetKind: "job", TargetID: jobs[0].ID, CreatedAt: now},
		{Kind: "job", PackageID: pkg.ID, Placement: models.PlacementHomepage,
			Status: models.PromotionStatusActive, TargetKind: "job", TargetID: jobs[1].ID, CreatedAt: now},
		{Kind: "company", PackageID: pkg.ID, Placement: models.PlacementFeed,
			Status: models.PromotionStatusExpired, TargetKind: "company", TargetID: companies[0].ID, CreatedAt: now},
	}
	if err := gdb.Create(&promos).Error; err != nil {
		t.Fatalf("promotion seed failed: %v", err)
	}

	return 2, 1, 1
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func TestRebuild(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	openJobs, activeCompanies, feedPromos := seedSources(t, e.gdb)

	// a stale pre-existing entry must not survive the rebuild
	staleID, err := e.feedRepo.CreateOrReactivate(ctx, models.EventJobPosted,
		models.TargetRef{Kind: models.TargetKindJob, ID: 777}, 5)
	if err != nil {
		t.Fatalf("stale seed failed: %v", err)
	}
	e.ranked.Upsert(ctx, staleID, 5)

	m := e.newMaintenance()
	fixed := time.UnixMilli(10_000_000)
	m.now = func() time.Time { return fixed }

	if err := m.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	rows, err := e.feedRepo.Page(ctx, 100, nil, nil)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	want := openJobs + activeCompanies + feedPromos
	if len(rows) != want {
		t.Fatalf("rebuilt %d entries, want %d", len(rows), want)
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.EventKind]++
		if r.TargetID == 777 {
			t.Error("stale entry survived rebuild")
		}
	}
	if counts[models.EventJobPosted] != openJobs {
		t.Errorf("job entries = %d, want %d", counts[models.EventJobPosted], openJobs)
	}
	if counts[models.EventCompanyJoined] != activeCompanies {
		t.Errorf("company entries = %d, want %d", counts[models.EventCompanyJoined], activeCompanies)
	}
	if counts[models.EventPromotionActive] != feedPromos {
		t.Errorf("promotion entries = %d, want %d", counts[models.EventPromotionActive], feedPromos)
	}

	// the promotion's score carries the package weight
	for _, r := range rows {
		if r.EventKind == models.EventPromotionActive {
			if wantScore := Score(fixed, e.cfg.PromotionUnit*2); r.Score != wantScore {
				t.Errorf("promotion score = %v, want %v", r.Score, wantScore)
			}
		}
	}

	// rebuild is idempotent against a populated cache and store
	if err := m.Rebuild(ctx); err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	rows, err = e.feedRepo.Page(ctx, 100, nil, nil)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(rows) != want {
		t.Errorf("second rebuild produced %d entries, want %d", len(rows), want)
	}
}

func TestPrune(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	m := e.newMaintenance()

	// five cached entries, keep the two highest-scoring
	for id := int64(1); id <= 5; id++ {
		if err := e.ranked.Upsert(ctx, id, float64(id*100)); err != nil {
			t.Fatalf("cache seed failed: %v", err)
		}
	}

	// one retired entry past the horizon, one active old entry
	prunedID, err := e.feedRepo.CreateOrReactivate(ctx, models.EventPromotionActive,
		models.TargetRef{Kind: models.TargetKindPromotion, ID: 1}, 100)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	keptID, err := e.feedRepo.CreateOrReactivate(ctx, models.EventJobPosted,
		models.TargetRef{Kind: models.TargetKindJob, ID: 1}, 200)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := e.feedRepo.Deactivate(ctx, models.EventPromotionActive,
		models.TargetRef{Kind: models.TargetKindPromotion, ID: 1}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	aged := time.Now().UTC().Add(-10 * 24 * time.Hour)
	if err := e.gdb.Model(&models.FeedEntry{}).Where("id IN ?", []int64{prunedID, keptID}).
		Update("created_at", aged).Error; err != nil {
		t.Fatalf("aging failed: %v", err)
	}

	if err := m.Prune(ctx, 2, 7*24*time.Hour); err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	ids, err := e.ranked.RangeByScoreDesc(ctx, nil, 10)
	if err != nil {
		t.Fatalf("cache range failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 4 {
		t.Errorf("cache after prune = %v, want [5 4]", ids)
	}

	remaining, err := e.feedRepo.GetByIDs(ctx, []int64{prunedID, keptID})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, ok := remaining[prunedID]; ok {
		t.Error("aged retired entry survived prune")
	}
	if _, ok := remaining[keptID]; !ok {
		t.Error("active entry deleted by prune")
	}
}

func TestPruneWithCacheDown(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	m := NewMaintenance(e.feedRepo, e.jobs, e.companies, e.promotions, nil, e.cfg)

	id, err := e.feedRepo.CreateOrReactivate(ctx, models.EventPromotionActive,
		models.TargetRef{Kind: models.TargetKindPromotion, ID: 1}, 100)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := e.feedRepo.Deactivate(ctx, models.EventPromotionActive,
		models.TargetRef{Kind: models.TargetKindPromotion, ID: 1}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	aged := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if err := e.gdb.Model(&models.FeedEntry{}).Where("id = ?", id).
		Update("created_at", aged).Error; err != nil {
		t.Fatalf("aging failed: %v", err)
	}

	// cache trim fails silently; durable cleanup still runs
	if err := m.Prune(ctx, 2, 7*24*time.Hour); err != nil {
		t.Fatalf("prune with cache down failed: %v", err)
	}
	remaining, err := e.feedRepo.GetByIDs(ctx, []int64{id})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Error("retired entry survived prune during cache outage")
	}
}
