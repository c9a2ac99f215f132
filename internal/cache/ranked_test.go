package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/jobfeed/feedengine/pkg/config"
)

func newTestRankedSet(t *testing.T) *RankedSet {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := New(&config.RedisConfig{URL: "redis://" + mr.Addr(), Enabled: true}, "feed:test")
	if err != nil {
		t.Fatalf("failed to create ranked set: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRankedSetUpsertIdempotent(t *testing.T) {
	rs := newTestRankedSet(t)
	ctx := context.Background()

	if err := rs.Upsert(ctx, 1, 100); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := rs.Upsert(ctx, 1, 100); err != nil {
		t.Fatalf("repeated upsert failed: %v", err)
	}

	n, err := rs.Cardinality(ctx)
	if err != nil {
		t.Fatalf("cardinality failed: %v", err)
	}
	if n != 1 {
		t.Errorf("cardinality = %d after duplicate upsert, want 1", n)
	}

	score, err := rs.ScoreOf(ctx, 1)
	if err != nil {
		t.Fatalf("score lookup failed: %v", err)
	}
	if score != 100 {
		t.Errorf("score = %v, want 100", score)
	}
}

func TestRankedSetRangeByScoreDesc(t *testing.T) {
	rs := newTestRankedSet(t)
	ctx := context.Background()

	for id, score := range map[int64]float64{1: 100, 2: 300, 3: 200, 4: 500, 5: 400} {
		if err := rs.Upsert(ctx, id, score); err != nil {
			t.Fatalf("upsert %d failed: %v", id, err)
		}
	}

	tests := []struct {
		name  string
		max   *float64
		limit int
		want  []int64
	}{
		{
			name:  "unbounded descending",
			max:   nil,
			limit: 10,
			want:  []int64{4, 5, 2, 3, 1},
		},
		{
			name:  "limit cuts page",
			max:   nil,
			limit: 2,
			want:  []int64{4, 5},
		},
		{
			name:  "exclusive upper bound",
			max:   floatPtr(400),
			limit: 10,
			want:  []int64{2, 3, 1},
		},
		{
			name:  "bound below everything",
			max:   floatPtr(100),
			limit: 10,
			want:  []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rs.RangeByScoreDesc(ctx, tt.max, tt.limit)
			if err != nil {
				t.Fatalf("range failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRankedSetRemove(t *testing.T) {
	rs := newTestRankedSet(t)
	ctx := context.Background()

	rs.Upsert(ctx, 1, 100)
	rs.Upsert(ctx, 2, 200)

	if err := rs.Remove(ctx, 1, 99); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	// removing again is safe
	if err := rs.Remove(ctx, 1); err != nil {
		t.Fatalf("repeated remove failed: %v", err)
	}

	if _, err := rs.ScoreOf(ctx, 1); !errors.Is(err, ErrNotInCache) {
		t.Errorf("ScoreOf removed id error = %v, want ErrNotInCache", err)
	}
	n, _ := rs.Cardinality(ctx)
	if n != 1 {
		t.Errorf("cardinality = %d, want 1", n)
	}
}

func TestRankedSetTrimToNewest(t *testing.T) {
	rs := newTestRankedSet(t)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		if err := rs.Upsert(ctx, id, float64(id*100)); err != nil {
			t.Fatalf("upsert %d failed: %v", id, err)
		}
	}

	removed, err := rs.TrimToNewest(ctx, 2)
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	ids, err := rs.RangeByScoreDesc(ctx, nil, 10)
	if err != nil {
		t.Fatalf("range failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 4 {
		t.Errorf("remaining ids = %v, want [5 4]", ids)
	}

	// trimming a set already within bounds is a no-op
	removed, err = rs.TrimToNewest(ctx, 2)
	if err != nil {
		t.Fatalf("second trim failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("second trim removed = %d, want 0", removed)
	}
}

func TestRankedSetNilSafe(t *testing.T) {
	var rs *RankedSet
	ctx := context.Background()

	if err := rs.Upsert(ctx, 1, 100); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("Upsert on nil = %v, want ErrCacheUnavailable", err)
	}
	if err := rs.Remove(ctx, 1); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("Remove on nil = %v, want ErrCacheUnavailable", err)
	}
	if _, err := rs.RangeByScoreDesc(ctx, nil, 10); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("RangeByScoreDesc on nil = %v, want ErrCacheUnavailable", err)
	}
	if _, err := rs.ScoreOf(ctx, 1); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("ScoreOf on nil = %v, want ErrCacheUnavailable", err)
	}
	if _, err := rs.Cardinality(ctx); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("Cardinality on nil = %v, want ErrCacheUnavailable", err)
	}
	if _, err := rs.TrimToNewest(ctx, 10); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("TrimToNewest on nil = %v, want ErrCacheUnavailable", err)
	}
	if err := rs.Close(); err != nil {
		t.Errorf("Close on nil = %v, want nil", err)
	}
}

func floatPtr(f float64) *float64 { return &f }
