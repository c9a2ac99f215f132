package feed

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jobfeed/feedengine/internal/cache"
	"github.com/jobfeed/feedengine/internal/db"
	"github.com/jobfeed/feedengine/internal/models"
	"github.com/jobfeed/feedengine/pkg/config"
	"github.com/jobfeed/feedengine/pkg/logging"
)

// ListParams are the inputs to a feed page read
type ListParams struct {
	Limit  int
	Cursor string
	Kinds  []string
}

// Item is one shaped feed entry
type Item struct {
	ID        int64     `json:"id"`
	EventKind string    `json:"event_kind"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score"`
	Payload   Payload   `json:"payload"`
}

// ListResult is one page of the feed
type ListResult struct {
	Results    []Item  `json:"results"`
	NextCursor *string `json:"next_cursor"`
}

// Reader serves cursor-paginated feed reads: the ranked cache drives
// ordering when it is populated, with the record store resolving ids; an
// unavailable or empty cache degrades to an ordered query against the
// store. Either branch yields a continuable cursor, so a reader can cross
// branch switches without gaps or duplicates.
type Reader struct {
	feedRepo *db.FeedRepository
	ranked   *cache.RankedSet
	payloads *PayloadResolver
	cfg      *config.FeedConfig
	logger   *zap.Logger
}

// NewReader creates a new feed reader
func NewReader(feedRepo *db.FeedRepository, ranked *cache.RankedSet, payloads *PayloadResolver, cfg *config.FeedConfig) *Reader {
	return &Reader{
		feedRepo: feedRepo,
		ranked:   ranked,
		payloads: payloads,
		cfg:      cfg,
		logger:   logging.WithComponent("feed-reader"),
	}
}

// List returns one feed page. Only a record store failure propagates; any
// cache trouble silently takes the fallback path.
func (r *Reader) List(ctx context.Context, p ListParams) (*ListResult, error) {
	limit := p.Limit
	if limit < 1 {
		limit = r.cfg.DefaultPageSize
	}
	if limit > r.cfg.MaxPageSize {
		limit = r.cfg.MaxPageSize
	}

	var maxScore *float64
	if cur, ok := ParseCursor(p.Cursor); ok {
		maxScore = &cur.Score
	}

	kinds := validKinds(p.Kinds)

	ids, err := r.ranked.RangeByScoreDesc(ctx, maxScore, limit)
	if err == nil && len(ids) > 0 {
		return r.listFromCache(ctx, ids, kinds)
	}
	if err != nil && !errors.Is(err, cache.ErrCacheUnavailable) {
		r.logger.Warn("ranked cache range read failed", zap.Error(err))
	}

	// Cache unavailable or empty: page straight off the store.
	return r.listFromStore(ctx, limit, maxScore, kinds)
}

func (r *Reader) listFromCache(ctx context.Context, ids []int64, kinds []string) (*ListResult, error) {
	entries, err := r.feedRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	allowed := kindSet(kinds)
	ordered := make([]models.FeedEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := entries[id]
		if !ok {
			continue
		}
		if allowed != nil && !allowed[e.EventKind] {
			continue
		}
		ordered = append(ordered, e)
	}

	// The cursor advances over the raw cache window, filtered or not, so a
	// kind filter narrows pages without stalling pagination.
	lastID := ids[len(ids)-1]
	next := r.cursorFor(ctx, lastID, entries)

	items, err := r.shape(ctx, ordered)
	if err != nil {
		return nil, err
	}
	return &ListResult{Results: items, NextCursor: next}, nil
}

// cursorFor re-reads the last id's score before encoding the cursor. If a
// concurrent prune evicted the id between the range read and now, the
// stored row's score stands in: the store is authoritative, and pagination
// continues instead of ending early.
func (r *Reader) cursorFor(ctx context.Context, lastID int64, entries map[int64]models.FeedEntry) *string {
	score, err := r.ranked.ScoreOf(ctx, lastID)
	if err != nil {
		e, ok := entries[lastID]
		if !ok {
			return nil
		}
		score = e.Score
	}
	c := FormatCursor(score, lastID)
	return &c
}

func (r *Reader) listFromStore(ctx context.Context, limit int, maxScore *float64, kinds []string) (*ListResult, error) {
	rows, err := r.feedRepo.Page(ctx, limit, maxScore, kinds)
	if err != nil {
		return nil, err
	}

	var next *string
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		c := FormatCursor(last.Score, last.ID)
		next = &c
	}

	items, err := r.shape(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &ListResult{Results: items, NextCursor: next}, nil
}

func (r *Reader) shape(ctx context.Context, entries []models.FeedEntry) ([]Item, error) {
	payloads, err := r.payloads.Resolve(ctx, entries)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			ID:        e.ID,
			EventKind: e.EventKind,
			CreatedAt: e.CreatedAt,
			Score:     e.Score,
			Payload:   payloads[e.ID],
		})
	}
	return items, nil
}

func validKinds(kinds []string) []string {
	var out []string
	for _, k := range kinds {
		if models.ValidEventKind(k) {
			out = append(out, k)
		}
	}
	return out
}

func kindSet(kinds []string) map[string]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}
