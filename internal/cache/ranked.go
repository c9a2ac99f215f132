package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jobfeed/feedengine/pkg/config"
	"github.com/jobfeed/feedengine/pkg/logging"
)

var (
	// ErrCacheUnavailable is returned for every operation when the ranked
	// cache is disabled or unreachable. Callers must treat it as a signal
	// to fall back, never as a fatal condition: the cache holds no
	// authority over the feed.
	ErrCacheUnavailable = errors.New("ranked cache unavailable")

	// ErrNotInCache is returned by ScoreOf when the member is absent
	ErrNotInCache = errors.New("id not in ranked cache")
)

// RankedSet wraps a single Redis sorted set of entry id -> score, used for
// fast descending-score range scans. It is a disposable performance mirror
// of the feed table; flushing it only degrades read latency until a
// rebuild or the direct-store fallback catches up.
type RankedSet struct {
	client *redis.Client
	key    string
}

// New creates a ranked set client. A disabled cache yields (nil, nil); the
// nil receiver is safe to use and reports ErrCacheUnavailable.
func New(cfg *config.RedisConfig, key string) (*RankedSet, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Ranked cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Ranked cache connection established")

	return &RankedSet{client: client, key: key}, nil
}

// Upsert adds or repositions an entry id. Idempotent: repeating the same
// id/score pair leaves cardinality and rank unchanged.
func (s *RankedSet) Upsert(ctx context.Context, id int64, score float64) error {
	if s == nil || s.client == nil {
		return ErrCacheUnavailable
	}
	if err := s.client.ZAdd(ctx, s.key, &redis.Z{Score: score, Member: id}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Remove evicts entry ids. Absent members are ignored.
func (s *RankedSet) Remove(ctx context.Context, ids ...int64) error {
	if s == nil || s.client == nil {
		return ErrCacheUnavailable
	}
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := s.client.ZRem(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// RangeByScoreDesc returns up to limit ids in descending score order,
// strictly below maxExclusive when given.
func (s *RankedSet) RangeByScoreDesc(ctx context.Context, maxExclusive *float64, limit int) ([]int64, error) {
	if s == nil || s.client == nil {
		return nil, ErrCacheUnavailable
	}

	max := "+inf"
	if maxExclusive != nil {
		// exclusive upper bound to avoid re-serving the cursor item
		max = "(" + strconv.FormatFloat(*maxExclusive, 'f', -1, 64)
	}

	raw, err := s.client.ZRevRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    max,
		Offset: 0,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	ids := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ScoreOf returns the cached score of an entry id
func (s *RankedSet) ScoreOf(ctx context.Context, id int64) (float64, error) {
	if s == nil || s.client == nil {
		return 0, ErrCacheUnavailable
	}
	score, err := s.client.ZScore(ctx, s.key, strconv.FormatInt(id, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotInCache
		}
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return score, nil
}

// Cardinality returns the number of cached entries
func (s *RankedSet) Cardinality(ctx context.Context) (int64, error) {
	if s == nil || s.client == nil {
		return 0, ErrCacheUnavailable
	}
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return n, nil
}

// TrimToNewest drops the lowest-scoring members until at most n remain.
// Returns the number of members removed.
func (s *RankedSet) TrimToNewest(ctx context.Context, n int64) (int64, error) {
	if s == nil || s.client == nil {
		return 0, ErrCacheUnavailable
	}
	total, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if total <= n {
		return 0, nil
	}
	removed, err := s.client.ZRemRangeByRank(ctx, s.key, 0, total-n-1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return removed, nil
}

// Clear removes the whole ranked set
func (s *RankedSet) Clear(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrCacheUnavailable
	}
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Health checks cache health
func (s *RankedSet) Health(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrCacheUnavailable
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RankedSet) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
