package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const ratingAggPrefix = "rating_agg:"

// RatingCacheRepo caches the per-user rating fold. Entries are
// write-through on submit and expire on a TTL; a miss always falls back
// to recomputing from the ratings table, so the cache is never
// authoritative.
type RatingCacheRepo struct {
	client *goredis.Client
}

func NewRatingCacheRepo(client *goredis.Client) *RatingCacheRepo {
	return &RatingCacheRepo{client: client}
}

func (r *RatingCacheRepo) Get(ctx context.Context, subjectID string) (count int64, sum int64, ok bool, err error) {
	if r.client == nil {
		return 0, 0, false, fmt.Errorf("redis client is nil")
	}
	if subjectID == "" {
		return 0, 0, false, fmt.Errorf("invalid subject id")
	}

	fields, err := r.client.HGetAll(ctx, ratingAggKey(subjectID)).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("get rating aggregate: %w", err)
	}
	if len(fields) == 0 {
		return 0, 0, false, nil
	}

	count, countErr := strconv.ParseInt(fields["count"], 10, 64)
	sum, sumErr := strconv.ParseInt(fields["sum"], 10, 64)
	if countErr != nil || sumErr != nil {
		// A malformed entry is treated as a miss; the fold rebuilds it.
		return 0, 0, false, nil
	}

	return count, sum, true, nil
}

func (r *RatingCacheRepo) Set(ctx context.Context, subjectID string, count, sum int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if subjectID == "" || ttl <= 0 {
		return fmt.Errorf("invalid rating cache payload")
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, ratingAggKey(subjectID), map[string]interface{}{
		"count": count,
		"sum":   sum,
	})
	pipe.Expire(ctx, ratingAggKey(subjectID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set rating aggregate: %w", err)
	}

	return nil
}

func ratingAggKey(subjectID string) string {
	return ratingAggPrefix + subjectID
}
