package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub/internal/model"
)

const (
	recKeyPrefix      = "rec:"
	recIndexKeyPrefix = "rec:idx:"
	recGenKeyPrefix   = "rec:gen:"

	// recGenTTL is the minimum lifetime of a generation counter. It is
	// extended to the list TTL whenever a longer-lived list is written.
	recGenTTL = 24 * time.Hour
)

func recKey(userID string, gen int64, limit int) string {
	return recKeyPrefix + userID + ":" + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
}

func recGenKey(userID string) string {
	return recGenKeyPrefix + userID
}

// RecommendationGeneration returns the user's current recommendation cache
// generation, 0 if it was never invalidated. Lists are stored under the
// generation read before they were computed, so a list computed from stale
// enrollments is never served after an invalidation.
func (c *Cache) RecommendationGeneration(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, recGenKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read recommendation generation: %w", err)
	}
	return gen, nil
}

// GetRecommendations retrieves cached recommendations for a user, generation
// and limit. Returns ErrCacheMiss if not found.
func (c *Cache) GetRecommendations(ctx context.Context, userID string, gen int64, limit int) ([]model.Recommendation, error) {
	data, err := c.client.Get(ctx, recKey(userID, gen, limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var recs []model.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, ErrCacheMiss
	}

	return recs, nil
}

// SetRecommendations caches recommendations and records the key in the
// user's index set so all limits can be invalidated together.
func (c *Cache) SetRecommendations(ctx context.Context, userID string, gen int64, limit int, recs []model.Recommendation, ttl time.Duration) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	key := recKey(userID, gen, limit)
	index := recIndexKeyPrefix + userID

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, ttl)
	if ttl > recGenTTL {
		pipe.Expire(ctx, recGenKey(userID), ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache recommendations: %w", err)
	}

	return nil
}

// InvalidateRecommendations advances the user's generation, then removes
// every cached recommendation list of the user.
func (c *Cache) InvalidateRecommendations(ctx context.Context, userID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, recGenKey(userID))
	pipe.Expire(ctx, recGenKey(userID), recGenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to advance recommendation generation: %w", err)
	}

	index := recIndexKeyPrefix + userID

	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("failed to read recommendation index: %w", err)
	}

	keys = append(keys, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate recommendations: %w", err)
	}

	return nil
}
