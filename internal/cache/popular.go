package cache

import (
	"context"
	"fmt"
	"time"
)

const popularKey = "courses:popular"

// SetPopularSnapshot replaces the popular-course ID list atomically.
func (c *Cache) SetPopularSnapshot(ctx context.Context, ids []string, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, popularKey)
	if len(ids) > 0 {
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = id
		}
		pipe.RPush(ctx, popularKey, values...)
		pipe.Expire(ctx, popularKey, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store popular snapshot: %w", err)
	}

	return nil
}

// GetPopularSnapshot returns the popular-course IDs, most enrolled first.
// Returns ErrCacheMiss if no snapshot is stored.
func (c *Cache) GetPopularSnapshot(ctx context.Context) ([]string, error) {
	ids, err := c.client.LRange(ctx, popularKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	if len(ids) == 0 {
		return nil, ErrCacheMiss
	}

	return ids, nil
}
