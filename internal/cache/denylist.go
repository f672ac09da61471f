package cache

import (
	"context"
	"fmt"
	"time"
)

const denylistKeyPrefix = "token:revoked:"

// RevokeToken adds a token ID to the denylist until the token would expire.
func (c *Cache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// IsTokenRevoked checks whether a token ID is on the denylist.
func (c *Cache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token denylist: %w", err)
	}

	return n > 0, nil
}
