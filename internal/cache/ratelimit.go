package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUserPrefix = "ratelimit:user:"
	rateLimitIPPrefix   = "ratelimit:ip:"

	rateLimitUserTTL = 2 * time.Minute
	rateLimitIPTTL   = 10 * time.Second
)

// RateLimitResult is the outcome of one token bucket check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes one token bucket in Redis.
type bucket struct {
	key   string
	rate  float64 // tokens per second
	burst int
	ttl   time.Duration
}

// takeTokenScript refills a bucket for the elapsed time and takes one token.
// Time is passed in milliseconds so sub-second refills are not lost.
// Returns {allowed, retry_after_ms, remaining}.
var takeTokenScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(burst, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, wait, math.floor(tokens)}
`)

// CheckUserRateLimit takes a token from the user's bucket. A non-positive
// rate disables the limit. Redis failures are returned to the caller.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:   rateLimitUserPrefix + userID,
		rate:  float64(ratePerMinute) / 60,
		burst: burst,
		ttl:   rateLimitUserTTL,
	})
}

// CheckIPRateLimit takes a token from the bucket of a client IP. The IP is
// stored hashed.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	return c.take(ctx, bucket{
		key:   rateLimitIPPrefix + hashIP(ip),
		rate:  float64(ratePerSecond),
		burst: burst,
		ttl:   rateLimitIPTTL,
	})
}

func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	now := time.Now()
	reply, err := takeTokenScript.Run(ctx, c.client,
		[]string{b.key},
		b.rate, b.burst, now.UnixMilli(), b.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return bucketResult(reply, b, now)
}

// bucketResult converts the script reply.
func bucketResult(reply []int64, b bucket, now time.Time) (*RateLimitResult, error) {
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply of %d values", len(reply))
	}

	// Time until the bucket is full again.
	missing := float64(int64(b.burst) - reply[2])
	refill := time.Duration(math.Ceil(missing / b.rate * float64(time.Second)))

	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Remaining:  reply[2],
		ResetAt:    now.Add(refill),
		RetryAfter: time.Duration(reply[1]) * time.Millisecond,
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP keeps the first 8 bytes of the SHA-256 of an IP, hex encoded.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
