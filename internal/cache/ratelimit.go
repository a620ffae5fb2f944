package cache

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket is a token bucket refilled at rate tokens per second up to burst.
// Idle buckets expire after ttl.
type bucket struct {
	rate  float64
	burst int
	ttl   time.Duration
}

// takeToken refills the bucket in KEYS[1] for the time elapsed since its
// last update and spends one token if available. It replies
// {allowed, retry_after_seconds, tokens_left}.
var takeToken = redis.NewScript(`
local rate, burst, now, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

tokens = math.min(burst, tokens + (now - ts) * rate)

local allowed, wait = 0, 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, wait, math.floor(tokens)}
`)

func (c *Cache) take(ctx context.Context, key string, b bucket) (*RateLimitResult, error) {
	now := time.Now()
	reply, err := takeToken.Run(ctx, c.client, []string{key},
		b.rate, b.burst, now.Unix(), int(b.ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}

	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		RetryAfter: time.Duration(reply[1]) * time.Second,
		Remaining:  reply[2],
		ResetAt:    now.Add(time.Duration(math.Ceil(float64(time.Second) / b.rate))),
	}, nil
}

// CheckAPIRateLimit spends a token from the bucket of an API key.
// A zero ratePerMinute means unlimited and never touches Redis.
func (c *Cache) CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(time.Minute)}, nil
	}
	return c.take(ctx, apiLimitKey(keyID), bucket{
		rate:  float64(ratePerMinute) / 60,
		burst: burst,
		ttl:   2 * time.Minute,
	})
}

// CheckPublicRateLimit spends a token from the bucket of a client IP.
func (c *Cache) CheckPublicRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, ipLimitKey(ip), bucket{
		rate:  float64(ratePerSecond),
		burst: burst,
		ttl:   10 * time.Second,
	})
}
