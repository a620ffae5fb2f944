// Package cache is the Redis layer behind request authentication and rate
// limiting. Every key it writes lives under the "snerberd:" namespace.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const namespace = "snerberd:"

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// New parses redisURL, applies pool settings sized for a single API
// process, and pings the server before returning.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	tunePool(opt)

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func tunePool(opt *redis.Options) {
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
}

func (c *Cache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.client.Close() }

// Client exposes the raw client to test helpers that flush the database.
func (c *Cache) Client() *redis.Client { return c.client }

// Key layout.
func authKey(cacheKey string) string   { return namespace + "auth:ctx:" + cacheKey }
func authIndexKey(keyID string) string { return namespace + "auth:key:" + keyID }
func apiLimitKey(keyID string) string  { return namespace + "limit:key:" + keyID }
func ipLimitKey(ip string) string      { return namespace + "limit:ip:" + digest(ip) }

// digest keeps raw client addresses out of Redis.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
