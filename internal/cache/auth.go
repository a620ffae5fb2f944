package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snerberd/snerberd/internal/model"
)

// authCacheTTL bounds how long a cached context outlives a missed invalidation.
const authCacheTTL = 5 * time.Minute

// cachedAuthContext is the JSON shape stored in Redis.
type cachedAuthContext struct {
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

// GetAuthContext retrieves a cached auth context.
// A miss or a corrupted entry returns nil with no error.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authKey(cacheKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	return decodeAuthContext(data), nil
}

// SetAuthContext caches an auth context and indexes it under its key ID.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	data, err := encodeAuthContext(auth)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	indexKey := authIndexKey(auth.KeyID)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authKey(cacheKey), data, authCacheTTL)
	pipe.SAdd(ctx, indexKey, cacheKey)
	pipe.Expire(ctx, indexKey, authCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set auth context: %w", err)
	}

	return nil
}

// InvalidateAPIKey drops every cached auth context for keyID.
// Called when a key is revoked or rotated so it stops working immediately.
func (c *Cache) InvalidateAPIKey(ctx context.Context, keyID string) error {
	indexKey := authIndexKey(keyID)

	members, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("read auth index: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authKey(m))
	}
	keys = append(keys, indexKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete auth contexts: %w", err)
	}

	return nil
}

func encodeAuthContext(auth *model.AuthContext) ([]byte, error) {
	return json.Marshal(cachedAuthContext{
		KeyID:         auth.KeyID,
		KeyPrefix:     auth.KeyPrefix,
		UserID:        auth.UserID,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
	})
}

// decodeAuthContext returns nil for entries that fail to parse or carry no
// owner; the caller falls back to the database.
func decodeAuthContext(data []byte) *model.AuthContext {
	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil || cached.UserID == "" {
		return nil
	}
	return &model.AuthContext{
		KeyID:         cached.KeyID,
		KeyPrefix:     cached.KeyPrefix,
		UserID:        cached.UserID,
		Scopes:        cached.Scopes,
		RateLimitTier: cached.RateLimitTier,
	}
}
