//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/snerberd/snerberd/internal/model"
	"github.com/snerberd/snerberd/internal/testutil"
)

func TestIntegrationCache_AuthContextRoundTrip(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	miss, err := c.GetAuthContext(ctx, "absent")
	if err != nil || miss != nil {
		t.Fatalf("expected clean miss, got %+v, %v", miss, err)
	}

	authCtx := &model.AuthContext{
		KeyID:         "key-1",
		KeyPrefix:     "a1b2c3",
		UserID:        "user-a",
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierPro,
	}
	if err := c.SetAuthContext(ctx, "hash-1", authCtx); err != nil {
		t.Fatalf("SetAuthContext failed: %v", err)
	}

	got, err := c.GetAuthContext(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetAuthContext failed: %v", err)
	}
	if got == nil || got.UserID != "user-a" || got.RateLimitTier != model.TierPro || len(got.Scopes) != 2 {
		t.Errorf("unexpected auth context: %+v", got)
	}
}

func TestIntegrationCache_InvalidateAPIKey(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	authCtx := &model.AuthContext{KeyID: "key-2", UserID: "user-a"}
	for _, h := range []string{"hash-a", "hash-b"} {
		if err := c.SetAuthContext(ctx, h, authCtx); err != nil {
			t.Fatalf("SetAuthContext failed: %v", err)
		}
	}
	other := &model.AuthContext{KeyID: "key-3", UserID: "user-b"}
	if err := c.SetAuthContext(ctx, "hash-c", other); err != nil {
		t.Fatalf("SetAuthContext failed: %v", err)
	}

	if err := c.InvalidateAPIKey(ctx, "key-2"); err != nil {
		t.Fatalf("InvalidateAPIKey failed: %v", err)
	}

	for _, h := range []string{"hash-a", "hash-b"} {
		if got, _ := c.GetAuthContext(ctx, h); got != nil {
			t.Errorf("%s should be invalidated", h)
		}
	}
	if got, _ := c.GetAuthContext(ctx, "hash-c"); got == nil {
		t.Error("other key's context should survive")
	}
}

func TestIntegrationCache_PublicRateLimitBurst(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	ip := testutil.UniqueID("10.0.0.1")
	for i := 0; i < 3; i++ {
		res, err := c.CheckPublicRateLimit(ctx, ip, 1, 3)
		if err != nil {
			t.Fatalf("CheckPublicRateLimit failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}

	res, err := c.CheckPublicRateLimit(ctx, ip, 1, 3)
	if err != nil {
		t.Fatalf("CheckPublicRateLimit failed: %v", err)
	}
	if res.Allowed {
		t.Error("request beyond burst should be limited")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}
}

func TestIntegrationCache_APIRateLimitUnlimited(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	for i := 0; i < 20; i++ {
		res, err := c.CheckAPIRateLimit(ctx, "unlimited-key", 0, 0)
		if err != nil || !res.Allowed {
			t.Fatalf("unlimited tier should always pass: %+v, %v", res, err)
		}
	}
}

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, c
}
