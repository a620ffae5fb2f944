package model

// Rate limit tiers assigned to API keys.
const (
	TierFree      = "free"
	TierPro       = "pro"
	TierUnlimited = "unlimited"
)

// RateLimitConfig is a token bucket: a refill rate and a bucket size.
// A zero RequestsPerMinute disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// Unlimited reports whether the tier skips rate limiting.
func (c RateLimitConfig) Unlimited() bool { return c.RequestsPerMinute == 0 }

var TierConfigs = map[string]RateLimitConfig{
	TierFree:      {RequestsPerMinute: 60, Burst: 10},
	TierPro:       {RequestsPerMinute: 600, Burst: 50},
	TierUnlimited: {},
}

// LimitsFor returns the bucket for tier, falling back to the free tier for
// names that are not configured.
func LimitsFor(tier string) RateLimitConfig {
	if c, ok := TierConfigs[tier]; ok {
		return c
	}
	return TierConfigs[TierFree]
}
