package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/cache"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/model"
)

// RateLimiter consumes tokens from per-key and per-IP buckets.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckPublicRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder

	// APIEnabled limits authenticated requests per API key tier.
	APIEnabled bool

	// PublicEnabled limits anonymous reads per client IP.
	PublicEnabled bool
	PublicRPS     int
	PublicBurst   int
}

// RateLimitAPI returns middleware that rate limits requests per API key.
// Must be applied after Auth. Limiter errors fail open.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.APIEnabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier := model.LimitsFor(authCtx.RateLimitTier)
			if tier.Unlimited() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), authCtx.KeyID, tier.RequestsPerMinute, tier.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("key_id", authCtx.KeyID),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, tier.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.reject(w, r, "api", result.RetryAfter, slog.String("key_id", authCtx.KeyID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitPublic returns middleware that rate limits requests per client IP.
// Used on the unauthenticated read routes. Limiter errors fail open.
func RateLimitPublic(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.PublicEnabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Limiter.CheckPublicRateLimit(r.Context(), ip, cfg.PublicRPS, cfg.PublicBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				cfg.reject(w, r, "public", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// reject logs and counts a limited request, then writes the 429.
func (cfg RateLimitConfig) reject(w http.ResponseWriter, r *http.Request, bucket string, retryAfter time.Duration, extra ...any) {
	if cfg.Metrics != nil {
		cfg.Metrics.IncRateLimited(bucket)
	}
	args := append([]any{
		slog.String("type", bucket),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int64("retry_after_seconds", int64(retryAfter.Seconds())),
		slog.String("request_id", GetRequestID(r.Context())),
	}, extra...)
	cfg.Logger.Warn("rate limit exceeded", args...)
	writeRateLimitError(w, retryAfter)
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, codeRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", seconds))
}

// clientIP returns the host part of RemoteAddr.
// chi's RealIP middleware has already applied X-Forwarded-For and X-Real-IP.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
