package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/model"
)

// DefaultMinAuthDuration is the floor on time spent authenticating a request.
const DefaultMinAuthDuration = 200 * time.Millisecond

// lastUsedTimeout bounds the detached last_used_at update.
const lastUsedTimeout = 5 * time.Second

// KeyLookup finds API keys for bearer authentication.
type KeyLookup interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches resolved auth contexts by a hash of the presented key.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Keys    KeyLookup
	Cache   AuthCache // optional
	Metrics metrics.Recorder
	// MinDuration pads every attempt so timing does not reveal why it failed.
	// Zero uses DefaultMinAuthDuration; a negative value disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests with a bearer key
// and injects the resulting model.AuthContext into the request context.
// Every failure produces the same 401 body.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	minDuration := cfg.MinDuration
	if minDuration == 0 {
		minDuration = DefaultMinAuthDuration
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authCtx, reason := authenticate(r, cfg)

			if minDuration > 0 {
				padAuth(r.Context(), minDuration-time.Since(start))
			}

			if authCtx == nil {
				recorder.IncAuthFailure(reason)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// authenticate resolves the request's key. On failure it returns nil and a reason label.
func authenticate(r *http.Request, cfg AuthConfig) (*model.AuthContext, string) {
	ctx := r.Context()

	key := extractAPIKey(r)
	if key == "" {
		return nil, "missing_key"
	}

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	cacheKey := auth.CacheKey(key)
	if cfg.Cache != nil {
		cached, err := cfg.Cache.GetAuthContext(ctx, cacheKey)
		if err != nil {
			cfg.Logger.Warn("auth cache unavailable",
				slog.String("error", err.Error()),
				slog.String("request_id", GetRequestID(ctx)),
			)
		}
		if cached != nil {
			logAuthSuccess(r, cfg.Logger, cached, true)
			return cached, ""
		}
	}

	candidates, err := cfg.Keys.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_error"
	}

	// Prefixes are short and may collide, so verify every candidate.
	var matched *model.APIKey
	for _, k := range candidates {
		if ok, err := auth.VerifyKey(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	authCtx := matched.AuthContext()

	if cfg.Cache != nil {
		if err := cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx); err != nil {
			cfg.Logger.Warn("failed to cache auth context", slog.String("error", err.Error()))
		}
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), lastUsedTimeout)
		defer cancel()
		if err := cfg.Keys.UpdateAPIKeyLastUsed(bg, id); err != nil {
			cfg.Logger.Warn("failed to update key last use",
				slog.String("key_id", id),
				slog.String("error", err.Error()),
			)
		}
	}(matched.ID)

	logAuthSuccess(r, cfg.Logger, authCtx, false)
	return authCtx, ""
}

func logAuthSuccess(r *http.Request, logger *slog.Logger, authCtx *model.AuthContext, cacheHit bool) {
	logger.Info("authentication successful",
		slog.String("key_id", authCtx.KeyID),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// padAuth waits for d or until ctx is done.
func padAuth(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// extractAPIKey reads "Authorization: Bearer <key>", falling back to "X-API-Key".
func extractAPIKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
