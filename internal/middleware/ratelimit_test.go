package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/cache"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/model"
)

type stubLimiter struct {
	allow    bool
	err      error
	apiCalls int
	lastIP   string
}

func (s *stubLimiter) CheckAPIRateLimit(_ context.Context, _ string, _, _ int) (*cache.RateLimitResult, error) {
	s.apiCalls++
	return s.result()
}

func (s *stubLimiter) CheckPublicRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	s.lastIP = ip
	return s.result()
}

func (s *stubLimiter) result() (*cache.RateLimitResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &cache.RateLimitResult{
		Allowed:    s.allow,
		Remaining:  3,
		ResetAt:    time.Now().Add(time.Second),
		RetryAfter: 2 * time.Second,
	}, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func withAuth(r *http.Request, tier string) *http.Request {
	return r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{KeyID: "key-1", RateLimitTier: tier}))
}

func TestRateLimitAPI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limiter    *stubLimiter
		tier       string
		wantStatus int
		wantCalls  int
	}{
		{"allowed", &stubLimiter{allow: true}, model.TierFree, http.StatusOK, 1},
		{"limited", &stubLimiter{allow: false}, model.TierPro, http.StatusTooManyRequests, 1},
		{"unlimited tier skips limiter", &stubLimiter{allow: false}, model.TierUnlimited, http.StatusOK, 0},
		{"unknown tier treated as free", &stubLimiter{allow: false}, "gold", http.StatusTooManyRequests, 1},
		{"limiter error fails open", &stubLimiter{err: errors.New("redis down")}, model.TierFree, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RateLimitAPI(RateLimitConfig{
				Logger:     discardLogger(),
				Limiter:    tt.limiter,
				APIEnabled: true,
			})(okHandler)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, withAuth(httptest.NewRequest(http.MethodPost, "/snerberds", nil), tt.tier))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.limiter.apiCalls != tt.wantCalls {
				t.Errorf("limiter calls = %d, want %d", tt.limiter.apiCalls, tt.wantCalls)
			}
			if rec.Code == http.StatusTooManyRequests {
				if rec.Header().Get("Retry-After") != "2" {
					t.Errorf("Retry-After = %q, want 2", rec.Header().Get("Retry-After"))
				}
				if !strings.Contains(rec.Body.String(), `"code":"RATE_LIMITED"`) {
					t.Errorf("unexpected body %s", rec.Body.String())
				}
			}
		})
	}
}

func TestRateLimitAPI_Disabled(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allow: false}
	handler := RateLimitAPI(RateLimitConfig{Logger: discardLogger(), Limiter: limiter})(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withAuth(httptest.NewRequest(http.MethodPost, "/snerberds", nil), model.TierFree))

	if rec.Code != http.StatusOK || limiter.apiCalls != 0 {
		t.Errorf("disabled limiter interfered: status=%d calls=%d", rec.Code, limiter.apiCalls)
	}
}

func TestRateLimitPublic(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allow: false}
	recorder := metrics.NewInMemory()
	handler := RateLimitPublic(RateLimitConfig{
		Logger:        discardLogger(),
		Limiter:       limiter,
		Metrics:       recorder,
		PublicEnabled: true,
		PublicRPS:     10,
		PublicBurst:   20,
	})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/snowboards", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if limiter.lastIP != "203.0.113.7" {
		t.Errorf("limited IP = %q, want port stripped", limiter.lastIP)
	}
	if got := recorder.Snapshot().RateLimited["public"]; got != 1 {
		t.Errorf("public rejections counted = %d, want 1", got)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"192.0.2.1:8080":    "192.0.2.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"192.0.2.9":         "192.0.2.9",
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if got := clientIP(req); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", remote, got, want)
		}
	}
}
