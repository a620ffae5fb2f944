package handler

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker is any backend that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 5 * time.Second

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	names    []string
	checkers []HealthChecker
}

// NewHealthHandler takes the record store, the identity database and the
// cache. A nil checker is reported as "not configured" and does not fail
// readiness.
func NewHealthHandler(docs, db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		names:    []string{"mongo", "postgres", "redis"},
		checkers: []HealthChecker{docs, db, cache},
	}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz answers GET /healthz without touching any backend.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz answers GET /readyz. Backends are pinged concurrently; any
// failure turns the response into 503 "unhealthy".
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		if c == nil {
			results[i] = "not configured"
			continue
		}
		g.Go(func() error {
			results[i] = "ok"
			if err := c.Ping(ctx); err != nil {
				results[i] = "error: " + err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(results))}
	status := http.StatusOK
	for i, res := range results {
		resp.Checks[h.names[i]] = res
		if res != "ok" && res != "not configured" {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
