package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is implemented by every dependency /readyz pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks map[string]HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. A nil checker is reported as
// "not configured" and does not affect readiness.
func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{checks: checks, logger: logger.With("component", "health")}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness without touching dependencies. The web client
// calls it on page load to wake a cold instance.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings every dependency concurrently and answers 503 when any of
// them fails. Failure details are logged, not returned, since driver errors
// can carry connection strings.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		checks  = make(map[string]string, len(h.checks))
	)
	for name, checker := range h.checks {
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := checker.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				checks[name] = "unavailable"
				h.logger.Warn("readiness check failed",
					slog.String("check", name),
					slog.Duration("elapsed", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return
			}
			checks[name] = "ok"
		}(name, checker)
	}
	wg.Wait()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}
