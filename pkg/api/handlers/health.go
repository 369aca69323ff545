package handlers

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the backend probe made by Readiness.
const readinessTimeout = 5 * time.Second

// Backend is what the health endpoints probe.
type Backend interface {
	HealthCheck(ctx context.Context) error
	QueueStats() (pending, completed, failed int)
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: is the process serving HTTP?
//   - Readiness probe: is the chunk store reachable?
type HealthHandler struct {
	backend   Backend
	platform  string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
//
// backend may be nil, in which case readiness reports unhealthy.
func NewHealthHandler(backend Backend, platform string) *HealthHandler {
	return &HealthHandler{backend: backend, platform: platform, startedAt: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt).Round(time.Second)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "arraymorph",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// QueueStatus is the readiness payload.
type QueueStatus struct {
	Platform  string `json:"platform"`
	Latency   string `json:"latency"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// Readiness handles GET /health/ready.
//
// Returns 200 when the chunk store answers its health check and 503
// otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("backend not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	start := time.Now()
	if err := h.backend.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}
	latency := time.Since(start)

	pending, completed, failed := h.backend.QueueStats()
	writeJSON(w, http.StatusOK, healthyResponse(QueueStatus{
		Platform:  h.platform,
		Latency:   latency.String(),
		Pending:   pending,
		Completed: completed,
		Failed:    failed,
	}))
}
