// Package health provides shared types for gateway health responses.
package health

// Response is the liveness response of GET /health.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// ReadyResponse is the readiness response of GET /health/ready. A 503
// answer carries Status "unhealthy" and the store error.
type ReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Platform  string `json:"platform"`
		Latency   string `json:"latency"`
		Pending   int    `json:"pending"`
		Completed int    `json:"completed"`
		Failed    int    `json:"failed"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Healthy reports whether the gateway answered healthy.
func (r *ReadyResponse) Healthy() bool {
	return r.Status == "healthy"
}
