package output

import (
	"strconv"

	"github.com/guzman109/ArrayMorph/internal/cli/health"
	"github.com/guzman109/ArrayMorph/internal/cli/timeutil"
)

// StatusView is the printable state of a running gateway.
type StatusView struct {
	Server    string `json:"server" yaml:"server"`
	Service   string `json:"service" yaml:"service"`
	Status    string `json:"status" yaml:"status"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Uptime    string `json:"uptime" yaml:"uptime"`
	Platform  string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Latency   string `json:"latency,omitempty" yaml:"latency,omitempty"`
	Pending   int    `json:"pending" yaml:"pending"`
	Completed int    `json:"completed" yaml:"completed"`
	Failed    int    `json:"failed" yaml:"failed"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatusView merges the liveness and readiness answers of server.
func NewStatusView(server string, live *health.Response, ready *health.ReadyResponse) *StatusView {
	return &StatusView{
		Server:    server,
		Service:   live.Data.Service,
		Status:    ready.Status,
		StartedAt: live.Data.StartedAt,
		Uptime:    live.Data.Uptime,
		Platform:  ready.Data.Platform,
		Latency:   ready.Data.Latency,
		Pending:   ready.Data.Pending,
		Completed: ready.Data.Completed,
		Failed:    ready.Data.Failed,
		Error:     ready.Error,
	}
}

// Headers implements TableRenderer.
func (v *StatusView) Headers() []string {
	return []string{"Field", "Value"}
}

// Rows implements TableRenderer.
func (v *StatusView) Rows() [][]string {
	rows := [][]string{
		{"Server", v.Server},
		{"Service", v.Service},
		{"Status", v.Status},
		{"Started", timeutil.FormatTime(v.StartedAt)},
		{"Uptime", timeutil.FormatUptime(v.Uptime)},
	}
	if v.Error != "" {
		return append(rows, []string{"Error", v.Error})
	}
	return append(rows,
		[]string{"Platform", v.Platform},
		[]string{"Store latency", v.Latency},
		[]string{"Requests pending", strconv.Itoa(v.Pending)},
		[]string{"Requests completed", strconv.Itoa(v.Completed)},
		[]string{"Requests failed", strconv.Itoa(v.Failed)},
	)
}
