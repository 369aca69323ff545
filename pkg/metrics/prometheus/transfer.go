// Package prometheus provides the Prometheus implementations of the metric
// interfaces declared by consumer packages. Importing it for side effects
// registers the constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/guzman109/ArrayMorph/pkg/metrics"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterTransferMetricsConstructor(NewTransferMetrics)
}

// transferMetrics is the Prometheus implementation of transfer.Metrics.
type transferMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	bytesTransferred *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
	pending          *prometheus.GaugeVec
}

var _ transfer.Metrics = (*transferMetrics)(nil)

// NewTransferMetrics registers the transfer collectors on reg.
func NewTransferMetrics(reg prometheus.Registerer) transfer.Metrics {
	return &transferMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraymorph_transfer_requests_total",
				Help: "Total number of backend requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "arraymorph_transfer_request_duration_milliseconds",
				Help: "Duration of backend requests in milliseconds",
				Buckets: []float64{
					1,     // local and in-memory backends
					5,     // 5ms
					10,    // 10ms - small range GETs
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms - typical chunk objects
					1000,  // 1s
					5000,  // 5s - large chunk objects
					30000, // 30s - request timeout territory
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraymorph_transfer_bytes_total",
				Help: "Total bytes moved by backend requests",
			},
			[]string{"operation", "direction"},
		),
		retriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "arraymorph_transfer_retries_total",
				Help: "Total number of requests re-issued after a failure",
			},
			[]string{"operation"},
		),
		pending: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arraymorph_transfer_queue_pending",
				Help: "Requests waiting in the transfer queue by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *transferMetrics) ObserveRequest(op string, bytes int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(duration.Seconds() * 1000)

	if bytes > 0 {
		direction := "read"
		if op == "put" {
			direction = "write"
		}
		m.bytesTransferred.WithLabelValues(op, direction).Add(float64(bytes))
	}
}

func (m *transferMetrics) RecordRetry(op string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(op).Inc()
}

func (m *transferMetrics) SetPending(kind string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(kind).Set(float64(n))
}
