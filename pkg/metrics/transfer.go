package metrics

import (
	"github.com/guzman109/ArrayMorph/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	newPrometheusTransferMetrics func(prometheus.Registerer) transfer.Metrics
	transferMetrics              transfer.Metrics
)

// RegisterTransferMetricsConstructor registers the Prometheus transfer
// metrics constructor. Called by pkg/metrics/prometheus during init.
func RegisterTransferMetricsConstructor(constructor func(prometheus.Registerer) transfer.Metrics) {
	mu.Lock()
	defer mu.Unlock()
	newPrometheusTransferMetrics = constructor
}

// NewTransferMetrics returns the transfer metrics bound to the active
// registry. The instance is shared: collectors register once per registry.
//
// Returns nil if metrics are not enabled or no implementation is linked in.
// Pass the result straight to transfer.QueueConfig and transfer.Options;
// nil turns collection off.
func NewTransferMetrics() transfer.Metrics {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil || newPrometheusTransferMetrics == nil {
		return nil
	}
	if transferMetrics == nil {
		transferMetrics = newPrometheusTransferMetrics(registry)
	}
	return transferMetrics
}
