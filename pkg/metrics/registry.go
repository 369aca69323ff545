// Package metrics owns the Prometheus registry and hands out metric
// implementations to the packages that record them.
//
// Consumers define the interfaces they record into (transfer.Metrics). The
// Prometheus implementations live in pkg/metrics/prometheus and register
// their constructors here, so consumer packages never import Prometheus.
// Every constructor returns nil until InitRegistry is called, and consumers
// treat a nil implementation as "metrics off".
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates a fresh registry with Go runtime and process
// collectors and enables metrics. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	transferMetrics = nil
	mu.Unlock()
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Disable drops the registry. Later constructor calls return nil.
func Disable() {
	mu.Lock()
	registry = nil
	transferMetrics = nil
	mu.Unlock()
}
