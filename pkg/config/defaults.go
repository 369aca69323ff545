package config

import (
	"strings"
	"time"

	"github.com/guzman109/ArrayMorph/internal/bytesize"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
)

// Backend defaults, matching the limits of the native cloud clients.
const (
	DefaultPlatform       = "S3"
	DefaultRegion         = "us-east-2"
	DefaultMaxConnections = 256
	DefaultStorageTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 200 * time.Millisecond
	DefaultMaxRetryDelay  = 2 * time.Second
	DefaultRefetchRetries = 1
	DefaultServerPort     = 8080
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyStorageDefaults(&cfg.Storage)
	applyTransferDefaults(&cfg.Transfer)
	applyServerDefaults(&cfg.Server)
	applyShutdownTimeoutDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_space",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyStorageDefaults sets backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultStorageTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultStorageTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = DefaultRegion
	}
	if cfg.Azure.RetryDelay == 0 {
		cfg.Azure.RetryDelay = DefaultRetryDelay
	}
	if cfg.Azure.MaxRetryDelay == 0 {
		cfg.Azure.MaxRetryDelay = DefaultMaxRetryDelay
	}
}

// applyTransferDefaults sets queue and re-fetch defaults.
func applyTransferDefaults(cfg *TransferConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = transfer.DefaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = transfer.DefaultQueueSize
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = transfer.DefaultRequestTimeout
	}
	if cfg.RefetchRetries == 0 {
		cfg.RefetchRetries = DefaultRefetchRetries
	}
}

// applyServerDefaults sets HTTP gateway defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultServerPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// Chunk bodies can be large; writes get more room than reads.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 256 * bytesize.MiB
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
