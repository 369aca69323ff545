package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/guzman109/ArrayMorph/internal/bytesize"
	"github.com/guzman109/ArrayMorph/pkg/plan"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the ArrayMorph configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (ARRAYMORPH_*, plus the plain cloud SDK names
//     such as STORAGE_PLATFORM, BUCKET_NAME and AWS_ACCESS_KEY_ID)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Storage selects and configures the object store holding chunks
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Transfer configures the async queue, segment planning and re-fetches
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`

	// Processing configures server-side processed reads
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server configures the HTTP gateway
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// StorageConfig selects the backend and carries the settings shared by all
// remote transports.
type StorageConfig struct {
	// Platform is one of S3, Azure, filesystem, memory (case-insensitive).
	// Env: STORAGE_PLATFORM
	Platform string `mapstructure:"platform" validate:"required" yaml:"platform"`

	// Bucket is the S3 bucket or Azure container holding chunk objects.
	// Env: BUCKET_NAME
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// KeyPrefix is prepended to every object key
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`

	// MaxConnections caps concurrent connections to the backend
	// Default: 256
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`

	// RequestTimeout bounds one backend request
	// Default: 30s
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0" yaml:"request_timeout"`

	// ConnectTimeout bounds connection setup
	// Default: 30s
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gte=0" yaml:"connect_timeout"`

	// MaxRetries is the transport-level retry count inside the cloud SDK
	// Default: 3
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0" yaml:"max_retries"`

	// S3 holds S3 and S3-compatible settings
	S3 S3Config `mapstructure:"s3" yaml:"s3"`

	// Azure holds Azure Blob settings
	Azure AzureConfig `mapstructure:"azure" yaml:"azure"`

	// Filesystem holds local directory settings
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	// Region is the signing region
	// Env: AWS_REGION. Default: us-east-2
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the service endpoint (host:port or URL)
	// Env: AWS_ENDPOINT_URL_S3
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey are static credentials; empty uses the
	// SDK default chain.
	// Env: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// UseTLS selects HTTPS for bare host:port endpoints
	// Env: AWS_USE_TLS. Default: false
	UseTLS bool `mapstructure:"use_tls" yaml:"use_tls"`

	// ForcePathStyle selects path-style addressing
	// Env: AWS_USE_PATH_STYLE, or AWS_S3_ADDRESSING_STYLE=path
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// SignedPayloads includes the body in the SigV4 signature
	// Env: AWS_SIGNED_PAYLOADS. Default: false
	SignedPayloads bool `mapstructure:"signed_payloads" yaml:"signed_payloads"`
}

// AzureConfig configures the Azure Blob backend.
type AzureConfig struct {
	// ConnectionString is the storage account connection string
	// Env: AZURE_STORAGE_CONNECTION_STRING
	ConnectionString string `mapstructure:"connection_string" yaml:"connection_string,omitempty"`

	// RetryDelay and MaxRetryDelay shape the SDK retry backoff
	// Default: 200ms, 2s
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0" yaml:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" validate:"gte=0" yaml:"max_retry_delay"`
}

// FilesystemConfig configures the local directory backend.
type FilesystemConfig struct {
	// Path is the directory holding chunk objects
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// TransferConfig configures the async transfer queue and the read path.
type TransferConfig struct {
	// Workers is the number of queue workers
	// Default: 256
	Workers int `mapstructure:"workers" validate:"gte=0" yaml:"workers"`

	// QueueSize is the capacity of each request queue
	// Default: 8192
	QueueSize int `mapstructure:"queue_size" validate:"gte=0" yaml:"queue_size"`

	// RequestTimeout bounds a queued request from dequeue to completion
	// Default: 5m
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0" yaml:"request_timeout"`

	// RefetchRetries is how often a failed processed read is re-issued.
	// Default: 1. A negative value disables re-fetches.
	RefetchRetries int `mapstructure:"refetch_retries" yaml:"refetch_retries"`

	// Segments shapes how a selection is split into remote requests
	Segments SegmentConfig `mapstructure:"segments" yaml:"segments"`
}

// SegmentConfig configures segment planning.
type SegmentConfig struct {
	// MaxBytes caps the remote span of one segment ("8Mi", "16MB").
	// Zero requests the whole object.
	MaxBytes bytesize.ByteSize `mapstructure:"max_bytes" yaml:"max_bytes,omitempty"`

	// MaxCount caps the number of segments per chunk. Zero is unlimited.
	MaxCount int `mapstructure:"max_count" validate:"gte=0" yaml:"max_count,omitempty"`
}

// ProcessingConfig configures processed reads, where a partial selection is
// computed server-side and returned densely.
type ProcessingConfig struct {
	// Enabled routes partial reads to the processing endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the processing endpoint, e.g. an S3 Object Lambda access
	// point ARN or alias
	Bucket string `mapstructure:"bucket" yaml:"bucket,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served at /metrics
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	// Port is the HTTP listen port
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout, WriteTimeout and IdleTimeout configure the http.Server
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// RequestTimeout bounds one gateway request
	// Default: 2m
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// MaxBodySize caps PUT bodies
	// Default: 256Mi
	MaxBodySize bytesize.ByteSize `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// SegmentPolicy returns the planner policy for the configured limits.
func (c TransferConfig) SegmentPolicy() plan.Policy {
	return plan.Policy{
		MaxSegmentBytes: c.Segments.MaxBytes.Uint64(),
		MaxSegments:     c.Segments.MaxCount,
	}
}

// RefetchPolicy returns the retry policy for processed reads.
func (c TransferConfig) RefetchPolicy() transfer.RetryPolicy {
	if c.RefetchRetries < 0 {
		return transfer.NoRetry
	}
	return transfer.RetryPolicy{MaxRetries: c.RefetchRetries}
}

// QueueConfig returns the queue settings; metrics are attached by the caller.
func (c TransferConfig) QueueConfig() transfer.QueueConfig {
	return transfer.QueueConfig{
		Workers:        c.Workers,
		QueueSize:      c.QueueSize,
		RequestTimeout: c.RequestTimeout,
	}
}

// legacyEnv maps config keys to the plain environment names used by the
// cloud SDKs and existing deployments. ARRAYMORPH_* names take precedence.
var legacyEnv = map[string][]string{
	"storage.platform":                {"STORAGE_PLATFORM"},
	"storage.bucket":                  {"BUCKET_NAME"},
	"storage.s3.access_key_id":        {"AWS_ACCESS_KEY_ID"},
	"storage.s3.secret_access_key":    {"AWS_SECRET_ACCESS_KEY"},
	"storage.s3.region":               {"AWS_REGION"},
	"storage.s3.endpoint":             {"AWS_ENDPOINT_URL_S3"},
	"storage.s3.use_tls":              {"AWS_USE_TLS"},
	"storage.s3.force_path_style":     {"AWS_USE_PATH_STYLE"},
	"storage.s3.signed_payloads":      {"AWS_SIGNED_PAYLOADS"},
	"storage.azure.connection_string": {"AZURE_STORAGE_CONNECTION_STRING"},
	"processing.bucket":               {"PROCESSING_BUCKET"},
	"transfer.workers":                {"THREAD_NUM"},
}

const envPrefix = "ARRAYMORPH"

// Load loads configuration from file, environment, and defaults.
//
// A missing config file is not an error: defaults and environment variables
// are enough to run against a backend configured by env alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)
	registerKeys(v, reflect.ValueOf(*GetDefaultConfig()), "")

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.EqualFold(os.Getenv("AWS_S3_ADDRESSING_STYLE"), "path") {
		cfg.Storage.S3.ForcePathStyle = true
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, failing with instructions when an explicit
// config file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  arraymorph config init --config %s",
				configPath, configPath)
		}
	} else if DefaultConfigExists() {
		configPath = GetDefaultConfigPath()
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: config files may carry cloud credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: ARRAYMORPH_TRANSFER_WORKERS=64
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/arraymorph/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// registerKeys walks the config struct, registering each leaf as a default
// and binding its environment variables. Viper only unmarshals env values
// for keys it already knows.
func registerKeys(v *viper.Viper, val reflect.Value, prefix string) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		fv := val.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			registerKeys(v, fv, key)
			continue
		case reflect.Map:
			continue
		}

		v.SetDefault(key, fv.Interface())
		envs := []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		envs = append(envs, legacyEnv[key]...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files can use sizes like "8Mi", "16MB" or plain byte counts.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size: %d", v)
			}
			return bytesize.ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size: %d", v)
			}
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			if v < 0 {
				return nil, fmt.Errorf("negative byte size: %v", v)
			}
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "arraymorph")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "arraymorph")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
