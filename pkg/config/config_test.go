package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/guzman109/ArrayMorph/internal/bytesize"
	"github.com/guzman109/ArrayMorph/pkg/transfer"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

storage:
  platform: s3
  bucket: arrays
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level normalized to 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Storage.Bucket != "arrays" {
		t.Errorf("Expected bucket 'arrays', got %q", cfg.Storage.Bucket)
	}
	if cfg.Storage.S3.Region != DefaultRegion {
		t.Errorf("Expected default region %q, got %q", DefaultRegion, cfg.Storage.S3.Region)
	}
	if cfg.Transfer.Workers != transfer.DefaultWorkers {
		t.Errorf("Expected default workers %d, got %d", transfer.DefaultWorkers, cfg.Transfer.Workers)
	}
	if !cfg.Telemetry.Insecure {
		t.Error("Expected telemetry.insecure to default to true")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default server port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[storage]
platform = "filesystem"

[storage.filesystem]
path = "/var/lib/arraymorph"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Storage.Filesystem.Path != "/var/lib/arraymorph" {
		t.Errorf("Expected filesystem path, got %q", cfg.Storage.Filesystem.Path)
	}
}

func TestLoad_HumanReadableValues(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
storage:
  platform: memory
  request_timeout: 45s
transfer:
  request_timeout: 2m
  segments:
    max_bytes: 8Mi
    max_count: 4
server:
  max_body_size: 64MB
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Storage.RequestTimeout != 45*time.Second {
		t.Errorf("Expected 45s, got %v", cfg.Storage.RequestTimeout)
	}
	if cfg.Transfer.RequestTimeout != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", cfg.Transfer.RequestTimeout)
	}
	if cfg.Transfer.Segments.MaxBytes != 8*bytesize.MiB {
		t.Errorf("Expected 8Mi, got %v", cfg.Transfer.Segments.MaxBytes)
	}
	if cfg.Server.MaxBodySize != 64*bytesize.MB {
		t.Errorf("Expected 64MB, got %v", cfg.Server.MaxBodySize)
	}

	policy := cfg.Transfer.SegmentPolicy()
	if policy.MaxSegmentBytes != 8<<20 || policy.MaxSegments != 4 {
		t.Errorf("Unexpected segment policy: %+v", policy)
	}
}

func TestLoad_InvalidByteSize(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
transfer:
  segments:
    max_bytes: lots
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for malformed byte size")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ARRAYMORPH_LOGGING_LEVEL", "ERROR")
	t.Setenv("ARRAYMORPH_TRANSFER_WORKERS", "64")
	t.Setenv("ARRAYMORPH_TELEMETRY_PROFILING_PROFILE_TYPES", "cpu,goroutines")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
storage:
  platform: memory
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Transfer.Workers != 64 {
		t.Errorf("Expected 64 workers from env var, got %d", cfg.Transfer.Workers)
	}
	if got := cfg.Telemetry.Profiling.ProfileTypes; len(got) != 2 || got[1] != "goroutines" {
		t.Errorf("Expected profile types from env var, got %v", got)
	}
}

func TestLoad_CloudEnvironmentVariables(t *testing.T) {
	t.Setenv("STORAGE_PLATFORM", "S3")
	t.Setenv("BUCKET_NAME", "chunks")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT_URL_S3", "localhost:4566")
	t.Setenv("AWS_USE_TLS", "true")
	t.Setenv("AWS_S3_ADDRESSING_STYLE", "path")
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	s3 := cfg.Storage.S3
	if cfg.Storage.Platform != "S3" || cfg.Storage.Bucket != "chunks" {
		t.Errorf("Unexpected storage section: %+v", cfg.Storage)
	}
	if s3.AccessKeyID != "AKIDEXAMPLE" || s3.SecretAccessKey != "secret" {
		t.Error("Expected static credentials from env")
	}
	if s3.Region != "eu-west-1" || s3.Endpoint != "localhost:4566" {
		t.Errorf("Unexpected region/endpoint: %q %q", s3.Region, s3.Endpoint)
	}
	if !s3.UseTLS || !s3.ForcePathStyle {
		t.Errorf("Expected TLS and path style, got %+v", s3)
	}
	if cfg.Storage.Azure.ConnectionString != "UseDevelopmentStorage=true" {
		t.Errorf("Unexpected connection string %q", cfg.Storage.Azure.ConnectionString)
	}
}

func TestLoad_PrefixedEnvWinsOverPlainName(t *testing.T) {
	t.Setenv("BUCKET_NAME", "plain")
	t.Setenv("ARRAYMORPH_STORAGE_BUCKET", "prefixed")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Bucket != "prefixed" {
		t.Errorf("Expected ARRAYMORPH_STORAGE_BUCKET to win, got %q", cfg.Storage.Bucket)
	}
}

func TestLoad_UnknownPlatform(t *testing.T) {
	t.Setenv("STORAGE_PLATFORM", "gcs")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for unknown platform")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Storage.Platform = "Azure"
	cfg.Storage.Bucket = "container"
	cfg.Transfer.Segments.MaxBytes = 16 * bytesize.MiB

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm != 0600 {
		t.Errorf("Expected owner-only permissions, got %v", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Storage.Platform != "Azure" || loaded.Storage.Bucket != "container" {
		t.Errorf("Storage section not preserved: %+v", loaded.Storage)
	}
	if loaded.Transfer.Segments.MaxBytes != 16*bytesize.MiB {
		t.Errorf("Segment size not preserved: %v", loaded.Transfer.Segments.MaxBytes)
	}
}

func TestRefetchPolicy(t *testing.T) {
	tests := []struct {
		retries int
		want    int
	}{
		{1, 1},
		{3, 3},
		{-1, 0},
	}

	for _, tt := range tests {
		cfg := TransferConfig{RefetchRetries: tt.retries}
		if got := cfg.RefetchPolicy().MaxRetries; got != tt.want {
			t.Errorf("RefetchRetries=%d: expected MaxRetries %d, got %d", tt.retries, tt.want, got)
		}
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
	if filepath.Base(GetConfigDir()) != "arraymorph" {
		t.Errorf("Expected directory name 'arraymorph', got %q", filepath.Base(GetConfigDir()))
	}
}
