package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"InvalidLogLevel", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"InvalidLogFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"PortTooLarge", func(c *Config) { c.Server.Port = 70000 }, "max"},
		{"NegativePort", func(c *Config) { c.Server.Port = -1 }, "min"},
		{"SampleRateAboveOne", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"NegativeWorkers", func(c *Config) { c.Transfer.Workers = -4 }, "gte"},
		{"NegativeSegmentCount", func(c *Config) { c.Transfer.Segments.MaxCount = -1 }, "gte"},
		{"ZeroShutdownTimeout", func(c *Config) { c.ShutdownTimeout = 0 }, "required"},
		{"UnknownPlatform", func(c *Config) { c.Storage.Platform = "gcs" }, "storage.platform"},
		{"ProcessingWithoutBucket", func(c *Config) { c.Processing.Enabled = true }, "processing.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantSub, err)
			}
		})
	}
}

func TestValidate_PlatformIsCaseInsensitive(t *testing.T) {
	for _, p := range []string{"s3", "AZURE", "Filesystem", "memory"} {
		cfg := GetDefaultConfig()
		cfg.Storage.Platform = p
		if err := Validate(cfg); err != nil {
			t.Errorf("Platform %q should validate, got: %v", p, err)
		}
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"
	cfg.Server.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Logging.Format") || !strings.Contains(msg, "Server.Port") {
		t.Errorf("Expected both fields reported, got: %v", msg)
	}
}
