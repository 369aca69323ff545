package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/chunk"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/hyperslab"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration named by --config and initializes
// the logger from it. Commands whose result goes to stdout pass
// dataOnStdout so that logs configured for stdout move to stderr.
func loadConfig(dataOnStdout bool) (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if dataOnStdout && (cfg.Logging.Output == "" || cfg.Logging.Output == "stdout") {
		cfg.Logging.Output = "stderr"
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initObservability starts tracing and profiling per cfg. The returned
// function flushes and stops both.
func initObservability(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "arraymorph",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "arraymorph",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"platform": cfg.Storage.Platform},
	})
	if err != nil {
		_ = telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	return func(ctx context.Context) error {
		return errors.Join(profilingShutdown(), telemetryShutdown(ctx))
	}, nil
}

// selection holds the flags naming one chunk selection.
type selection struct {
	file        string
	uri         string
	shape       string
	ranges      string
	elementSize uint64
}

func (s *selection) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.file, "file", "", "File the chunk belongs to (object key prefix)")
	cmd.Flags().StringVar(&s.uri, "uri", "", "Chunk name within the file")
	cmd.Flags().StringVar(&s.shape, "shape", "", "Chunk extents, e.g. 64,64")
	cmd.Flags().StringVar(&s.ranges, "ranges", "", "Inclusive low:high per dimension (default: whole chunk)")
	cmd.Flags().Uint64Var(&s.elementSize, "element-size", 1, "Bytes per element")
	_ = cmd.MarkFlagRequired("uri")
	_ = cmd.MarkFlagRequired("shape")
}

func (s *selection) parse() ([]uint64, []hyperslab.Range, error) {
	shape, err := hyperslab.ParseShape(s.shape)
	if err != nil {
		return nil, nil, err
	}
	if s.ranges == "" {
		return shape, hyperslab.FullRanges(shape), nil
	}
	ranges, err := hyperslab.ParseRanges(s.ranges)
	if err != nil {
		return nil, nil, err
	}
	return shape, ranges, nil
}

// descriptor builds the chunk descriptor within f.
func (s *selection) descriptor(f *connector.File) (*chunk.Descriptor, error) {
	shape, ranges, err := s.parse()
	if err != nil {
		return nil, err
	}
	return f.Descriptor(s.uri, s.elementSize, shape, ranges)
}

// openFile loads config, connects and opens the selection's file. The
// returned cleanup closes both.
func openFile(ctx context.Context, name string) (*connector.File, func(), error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, nil, err
	}

	conn, err := connector.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	f, err := conn.Open(ctx, name)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return f, func() {
		_ = f.Close()
		if err := conn.Close(); err != nil {
			logger.Warn("Connector close failed", logger.KeyError, err)
		}
	}, nil
}
