package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guzman109/ArrayMorph/internal/logger"
	"github.com/guzman109/ArrayMorph/internal/telemetry"
	"github.com/guzman109/ArrayMorph/pkg/api"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/metrics"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Long: `Run the HTTP gateway in the foreground.

Endpoints:
  GET    /health             liveness
  GET    /health/ready       chunk store health
  GET    /metrics            Prometheus metrics (metrics.enabled)
  GET    /v1/chunks/read     ?file=&uri=&shape=&ranges=&element_size=
  PUT    /v1/chunks/write    same query, body is the selection bytes
  GET    /v1/chunks/plan     same query, planned segments as JSON
  DELETE /v1/chunks          ?file=&uri=

Examples:
  arraymorph serve
  arraymorph serve --port 9000 --config /etc/arraymorph/config.yaml
  ARRAYMORPH_LOGGING_LEVEL=DEBUG arraymorph serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Observability shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", logger.KeyEndpoint, cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", logger.KeyEndpoint, cfg.Telemetry.Profiling.Endpoint)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", logger.KeyPath, "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	conn, err := connector.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("Connector close error", logger.KeyError, err)
		}
	}()

	// Resolve the backend now so a bad storage section fails at startup.
	if err := conn.HealthCheck(ctx); err != nil {
		return fmt.Errorf("chunk store not reachable: %w", err)
	}

	server := api.NewServer(cfg.Server, conn)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	logger.Info("Server is running. Press Ctrl+C to stop.",
		logger.KeyPlatform, cfg.Storage.Platform,
		logger.KeyBucket, cfg.Storage.Bucket)

	if err := g.Wait(); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
