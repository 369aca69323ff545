package config

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/store"
)

var validateConnect bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ArrayMorph configuration.

Checks for syntax errors and invalid values. With --connect, also builds
the configured store and runs its health check.

Examples:
  arraymorph config validate
  arraymorph config validate --config /etc/arraymorph/config.yaml --connect`,
	RunE: runConfigValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateConnect, "connect", false, "Connect to the configured store")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	platform, _ := store.ParsePlatform(cfg.Storage.Platform)
	switch platform {
	case store.PlatformS3, store.PlatformAzure:
		if cfg.Storage.Bucket == "" {
			warnings = append(warnings, "storage.bucket is not set")
		}
	case store.PlatformMemory:
		warnings = append(warnings, "memory platform keeps chunks only for the life of the process")
	}
	if platform == store.PlatformAzure && cfg.Storage.Azure.ConnectionString == "" {
		warnings = append(warnings, "storage.azure.connection_string is not set")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	if !validateConnect {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := config.CreateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	fmt.Fprintln(out, "Connection: OK")
	return nil
}
