package config

import (
	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/cli/output"
	"github.com/guzman109/ArrayMorph/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective ArrayMorph configuration: defaults, then the
config file, then environment variables.

Examples:
  arraymorph config show
  arraymorph config show --output json
  STORAGE_PLATFORM=Azure arraymorph config show`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	return output.NewPrinter(cmd.OutOrStdout(), format).Print(cfg)
}
