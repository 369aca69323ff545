package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/cli/output"
	"github.com/guzman109/ArrayMorph/pkg/apiclient"
)

var (
	statusServer string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running gateway",
	Long: `Query a running gateway's health endpoints and print its uptime,
chunk store health and request counters.

Without --server the gateway is assumed on localhost at server.port.

Examples:
  arraymorph status
  arraymorph status --server http://gateway:8080 -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "Gateway URL (default http://localhost:<server.port>)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	server := statusServer
	if server == "" {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		server = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	client := apiclient.New(server)
	ctx := cmd.Context()

	live, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("gateway at %s is not responding: %w", client.BaseURL(), err)
	}
	ready, err := client.Ready(ctx)
	if err != nil {
		return fmt.Errorf("gateway readiness check failed: %w", err)
	}

	view := output.NewStatusView(client.BaseURL(), live, ready)
	if err := output.NewPrinter(cmd.OutOrStdout(), format).Print(view); err != nil {
		return err
	}
	if !ready.Healthy() {
		return fmt.Errorf("gateway is %s: %s", ready.Status, ready.Error)
	}
	return nil
}
