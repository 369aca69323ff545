// Package commands implements the arraymorph CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/cmd/arraymorph/commands/config"

	// Import prometheus metrics to register init() functions
	_ "github.com/guzman109/ArrayMorph/pkg/metrics/prometheus"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "arraymorph",
	Short: "ArrayMorph - array chunks on object storage",
	Long: `ArrayMorph stores array-file chunks as objects in S3 or Azure Blob
storage and translates hyperslab selections into the byte ranges that
must be fetched or patched.

Selections are written as comma-separated lists:
  --shape 64,64          chunk extents
  --ranges 0:31,16:47    inclusive low:high per dimension

Use "arraymorph [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/arraymorph/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
