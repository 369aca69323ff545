package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guzman109/ArrayMorph/internal/cli/prompt"
	"github.com/guzman109/ArrayMorph/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default ArrayMorph configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/arraymorph/config.yaml.
Use --config to specify a custom path.

Examples:
  arraymorph config init
  arraymorph config init --config /etc/arraymorph/config.yaml
  arraymorph config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	force := initForce
	target := configFile
	if target == "" {
		target = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(target); err == nil && !force {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s?", target), false)
		if errors.Is(err, prompt.ErrNotInteractive) {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", target)
		}
		if err != nil {
			return err
		}
		if !ok {
			return prompt.ErrAborted
		}
		force = true
	}

	var (
		configPath string
		err        error
	)
	if configFile != "" {
		err = config.InitConfigToPath(configFile, force)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(force)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Set storage.platform and storage.bucket (or STORAGE_PLATFORM / BUCKET_NAME)")
	fmt.Fprintln(out, "  2. Provide credentials via the file or the usual AWS_* / AZURE_* variables")
	fmt.Fprintf(out, "  3. Start the gateway with: arraymorph serve --config %s\n", configPath)
	return nil
}
