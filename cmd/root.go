package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "lab-ctl",
	Short: "Virtual lab account and container management CLI",
	Long: `lab-ctl provisions per-user virtual lab sandboxes.

Each student gets:
  - An account in the Guacamole registry
  - A ptvnc container running the lab desktop
  - A READ grant on the remote-desktop connection of that container

Bulk commands process every item and report per-item results; one failing
item never stops the rest.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		logging.SetUserOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

		if app.Default != nil {
			return nil
		}
		path, explicit := config.ResolvePath(configPath)
		cfg, err := config.Load(path, explicit)
		if err != nil {
			return errors.ConfigError("failed to load configuration", err)
		}
		logging.Debug("configuration loaded", "path", path, "driver", cfg.Registry.Driver, "runtime", cfg.Runtime.Command)
		app.SetDefault(app.New(app.WithConfig(cfg)))
		return nil
	},
}

// Execute runs the CLI. The context is cancelled on interrupt; bulk
// commands record the remaining items as failed.
func Execute(ctx context.Context) error {
	defer func() {
		if app.Default != nil {
			_ = app.Default.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results and logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $LABCTL_CONFIG or "+config.DefaultConfigPath+")")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
