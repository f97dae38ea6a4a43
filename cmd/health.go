package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Aliases: []string{"doctor"},
	Short:   "Check that every running container is reachable through the gateway",
	Args:    cobra.NoArgs,
	RunE:    runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	adapter, err := lifecycleAdapter()
	if err != nil {
		return err
	}

	var reg registry.Registry
	if store, err := app.Default.Store(cmd.Context()); err != nil {
		logWarning("Registry unavailable: %v", err)
	} else {
		reg = store
	}

	report := health.NewChecker(adapter, reg).Check(cmd.Context())

	if jsonOutput {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Runtime:  %s\n", report.Runtime)
		if report.RuntimeError != "" {
			logError("Runtime: %s", report.RuntimeError)
		}
		if report.RegistryError != "" {
			logError("Registry: %s", report.RegistryError)
		}

		if len(report.Containers) > 0 {
			fmt.Fprintln(out)
			w := newTable(cmd)
			fmt.Fprintln(w, "NAME\tHEALTH\tCONNECTION\tUPTIME")
			fmt.Fprintln(w, "----\t------\t----------\t------")
			for _, c := range report.Containers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Status, dash(c.Connection), dash(c.Uptime))
			}
			w.Flush()
		}
	}

	if !report.Healthy() {
		return errors.New(errors.ExitGeneralError, "lab is not healthy")
	}
	if !jsonOutput {
		logSuccess("All %d container(s) checked", len(report.Containers))
	}
	return nil
}
