package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show account and container counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	stats, err := coord.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Accounts:   %d\n", stats.Accounts)
	fmt.Fprintf(out, "Containers: %d (%d running, %d stopped)\n",
		stats.Containers.Total, stats.Containers.Running, stats.Containers.Stopped)
	return nil
}
