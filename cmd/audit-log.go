package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log <subject>",
	Short: "Display the audit trail for an account or container",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

func init() {
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	subject := args[0]
	if app.Default == nil || app.Default.Audit == nil {
		return errors.ConfigError("application not initialized", nil)
	}

	events, err := app.Default.Audit.Events(subject)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for %s", subject)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if jsonOutput {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			if e.Details != "" {
				fmt.Fprintf(out, "[%s] %-17s %s (%s)\n", ts, e.Type, e.Subject, e.Details)
			} else {
				fmt.Fprintf(out, "[%s] %-17s %s\n", ts, e.Type, e.Subject)
			}
		}
	}

	return nil
}
