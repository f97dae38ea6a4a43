package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/batch"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/provision"
)

// coordinator returns the provisioning coordinator of the default app.
func coordinator(ctx context.Context) (*provision.Coordinator, error) {
	if app.Default == nil {
		return nil, errors.ConfigError("application not initialized", nil)
	}
	return app.Default.Coordinator(ctx)
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

// incomplete returns an error carrying ExitBatchIncomplete when any item of
// a bulk operation failed.
func incomplete(what string, failed int) error {
	if failed == 0 {
		return nil
	}
	return errors.New(errors.ExitBatchIncomplete, fmt.Sprintf("%s: %d item(s) failed", what, failed))
}

// printBatch renders a batch result and returns a batch error when any
// item did not succeed.
func printBatch(cmd *cobra.Command, what string, res *batch.Result) error {
	if jsonOutput {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		w := newTable(cmd)
		fmt.Fprintln(w, "NAME\tRESULT\tDETAIL")
		fmt.Fprintln(w, "----\t------\t------")
		for _, item := range res.Items {
			status := string(item.Kind)
			if item.Partial {
				status += " (partial)"
			}
			detail := item.Detail
			if item.Error != "" {
				detail = item.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", item.Key, status, detail)
		}
		w.Flush()
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d succeeded, %d not found, %d failed\n", res.Succeeded, res.NotFound, res.Failed)
	}
	return incomplete(what, res.NotFound+res.Failed)
}

// readAccounts loads account specs from a CSV or JSON file. "-" reads
// stdin. The format follows the file extension; anything other than .json
// is parsed as CSV.
func readAccounts(cmd *cobra.Command, path string) ([]provision.AccountSpec, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Validation("cannot open accounts file: %v", err)
		}
		defer f.Close()
		r = f
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseAccountsJSON(r)
	}
	return parseAccountsCSV(r)
}

type accountRecord struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Elevated        bool   `json:"elevated"`
	IsAdmin         bool   `json:"is_admin"`
	CreateContainer bool   `json:"create_container"`
	Container       string `json:"container"`
}

func parseAccountsJSON(r io.Reader) ([]provision.AccountSpec, error) {
	var doc struct {
		Users []accountRecord `json:"users"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Validation("invalid accounts JSON: %v", err)
	}
	specs := make([]provision.AccountSpec, 0, len(doc.Users))
	for _, u := range doc.Users {
		specs = append(specs, provision.AccountSpec{
			Username:        strings.TrimSpace(u.Username),
			Secret:          u.Password,
			Elevated:        u.Elevated || u.IsAdmin,
			CreateContainer: u.CreateContainer,
			Container:       strings.TrimSpace(u.Container),
		})
	}
	return specs, nil
}

// parseAccountsCSV reads username,password[,elevated][,container] rows. The
// first row is a header and is skipped.
func parseAccountsCSV(r io.Reader) ([]provision.AccountSpec, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var specs []provision.AccountSpec
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Validation("invalid accounts CSV: %v", err)
		}
		if line == 1 {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, errors.Validation("line %d: expected username,password[,elevated][,container]", line)
		}

		spec := provision.AccountSpec{
			Username: strings.TrimSpace(rec[0]),
			Secret:   strings.TrimSpace(rec[1]),
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			elevated, err := strconv.ParseBool(strings.TrimSpace(rec[2]))
			if err != nil {
				return nil, errors.Validation("line %d: invalid elevated value %q", line, rec[2])
			}
			spec.Elevated = elevated
		}
		if len(rec) > 3 {
			spec.Container = strings.TrimSpace(rec[3])
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
