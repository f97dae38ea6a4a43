package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/batch"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/provision"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/tui"
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account", "users"},
	Short:   "Manage lab accounts and their container assignments",
}

var (
	createFile           string
	createUsername       string
	createPassword       string
	createElevated       bool
	createWithContainer  bool
	createContainer      string
	deleteWithContainers bool
	assignPick           bool
	passwdPassword       string
	adminRevoke          bool
)

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create accounts from a CSV/JSON file or from flags",
	Long: `Create one or more accounts.

With --file, accounts are read from a CSV file with the columns
username,password[,elevated][,container] (the first row is a header), or
from a JSON file of the form {"users":[{"username":...,"password":...}]}.
Use "-" to read CSV from stdin.

Without --file, a single account is built from --username and --password.`,
	Example: `  lab-ctl accounts create --file students.csv
  lab-ctl accounts create --username alice --password s3cret --create-container`,
	Args: cobra.NoArgs,
	RunE: runAccountsCreate,
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <username>...",
	Short: "Delete accounts and revoke their grants",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAccountsDelete,
}

var accountsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	Args:    cobra.NoArgs,
	RunE:    runAccountsList,
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show an account and the containers it can reach",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsShow,
}

var accountsAssignCmd = &cobra.Command{
	Use:   "assign <username> [container...]",
	Short: "Grant an account access to containers",
	Long: `Grant an account READ access to the remote-desktop connection of each
named container. Existing grants are kept. With --pick, an interactive
picker lists the live containers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAccountsAssign,
}

var accountsPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Reset an account's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsPasswd,
}

var accountsAdminCmd = &cobra.Command{
	Use:   "admin <username>",
	Short: "Grant or revoke administrator rights",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsAdmin,
}

func init() {
	f := accountsCreateCmd.Flags()
	f.StringVarP(&createFile, "file", "f", "", "CSV or JSON file of accounts (- for stdin)")
	f.StringVar(&createUsername, "username", "", "Username of a single account")
	f.StringVar(&createPassword, "password", "", "Password of a single account")
	f.BoolVar(&createElevated, "admin", false, "Give the account administrator rights")
	f.BoolVar(&createWithContainer, "create-container", false, "Create a new container for the account")
	f.StringVar(&createContainer, "container", "", "Assign an existing container to the account")
	accountsCreateCmd.MarkFlagsMutuallyExclusive("file", "username")
	accountsCreateCmd.MarkFlagsMutuallyExclusive("create-container", "container")

	accountsDeleteCmd.Flags().BoolVar(&deleteWithContainers, "delete-containers", false, "Also delete the containers the accounts are assigned to")
	accountsAssignCmd.Flags().BoolVarP(&assignPick, "pick", "p", false, "Choose containers interactively")
	accountsPasswdCmd.Flags().StringVar(&passwdPassword, "password", "", "New password")
	_ = accountsPasswdCmd.MarkFlagRequired("password")
	accountsAdminCmd.Flags().BoolVar(&adminRevoke, "revoke", false, "Revoke administrator rights instead")

	accountsCmd.AddCommand(accountsCreateCmd, accountsDeleteCmd, accountsListCmd, accountsShowCmd,
		accountsAssignCmd, accountsPasswdCmd, accountsAdminCmd)
	rootCmd.AddCommand(accountsCmd)
}

type createItem struct {
	Username  string `json:"username"`
	Status    string `json:"status"`
	Container string `json:"container,omitempty"`
	Error     string `json:"error,omitempty"`
	Partial   bool   `json:"partial,omitempty"`
}

type createOutput struct {
	CreatedCount int          `json:"created_count"`
	FailedCount  int          `json:"failed_count"`
	PerItem      []createItem `json:"per_item"`
}

func runAccountsCreate(cmd *cobra.Command, args []string) error {
	var specs []provision.AccountSpec
	if createFile != "" {
		var err error
		specs, err = readAccounts(cmd, createFile)
		if err != nil {
			return err
		}
	} else {
		if createUsername == "" {
			return errors.Validation("either --file or --username is required")
		}
		specs = []provision.AccountSpec{{
			Username:        createUsername,
			Secret:          createPassword,
			Elevated:        createElevated,
			CreateContainer: createWithContainer,
			Container:       createContainer,
		}}
	}

	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	res, err := coord.ProvisionAccounts(cmd.Context(), specs)
	if err != nil {
		return err
	}

	out := createOutput{
		CreatedCount: res.Succeeded,
		FailedCount:  res.NotFound + res.Failed,
		PerItem:      make([]createItem, 0, len(res.Items)),
	}
	for _, item := range res.Items {
		out.PerItem = append(out.PerItem, createItem{
			Username:  item.Key,
			Status:    string(item.Kind),
			Container: item.Detail,
			Error:     item.Error,
			Partial:   item.Partial,
		})
	}

	if jsonOutput {
		if err := printJSON(cmd, out); err != nil {
			return err
		}
	} else {
		for _, item := range out.PerItem {
			switch {
			case item.Status == string(batch.KindSuccess) && item.Container != "":
				logSuccess("Created %s (container %s)", item.Username, item.Container)
			case item.Status == string(batch.KindSuccess):
				logSuccess("Created %s", item.Username)
			case item.Partial:
				logWarning("Created %s with errors: %s", item.Username, item.Error)
			default:
				logError("Failed to create %s: %s", item.Username, item.Error)
			}
		}
		logInfo("%d created, %d failed", out.CreatedCount, out.FailedCount)
	}
	return incomplete("account creation", out.FailedCount)
}

func runAccountsDelete(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	res, err := coord.DeleteAccounts(cmd.Context(), args, deleteWithContainers)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		for _, name := range res.Deleted {
			logSuccess("Deleted %s", name)
		}
		for _, name := range res.NotFound {
			logWarning("Account %s not found", name)
		}
		for _, name := range res.Failed {
			logError("Failed to delete %s: %s", name, res.Errors[name])
		}
		if deleteWithContainers {
			logInfo("%d container(s) deleted", res.ContainersDeleted)
		}
	}
	return incomplete("account deletion", res.NotFoundCount+res.FailedCount)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	accounts, err := coord.Registry().ListAccounts(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, accounts)
	}
	if len(accounts) == 0 {
		logInfo("No accounts found")
		return nil
	}

	w := newTable(cmd)
	fmt.Fprintln(w, "USERNAME\tADMIN\tCONNECTIONS")
	fmt.Fprintln(w, "--------\t-----\t-----------")
	for _, acct := range accounts {
		names := make([]string, 0, len(acct.Connections))
		for _, conn := range acct.Connections {
			names = append(names, conn.Name)
		}
		admin := "no"
		if acct.Elevated {
			admin = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", acct.Username, admin, strings.Join(names, ","))
	}
	return w.Flush()
}

func runAccountsShow(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	view, err := coord.Account(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Username:    %s\n", view.Username)
	fmt.Fprintf(out, "Admin:       %t\n", view.Elevated)
	fmt.Fprintf(out, "Connections: %d\n", len(view.Connections))
	if len(view.Containers) == 0 {
		fmt.Fprintln(out, "Containers:  none")
	} else {
		fmt.Fprintf(out, "Containers:  %s\n", strings.Join(view.Containers, ", "))
	}
	return nil
}

func runAccountsAssign(cmd *cobra.Command, args []string) error {
	username, containers := args[0], args[1:]
	if len(containers) == 0 && !assignPick {
		return errors.Validation("name at least one container or use --pick")
	}

	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}

	if assignPick {
		picked, err := pickContainers(cmd, coord, username)
		if err != nil {
			return err
		}
		if len(picked) == 0 {
			logInfo("Nothing assigned")
			return nil
		}
		containers = append(containers, picked...)
	}

	res, err := coord.AssignContainers(cmd.Context(), username, containers)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		for _, name := range res.Assigned {
			logSuccess("Assigned %s to %s", name, username)
		}
		for _, name := range res.AlreadyHeld {
			logInfo("%s already has %s", username, name)
		}
		for _, name := range res.NotFound {
			logWarning("No connection found for %s", name)
		}
		for _, name := range res.Failed {
			logError("Failed to assign %s: %s", name, res.Errors[name])
		}
	}
	return incomplete("assignment", len(res.NotFound)+len(res.Failed))
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func pickContainers(cmd *cobra.Command, coord *provision.Coordinator, username string) ([]string, error) {
	if !isInteractive() {
		return nil, errors.Validation("--pick needs an interactive terminal")
	}

	live, err := coord.Containers().List(cmd.Context())
	if err != nil {
		return nil, err
	}
	assigned, err := coord.AssignedContainers(cmd.Context(), username)
	if err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(assigned))
	for _, name := range assigned {
		held[name] = true
	}

	result, err := tui.RunPicker(username, live, held)
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}
	if result.Action != tui.ActionAssign {
		return nil, nil
	}
	return result.Containers, nil
}

func runAccountsPasswd(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	if err := coord.ResetPassword(cmd.Context(), args[0], passwdPassword); err != nil {
		return err
	}
	logSuccess("Password reset for %s", args[0])
	return nil
}

func runAccountsAdmin(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	if err := coord.SetElevated(cmd.Context(), args[0], !adminRevoke); err != nil {
		return err
	}
	if adminRevoke {
		logSuccess("Revoked administrator rights from %s", args[0])
	} else {
		logSuccess("Granted administrator rights to %s", args[0])
	}
	return nil
}
