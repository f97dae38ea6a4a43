package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/provision"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

var containersCmd = &cobra.Command{
	Use:     "containers",
	Aliases: []string{"container", "ctr"},
	Short:   "Manage lab containers",
}

var (
	containerCount int
	containerImage string
	logsFollow     bool
	logsTail       int
	tuneAll        bool
	tuneMemory     string
	tuneCPUs       string
	regConnection  string
	regHost        string
	regPort        int
	regPassword    string
)

var containersLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list", "ps"},
	Short:   "List lab containers",
	Args:    cobra.NoArgs,
	RunE:    runContainersLs,
}

var containersCreateCmd = &cobra.Command{
	Use:   "create [name...]",
	Short: "Create lab containers",
	Long: `Create lab containers. Named containers must carry the container prefix;
with --count, that many containers are created under the next free numbers.`,
	Example: `  lab-ctl containers create ptvnc12
  lab-ctl containers create --count 5`,
	RunE: runContainersCreate,
}

var containersRmCmd = &cobra.Command{
	Use:     "rm <name>...",
	Aliases: []string{"delete"},
	Short:   "Delete containers and revoke every grant on them",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runContainersRm,
}

var containersLogsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show container logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainersLogs,
}

var containersTuneCmd = &cobra.Command{
	Use:   "tune [name...]",
	Short: "Change memory and CPU limits of running containers",
	Example: `  lab-ctl containers tune --all --memory 1G
  lab-ctl containers tune ptvnc3 --cpus 1.5`,
	RunE: runContainersTune,
}

var containersRegisterCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a container as a VNC connection",
	Long: `Register a container in the registry as a VNC connection routed through
guacd, with hostname, port and password parameters. Without --connection an
existing candidate connection (pt07 or pt7 for ptvnc7) is reused, else the
unpadded name is created. Registering twice is a no-op.

Accounts can only be assigned containers that are registered.`,
	Example: `  lab-ctl containers register ptvnc7
  lab-ctl containers register ptvnc-lab --connection pt-lab --port 5900 --password secret`,
	Args: cobra.ExactArgs(1),
	RunE: runContainersRegister,
}

func actionCmd(action provision.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := coordinator(cmd.Context())
			if err != nil {
				return err
			}
			res, err := coord.ContainerAction(cmd.Context(), action, args)
			if err != nil {
				return err
			}
			return printBatch(cmd, string(action), res)
		},
	}
}

func init() {
	containersCreateCmd.Flags().IntVarP(&containerCount, "count", "n", 0, "Number of containers to create under the next free numbers")
	containersCreateCmd.Flags().StringVar(&containerImage, "image", "", "Image to run (default from config)")

	containersLogsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	containersLogsCmd.Flags().IntVarP(&logsTail, "tail", "n", lifecycle.DefaultLogTail, "Number of lines to show")

	containersTuneCmd.Flags().BoolVar(&tuneAll, "all", false, "Tune every lab container")
	containersTuneCmd.Flags().StringVar(&tuneMemory, "memory", "", "Memory limit (e.g. 512M, 2G)")
	containersTuneCmd.Flags().StringVar(&tuneCPUs, "cpus", "", "CPU limit (e.g. 0.5, 2)")

	containersRegisterCmd.Flags().StringVar(&regConnection, "connection", "", "Connection name (default derived from the container name)")
	containersRegisterCmd.Flags().StringVar(&regHost, "host", "", "VNC hostname (default the container name)")
	containersRegisterCmd.Flags().IntVar(&regPort, "port", registry.DefaultVNCPort, "VNC port")
	containersRegisterCmd.Flags().StringVar(&regPassword, "password", "", "VNC password")

	containersCmd.AddCommand(
		containersLsCmd,
		containersCreateCmd,
		actionCmd(provision.ActionStart, "Start containers"),
		actionCmd(provision.ActionStop, "Stop containers"),
		actionCmd(provision.ActionRestart, "Restart containers"),
		containersRmCmd,
		containersLogsCmd,
		containersTuneCmd,
		containersRegisterCmd,
	)
	rootCmd.AddCommand(containersCmd)
}

func lifecycleAdapter() (*lifecycle.Adapter, error) {
	if app.Default == nil {
		return nil, errors.ConfigError("application not initialized", nil)
	}
	return app.Default.Containers()
}

func runContainersLs(cmd *cobra.Command, args []string) error {
	adapter, err := lifecycleAdapter()
	if err != nil {
		return err
	}
	containers, err := adapter.List(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, containers)
	}
	if len(containers) == 0 {
		logInfo("No containers found")
		return nil
	}

	w := newTable(cmd)
	fmt.Fprintln(w, "NAME\tSTATUS\tIMAGE\tMEMORY\tCPUS\tIP")
	fmt.Fprintln(w, "----\t------\t-----\t------\t----\t--")
	for _, c := range containers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.Status, c.Image, dash(c.Memory), dash(c.CPUs), dash(c.IPAddress))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runContainersCreate(cmd *cobra.Command, args []string) error {
	if containerCount < 0 {
		return errors.Validation("--count must not be negative")
	}
	names := append([]string{}, args...)
	for i := 0; i < containerCount; i++ {
		names = append(names, "")
	}
	if len(names) == 0 {
		return errors.Validation("name at least one container or use --count")
	}

	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	res, err := coord.CreateContainers(cmd.Context(), names, containerImage)
	if err != nil {
		return err
	}
	return printBatch(cmd, "container creation", res)
}

func runContainersRm(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}
	res, err := coord.RemoveContainers(cmd.Context(), args)
	if err != nil {
		return err
	}
	return printBatch(cmd, "container removal", res)
}

func runContainersLogs(cmd *cobra.Command, args []string) error {
	adapter, err := lifecycleAdapter()
	if err != nil {
		return err
	}
	if logsFollow {
		return adapter.Follow(cmd.Context(), args[0])
	}

	lines, err := adapter.Logs(cmd.Context(), args[0], logsTail)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, lines)
	}
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

func runContainersTune(cmd *cobra.Command, args []string) error {
	if tuneAll == (len(args) > 0) {
		return errors.Validation("give container names or --all (not both)")
	}
	// Limits are validated before any container is touched.
	if _, err := provision.ParseLimits(tuneMemory, tuneCPUs); err != nil {
		return err
	}

	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}

	var res *provision.TuneSummary
	if tuneAll {
		res, err = coord.TuneAll(cmd.Context(), tuneMemory, tuneCPUs)
	} else {
		res, err = coord.TuneContainers(cmd.Context(), args, tuneMemory, tuneCPUs)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(cmd, res); err != nil {
			return err
		}
	} else {
		for _, name := range res.Updated {
			logSuccess("Tuned %s", name)
		}
		for _, name := range res.Failed {
			logError("Failed to tune %s: %s", name, res.Errors[name])
		}
		logInfo("%d updated, %d failed", res.UpdatedCount, len(res.Failed))
	}
	return incomplete("tune", len(res.Failed))
}

func runContainersRegister(cmd *cobra.Command, args []string) error {
	coord, err := coordinator(cmd.Context())
	if err != nil {
		return err
	}

	reg, err := coord.RegisterContainer(cmd.Context(), args[0], registry.VNCConnection{
		Name:     regConnection,
		Hostname: regHost,
		Port:     regPort,
		Password: regPassword,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, reg)
	}
	if reg.Created {
		logSuccess("Registered %s as connection %s (id %d, %s:%d)", reg.Container, reg.Connection, reg.ConnectionID, reg.Hostname, reg.Port)
	} else {
		logInfo("%s is already registered as connection %s (id %d)", reg.Container, reg.Connection, reg.ConnectionID)
	}
	return nil
}
