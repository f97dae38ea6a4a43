package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the registry schema",
}

var schemaConnections []string

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the registry tables and register connections",
	Long: `Create the registry tables lab-ctl uses if they are missing, then register
each --connection as a VNC connection whose hostname is the connection name.
Intended for SQLite registries; a Guacamole database is initialised by
Guacamole itself. Use "containers register" to register a container.`,
	Example: `  lab-ctl schema init --connection pt1 --connection pt2`,
	Args:    cobra.NoArgs,
	RunE:    runSchemaInit,
}

func init() {
	schemaInitCmd.Flags().StringArrayVar(&schemaConnections, "connection", nil, "Connection to register (repeatable)")
	schemaCmd.AddCommand(schemaInitCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaInit(cmd *cobra.Command, args []string) error {
	if app.Default == nil {
		return errors.ConfigError("application not initialized", nil)
	}
	store, err := app.Default.Store(cmd.Context())
	if err != nil {
		return err
	}
	bunReg, ok := store.(*registry.BunRegistry)
	if !ok {
		return errors.ConfigError("schema init requires a database registry", nil)
	}

	if err := bunReg.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	logSuccess("Registry schema ready")

	for _, name := range schemaConnections {
		conn := registry.VNCConnection{Name: name, Hostname: name, Port: registry.DefaultVNCPort}
		id, created, err := bunReg.RegisterConnection(cmd.Context(), conn)
		if err != nil {
			return err
		}
		if created {
			logSuccess("Registered connection %s (id %d)", name, id)
		} else {
			logInfo("Connection %s already registered (id %d)", name, id)
		}
	}
	return nil
}
