// Package app provides the application context for lab-ctl.
// It allows dependency injection for testing.
package app

import (
	"context"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/provision"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Runtime is the container runtime
	Runtime runtime.Runtime

	// Registry is the assignment store. It is opened on first use.
	Registry registry.Registry

	// Audit records lifecycle events under the state directory
	Audit *audit.Logger

	closeRegistry func() error
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithRegistry sets a custom registry
func WithRegistry(r registry.Registry) Option {
	return func(a *App) {
		a.Registry = r
	}
}

// WithAudit sets a custom audit logger
func WithAudit(l *audit.Logger) Option {
	return func(a *App) {
		a.Audit = l
	}
}

// New creates a new App with the given options.
// If runtime is not provided via WithRuntime, it is built from the config.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Audit == nil {
		app.Audit = audit.NewLogger(app.Config.StateDir)
	}

	// Initialize runtime if not provided
	if app.Runtime == nil {
		rt, err := runtime.New(&runtime.Config{
			Type:      runtime.RuntimeType(app.Config.Runtime.Command),
			ExtraArgs: app.Config.Runtime.ExtraArgs,
		})
		if err != nil {
			logging.Debug("failed to initialize runtime", "error", err)
		} else {
			app.Runtime = rt
		}
	}

	return app
}

// Store returns the registry, connecting to the configured database on
// first use.
func (a *App) Store(ctx context.Context) (registry.Registry, error) {
	if a.Registry != nil {
		return a.Registry, nil
	}

	reg, err := registry.Open(ctx, a.Config.Registry.Driver, a.Config.Registry.DSN)
	if err != nil {
		return nil, err
	}
	a.Registry = reg
	a.closeRegistry = reg.Close
	return reg, nil
}

// Containers returns a lifecycle adapter over the runtime.
func (a *App) Containers() (*lifecycle.Adapter, error) {
	if a.Runtime == nil {
		return nil, errors.ConfigError("no container runtime available (install docker or podman, or set runtime.command)", nil)
	}

	rc := a.Config.Runtime
	return lifecycle.New(a.Runtime, a.Config.Resolver(), lifecycle.Defaults{
		Image:   rc.Image,
		Memory:  rc.Memory,
		CPUs:    rc.CPUs,
		Network: rc.Network,
		Restart: rc.Restart,
		DNS:     rc.DNS,
		Volumes: rc.Volumes,
		Env:     rc.Env,
	}), nil
}

// Coordinator returns a provisioning coordinator over the registry and the
// runtime.
func (a *App) Coordinator(ctx context.Context) (*provision.Coordinator, error) {
	containers, err := a.Containers()
	if err != nil {
		return nil, err
	}
	reg, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	return provision.New(reg, containers, a.Audit), nil
}

// Close releases the registry connection if the App opened it.
func (a *App) Close() error {
	if a.closeRegistry == nil {
		return nil
	}
	err := a.closeRegistry()
	a.closeRegistry = nil
	a.Registry = nil
	return err
}

// Default is the application instance used by the commands. It is nil until
// the configuration is loaded or a test installs one.
var Default *App

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault clears the default application instance
func ResetDefault() {
	if Default != nil {
		_ = Default.Close()
	}
	Default = nil
}
