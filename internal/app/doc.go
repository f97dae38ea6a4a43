// Package app provides the application context for lab-ctl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config   *config.Config    // Loaded configuration
//	    Runtime  runtime.Runtime   // Container runtime
//	    Registry registry.Registry // Assignment store, opened lazily
//	    Audit    *audit.Logger     // JSONL event trail
//	}
//
// Containers and Coordinator assemble the lifecycle adapter and the
// provisioning coordinator from those dependencies on demand, so commands
// that only touch containers never connect to the database.
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New(app.WithConfig(cfg))
//	defer a.Close()
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(testConfig),
//	    app.WithRuntime(runtime.NewMockRuntime()),
//	    app.WithRegistry(registry.NewMockRegistry()),
//	)
//
// # Available Options
//
//	WithConfig(cfg)       // Custom configuration
//	WithRuntime(runtime)  // Custom container runtime
//	WithRegistry(reg)     // Custom assignment store
//	WithAudit(logger)     // Custom audit logger
package app
