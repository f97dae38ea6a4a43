package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Config   *config.Config
	Runtime  *runtime.MockRuntime
	Registry *registry.MockRegistry
	App      *app.App
}

// NewTestEnv installs an app backed by a mock runtime and a mock registry
// as app.Default. The previous default is restored when the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")

	mockRuntime := runtime.NewMockRuntime()
	mockRegistry := registry.NewMockRegistry()

	testApp := app.New(
		app.WithConfig(cfg),
		app.WithRuntime(mockRuntime),
		app.WithRegistry(mockRegistry),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)
	t.Cleanup(func() {
		_ = testApp.Close()
		app.SetDefault(originalDefault)
		logging.SetUserOutput(nil, nil)
	})

	return &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		Config:   cfg,
		Runtime:  mockRuntime,
		Registry: mockRegistry,
		App:      testApp,
	}
}

// AddSeat adds a running container together with the connection the
// gateway uses for it.
func (e *TestEnv) AddSeat(container, connection string) int64 {
	e.Runtime.AddContainer(container, runtime.StatusRunning)
	return e.Registry.AddConnection(connection)
}

// AddAccount creates an account holding READ on each named connection.
func (e *TestEnv) AddAccount(username string, connections ...string) {
	e.T.Helper()

	ctx := context.Background()
	entityID := e.Registry.AddAccount(username, false)
	for _, name := range connections {
		connID, err := e.Registry.FindConnectionID(ctx, name)
		if err != nil {
			e.T.Fatalf("Failed to find connection %s: %v", name, err)
		}
		if _, err := e.Registry.Grant(ctx, entityID, connID); err != nil {
			e.T.Fatalf("Failed to grant %s to %s: %v", name, username, err)
		}
	}
}

// WriteFile writes a file under the test directory and returns its path.
func (e *TestEnv) WriteFile(name, content string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}
