package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/provision"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

const (
	// EnableEnv turns the integration tests on
	EnableEnv = "LABCTL_INTEGRATION_TESTS"

	// ImageEnv overrides the image test containers run
	ImageEnv = "LABCTL_TEST_IMAGE"

	// DefaultImage stays up without arguments
	DefaultImage = "nginx:alpine"
)

// TestNames keeps test containers and connections apart from a real lab.
var TestNames = naming.Resolver{ContainerPrefix: "labit", ConnectionPrefix: "labitc"}

// TestHarness provides utilities for integration testing with real containers.
type TestHarness struct {
	t        *testing.T
	tempDir  string
	rt       runtime.Runtime
	registry *registry.BunRegistry
	adapter  *lifecycle.Adapter
	audit    *audit.Logger
}

// NewHarness creates a new test harness.
// It will skip the test if LABCTL_INTEGRATION_TESTS is not set.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if os.Getenv(EnableEnv) == "" {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnableEnv)
	}

	// Try to detect the real runtime
	rt, err := runtime.New(runtime.DefaultConfig())
	if err != nil {
		t.Skipf("no container runtime available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := rt.List(ctx, TestNames.ContainerPrefix); err != nil {
		t.Skipf("%s not responsive: %v", rt.Name(), err)
	}

	tempDir := t.TempDir()
	dsn := fmt.Sprintf("file:%s", filepath.Join(tempDir, "registry.db"))
	reg, err := registry.Open(ctx, registry.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open registry: %v", err)
	}
	if err := reg.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to create registry schema: %v", err)
	}

	image := os.Getenv(ImageEnv)
	if image == "" {
		image = DefaultImage
	}

	h := &TestHarness{
		t:        t,
		tempDir:  tempDir,
		rt:       rt,
		registry: reg,
		adapter:  lifecycle.New(rt, TestNames, lifecycle.Defaults{Image: image, Memory: "128M", CPUs: "0.5"}),
		audit:    audit.NewLogger(filepath.Join(tempDir, "state")),
	}

	t.Cleanup(h.Cleanup)
	return h
}

// Runtime returns the detected runtime.
func (h *TestHarness) Runtime() runtime.Runtime {
	return h.rt
}

// Registry returns the SQLite registry.
func (h *TestHarness) Registry() *registry.BunRegistry {
	return h.registry
}

// Audit returns the audit logger the coordinator writes to.
func (h *TestHarness) Audit() *audit.Logger {
	return h.audit
}

// Coordinator returns a coordinator over the real runtime and the SQLite
// registry.
func (h *TestHarness) Coordinator() *provision.Coordinator {
	return provision.New(h.registry, h.adapter, h.audit)
}

// RegisterConnection adds a VNC connection to the registry.
func (h *TestHarness) RegisterConnection(name string) int64 {
	h.t.Helper()

	conn := registry.VNCConnection{Name: name, Hostname: name, Port: registry.DefaultVNCPort}
	id, _, err := h.registry.RegisterConnection(context.Background(), conn)
	if err != nil {
		h.t.Fatalf("Failed to register connection %s: %v", name, err)
	}
	return id
}

// RequireRunning fails the test if the container is not running.
func (h *TestHarness) RequireRunning(name string) {
	h.t.Helper()

	info, err := h.rt.Status(context.Background(), name)
	if err != nil {
		h.t.Fatalf("Failed to check container %s: %v", name, err)
	}
	if info.Status != runtime.StatusRunning {
		h.t.Fatalf("Container %s is %s, want running", name, info.Status)
	}
}

// RequireGone fails the test if the container still exists.
func (h *TestHarness) RequireGone(name string) {
	h.t.Helper()

	info, err := h.rt.Status(context.Background(), name)
	if err != nil {
		h.t.Fatalf("Failed to check container %s: %v", name, err)
	}
	if info.Status.Exists() {
		h.t.Fatalf("Container %s still exists (%s)", name, info.Status)
	}
}

// Cleanup removes every test container and closes the registry.
func (h *TestHarness) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	containers, err := h.rt.List(ctx, TestNames.ContainerPrefix)
	if err != nil {
		h.t.Logf("Failed to list test containers: %v", err)
	}
	for _, c := range containers {
		if err := h.rt.Destroy(ctx, c.Name); err != nil {
			h.t.Logf("Failed to remove %s: %v", c.Name, err)
		}
	}

	if err := h.registry.Close(); err != nil {
		h.t.Logf("Failed to close registry: %v", err)
	}
}
