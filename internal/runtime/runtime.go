// Package runtime defines the container runtime interface for lab-ctl.
// This abstraction allows for multiple backend implementations (docker, podman)
// and enables comprehensive testing through mocking.
package runtime

import (
	"context"
)

// ContainerStatus represents the state of a container
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not-found"
	StatusUnknown  ContainerStatus = "unknown"
)

// Exists reports whether the status names a container the lifecycle
// adapter may act on.
func (s ContainerStatus) Exists() bool {
	return s == StatusRunning || s == StatusStopped
}

// ContainerInfo holds information about a container
type ContainerInfo struct {
	Name      string
	Status    ContainerStatus
	Image     string
	StartedAt string
	IPAddress string

	// MemoryBytes and NanoCPUs are the configured limits; zero means unlimited.
	MemoryBytes int64
	NanoCPUs    int64
}

// Memory returns the memory limit in human-readable form.
func (c *ContainerInfo) Memory() string {
	return FormatMemory(c.MemoryBytes)
}

// CPUs returns the CPU limit in human-readable form.
func (c *ContainerInfo) CPUs() string {
	return FormatCPUs(c.NanoCPUs)
}

// CreateOptions holds options for creating a container
type CreateOptions struct {
	Name    string
	Image   string
	Start   bool     // Start immediately after creation
	Memory  string   // e.g. "512m"
	CPUs    string   // e.g. "0.5"
	Network string   // Network to join
	Restart string   // Restart policy
	DNS     []string // DNS servers
	Volumes []string // "volume:/path" or "/host:/path"
	Env     []string // KEY=value

	// ExtraArgs are appended before the image reference
	ExtraArgs []string
}

// Runtime is the interface that container backends must implement.
// All methods should be safe for concurrent use.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "docker", "podman")
	Name() string

	// Create creates a new container, starting it when opts.Start is set
	Create(ctx context.Context, opts CreateOptions) error

	// Start starts an existing container
	Start(ctx context.Context, name string) error

	// Stop stops a running container
	Stop(ctx context.Context, name string) error

	// Restart restarts a container
	Restart(ctx context.Context, name string) error

	// Destroy stops and removes a container
	Destroy(ctx context.Context, name string) error

	// Status returns detailed status of a container. A missing container
	// yields StatusNotFound and a nil error.
	Status(ctx context.Context, name string) (*ContainerInfo, error)

	// List returns all containers whose names start with prefix
	List(ctx context.Context, prefix string) ([]*ContainerInfo, error)

	// Logs returns the last tail lines of container output
	Logs(ctx context.Context, name string, tail int) (string, error)

	// UpdateMemory sets the memory limit (and swap limit) in bytes
	UpdateMemory(ctx context.Context, name string, bytes int64) error

	// UpdateCPUs sets the CPU limit in cores
	UpdateCPUs(ctx context.Context, name string, cpus float64) error
}

// LogFollower is implemented by runtimes that can stream logs to the terminal.
type LogFollower interface {
	FollowLogs(ctx context.Context, name string) error
}
