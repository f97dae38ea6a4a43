// Package runtime provides a unified interface for container runtimes.
//
// Supported runtimes:
//   - docker: Docker Engine through the docker CLI
//   - podman: Podman through its docker-compatible CLI
//
// Both are driven by DockerRuntime, which shells out through a
// system.CommandExecutor so tests can script the CLI. Runtime selection is
// automatic unless the configuration names a command.
//
// # Runtime Interface
//
// The Runtime interface defines the operations lab-ctl needs:
//   - Create, Start, Stop, Restart, Destroy: Container lifecycle
//   - Status, List: Container state queries
//   - Logs: Recent container output
//   - UpdateMemory, UpdateCPUs: Live resource limits, applied independently
//
// Status reports a missing container as StatusNotFound with a nil error;
// only a failed probe is an error.
//
// # Resources
//
// ParseMemory accepts <number><K|M|G|B> with binary units. Inspect output is
// rendered with go-humanize (e.g. "512 MiB") and NanoCpus as cores.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create an in-memory implementation.
// Errors can be injected per method ("Stop") or per container ("Stop:ptvnc2").
package runtime
