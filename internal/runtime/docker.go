package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/system"
)

// DockerRuntime implements the Runtime interface using Docker or Podman.
type DockerRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	// Executor runs the container command
	Executor system.CommandExecutor

	// ExtraArgs are appended to every create invocation
	ExtraArgs []string
}

// NewDockerRuntime creates a runtime driving the given command.
func NewDockerRuntime(command string, exec system.CommandExecutor) *DockerRuntime {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &DockerRuntime{
		Command:  command,
		Executor: exec,
	}
}

// Name returns the runtime identifier
func (r *DockerRuntime) Name() string {
	return r.Command
}

// runCmd executes a docker/podman command
func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	out, err := r.Executor.Execute(ctx, r.Command, args...)
	if err != nil {
		return string(out), fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	return string(out), nil
}

// isNoSuchContainer matches the docker and podman wording for a missing container.
func isNoSuchContainer(output string, err error) bool {
	text := strings.ToLower(output)
	if err != nil {
		text += " " + strings.ToLower(err.Error())
	}
	return strings.Contains(text, "no such container") ||
		strings.Contains(text, "no such object") ||
		strings.Contains(text, "no container with name")
}

// createArgs builds the run/create argument list.
func (r *DockerRuntime) createArgs(opts CreateOptions) []string {
	verb := []string{"create"}
	if opts.Start {
		verb = []string{"run", "-d"}
	}

	args := append(verb, "--name", opts.Name, "--hostname", opts.Name)

	if opts.Restart != "" {
		args = append(args, "--restart", opts.Restart)
	}
	if opts.CPUs != "" {
		args = append(args, "--cpus", opts.CPUs)
	}
	if opts.Memory != "" {
		args = append(args, "-m", opts.Memory)
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	for _, dns := range opts.DNS {
		args = append(args, "--dns", dns)
	}
	for _, vol := range opts.Volumes {
		args = append(args, "-v", vol)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}

	args = append(args, r.ExtraArgs...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, opts.Image)
	return args
}

// Create creates a new container
func (r *DockerRuntime) Create(ctx context.Context, opts CreateOptions) error {
	if opts.Image == "" {
		return fmt.Errorf("image is required to create %s", opts.Name)
	}
	logging.Debug("creating container", "name", opts.Name, "image", opts.Image, "runtime", r.Command)

	_, err := r.runCmd(ctx, r.createArgs(opts)...)
	return err
}

// Start starts an existing container
func (r *DockerRuntime) Start(ctx context.Context, name string) error {
	logging.Debug("starting container", "container", name)

	_, err := r.runCmd(ctx, "start", name)
	return err
}

// Stop stops a running container
func (r *DockerRuntime) Stop(ctx context.Context, name string) error {
	logging.Debug("stopping container", "container", name)

	_, err := r.runCmd(ctx, "stop", name)
	return err
}

// Restart restarts a container
func (r *DockerRuntime) Restart(ctx context.Context, name string) error {
	logging.Debug("restarting container", "container", name)

	_, err := r.runCmd(ctx, "restart", name)
	return err
}

// Destroy stops and removes a container
func (r *DockerRuntime) Destroy(ctx context.Context, name string) error {
	logging.Debug("destroying container", "container", name)

	out, err := r.runCmd(ctx, "rm", "-f", name)
	if err != nil && isNoSuchContainer(out, err) {
		return nil
	}
	return err
}

// dockerInspect holds the relevant fields from docker inspect
type dockerInspect struct {
	Name  string `json:"Name"`
	State struct {
		Status    string `json:"Status"`
		Running   bool   `json:"Running"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
	Config struct {
		Image string `json:"Image"`
	} `json:"Config"`
	HostConfig struct {
		Memory   int64 `json:"Memory"`
		NanoCpus int64 `json:"NanoCpus"`
	} `json:"HostConfig"`
	NetworkSettings struct {
		IPAddress string `json:"IPAddress"`
		Networks  map[string]struct {
			IPAddress string `json:"IPAddress"`
		} `json:"Networks"`
	} `json:"NetworkSettings"`
}

func statusFromState(state string) ContainerStatus {
	switch strings.ToLower(state) {
	case "running":
		return StatusRunning
	case "exited", "stopped", "created", "configured", "dead":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// Status returns detailed status of a container
func (r *DockerRuntime) Status(ctx context.Context, name string) (*ContainerInfo, error) {
	info := &ContainerInfo{
		Name:   name,
		Status: StatusNotFound,
	}

	output, err := r.runCmd(ctx, "inspect", "--type", "container", name)
	if err != nil {
		if isNoSuchContainer(output, err) {
			return info, nil
		}
		return nil, err
	}

	var inspects []dockerInspect
	if err := json.Unmarshal([]byte(output), &inspects); err != nil {
		return nil, fmt.Errorf("failed to parse inspect output for %s: %w", name, err)
	}

	if len(inspects) == 0 {
		return info, nil
	}

	inspect := inspects[0]
	info.Status = statusFromState(inspect.State.Status)
	info.StartedAt = inspect.State.StartedAt
	info.Image = inspect.Config.Image
	info.MemoryBytes = inspect.HostConfig.Memory
	info.NanoCPUs = inspect.HostConfig.NanoCpus
	info.IPAddress = inspect.NetworkSettings.IPAddress
	if info.IPAddress == "" {
		for _, n := range inspect.NetworkSettings.Networks {
			if n.IPAddress != "" {
				info.IPAddress = n.IPAddress
				break
			}
		}
	}

	return info, nil
}

// List returns all containers whose names start with prefix
func (r *DockerRuntime) List(ctx context.Context, prefix string) ([]*ContainerInfo, error) {
	args := []string{"ps", "-a", "--format", "{{.Names}}\t{{.State}}\t{{.Image}}"}
	if prefix != "" {
		args = append(args, "--filter", "name="+prefix)
	}
	output, err := r.runCmd(ctx, args...)
	if err != nil {
		return nil, err
	}

	var containers []*ContainerInfo
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		name := fields[0]
		// The name filter is a substring match; keep only true prefixes.
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		info := &ContainerInfo{Name: name, Status: StatusUnknown}
		if len(fields) > 1 {
			info.Status = statusFromState(fields[1])
		}
		if len(fields) > 2 {
			info.Image = fields[2]
		}
		containers = append(containers, info)
	}

	return containers, nil
}

// Logs returns the last tail lines of container output
func (r *DockerRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	if tail <= 0 {
		tail = 100
	}
	return r.runCmd(ctx, "logs", "--tail", strconv.Itoa(tail), name)
}

// FollowLogs streams container output to the terminal until interrupted
func (r *DockerRuntime) FollowLogs(ctx context.Context, name string) error {
	return r.Executor.ExecuteInteractive(ctx, r.Command, "logs", "-f", name)
}

// UpdateMemory sets the memory and swap limits so the container cannot swap past the limit
func (r *DockerRuntime) UpdateMemory(ctx context.Context, name string, bytes int64) error {
	limit := strconv.FormatInt(bytes, 10)
	logging.Debug("updating memory", "container", name, "bytes", limit)

	_, err := r.runCmd(ctx, "update", "--memory", limit, "--memory-swap", limit, name)
	return err
}

// UpdateCPUs sets the CPU limit
func (r *DockerRuntime) UpdateCPUs(ctx context.Context, name string, cpus float64) error {
	value := strconv.FormatFloat(cpus, 'f', -1, 64)
	logging.Debug("updating cpus", "container", name, "cpus", value)

	_, err := r.runCmd(ctx, "update", "--cpus", value, name)
	return err
}

// Ensure DockerRuntime implements Runtime and LogFollower
var (
	_ Runtime     = (*DockerRuntime)(nil)
	_ LogFollower = (*DockerRuntime)(nil)
)
