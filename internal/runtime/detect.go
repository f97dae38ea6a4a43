package runtime

import (
	"fmt"
	"os/exec"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/system"
)

// RuntimeType identifies which container runtime to use
type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// ExtraArgs is a shell-quoted string appended to every create
	ExtraArgs string

	// Executor overrides the command executor (tests)
	Executor system.CommandExecutor
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{
		Type: RuntimeAuto,
	}
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// Detect determines which container runtime is available on the system.
// Docker is preferred since the lab stack is deployed with compose.
func Detect() (RuntimeType, error) {
	if _, err := lookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return RuntimeDocker, nil
	}

	if _, err := lookPath("podman"); err == nil {
		logging.Debug("detected podman")
		return RuntimePodman, nil
	}

	return "", fmt.Errorf("no supported container runtime found (tried: docker, podman)")
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto, it auto-detects the best runtime.
func New(cfg *Config) (*DockerRuntime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeType := cfg.Type
	if runtimeType == "" || runtimeType == RuntimeAuto {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	switch runtimeType {
	case RuntimeDocker, RuntimePodman:
	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}

	extra, err := shellquote.Split(cfg.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid runtime extra_args %q: %w", cfg.ExtraArgs, err)
	}

	logging.Debug("creating runtime", "type", runtimeType, "extra_args", extra)

	rt := NewDockerRuntime(string(runtimeType), cfg.Executor)
	rt.ExtraArgs = extra
	return rt, nil
}
