// Package lifecycle manages lab containers on top of a container runtime.
package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

// DefaultLogTail is the number of log lines returned when none is requested.
const DefaultLogTail = 100

// Container is the caller-facing view of a lab container.
type Container struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Image     string `json:"image,omitempty"`
	Memory    string `json:"memory,omitempty"`
	CPUs      string `json:"cpus,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

func fromInfo(info *runtime.ContainerInfo, withResources bool) Container {
	c := Container{
		Name:      info.Name,
		Status:    string(info.Status),
		Image:     info.Image,
		IPAddress: info.IPAddress,
	}
	if withResources {
		c.Memory = info.Memory()
		c.CPUs = info.CPUs()
	}
	return c
}

// Defaults are applied to every container the adapter creates.
type Defaults struct {
	Image   string
	Memory  string
	CPUs    string
	Network string
	Restart string
	DNS     []string
	Volumes []string
	Env     []string
}

// Limits are the resources Tune applies. A zero field is left unchanged.
type Limits struct {
	MemoryBytes int64
	CPUs        float64
}

// TuneResult reports which limits were applied.
type TuneResult struct {
	MemoryApplied bool `json:"memory_applied"`
	CPUsApplied   bool `json:"cpus_applied"`
}

// Adapter exposes validated lifecycle operations on lab containers.
// It holds no cache: every query reads through to the runtime.
type Adapter struct {
	rt       runtime.Runtime
	names    naming.Resolver
	defaults Defaults
	locks    *keyedMutex
}

// New creates an Adapter.
func New(rt runtime.Runtime, names naming.Resolver, defaults Defaults) *Adapter {
	return &Adapter{
		rt:       rt,
		names:    names,
		defaults: defaults,
		locks:    newKeyedMutex(),
	}
}

// Resolver returns the naming rules the adapter enforces.
func (a *Adapter) Resolver() naming.Resolver {
	return a.names
}

// Runtime returns the underlying runtime.
func (a *Adapter) Runtime() runtime.Runtime {
	return a.rt
}

// probe returns the container's status, mapping absence to NotFound.
func (a *Adapter) probe(ctx context.Context, name string) (*runtime.ContainerInfo, error) {
	info, err := a.rt.Status(ctx, name)
	if err != nil {
		return nil, errors.AdapterFailed("inspect container "+name, err)
	}
	if !info.Status.Exists() {
		return nil, errors.NotFound("container", name)
	}
	return info, nil
}

// Create creates and starts a container. An empty name picks the next free
// numeric suffix; an empty image uses the configured default. The name is
// validated before the runtime is touched. It returns the container name.
func (a *Adapter) Create(ctx context.Context, name, image string) (string, error) {
	if name == "" {
		existing, err := a.listNames(ctx)
		if err != nil {
			return "", err
		}
		name = a.names.NextContainerName(existing)
		logging.Debug("auto-generated container name", "name", name)
	} else if err := a.names.ValidateContainerName(name); err != nil {
		return "", errors.Validation("%v", err)
	}

	if image == "" {
		image = a.defaults.Image
	}
	if image == "" {
		return "", errors.Validation("no image given and no default image configured")
	}

	unlock := a.locks.Lock(name)
	defer unlock()

	info, err := a.rt.Status(ctx, name)
	if err != nil {
		return "", errors.AdapterFailed("inspect container "+name, err)
	}
	if info.Status != runtime.StatusNotFound {
		return "", errors.AlreadyExists("container", name)
	}

	opts := runtime.CreateOptions{
		Name:    name,
		Image:   image,
		Start:   true,
		Memory:  a.defaults.Memory,
		CPUs:    a.defaults.CPUs,
		Network: a.defaults.Network,
		Restart: a.defaults.Restart,
		DNS:     a.defaults.DNS,
		Volumes: a.defaults.Volumes,
		Env:     a.defaults.Env,
	}
	if err := a.rt.Create(ctx, opts); err != nil {
		return "", errors.AdapterFailed("create container "+name, err)
	}

	logging.Info("container created", "name", name, "image", image)
	return name, nil
}

func (a *Adapter) act(ctx context.Context, verb, name string, fn func(context.Context, string) error) error {
	unlock := a.locks.Lock(name)
	defer unlock()

	if _, err := a.probe(ctx, name); err != nil {
		return err
	}
	if err := fn(ctx, name); err != nil {
		return errors.AdapterFailed(verb+" container "+name, err)
	}
	logging.Debug("container "+verb, "name", name)
	return nil
}

// Start starts a stopped container.
func (a *Adapter) Start(ctx context.Context, name string) error {
	return a.act(ctx, "start", name, a.rt.Start)
}

// Stop stops a running container.
func (a *Adapter) Stop(ctx context.Context, name string) error {
	return a.act(ctx, "stop", name, a.rt.Stop)
}

// Restart restarts a container.
func (a *Adapter) Restart(ctx context.Context, name string) error {
	return a.act(ctx, "restart", name, a.rt.Restart)
}

// Delete removes a container.
func (a *Adapter) Delete(ctx context.Context, name string) error {
	return a.act(ctx, "delete", name, a.rt.Destroy)
}

// Tune applies memory and CPU limits independently. When only one of the
// two lands the error is a partial-completion warning.
func (a *Adapter) Tune(ctx context.Context, name string, limits Limits) (TuneResult, error) {
	var result TuneResult
	if limits.MemoryBytes < 0 || limits.CPUs < 0 || (limits.MemoryBytes == 0 && limits.CPUs == 0) {
		return result, errors.Validation("tune container %s: no valid memory or cpu limit given", name)
	}

	unlock := a.locks.Lock(name)
	defer unlock()

	if _, err := a.probe(ctx, name); err != nil {
		return result, err
	}

	var errs []error
	attempted := 0
	if limits.MemoryBytes > 0 {
		attempted++
		if err := a.rt.UpdateMemory(ctx, name, limits.MemoryBytes); err != nil {
			errs = append(errs, fmt.Errorf("memory: %w", err))
		} else {
			result.MemoryApplied = true
		}
	}
	if limits.CPUs > 0 {
		attempted++
		if err := a.rt.UpdateCPUs(ctx, name, limits.CPUs); err != nil {
			errs = append(errs, fmt.Errorf("cpus: %w", err))
		} else {
			result.CPUsApplied = true
		}
	}

	if len(errs) == 0 {
		logging.Debug("container tuned", "name", name, "memory_bytes", limits.MemoryBytes, "cpus", limits.CPUs)
		return result, nil
	}

	joined := stderrors.Join(errs...)
	if len(errs) < attempted {
		return result, errors.Partial("tune container "+name+" applied only some limits", joined)
	}
	return result, errors.AdapterFailed("tune container "+name, joined)
}

// Get returns one container with its resource limits.
func (a *Adapter) Get(ctx context.Context, name string) (Container, error) {
	info, err := a.probe(ctx, name)
	if err != nil {
		return Container{}, err
	}
	return fromInfo(info, true), nil
}

// List returns the lab containers currently known to the runtime, ordered by
// numeric suffix and then by name.
func (a *Adapter) List(ctx context.Context) ([]Container, error) {
	infos, err := a.rt.List(ctx, a.names.ContainerPrefix)
	if err != nil {
		return nil, errors.AdapterFailed("list containers", err)
	}

	containers := make([]Container, 0, len(infos))
	for _, info := range infos {
		if _, ok := a.names.Suffix(info.Name); !ok {
			continue
		}
		containers = append(containers, fromInfo(info, false))
	}

	sort.SliceStable(containers, func(i, j int) bool {
		ni, iok := a.names.NumericSuffix(containers[i].Name)
		nj, jok := a.names.NumericSuffix(containers[j].Name)
		switch {
		case iok && jok && ni != nj:
			return ni < nj
		case iok != jok:
			return iok
		default:
			return containers[i].Name < containers[j].Name
		}
	})

	return containers, nil
}

func (a *Adapter) listNames(ctx context.Context) ([]string, error) {
	containers, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(containers))
	for i, c := range containers {
		names[i] = c.Name
	}
	return names, nil
}

// Logs returns the last tail lines of a container's output.
func (a *Adapter) Logs(ctx context.Context, name string, tail int) ([]string, error) {
	if _, err := a.probe(ctx, name); err != nil {
		return nil, err
	}
	if tail <= 0 {
		tail = DefaultLogTail
	}
	out, err := a.rt.Logs(ctx, name, tail)
	if err != nil {
		return nil, errors.AdapterFailed("logs for container "+name, err)
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return []string{}, nil
	}
	return strings.Split(out, "\n"), nil
}

// Follow streams a container's output to the terminal.
func (a *Adapter) Follow(ctx context.Context, name string) error {
	follower, ok := a.rt.(runtime.LogFollower)
	if !ok {
		return errors.New(errors.ExitGeneralError, fmt.Sprintf("runtime %s cannot follow logs", a.rt.Name()))
	}
	if _, err := a.probe(ctx, name); err != nil {
		return err
	}
	return follower.FollowLogs(ctx, name)
}
