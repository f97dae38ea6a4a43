package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/batch"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

// Action is a bulk lifecycle verb.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// CreateContainers creates one container per entry of names. An empty entry
// takes the next free numeric suffix. The item detail is the created name.
func (c *Coordinator) CreateContainers(ctx context.Context, names []string, image string) (*batch.Result, error) {
	if len(names) == 0 {
		return nil, errors.Validation("no containers to create")
	}

	type target struct {
		index int
		name  string
	}
	targets := make([]target, len(names))
	for i, name := range names {
		targets[i] = target{index: i, name: name}
	}

	key := func(t target) string {
		if t.name == "" {
			return fmt.Sprintf("#%d", t.index+1)
		}
		return t.name
	}

	res := batch.Run(ctx, targets, key, func(ctx context.Context, t target) (string, error) {
		name, err := c.containers.Create(ctx, t.name, image)
		if err != nil {
			return "", err
		}
		c.record(audit.EventContainerCreate, name, "image="+image)
		return name, nil
	})

	logging.Info("containers created", "created", res.Succeeded, "failed", res.Failed)
	return res, nil
}

// ContainerAction applies a start, stop or restart to each named container.
func (c *Coordinator) ContainerAction(ctx context.Context, action Action, names []string) (*batch.Result, error) {
	var (
		fn        func(context.Context, string) error
		eventType audit.EventType
	)
	switch action {
	case ActionStart:
		fn, eventType = c.containers.Start, audit.EventContainerStart
	case ActionStop:
		fn, eventType = c.containers.Stop, audit.EventContainerStop
	case ActionRestart:
		fn, eventType = c.containers.Restart, audit.EventContainerRestart
	default:
		return nil, errors.Validation("unknown container action %q", action)
	}
	if len(names) == 0 {
		return nil, errors.Validation("no containers given")
	}

	res := batch.Run(ctx, names, batch.Identity, func(ctx context.Context, name string) (string, error) {
		if err := fn(ctx, name); err != nil {
			return "", err
		}
		c.record(eventType, name, "")
		return "", nil
	})
	return res, nil
}

// removeContainer deletes a container and then every grant on the
// connections it maps to.
func (c *Coordinator) removeContainer(ctx context.Context, name string) error {
	if err := c.containers.Delete(ctx, name); err != nil {
		return err
	}
	c.record(audit.EventContainerDelete, name, "")

	revoked, err := c.revokeContainer(ctx, name)
	if err != nil {
		return errors.Partial(fmt.Sprintf("container %s deleted but its grants were not revoked", name), err)
	}
	logging.Debug("revoked grants of deleted container", "name", name, "revoked", revoked)
	return nil
}

// RemoveContainer deletes a container and revokes every grant on it.
func (c *Coordinator) RemoveContainer(ctx context.Context, name string) error {
	return c.removeContainer(ctx, name)
}

// RemoveContainers deletes each named container and revokes its grants.
func (c *Coordinator) RemoveContainers(ctx context.Context, names []string) (*batch.Result, error) {
	if len(names) == 0 {
		return nil, errors.Validation("no containers given")
	}
	res := batch.Run(ctx, names, batch.Identity, func(ctx context.Context, name string) (string, error) {
		return "", c.removeContainer(ctx, name)
	})
	logging.Info("containers removed", "removed", res.Succeeded, "not_found", res.NotFound, "failed", res.Failed)
	return res, nil
}

// ParseLimits validates a memory and CPU request. At least one must be set.
func ParseLimits(memory, cpus string) (lifecycle.Limits, error) {
	var limits lifecycle.Limits
	memory = strings.TrimSpace(memory)
	cpus = strings.TrimSpace(cpus)

	if memory == "" && cpus == "" {
		return limits, errors.Validation("at least one of memory or cpus is required")
	}
	if memory != "" {
		b, err := runtime.ParseMemory(memory)
		if err != nil {
			return limits, errors.Validation("invalid memory %q: %v", memory, err)
		}
		limits.MemoryBytes = b
	}
	if cpus != "" {
		n, err := runtime.ParseCPUs(cpus)
		if err != nil {
			return limits, errors.Validation("invalid cpus %q: %v", cpus, err)
		}
		limits.CPUs = n
	}
	return limits, nil
}

// TuneSummary reports a tune request.
type TuneSummary struct {
	UpdatedCount int               `json:"updated_count"`
	Updated      []string          `json:"updated"`
	Failed       []string          `json:"failed"`
	Errors       map[string]string `json:"errors,omitempty"`
}

func limitDetails(memory, cpus string) string {
	var parts []string
	if memory != "" {
		parts = append(parts, "memory="+memory)
	}
	if cpus != "" {
		parts = append(parts, "cpus="+cpus)
	}
	return strings.Join(parts, " ")
}

func (c *Coordinator) tune(ctx context.Context, names []string, limits lifecycle.Limits, details string) *TuneSummary {
	res := batch.Run(ctx, names, batch.Identity, func(ctx context.Context, name string) (string, error) {
		_, err := c.containers.Tune(ctx, name, limits)
		if err != nil && !errors.IsPartial(err) {
			return "", err
		}
		c.record(audit.EventContainerTune, name, details)
		return "", err
	})

	failed := []string{}
	for _, item := range res.Items {
		if item.Kind != batch.KindSuccess {
			failed = append(failed, item.Key)
		}
	}
	return &TuneSummary{
		UpdatedCount: res.Succeeded,
		Updated:      res.Keys(batch.KindSuccess),
		Failed:       failed,
		Errors:       res.Errors(),
	}
}

// TuneAll applies limits to every lab container. The runtime is listed
// once; containers that appear afterwards are not touched.
func (c *Coordinator) TuneAll(ctx context.Context, memory, cpus string) (*TuneSummary, error) {
	limits, err := ParseLimits(memory, cpus)
	if err != nil {
		return nil, err
	}

	live, err := c.containers.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(live))
	for i, ctr := range live {
		names[i] = ctr.Name
	}

	summary := c.tune(ctx, names, limits, limitDetails(memory, cpus))
	logging.Info("containers tuned", "updated", summary.UpdatedCount, "failed", len(summary.Failed))
	return summary, nil
}

// TuneOne applies limits to a single container.
func (c *Coordinator) TuneOne(ctx context.Context, name, memory, cpus string) (*TuneSummary, error) {
	return c.TuneContainers(ctx, []string{name}, memory, cpus)
}

// TuneContainers applies limits to each named container.
func (c *Coordinator) TuneContainers(ctx context.Context, names []string, memory, cpus string) (*TuneSummary, error) {
	limits, err := ParseLimits(memory, cpus)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Validation("no containers given")
	}
	return c.tune(ctx, names, limits, limitDetails(memory, cpus)), nil
}

// ContainerStats counts lab containers by status.
type ContainerStats struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Stopped int `json:"stopped"`
}

// Stats is a point-in-time overview of the lab.
type Stats struct {
	Accounts   int            `json:"accounts"`
	Containers ContainerStats `json:"containers"`
}

// Stats counts accounts and containers.
func (c *Coordinator) Stats(ctx context.Context) (*Stats, error) {
	accounts, err := c.registry.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}
	live, err := c.containers.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Accounts: accounts}
	stats.Containers.Total = len(live)
	for _, ctr := range live {
		switch runtime.ContainerStatus(ctr.Status) {
		case runtime.StatusRunning:
			stats.Containers.Running++
		case runtime.StatusStopped:
			stats.Containers.Stopped++
		}
	}
	return stats, nil
}
