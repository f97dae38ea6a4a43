package provision

import (
	"context"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

// Coordinator composes the registry and the lifecycle adapter.
type Coordinator struct {
	registry   registry.Registry
	containers *lifecycle.Adapter
	names      naming.Resolver
	audit      audit.Recorder
}

// New creates a Coordinator. A nil recorder discards audit events.
func New(reg registry.Registry, containers *lifecycle.Adapter, rec audit.Recorder) *Coordinator {
	if rec == nil {
		rec = audit.Discard{}
	}
	return &Coordinator{
		registry:   reg,
		containers: containers,
		names:      containers.Resolver(),
		audit:      rec,
	}
}

// Registry returns the assignment store.
func (c *Coordinator) Registry() registry.Registry {
	return c.registry
}

// Containers returns the lifecycle adapter.
func (c *Coordinator) Containers() *lifecycle.Adapter {
	return c.containers
}

func (c *Coordinator) record(eventType audit.EventType, subject, details string) {
	if err := c.audit.LogEvent(eventType, subject, details); err != nil {
		logging.Warn("failed to write audit event", "type", eventType, "subject", subject, "error", err)
	}
}

// grantContainer grants the entity READ on the first candidate connection of
// container that is registered. It returns the connection name used.
func (c *Coordinator) grantContainer(ctx context.Context, entityID int64, container string) (string, bool, error) {
	candidates := c.names.ConnectionCandidates(container)
	if len(candidates) == 0 {
		return "", false, errors.Validation("%q is not a lab container name", container)
	}

	for _, name := range candidates {
		connID, err := c.registry.FindConnectionID(ctx, name)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return "", false, err
		}

		created, err := c.registry.Grant(ctx, entityID, connID)
		if err != nil {
			return "", false, err
		}
		return name, created, nil
	}

	return "", false, errors.NotFound("connection", strings.Join(candidates, " or "))
}

// revokeContainer removes every grant on the connections a container maps to.
func (c *Coordinator) revokeContainer(ctx context.Context, container string) (int, error) {
	revoked := 0
	for _, name := range c.names.ConnectionCandidates(container) {
		connID, err := c.registry.FindConnectionID(ctx, name)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return revoked, err
		}
		n, err := c.registry.RevokeConnection(ctx, connID)
		if err != nil {
			return revoked, err
		}
		revoked += n
	}
	return revoked, nil
}

// heldBy reports whether any of conns is a candidate connection of container.
func (c *Coordinator) heldBy(conns []registry.Connection, container string) bool {
	for _, conn := range conns {
		if c.names.MatchesContainer(conn.Name, container) {
			return true
		}
	}
	return false
}
