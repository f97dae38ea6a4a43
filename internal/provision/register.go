package provision

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
)

// Registration reports the connection a container is reachable through.
type Registration struct {
	Container    string `json:"container"`
	Connection   string `json:"connection"`
	ConnectionID int64  `json:"connection_id"`
	Hostname     string `json:"hostname"`
	Port         int    `json:"port"`
	Created      bool   `json:"created"`
}

// RegisterContainer registers container as a VNC connection. Empty fields
// of conn default to the container as hostname and DefaultVNCPort. With no
// connection name, a registered candidate connection is reused; otherwise
// the last candidate (pt7 for ptvnc7) is created.
//
// Registration is an explicit operator step. Provisioning and assignment
// never call it.
func (c *Coordinator) RegisterContainer(ctx context.Context, container string, conn registry.VNCConnection) (*Registration, error) {
	registrar, ok := c.registry.(registry.ConnectionRegistrar)
	if !ok {
		return nil, errors.ConfigError("the configured registry cannot register connections", nil)
	}
	if err := c.names.ValidateContainerName(container); err != nil {
		return nil, errors.Validation("%v", err)
	}

	if conn.Hostname == "" {
		conn.Hostname = container
	}
	if conn.Port == 0 {
		conn.Port = registry.DefaultVNCPort
	}

	if conn.Name == "" {
		candidates := c.names.ConnectionCandidates(container)
		for _, name := range candidates {
			id, err := c.registry.FindConnectionID(ctx, name)
			if errors.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			logging.Debug("container already registered", "container", container, "connection", name)
			return &Registration{Container: container, Connection: name, ConnectionID: id,
				Hostname: conn.Hostname, Port: conn.Port}, nil
		}
		conn.Name = candidates[len(candidates)-1]
	}

	id, created, err := registrar.RegisterConnection(ctx, conn)
	if err != nil {
		return nil, err
	}
	if created {
		c.record(audit.EventContainerRegister, container, fmt.Sprintf("connection=%s host=%s:%d", conn.Name, conn.Hostname, conn.Port))
	}
	logging.Info("container registered", "container", container, "connection", conn.Name, "id", id, "created", created)

	return &Registration{
		Container:    container,
		Connection:   conn.Name,
		ConnectionID: id,
		Hostname:     conn.Hostname,
		Port:         conn.Port,
		Created:      created,
	}, nil
}
