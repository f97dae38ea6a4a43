package registry

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
)

// PermissionRead is the connection permission an assignment grants.
const PermissionRead = "READ"

// PermissionAdminister is the system permission of an elevated account.
const PermissionAdminister = "ADMINISTER"

// Connection is a pre-registered remote-desktop endpoint.
type Connection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is a registry user with its privilege flag and held connections.
type Account struct {
	EntityID    int64        `json:"entity_id"`
	Username    string       `json:"username"`
	Elevated    bool         `json:"elevated"`
	Connections []Connection `json:"connections"`
}

// Registry is the assignment store: accounts, connections and the READ
// grants between them. Every call is a single round trip or transaction;
// batching is the caller's job.
type Registry interface {
	// FindAccountEntity returns the entity id of a user account, or a
	// not-found error.
	FindAccountEntity(ctx context.Context, username string) (int64, error)

	// FindConnectionID returns the id of a connection by exact name, or a
	// not-found error.
	FindConnectionID(ctx context.Context, name string) (int64, error)

	// ListConnections returns every registered connection ordered by name.
	ListConnections(ctx context.Context) ([]Connection, error)

	// ListAssignments returns the connections an entity holds READ on.
	ListAssignments(ctx context.Context, entityID int64) ([]Connection, error)

	// Grant gives an entity READ on a connection. created is false when the
	// grant was already held.
	Grant(ctx context.Context, entityID, connectionID int64) (created bool, err error)

	// RevokeAll removes every connection grant an entity holds.
	RevokeAll(ctx context.Context, entityID int64) (int, error)

	// RevokeConnection removes every grant on a connection.
	RevokeConnection(ctx context.Context, connectionID int64) (int, error)

	// CreateAccount creates a user account and returns its entity id.
	CreateAccount(ctx context.Context, username, secret string) (int64, error)

	// DeleteAccount removes a user account together with all its permissions.
	DeleteAccount(ctx context.Context, username string) error

	// ResetPassword replaces an account's credential.
	ResetPassword(ctx context.Context, username, secret string) error

	// SetElevated grants or revokes the ADMINISTER system permission.
	SetElevated(ctx context.Context, username string, elevated bool) error

	// ListAccounts returns every user account ordered by username.
	ListAccounts(ctx context.Context) ([]Account, error)

	// CountAccounts returns the number of user accounts.
	CountAccounts(ctx context.Context) (int, error)
}

// Defaults for registered VNC connections.
const (
	ProtocolVNC    = "vnc"
	DefaultVNCPort = 5901
	GuacdHostname  = "guacd"
	GuacdPort      = 4822
)

// VNCConnection describes a container's VNC endpoint as Guacamole sees it.
type VNCConnection struct {
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	Password string `json:"-"`
}

// Parameters returns the guacamole_connection_parameter rows for c. An
// empty password is omitted.
func (c VNCConnection) Parameters() map[string]string {
	params := map[string]string{
		"hostname": c.Hostname,
		"port":     fmt.Sprint(c.Port),
	}
	if c.Password != "" {
		params["password"] = c.Password
	}
	return params
}

func (c VNCConnection) validate() error {
	if c.Name == "" {
		return errors.Validation("connection name is required")
	}
	if c.Hostname == "" {
		return errors.Validation("hostname is required for connection %s", c.Name)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Validation("invalid port %d for connection %s", c.Port, c.Name)
	}
	return nil
}

// ConnectionRegistrar registers connections. It is kept out of Registry:
// assignment never creates connections.
type ConnectionRegistrar interface {
	// RegisterConnection creates conn with its parameters, or returns the
	// id of the existing connection of that name with created false.
	RegisterConnection(ctx context.Context, conn VNCConnection) (id int64, created bool, err error)
}
