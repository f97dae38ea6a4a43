package registry

import (
	"time"

	"github.com/uptrace/bun"
)

const entityTypeUser = "USER"

type entityRecord struct {
	bun.BaseModel `bun:"table:guacamole_entity,alias:e"`

	EntityID int64  `bun:"entity_id,pk,autoincrement"`
	Name     string `bun:"name,notnull,unique:entity_name_type"`
	Type     string `bun:"type,notnull,unique:entity_name_type"`
}

type userRecord struct {
	bun.BaseModel `bun:"table:guacamole_user,alias:u"`

	UserID       int64     `bun:"user_id,pk,autoincrement"`
	EntityID     int64     `bun:"entity_id,notnull,unique"`
	PasswordHash []byte    `bun:"password_hash,notnull"`
	PasswordSalt []byte    `bun:"password_salt"`
	PasswordDate time.Time `bun:"password_date,notnull"`
	Disabled     bool      `bun:"disabled,notnull"`
	Expired      bool      `bun:"expired,notnull"`
}

type connectionRecord struct {
	bun.BaseModel `bun:"table:guacamole_connection,alias:c"`

	ConnectionID          int64  `bun:"connection_id,pk,autoincrement"`
	ConnectionName        string `bun:"connection_name,notnull"`
	Protocol              string `bun:"protocol,notnull"`
	ProxyPort             int    `bun:"proxy_port,nullzero"`
	ProxyHostname         string `bun:"proxy_hostname,nullzero"`
	ProxyEncryptionMethod string `bun:"proxy_encryption_method,nullzero"`
	MaxConnections        int    `bun:"max_connections,nullzero"`
	MaxConnectionsPerUser int    `bun:"max_connections_per_user,nullzero"`
	FailoverOnly          bool   `bun:"failover_only,notnull"`
}

type connectionParameterRecord struct {
	bun.BaseModel `bun:"table:guacamole_connection_parameter,alias:cpar"`

	ConnectionID   int64  `bun:"connection_id,pk"`
	ParameterName  string `bun:"parameter_name,pk"`
	ParameterValue string `bun:"parameter_value,notnull"`
}

type connectionPermissionRecord struct {
	bun.BaseModel `bun:"table:guacamole_connection_permission,alias:cp"`

	EntityID     int64  `bun:"entity_id,pk"`
	ConnectionID int64  `bun:"connection_id,pk"`
	Permission   string `bun:"permission,pk"`
}

type systemPermissionRecord struct {
	bun.BaseModel `bun:"table:guacamole_system_permission,alias:sp"`

	EntityID   int64  `bun:"entity_id,pk"`
	Permission string `bun:"permission,pk"`
}

type userPermissionRecord struct {
	bun.BaseModel `bun:"table:guacamole_user_permission,alias:up"`

	EntityID       int64  `bun:"entity_id,pk"`
	AffectedUserID int64  `bun:"affected_user_id,pk"`
	Permission     string `bun:"permission,pk"`
}

type sharingProfilePermissionRecord struct {
	bun.BaseModel `bun:"table:guacamole_sharing_profile_permission,alias:spp"`

	EntityID         int64  `bun:"entity_id,pk"`
	SharingProfileID int64  `bun:"sharing_profile_id,pk"`
	Permission       string `bun:"permission,pk"`
}

// schemaModels lists the tables EnsureSchema creates, parents first.
var schemaModels = []any{
	(*entityRecord)(nil),
	(*userRecord)(nil),
	(*connectionRecord)(nil),
	(*connectionParameterRecord)(nil),
	(*connectionPermissionRecord)(nil),
	(*systemPermissionRecord)(nil),
	(*userPermissionRecord)(nil),
	(*sharingProfilePermissionRecord)(nil),
}

func (c connectionRecord) toConnection() Connection {
	return Connection{ID: c.ConnectionID, Name: c.ConnectionName}
}
