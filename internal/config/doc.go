// Package config loads the lab-ctl configuration.
//
// # Configuration File
//
// Settings are read from a TOML file, /etc/lab-ctl/config.toml by default.
// The --config flag or the LABCTL_CONFIG environment variable point
// elsewhere. Every key is optional and falls back to a default:
//
//	state_dir = "/var/lib/lab-ctl"
//
//	[naming]
//	container_prefix  = "ptvnc"
//	connection_prefix = "pt"
//
//	[registry]
//	driver = "mysql"            # or "sqlite"
//	dsn    = "ptdbuser:ptdbpass@tcp(guacamole-mariadb:3306)/guacamole_db"
//
//	[runtime]
//	command    = "auto"         # docker, podman or auto
//	image      = "ptvnc"
//	memory     = "512M"
//	cpus       = "0.5"
//	network    = "pt-stack"
//	restart    = "unless-stopped"
//	volumes    = ["pt_opt:/opt/pt"]
//	extra_args = "--mount=type=bind,source=/srv/shared,target=/shared"
//
// # Environment
//
// DB_HOST, DB_USER, DB_PASS and DB_NAME override the registry DSN, as the
// Guacamole containers are usually configured that way.
//
// # Validation
//
// Load validates after parsing and rejects unknown keys, so a typo in a
// section name fails loudly instead of silently using a default.
package config
