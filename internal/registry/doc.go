// Package registry is the assignment store for lab-ctl. It reads and
// writes the Apache Guacamole 1.x authentication schema:
//
//	guacamole_entity                  users (type USER) by name
//	guacamole_user                    credential hash and salt per entity
//	guacamole_connection              pre-registered connections (pt01, pt-lab, ...)
//	guacamole_connection_parameter    hostname, port and password of a connection
//	guacamole_connection_permission   (entity, connection, READ) assignments
//	guacamole_system_permission       ADMINISTER marks an elevated account
//	guacamole_user_permission         per-user permissions, cleared on delete
//
// BunRegistry talks to MySQL/MariaDB in production and to SQLite in tests
// through github.com/uptrace/bun. MockRegistry is an in-memory stand-in
// with error injection.
//
// Credentials use Guacamole's salted SHA-256: the digest of the password
// followed by the uppercase hex encoding of a random 32-byte salt.
//
// The Registry interface never creates connections; assignment only looks
// them up. ConnectionRegistrar is the separate, explicit path used by
// "lab-ctl containers register" and "lab-ctl schema init".
package registry
