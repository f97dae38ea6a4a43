package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
)

const (
	DefaultConfigPath = "/etc/lab-ctl/config.toml"
	DefaultStateDir   = "/var/lib/lab-ctl"

	// ConfigEnv names the environment variable that overrides the config path.
	ConfigEnv = "LABCTL_CONFIG"
)

// Registry database defaults, matching the stock Guacamole deployment.
const (
	DefaultDBHost = "guacamole-mariadb"
	DefaultDBPort = "3306"
	DefaultDBUser = "ptdbuser"
	DefaultDBPass = "ptdbpass"
	DefaultDBName = "guacamole_db"
)

var prefixRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Config is the lab-ctl configuration, loaded from a TOML file.
type Config struct {
	StateDir string         `toml:"state_dir"`
	Naming   NamingConfig   `toml:"naming"`
	Registry RegistryConfig `toml:"registry"`
	Runtime  RuntimeConfig  `toml:"runtime"`
}

// NamingConfig holds the container and connection name prefixes.
type NamingConfig struct {
	ContainerPrefix  string `toml:"container_prefix"`
	ConnectionPrefix string `toml:"connection_prefix"`
}

// RegistryConfig selects the assignment store database.
type RegistryConfig struct {
	Driver string `toml:"driver"` // "mysql" or "sqlite"
	DSN    string `toml:"dsn"`
}

// RuntimeConfig holds the container runtime and the options every new
// container gets.
type RuntimeConfig struct {
	Command   string   `toml:"command"` // "docker", "podman" or "auto"
	Image     string   `toml:"image"`
	Memory    string   `toml:"memory"`
	CPUs      string   `toml:"cpus"`
	Network   string   `toml:"network"`
	Restart   string   `toml:"restart"`
	DNS       []string `toml:"dns"`
	Volumes   []string `toml:"volumes"`
	Env       []string `toml:"env"`
	ExtraArgs string   `toml:"extra_args"` // shell-quoted, appended to create
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		StateDir: DefaultStateDir,
		Naming: NamingConfig{
			ContainerPrefix:  naming.DefaultContainerPrefix,
			ConnectionPrefix: naming.DefaultConnectionPrefix,
		},
		Registry: RegistryConfig{
			Driver: "mysql",
			DSN:    MySQLDSN(DefaultDBHost, DefaultDBUser, DefaultDBPass, DefaultDBName),
		},
		Runtime: RuntimeConfig{
			Command: "auto",
			Image:   "ptvnc",
			Memory:  "512M",
			CPUs:    "0.5",
			Network: "pt-stack",
			Restart: "unless-stopped",
			Volumes: []string{"pt_opt:/opt/pt"},
		},
	}
}

// Resolver returns the naming rules this configuration selects.
func (c *Config) Resolver() naming.Resolver {
	return naming.Resolver{
		ContainerPrefix:  c.Naming.ContainerPrefix,
		ConnectionPrefix: c.Naming.ConnectionPrefix,
	}
}

// AuditDir returns the directory audit events are written under.
func (c *Config) AuditDir() string {
	return filepath.Join(c.StateDir, "audit")
}

// Validate checks that the Config is valid.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if !filepath.IsAbs(c.StateDir) {
		return fmt.Errorf("state_dir must be an absolute path (got %q)", c.StateDir)
	}

	if !prefixRegex.MatchString(c.Naming.ContainerPrefix) {
		return fmt.Errorf("invalid naming.container_prefix %q", c.Naming.ContainerPrefix)
	}
	if !prefixRegex.MatchString(c.Naming.ConnectionPrefix) {
		return fmt.Errorf("invalid naming.connection_prefix %q", c.Naming.ConnectionPrefix)
	}

	switch c.Registry.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("invalid registry.driver: %s (must be mysql or sqlite)", c.Registry.Driver)
	}
	if c.Registry.DSN == "" {
		return fmt.Errorf("registry.dsn is required")
	}
	if c.Registry.Driver == "mysql" {
		if _, err := mysql.ParseDSN(c.Registry.DSN); err != nil {
			return fmt.Errorf("invalid registry.dsn: %w", err)
		}
	}

	validCommands := map[string]bool{"auto": true, "docker": true, "podman": true, "": true}
	if !validCommands[c.Runtime.Command] {
		return fmt.Errorf("invalid runtime.command: %s (must be auto, docker, or podman)", c.Runtime.Command)
	}
	if c.Runtime.Image == "" {
		return fmt.Errorf("runtime.image is required")
	}

	return nil
}

// MySQLDSN builds a go-sql-driver DSN for the registry database. host may
// carry a port; 3306 is assumed otherwise.
func MySQLDSN(host, user, pass, dbName string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, DefaultDBPort)
	}
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = dbName
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// applyEnv rebuilds the MySQL DSN when any of DB_HOST, DB_USER, DB_PASS or
// DB_NAME is set. Unset variables keep their defaults.
func (c *Config) applyEnv(getenv func(string) string) {
	host, user, pass, name := getenv("DB_HOST"), getenv("DB_USER"), getenv("DB_PASS"), getenv("DB_NAME")
	if host == "" && user == "" && pass == "" && name == "" {
		return
	}
	if host == "" {
		host = DefaultDBHost
	}
	if user == "" {
		user = DefaultDBUser
	}
	if pass == "" {
		pass = DefaultDBPass
	}
	if name == "" {
		name = DefaultDBName
	}
	c.Registry.Driver = "mysql"
	c.Registry.DSN = MySQLDSN(host, user, pass, name)
}

// ResolvePath picks the config file: the explicit flag, then $LABCTL_CONFIG,
// then the default location.
func ResolvePath(flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(ConfigEnv); env != "" {
		return env, true
	}
	return DefaultConfigPath, false
}

// Load reads the configuration at path over the defaults. A missing file is
// only an error when the path was asked for explicitly.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnv(os.Getenv)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
