package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// WriteFixture copies a fixture into dir and returns its path.
func WriteFixture(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := LoadFixture(name)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}

// LoadConfigFixture decodes a TOML config fixture through config.Load.
func LoadConfigFixture(t *testing.T, name string) (*config.Config, error) {
	t.Helper()
	return config.Load(WriteFixture(t, t.TempDir(), name), true)
}

// ValidConfig returns the valid config fixture.
func ValidConfig(t *testing.T) (*config.Config, error) {
	t.Helper()
	return LoadConfigFixture(t, "lab_config.toml")
}

// InvalidConfig loads the invalid config fixture; the error is expected.
func InvalidConfig(t *testing.T) (*config.Config, error) {
	t.Helper()
	return LoadConfigFixture(t, "invalid_config.toml")
}
