// Package testutil provides test fixtures and a mock-backed application.
//
// # Test Environment
//
// NewTestEnv installs an app.App over a mock runtime and a mock registry as
// app.Default, so commands run without docker or a database:
//
//	env := testutil.NewTestEnv(t)
//	env.AddSeat("ptvnc1", "pt01")
//	env.AddAccount("alice", "pt01")
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/lab_config.toml     - a complete valid configuration
//	fixtures/invalid_config.toml - a configuration Validate rejects
//	fixtures/students.csv        - bulk account input, CSV form
//	fixtures/students.json       - bulk account input, JSON form
//
// ValidConfig and InvalidConfig run the TOML fixtures through config.Load;
// WriteFixture copies any fixture to disk for commands that take a path.
package testutil
