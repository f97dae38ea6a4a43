// Package integration provides a test harness for integration tests
// that require an actual container runtime.
//
// Integration tests are skipped unless the LABCTL_INTEGRATION_TESTS
// environment variable is set. These tests require:
//   - A docker or podman daemon the current user can reach
//   - The test image (LABCTL_TEST_IMAGE, default nginx:alpine) or network
//     access to pull it
//
// The registry is a SQLite file in the test's temporary directory, and
// containers use a dedicated name prefix so real lab containers are never
// touched.
//
// # Test Harness
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if env var not set
//	    h.RegisterConnection("labitc01")
//	    res, err := h.Coordinator().ProvisionAccounts(ctx, specs)
//	    h.RequireRunning("labit1")
//	}
//
// Containers created through the harness coordinator are removed when the
// test ends.
//
// Run with: LABCTL_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
package integration
