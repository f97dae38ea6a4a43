package integration

import (
	"os"
	"testing"
)

func TestHarnessSkipsWhenDisabled(t *testing.T) {
	if os.Getenv(EnableEnv) != "" {
		t.Skip("integration tests are enabled")
	}

	skipped := t.Run("harness", func(t *testing.T) {
		NewHarness(t)
		t.Error("NewHarness should have skipped")
	})
	if !skipped {
		t.Error("subtest should report success after skipping")
	}
}

func TestTestNames(t *testing.T) {
	if TestNames.ContainerPrefix == "ptvnc" || TestNames.ConnectionPrefix == "pt" {
		t.Error("test names must not overlap the lab defaults")
	}
	if got := TestNames.ConnectionCandidates("labit1"); len(got) != 2 || got[0] != "labitc01" {
		t.Errorf("ConnectionCandidates(labit1) = %v", got)
	}
}
