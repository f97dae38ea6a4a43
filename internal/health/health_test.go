package health

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

var checkTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newChecker(rt *runtime.MockRuntime, reg registry.Registry) *Checker {
	c := NewChecker(lifecycle.New(rt, naming.Default(), lifecycle.Defaults{Image: "ptvnc"}), reg)
	c.now = func() time.Time { return checkTime }
	return c
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{50 * time.Hour, "2d 2h"},
		{-time.Second, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer("ptvnc1", runtime.StatusRunning)
	rt.AddContainer("ptvnc2", runtime.StatusRunning)
	rt.AddContainer("ptvnc3", runtime.StatusStopped)
	rt.Containers["ptvnc1"].StartedAt = checkTime.Add(-90 * time.Minute).Format(time.RFC3339Nano)

	reg := registry.NewMockRegistry()
	reg.AddConnection("pt1")
	reg.AddConnection("pt03")

	report := newChecker(rt, reg).Check(context.Background())

	want := []ContainerHealth{
		{Name: "ptvnc1", Status: StatusHealthy, Connection: "pt1", Uptime: "1h 30m"},
		{Name: "ptvnc2", Status: StatusUnreachable, Uptime: "unknown"},
		{Name: "ptvnc3", Status: StatusStopped, Connection: "pt03"},
	}
	if len(report.Containers) != len(want) {
		t.Fatalf("Containers = %+v", report.Containers)
	}
	for i, w := range want {
		if report.Containers[i] != w {
			t.Errorf("Containers[%d] = %+v, want %+v", i, report.Containers[i], w)
		}
	}

	if report.Healthy() {
		t.Error("an unreachable container should make the report unhealthy")
	}
	if counts := report.Counts(); counts[StatusHealthy] != 1 || counts[StatusUnreachable] != 1 || counts[StatusStopped] != 1 {
		t.Errorf("Counts() = %v", counts)
	}
	if calls := reg.GetCallsFor("ListConnections"); len(calls) != 1 {
		t.Errorf("ListConnections called %d times, want 1", len(calls))
	}
}

func TestCheck_Healthy(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer("ptvnc1", runtime.StatusRunning)
	reg := registry.NewMockRegistry()
	reg.AddConnection("pt01")

	report := newChecker(rt, reg).Check(context.Background())
	if !report.Healthy() {
		t.Errorf("report should be healthy: %+v", report)
	}
	if report.Runtime != "mock" {
		t.Errorf("Runtime = %q, want mock", report.Runtime)
	}
}

func TestCheck_BackendFailures(t *testing.T) {
	t.Run("runtime", func(t *testing.T) {
		rt := runtime.NewMockRuntime()
		rt.SetError("List", stderrors.New("daemon down"))

		report := newChecker(rt, registry.NewMockRegistry()).Check(context.Background())
		if report.RuntimeError == "" || report.Healthy() {
			t.Errorf("report = %+v, want runtime error", report)
		}
	})

	t.Run("registry", func(t *testing.T) {
		rt := runtime.NewMockRuntime()
		rt.AddContainer("ptvnc1", runtime.StatusRunning)
		reg := registry.NewMockRegistry()
		reg.SetError("ListConnections", stderrors.New("access denied"))

		report := newChecker(rt, reg).Check(context.Background())
		if report.RegistryError == "" || report.Healthy() {
			t.Errorf("report = %+v, want registry error", report)
		}
		if report.Containers[0].Status != StatusRunning {
			t.Errorf("status = %q, want running", report.Containers[0].Status)
		}
	})

	t.Run("no registry", func(t *testing.T) {
		rt := runtime.NewMockRuntime()
		rt.AddContainer("ptvnc1", runtime.StatusRunning)

		report := newChecker(rt, nil).Check(context.Background())
		if !report.Healthy() || report.Containers[0].Status != StatusRunning {
			t.Errorf("report = %+v", report)
		}
	})
}
