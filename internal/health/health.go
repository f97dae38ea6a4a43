package health

import (
	"context"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

// Status represents the health of one lab container
type Status string

const (
	// StatusHealthy: running, with a registered connection
	StatusHealthy Status = "healthy"
	// StatusUnreachable: running, but no candidate connection is registered
	StatusUnreachable Status = "unreachable"
	// StatusRunning: running; connections were not checked
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// ContainerHealth is the check result for one container
type ContainerHealth struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Connection string `json:"connection,omitempty"`
	Uptime     string `json:"uptime,omitempty"`
}

// Report is the result of a full lab check
type Report struct {
	Runtime       string            `json:"runtime"`
	RuntimeError  string            `json:"runtime_error,omitempty"`
	RegistryError string            `json:"registry_error,omitempty"`
	Containers    []ContainerHealth `json:"containers"`
}

// Healthy reports whether both backends answered and no running container
// is unreachable.
func (r *Report) Healthy() bool {
	if r.RuntimeError != "" || r.RegistryError != "" {
		return false
	}
	for _, c := range r.Containers {
		if c.Status == StatusUnreachable {
			return false
		}
	}
	return true
}

// Counts returns the number of containers per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, c := range r.Containers {
		counts[c.Status]++
	}
	return counts
}

// Checker inspects the runtime and the registry together.
type Checker struct {
	containers *lifecycle.Adapter
	registry   registry.Registry
	now        func() time.Time
}

// NewChecker creates a checker. A nil registry skips connection checks.
func NewChecker(containers *lifecycle.Adapter, reg registry.Registry) *Checker {
	return &Checker{containers: containers, registry: reg, now: time.Now}
}

// Check lists the lab containers once and the registered connections once,
// then matches them using the naming rules.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{
		Runtime:    c.containers.Runtime().Name(),
		Containers: []ContainerHealth{},
	}

	live, err := c.containers.List(ctx)
	if err != nil {
		report.RuntimeError = err.Error()
		return report
	}

	var registered map[string]bool
	if c.registry != nil {
		conns, err := c.registry.ListConnections(ctx)
		if err != nil {
			report.RegistryError = err.Error()
		} else {
			registered = make(map[string]bool, len(conns))
			for _, conn := range conns {
				registered[conn.Name] = true
			}
		}
	}

	names := c.containers.Resolver()
	for _, ctr := range live {
		h := ContainerHealth{Name: ctr.Name, Status: StatusStopped}
		if registered != nil {
			for _, cand := range names.ConnectionCandidates(ctr.Name) {
				if registered[cand] {
					h.Connection = cand
					break
				}
			}
		}

		if runtime.ContainerStatus(ctr.Status) == runtime.StatusRunning {
			switch {
			case registered == nil:
				h.Status = StatusRunning
			case h.Connection == "":
				h.Status = StatusUnreachable
			default:
				h.Status = StatusHealthy
			}
			h.Uptime = c.uptime(ctx, ctr.Name)
		}
		report.Containers = append(report.Containers, h)
	}

	return report
}

// uptime returns the container uptime in human-readable format.
func (c *Checker) uptime(ctx context.Context, name string) string {
	info, err := c.containers.Runtime().Status(ctx, name)
	if err != nil || info == nil {
		return "unknown"
	}

	since := info.StartedAt
	if since == "" || since == "n/a" {
		return "unknown"
	}

	// Try common timestamp formats
	var t time.Time
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
	}

	for _, format := range formats {
		if parsed, err := time.Parse(format, since); err == nil {
			t = parsed
			break
		}
	}

	if t.IsZero() {
		return since // Return raw value if can't parse
	}

	return formatDuration(c.now().Sub(t))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
