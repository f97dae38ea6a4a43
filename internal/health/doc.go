// Package health checks that the lab is usable end to end.
//
// A container is only useful to a student when it is running and the
// gateway knows a connection for it. The checker lists the runtime and the
// registry once each and matches them with the naming rules.
//
// # Health Status
//
//	StatusHealthy     - Container running, a candidate connection is registered
//	StatusUnreachable - Container running, no candidate connection registered
//	StatusRunning     - Container running, registry not checked
//	StatusStopped     - Container not running
//
// # Usage
//
//	report := health.NewChecker(containers, reg).Check(ctx)
//	if !report.Healthy() {
//	    // report.RuntimeError, report.RegistryError, report.Containers
//	}
package health
