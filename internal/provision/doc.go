// Package provision coordinates accounts, containers and the grants that
// bind them.
//
// The Coordinator is the only place that talks to both the registry and the
// container runtime. Every bulk operation runs through batch.Run, so one
// bad item never stops the rest and each caller gets a per-item report:
//
//	coord := provision.New(reg, containers, audit.NewLogger(stateDir))
//	res, err := coord.ProvisionAccounts(ctx, []provision.AccountSpec{
//	    {Username: "alice", Secret: "s3cret", CreateContainer: true},
//	})
//
// Creation and deletion are deliberately asymmetric. An account whose
// container could not be created is kept and reported as a partial
// failure; deleting an account always leaves it with zero assignments.
package provision
