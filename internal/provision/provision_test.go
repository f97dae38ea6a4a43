package provision

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/batch"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/naming"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/registry"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/runtime"
)

type fixture struct {
	coord *Coordinator
	reg   *registry.MockRegistry
	rt    *runtime.MockRuntime
	audit *audit.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.NewMockRegistry()
	rt := runtime.NewMockRuntime()
	containers := lifecycle.New(rt, naming.Default(), lifecycle.Defaults{Image: "ptvnc", Memory: "512M"})
	logger := audit.NewLogger(t.TempDir())
	return &fixture{
		coord: New(reg, containers, logger),
		reg:   reg,
		rt:    rt,
		audit: logger,
	}
}

// grant gives username READ on connection directly in the mock.
func (f *fixture) grant(t *testing.T, username, connection string) {
	t.Helper()
	ctx := context.Background()
	entityID, err := f.reg.FindAccountEntity(ctx, username)
	if err != nil {
		t.Fatalf("FindAccountEntity(%s): %v", username, err)
	}
	connID, err := f.reg.FindConnectionID(ctx, connection)
	if err != nil {
		t.Fatalf("FindConnectionID(%s): %v", connection, err)
	}
	if _, err := f.reg.Grant(ctx, entityID, connID); err != nil {
		t.Fatalf("Grant: %v", err)
	}
}

func item(t *testing.T, res *batch.Result, key string) batch.Item {
	t.Helper()
	for _, it := range res.Items {
		if it.Key == key {
			return it
		}
	}
	t.Fatalf("no item for %q in %+v", key, res.Items)
	return batch.Item{}
}

func TestProvisionAccounts_EmptyBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.ProvisionAccounts(context.Background(), nil)
	if !errors.IsValidation(err) {
		t.Fatalf("ProvisionAccounts(nil) error = %v, want validation", err)
	}
	if len(f.reg.CallLog) != 0 {
		t.Errorf("registry touched on empty batch: %+v", f.reg.CallLog)
	}
}

func TestProvisionAccounts_MixedBatch(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddConnection("pt7")
	f.reg.AddConnection("pt03")
	f.reg.AddAccount("carol", false)
	f.rt.SetError("Create:ptvnc3", stderrors.New("image pull failed"))
	f.reg.SetError("SetElevated:gina", stderrors.New("db locked"))

	specs := []AccountSpec{
		{Username: "alice", Secret: "a", CreateContainer: true},
		{Username: "bob"},
		{Username: "carol", Secret: "c"},
		{Username: "dave", Secret: "d", Elevated: true, Container: "ptvnc7"},
		{Username: "frank", Secret: "f", CreateContainer: true},
		{Username: "erin", Secret: "e", CreateContainer: true},
		{Username: "gina", Secret: "g", Elevated: true},
		{Username: "hank", Secret: "h", Container: "ptvnc42"},
	}

	res, err := f.coord.ProvisionAccounts(context.Background(), specs)
	if err != nil {
		t.Fatalf("ProvisionAccounts() error = %v", err)
	}

	if res.Total() != len(specs) {
		t.Fatalf("Total() = %d, want %d", res.Total(), len(specs))
	}
	if res.Succeeded+res.NotFound+res.Failed != len(specs) {
		t.Errorf("counts do not sum to %d: %+v", len(specs), res)
	}

	tests := []struct {
		key     string
		kind    batch.Kind
		detail  string
		partial bool
		exists  bool
	}{
		{"alice", batch.KindSuccess, "ptvnc1", false, true},
		{"bob", batch.KindFailed, "", false, false},
		{"carol", batch.KindFailed, "", false, true},
		{"dave", batch.KindSuccess, "ptvnc7", false, true},
		{"frank", batch.KindFailed, "ptvnc2", true, true},
		{"erin", batch.KindFailed, "", true, true},
		{"gina", batch.KindSuccess, "", false, true},
		{"hank", batch.KindFailed, "ptvnc42", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			it := item(t, res, tt.key)
			if it.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (error: %s)", it.Kind, tt.kind, it.Error)
			}
			if it.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", it.Detail, tt.detail)
			}
			if it.Partial != tt.partial {
				t.Errorf("partial = %v, want %v", it.Partial, tt.partial)
			}
			if f.reg.HasAccount(tt.key) != tt.exists {
				t.Errorf("account exists = %v, want %v", f.reg.HasAccount(tt.key), tt.exists)
			}
		})
	}

	if got := f.reg.Held("alice"); !reflect.DeepEqual(got, []string{"pt01"}) {
		t.Errorf("alice holds %v, want [pt01]", got)
	}
	if got := f.reg.Held("dave"); !reflect.DeepEqual(got, []string{"pt7"}) {
		t.Errorf("dave holds %v, want [pt7]", got)
	}
	if !f.reg.IsElevated("dave") {
		t.Error("dave should be elevated")
	}
	if f.reg.IsElevated("gina") {
		t.Error("gina elevation was injected to fail")
	}
	if len(f.reg.Held("frank")) != 0 || len(f.reg.Held("erin")) != 0 {
		t.Error("partially provisioned accounts should hold nothing")
	}
	if _, ok := f.rt.Containers["ptvnc2"]; !ok {
		t.Error("frank's container should be kept")
	}
	if _, ok := f.rt.Containers["ptvnc3"]; ok {
		t.Error("erin's container creation was injected to fail")
	}

	for _, call := range f.reg.GetCallsFor("CreateAccount") {
		if call.Args[0] == "bob" {
			t.Error("invalid spec reached the registry")
		}
	}
}

func TestProvisionAccounts_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec AccountSpec
	}{
		{"missing username", AccountSpec{Secret: "x"}},
		{"blank username", AccountSpec{Username: "  ", Secret: "x"}},
		{"missing secret", AccountSpec{Username: "u"}},
		{"both bindings", AccountSpec{Username: "u", Secret: "x", CreateContainer: true, Container: "ptvnc1"}},
		{"bad container", AccountSpec{Username: "u", Secret: "x", Container: "desktop1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.coord.ProvisionAccounts(context.Background(), []AccountSpec{tt.spec})
			if err != nil {
				t.Fatalf("ProvisionAccounts() error = %v", err)
			}
			if res.Failed != 1 {
				t.Fatalf("Failed = %d, want 1", res.Failed)
			}
			if !errors.IsValidation(res.Items[0].Err) {
				t.Errorf("item error = %v, want validation", res.Items[0].Err)
			}
			if len(f.reg.GetCallsFor("CreateAccount")) != 0 {
				t.Error("registry called for invalid spec")
			}
		})
	}
}

func TestProvisionAccounts_Audit(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")

	_, err := f.coord.ProvisionAccounts(context.Background(), []AccountSpec{
		{Username: "alice", Secret: "a", CreateContainer: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := f.audit.Events("alice")
	if err != nil {
		t.Fatal(err)
	}
	var types []audit.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []audit.EventType{audit.EventAccountCreate, audit.EventAssign}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("alice events = %v, want %v", types, want)
	}

	events, _ = f.audit.Events("ptvnc1")
	if len(events) != 1 || events[0].Type != audit.EventContainerCreate {
		t.Errorf("ptvnc1 events = %+v", events)
	}
}

func TestDeleteAccounts(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddConnection("pt2")
	f.reg.AddAccount("alice", false)
	f.reg.AddAccount("bob", false)
	f.reg.AddAccount("carol", false)
	f.grant(t, "alice", "pt01")
	f.grant(t, "bob", "pt2")
	f.grant(t, "carol", "pt01")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc3", runtime.StatusStopped)

	res, err := f.coord.DeleteAccounts(context.Background(), []string{"alice", "ghost"}, true)
	if err != nil {
		t.Fatalf("DeleteAccounts() error = %v", err)
	}

	if res.DeletedCount != 1 || res.NotFoundCount != 1 || res.FailedCount != 0 {
		t.Errorf("counts = %+v", res)
	}
	if res.ContainersDeleted != 1 {
		t.Errorf("ContainersDeleted = %d, want 1", res.ContainersDeleted)
	}
	if !reflect.DeepEqual(res.Deleted, []string{"alice"}) || !reflect.DeepEqual(res.NotFound, []string{"ghost"}) {
		t.Errorf("Deleted = %v, NotFound = %v", res.Deleted, res.NotFound)
	}

	if f.reg.HasAccount("alice") {
		t.Error("alice should be deleted")
	}
	if _, ok := f.rt.Containers["ptvnc1"]; ok {
		t.Error("ptvnc1 should be deleted")
	}
	if _, ok := f.rt.Containers["ptvnc2"]; !ok {
		t.Error("ptvnc2 belongs to bob and should be kept")
	}
	if got := f.reg.Held("carol"); len(got) != 0 {
		t.Errorf("carol still holds %v on a deleted container", got)
	}
	if got := f.reg.Held("bob"); !reflect.DeepEqual(got, []string{"pt2"}) {
		t.Errorf("bob holds %v, want [pt2]", got)
	}
	if n := len(f.rt.GetCallsFor("List")); n != 1 {
		t.Errorf("List called %d times, want 1", n)
	}
}

func TestDeleteAccounts_KeepContainers(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddAccount("alice", false)
	f.grant(t, "alice", "pt01")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)

	res, err := f.coord.DeleteAccounts(context.Background(), []string{"alice"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.DeletedCount != 1 || res.ContainersDeleted != 0 {
		t.Errorf("result = %+v", res)
	}
	if _, ok := f.rt.Containers["ptvnc1"]; !ok {
		t.Error("container should be kept")
	}
	if len(f.rt.GetCallsFor("List")) != 0 {
		t.Error("runtime listed without deleteContainers")
	}
	if len(f.reg.GetCallsFor("RevokeAll")) != 1 {
		t.Error("RevokeAll should be called before deletion")
	}
}

func TestDeleteAccounts_Failures(t *testing.T) {
	t.Run("registry delete fails", func(t *testing.T) {
		f := newFixture(t)
		f.reg.AddAccount("alice", false)
		f.reg.AddAccount("bob", false)
		f.reg.SetError("DeleteAccount:alice", stderrors.New("deadlock"))

		res, err := f.coord.DeleteAccounts(context.Background(), []string{"alice", "bob"}, false)
		if err != nil {
			t.Fatal(err)
		}
		if res.FailedCount != 1 || res.DeletedCount != 1 {
			t.Errorf("result = %+v", res)
		}
		if !reflect.DeepEqual(res.Failed, []string{"alice"}) {
			t.Errorf("Failed = %v", res.Failed)
		}
		if res.Errors["alice"] == "" {
			t.Error("missing error message for alice")
		}
	})

	t.Run("runtime list fails", func(t *testing.T) {
		f := newFixture(t)
		f.reg.AddAccount("alice", false)
		f.rt.SetError("List", stderrors.New("daemon down"))

		res, err := f.coord.DeleteAccounts(context.Background(), []string{"alice"}, true)
		if err != nil {
			t.Fatal(err)
		}
		if res.FailedCount != 1 {
			t.Errorf("FailedCount = %d, want 1", res.FailedCount)
		}
		if !f.reg.HasAccount("alice") {
			t.Error("account should be kept when its containers cannot be listed")
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.coord.DeleteAccounts(context.Background(), nil, false); !errors.IsValidation(err) {
			t.Errorf("error = %v, want validation", err)
		}
	})
}

func TestAssignContainers(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddConnection("pt2")
	f.reg.AddConnection("pt-lab")
	f.reg.AddConnection("pt03")
	f.reg.AddConnection("pt3")
	f.reg.AddConnection("pt4")
	f.reg.AddAccount("alice", false)
	f.grant(t, "alice", "pt01")
	f.reg.SetError("Grant:pt4", stderrors.New("constraint violation"))

	res, err := f.coord.AssignContainers(context.Background(), "alice",
		[]string{"ptvnc1", "ptvnc2", "ptvnc-lab", "ptvnc9", "desktop1", "ptvnc3", "ptvnc4", "ptvnc2"})
	if err != nil {
		t.Fatalf("AssignContainers() error = %v", err)
	}

	if want := []string{"ptvnc2", "ptvnc-lab", "ptvnc3"}; !reflect.DeepEqual(res.Assigned, want) {
		t.Errorf("Assigned = %v, want %v", res.Assigned, want)
	}
	if res.ContainersAssigned != 3 {
		t.Errorf("ContainersAssigned = %d, want 3", res.ContainersAssigned)
	}
	if want := []string{"ptvnc1", "ptvnc2"}; !reflect.DeepEqual(res.AlreadyHeld, want) {
		t.Errorf("AlreadyHeld = %v, want %v", res.AlreadyHeld, want)
	}
	if want := []string{"ptvnc9"}; !reflect.DeepEqual(res.NotFound, want) {
		t.Errorf("NotFound = %v, want %v", res.NotFound, want)
	}
	if want := []string{"desktop1", "ptvnc4"}; !reflect.DeepEqual(res.Failed, want) {
		t.Errorf("Failed = %v, want %v", res.Failed, want)
	}

	want := []string{"pt-lab", "pt01", "pt03", "pt2"}
	if got := f.reg.Held("alice"); !reflect.DeepEqual(got, want) {
		t.Errorf("alice holds %v, want %v", got, want)
	}
	if len(f.reg.GetCallsFor("RevokeAll")) != 0 || len(f.reg.GetCallsFor("RevokeConnection")) != 0 {
		t.Error("assignment must never revoke")
	}
}

func TestAssignContainers_NothingNew(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt03")
	f.reg.AddAccount("carol", false)
	f.grant(t, "carol", "pt03")

	res, err := f.coord.AssignContainers(context.Background(), "carol", []string{"ptvnc3", "ptvnc9"})
	if err != nil {
		t.Fatalf("AssignContainers() error = %v", err)
	}
	if res.ContainersAssigned != 0 {
		t.Errorf("ContainersAssigned = %d, want 0", res.ContainersAssigned)
	}
	if !reflect.DeepEqual(res.AlreadyHeld, []string{"ptvnc3"}) {
		t.Errorf("AlreadyHeld = %v, want [ptvnc3]", res.AlreadyHeld)
	}
	if !reflect.DeepEqual(res.NotFound, []string{"ptvnc9"}) {
		t.Errorf("NotFound = %v, want [ptvnc9]", res.NotFound)
	}
	if len(f.reg.GetCallsFor("Grant")) != 1 {
		t.Errorf("Grant calls = %d, want only the fixture grant", len(f.reg.GetCallsFor("Grant")))
	}
}

func TestAssignContainers_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")

	_, err := f.coord.AssignContainers(context.Background(), "ghost", []string{"ptvnc1"})
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
	if len(f.reg.GetCallsFor("Grant")) != 0 {
		t.Error("Grant called for unknown account")
	}
}

func TestAssignedContainers(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddConnection("pt-lab")
	f.reg.AddConnection("pt05")
	f.reg.AddAccount("alice", false)
	f.reg.AddAccount("bob", false)
	f.grant(t, "alice", "pt01")
	f.grant(t, "alice", "pt-lab")
	f.grant(t, "alice", "pt05")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc-lab", runtime.StatusStopped)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)

	got, err := f.coord.AssignedContainers(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ptvnc1", "ptvnc-lab"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AssignedContainers(alice) = %v, want %v", got, want)
	}

	f.rt.CallLog = nil
	got, err = f.coord.AssignedContainers(context.Background(), "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("AssignedContainers(bob) = %v, want empty", got)
	}
	if len(f.rt.GetCallsFor("List")) != 0 {
		t.Error("runtime listed for an account with no grants")
	}

	if _, err := f.coord.AssignedContainers(context.Background(), "ghost"); !errors.IsNotFound(err) {
		t.Errorf("AssignedContainers(ghost) error = %v, want not found", err)
	}
}

func TestAccount(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddAccount("alice", true)
	f.grant(t, "alice", "pt01")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)

	view, err := f.coord.Account(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !view.Elevated || len(view.Connections) != 1 || !reflect.DeepEqual(view.Containers, []string{"ptvnc1"}) {
		t.Errorf("Account(alice) = %+v", view)
	}

	if _, err := f.coord.Account(context.Background(), "ghost"); !errors.IsNotFound(err) {
		t.Errorf("Account(ghost) error = %v, want not found", err)
	}
}

func TestParseLimits(t *testing.T) {
	tests := []struct {
		name    string
		memory  string
		cpus    string
		want    lifecycle.Limits
		wantErr bool
	}{
		{"memory only", "512M", "", lifecycle.Limits{MemoryBytes: 512 << 20}, false},
		{"lowercase unit", "1g", "", lifecycle.Limits{MemoryBytes: 1 << 30}, false},
		{"cpus only", "", "1.5", lifecycle.Limits{CPUs: 1.5}, false},
		{"both", "2G", "2", lifecycle.Limits{MemoryBytes: 2 << 30, CPUs: 2}, false},
		{"neither", "", "", lifecycle.Limits{}, true},
		{"bad memory", "lots", "", lifecycle.Limits{}, true},
		{"memory without unit", "512", "", lifecycle.Limits{}, true},
		{"memory past int64", "9000000000G", "", lifecycle.Limits{}, true},
		{"zero cpus", "", "0", lifecycle.Limits{}, true},
		{"negative cpus", "", "-2", lifecycle.Limits{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLimits(tt.memory, tt.cpus)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLimits() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.IsValidation(err) {
					t.Errorf("error kind = %q, want validation", errors.KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLimits() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTuneAll(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc3", runtime.StatusStopped)
	f.rt.SetError("UpdateMemory:ptvnc2", stderrors.New("cgroup busy"))
	f.rt.SetError("UpdateMemory:ptvnc3", stderrors.New("cgroup busy"))
	f.rt.SetError("UpdateCPUs:ptvnc3", stderrors.New("cgroup busy"))

	res, err := f.coord.TuneAll(context.Background(), "1G", "2")
	if err != nil {
		t.Fatalf("TuneAll() error = %v", err)
	}

	if res.UpdatedCount != 1 || !reflect.DeepEqual(res.Updated, []string{"ptvnc1"}) {
		t.Errorf("Updated = %v (%d)", res.Updated, res.UpdatedCount)
	}
	if !reflect.DeepEqual(res.Failed, []string{"ptvnc2", "ptvnc3"}) {
		t.Errorf("Failed = %v", res.Failed)
	}
	if n := len(f.rt.GetCallsFor("List")); n != 1 {
		t.Errorf("List called %d times, want 1", n)
	}
	if f.rt.Containers["ptvnc1"].MemoryBytes != 1<<30 || f.rt.Containers["ptvnc1"].NanoCPUs != 2e9 {
		t.Errorf("ptvnc1 limits = %+v", f.rt.Containers["ptvnc1"])
	}
	if f.rt.Containers["ptvnc2"].NanoCPUs != 2e9 {
		t.Error("ptvnc2 cpus should still be applied")
	}
}

func TestTuneAll_ValidatesBeforeListing(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)

	for _, tc := range [][2]string{{"", ""}, {"lots", ""}, {"", "0"}} {
		if _, err := f.coord.TuneAll(context.Background(), tc[0], tc[1]); !errors.IsValidation(err) {
			t.Errorf("TuneAll(%q, %q) error = %v, want validation", tc[0], tc[1], err)
		}
	}
	if len(f.rt.CallLog) != 0 {
		t.Errorf("runtime touched before validation: %+v", f.rt.CallLog)
	}
}

func TestTuneOne(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)

	res, err := f.coord.TuneOne(context.Background(), "ptvnc1", "", "0.5")
	if err != nil {
		t.Fatal(err)
	}
	if res.UpdatedCount != 1 {
		t.Errorf("UpdatedCount = %d, want 1", res.UpdatedCount)
	}

	res, err = f.coord.TuneOne(context.Background(), "ptvnc9", "", "0.5")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Failed, []string{"ptvnc9"}) {
		t.Errorf("Failed = %v, want [ptvnc9]", res.Failed)
	}
}

func TestTuneContainers(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)
	f.rt.SetError("UpdateMemory:ptvnc2", stderrors.New("cgroup busy"))

	res, err := f.coord.TuneContainers(context.Background(), []string{"ptvnc1", "ptvnc2", "ptvnc3"}, "1G", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Updated, []string{"ptvnc1"}) {
		t.Errorf("Updated = %v, want [ptvnc1]", res.Updated)
	}
	if !reflect.DeepEqual(res.Failed, []string{"ptvnc2", "ptvnc3"}) {
		t.Errorf("Failed = %v, want [ptvnc2 ptvnc3]", res.Failed)
	}

	res, err = f.coord.TuneContainers(context.Background(), []string{"ptvnc3", "ptvnc2"}, "1G", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Failed, []string{"ptvnc3", "ptvnc2"}) {
		t.Errorf("Failed = %v, want input order [ptvnc3 ptvnc2]", res.Failed)
	}

	if _, err := f.coord.TuneContainers(context.Background(), nil, "1G", ""); !errors.IsValidation(err) {
		t.Errorf("empty names error = %v, want validation", err)
	}
}

func TestRemoveContainer(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.reg.AddConnection("pt1")
	f.reg.AddAccount("alice", false)
	f.reg.AddAccount("bob", false)
	f.grant(t, "alice", "pt01")
	f.grant(t, "bob", "pt1")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)

	if err := f.coord.RemoveContainer(context.Background(), "ptvnc1"); err != nil {
		t.Fatalf("RemoveContainer() error = %v", err)
	}
	if _, ok := f.rt.Containers["ptvnc1"]; ok {
		t.Error("container should be deleted")
	}
	if len(f.reg.Held("alice")) != 0 || len(f.reg.Held("bob")) != 0 {
		t.Errorf("grants survive deletion: alice=%v bob=%v", f.reg.Held("alice"), f.reg.Held("bob"))
	}

	if err := f.coord.RemoveContainer(context.Background(), "ptvnc1"); !errors.IsNotFound(err) {
		t.Errorf("second RemoveContainer() error = %v, want not found", err)
	}
}

func TestRemoveContainer_RevokeFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	f.reg.AddConnection("pt01")
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.reg.SetError("RevokeConnection:pt01", stderrors.New("timeout"))

	err := f.coord.RemoveContainer(context.Background(), "ptvnc1")
	if !errors.IsPartial(err) {
		t.Errorf("error = %v, want partial", err)
	}
}

func TestRemoveContainers(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)
	f.rt.SetError("Destroy:ptvnc2", stderrors.New("device busy"))

	res, err := f.coord.RemoveContainers(context.Background(), []string{"ptvnc1", "ptvnc2", "ptvnc3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || res.Failed != 1 || res.NotFound != 1 {
		t.Errorf("counts = (%d, %d, %d), want (1, 1, 1)", res.Succeeded, res.NotFound, res.Failed)
	}
}

func TestCreateContainers(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc-x", runtime.StatusRunning)

	res, err := f.coord.CreateContainers(context.Background(), []string{"", "", "ptvnc-x", "desktop", "ptvnc-y"}, "")
	if err != nil {
		t.Fatal(err)
	}

	if got := item(t, res, "#1").Detail; got != "ptvnc1" {
		t.Errorf("#1 detail = %q, want ptvnc1", got)
	}
	if got := item(t, res, "#2").Detail; got != "ptvnc2" {
		t.Errorf("#2 detail = %q, want ptvnc2", got)
	}
	if it := item(t, res, "ptvnc-x"); it.Kind != batch.KindFailed || !errors.IsConflict(it.Err) {
		t.Errorf("ptvnc-x = %+v, want conflict failure", it)
	}
	if it := item(t, res, "desktop"); !errors.IsValidation(it.Err) {
		t.Errorf("desktop = %+v, want validation failure", it)
	}
	if res.Succeeded != 3 || res.Failed != 2 {
		t.Errorf("counts = %+v", res)
	}

	if _, err := f.coord.CreateContainers(context.Background(), nil, ""); !errors.IsValidation(err) {
		t.Errorf("empty create error = %v, want validation", err)
	}
}

func TestContainerAction(t *testing.T) {
	f := newFixture(t)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusRunning)

	res, err := f.coord.ContainerAction(context.Background(), ActionStop, []string{"ptvnc1", "ptvnc9", "ptvnc2"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 2 || res.NotFound != 1 {
		t.Errorf("counts = %+v", res)
	}
	if f.rt.Containers["ptvnc1"].Status != runtime.StatusStopped {
		t.Error("ptvnc1 should be stopped")
	}
	if len(f.rt.GetCallsFor("Stop")) != 2 {
		t.Error("Stop should not be called for a missing container")
	}

	if _, err := f.coord.ContainerAction(context.Background(), Action("pause"), []string{"ptvnc1"}); !errors.IsValidation(err) {
		t.Errorf("unknown action error = %v, want validation", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.reg.AddAccount("alice", false)
	f.reg.AddAccount("bob", true)
	f.rt.AddContainer("ptvnc1", runtime.StatusRunning)
	f.rt.AddContainer("ptvnc2", runtime.StatusStopped)
	f.rt.AddContainer("ptvnc3", runtime.StatusRunning)

	stats, err := f.coord.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := &Stats{Accounts: 2, Containers: ContainerStats{Total: 3, Running: 2, Stopped: 1}}
	if !reflect.DeepEqual(stats, want) {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestResetPasswordAndElevation(t *testing.T) {
	f := newFixture(t)
	f.reg.AddAccount("alice", false)
	ctx := context.Background()

	if err := f.coord.ResetPassword(ctx, "alice", ""); !errors.IsValidation(err) {
		t.Errorf("empty password error = %v, want validation", err)
	}
	if err := f.coord.ResetPassword(ctx, "alice", "n3w"); err != nil {
		t.Fatal(err)
	}
	if f.reg.Secret("alice") != "n3w" {
		t.Error("password not updated")
	}

	if err := f.coord.SetElevated(ctx, "alice", true); err != nil {
		t.Fatal(err)
	}
	if !f.reg.IsElevated("alice") {
		t.Error("alice should be elevated")
	}
	if err := f.coord.SetElevated(ctx, "ghost", true); !errors.IsNotFound(err) {
		t.Errorf("SetElevated(ghost) error = %v, want not found", err)
	}

	events, _ := f.audit.Events("alice")
	if len(events) != 2 {
		t.Errorf("got %d audit events, want 2", len(events))
	}
}

type plainRegistry struct {
	registry.Registry
}

func TestRegisterContainer(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		container string
		conn      registry.VNCConnection
		want      Registration
		wantParam map[string]string
	}{
		{
			name:      "defaults to unpadded name",
			container: "ptvnc7",
			want:      Registration{Container: "ptvnc7", Connection: "pt7", Hostname: "ptvnc7", Port: registry.DefaultVNCPort, Created: true},
			wantParam: map[string]string{"hostname": "ptvnc7", "port": "5901"},
		},
		{
			name:      "reuses padded connection",
			existing:  []string{"pt07"},
			container: "ptvnc7",
			want:      Registration{Container: "ptvnc7", Connection: "pt07", Hostname: "ptvnc7", Port: registry.DefaultVNCPort},
		},
		{
			name:      "verbatim suffix",
			container: "ptvnc-lab",
			want:      Registration{Container: "ptvnc-lab", Connection: "pt-lab", Hostname: "ptvnc-lab", Port: registry.DefaultVNCPort, Created: true},
			wantParam: map[string]string{"hostname": "ptvnc-lab", "port": "5901"},
		},
		{
			name:      "explicit connection",
			container: "ptvnc2",
			conn:      registry.VNCConnection{Name: "lab-two", Hostname: "10.0.0.2", Port: 5900, Password: "pw"},
			want:      Registration{Container: "ptvnc2", Connection: "lab-two", Hostname: "10.0.0.2", Port: 5900, Created: true},
			wantParam: map[string]string{"hostname": "10.0.0.2", "port": "5900", "password": "pw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, name := range tt.existing {
				f.reg.AddConnection(name)
			}

			got, err := f.coord.RegisterContainer(context.Background(), tt.container, tt.conn)
			if err != nil {
				t.Fatalf("RegisterContainer() error = %v", err)
			}
			id, err := f.reg.FindConnectionID(context.Background(), tt.want.Connection)
			if err != nil {
				t.Fatalf("connection %s not registered: %v", tt.want.Connection, err)
			}
			tt.want.ConnectionID = id
			if *got != tt.want {
				t.Errorf("RegisterContainer() = %+v, want %+v", *got, tt.want)
			}
			if tt.wantParam != nil && !reflect.DeepEqual(f.reg.Parameters(tt.want.Connection), tt.wantParam) {
				t.Errorf("parameters = %v, want %v", f.reg.Parameters(tt.want.Connection), tt.wantParam)
			}
			if !tt.want.Created && len(f.reg.GetCallsFor("RegisterConnection")) != 0 {
				t.Error("an existing connection was registered again")
			}
		})
	}
}

func TestRegisterContainer_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.coord.RegisterContainer(ctx, "ptvnc7", registry.VNCConnection{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.coord.RegisterContainer(ctx, "ptvnc7", registry.VNCConnection{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Created || second.ConnectionID != first.ConnectionID {
		t.Errorf("second RegisterContainer() = %+v, want existing id %d", second, first.ConnectionID)
	}

	events, _ := f.audit.Events("ptvnc7")
	if len(events) != 1 || events[0].Type != audit.EventContainerRegister {
		t.Errorf("audit events = %+v, want one container_register", events)
	}
}

func TestRegisterContainer_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.coord.RegisterContainer(ctx, "desktop1", registry.VNCConnection{}); !errors.IsValidation(err) {
		t.Errorf("bad container error = %v, want validation", err)
	}
	if _, err := f.coord.RegisterContainer(ctx, "ptvnc1", registry.VNCConnection{Port: 70000}); !errors.IsValidation(err) {
		t.Errorf("bad port error = %v, want validation", err)
	}
	if conns, _ := f.reg.ListConnections(ctx); len(conns) != 0 {
		t.Errorf("connections stored on invalid input: %v", conns)
	}

	plain := New(plainRegistry{f.reg}, f.coord.Containers(), nil)
	if _, err := plain.RegisterContainer(ctx, "ptvnc1", registry.VNCConnection{}); errors.KindOf(err) != errors.KindConfig {
		t.Errorf("non-registrar error = %v, want config error", err)
	}
}

func TestProvisionAccounts_NeverRegisters(t *testing.T) {
	f := newFixture(t)

	res, err := f.coord.ProvisionAccounts(context.Background(), []AccountSpec{
		{Username: "ivy", Secret: "i", CreateContainer: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || !res.Items[0].Partial {
		t.Errorf("item = %+v, want partial failure without a connection", res.Items[0])
	}
	if len(f.reg.GetCallsFor("RegisterConnection")) != 0 {
		t.Error("provisioning registered a connection")
	}
}
