package testutil

import (
	"reflect"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/app"
)

func TestNewTestEnv(t *testing.T) {
	before := app.Default

	t.Run("installs default", func(t *testing.T) {
		env := NewTestEnv(t)
		if app.Default != env.App {
			t.Fatal("NewTestEnv should install its app as the default")
		}

		env.AddSeat("ptvnc1", "pt01")
		env.AddAccount("alice", "pt01")

		if _, ok := env.Runtime.Containers["ptvnc1"]; !ok {
			t.Error("AddSeat should add the container")
		}
		if got := env.Registry.Held("alice"); !reflect.DeepEqual(got, []string{"pt01"}) {
			t.Errorf("alice holds %v, want [pt01]", got)
		}
	})

	if app.Default != before {
		t.Error("the previous default should be restored after the test")
	}
}
