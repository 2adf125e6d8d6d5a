package task

import (
	"context"
	"testing"

	"github.com/spf13/viper"
)

type stubTask struct{}

func (stubTask) ScoreResults([]string) ([]string, error) { return nil, nil }
func (stubTask) SaveResults([]string, string) error      { return nil }
func (stubTask) LoadResults(string) ([]string, error)    { return nil, nil }

func register(t *testing.T, name string) {
	t.Helper()
	Register(Registration{
		Name: name,
		Setup: func(ctx context.Context, v *viper.Viper) (Task, error) {
			return stubTask{}, nil
		},
	})
	t.Cleanup(func() { unregister(name) })
}

func TestRegister_Lookup(t *testing.T) {
	register(t, "stub")

	r, ok := Lookup("stub")
	if !ok {
		t.Fatal("expected stub to be registered")
	}
	if r.Name != "stub" {
		t.Errorf("Name = %q, want stub", r.Name)
	}

	if _, ok := Lookup("missing"); ok {
		t.Error("expected lookup of unregistered name to fail")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	register(t, "dup")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register(Registration{
		Name:  "dup",
		Setup: func(context.Context, *viper.Viper) (Task, error) { return nil, nil },
	})
}

func TestRegister_EmptyName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty name")
		}
	}()
	Register(Registration{
		Setup: func(context.Context, *viper.Viper) (Task, error) { return nil, nil },
	})
}

func TestNames_Sorted(t *testing.T) {
	register(t, "zeta")
	register(t, "alpha")

	names := Names()
	var alpha, zeta = -1, -1
	for i, n := range names {
		switch n {
		case "alpha":
			alpha = i
		case "zeta":
			zeta = i
		}
	}
	if alpha < 0 || zeta < 0 || alpha > zeta {
		t.Errorf("expected sorted names containing alpha before zeta, got %v", names)
	}
}

func TestSetup_Unknown(t *testing.T) {
	if _, err := Setup(context.Background(), "nope", viper.New()); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestSetup_Dispatches(t *testing.T) {
	register(t, "dispatch")

	got, err := Setup(context.Background(), "dispatch", viper.New())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if _, ok := got.(stubTask); !ok {
		t.Errorf("expected stubTask, got %T", got)
	}
}
