package registry_test

import (
	"errors"
	"testing"

	"github.com/dshills/hookchain/chain"
	"github.com/dshills/hookchain/registry"
)

// trace records callback firing per run.
type trace struct {
	order []string
}

func mark(tr *trace, name string) chain.Named {
	return chain.Named{
		ID: name,
		Fn: func(c *chain.Context) (any, error) {
			tr.order = append(tr.order, name)
			return true, nil
		},
	}
}

func setupHierarchy(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, tc := range []struct{ name, parent string }{
		{"record", ""},
		{"user", "record"},
		{"admin", "user"},
		{"post", "record"},
	} {
		if err := reg.RegisterType(tc.name, tc.parent); err != nil {
			t.Fatalf("register type %q: %v", tc.name, err)
		}
	}
	if _, err := reg.DefineEvent("record", "save"); err != nil {
		t.Fatalf("define event: %v", err)
	}
	return reg
}

func runEvent(t *testing.T, reg *registry.Registry, typeName string) {
	t.Helper()
	if _, err := reg.Run(typeName, "save", nil, nil); err != nil {
		t.Fatalf("run %q: %v", typeName, err)
	}
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q (full order %v)", i, want[i], got[i], got)
		}
	}
}

// TestRegisterTypeErrors verifies duplicate and orphan registrations fail.
func TestRegisterTypeErrors(t *testing.T) {
	reg := registry.New()
	if err := reg.RegisterType("record", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterType("record", ""); !errors.Is(err, registry.ErrTypeExists) {
		t.Errorf("expected ErrTypeExists, got %v", err)
	}
	if err := reg.RegisterType("user", "ghost"); !errors.Is(err, registry.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if err := reg.RegisterType("", ""); !errors.Is(err, registry.ErrBadType) {
		t.Errorf("expected ErrBadType, got %v", err)
	}
}

// TestDefineEventErrors verifies redefinition and unknown types fail.
func TestDefineEventErrors(t *testing.T) {
	reg := setupHierarchy(t)
	if _, err := reg.DefineEvent("record", "save"); !errors.Is(err, registry.ErrEventExists) {
		t.Errorf("expected ErrEventExists, got %v", err)
	}
	// Subtypes inherit the definition; redefining there is also an error.
	if _, err := reg.DefineEvent("user", "save"); !errors.Is(err, registry.ErrEventExists) {
		t.Errorf("expected ErrEventExists for inherited event, got %v", err)
	}
	if _, err := reg.DefineEvent("ghost", "save"); !errors.Is(err, registry.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

// TestInheritedChain verifies a subtype without local mutations runs the
// ancestor's chain.
func TestInheritedChain(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)
	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "base"), chain.Conditions{}, chain.AtEnd); err != nil {
		t.Fatalf("add filter: %v", err)
	}

	runEvent(t, reg, "admin")
	assertOrder(t, tr.order, []string{"base"})
}

// TestCopyOnWrite verifies a subtype mutation copies the chain: the
// subtype sees base + own filters, while the parent and siblings see only
// the base set.
func TestCopyOnWrite(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)
	none := chain.Conditions{}

	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "base"), none, chain.AtEnd); err != nil {
		t.Fatalf("add base: %v", err)
	}
	if err := reg.AddFilter("user", "save", chain.Before, mark(tr, "userOnly"), none, chain.AtEnd); err != nil {
		t.Fatalf("add userOnly: %v", err)
	}

	runEvent(t, reg, "user")
	assertOrder(t, tr.order, []string{"base", "userOnly"})

	tr.order = nil
	runEvent(t, reg, "record")
	assertOrder(t, tr.order, []string{"base"})

	tr.order = nil
	runEvent(t, reg, "post")
	assertOrder(t, tr.order, []string{"base"})

	// admin inherits from user, so it sees the user copy.
	tr.order = nil
	runEvent(t, reg, "admin")
	assertOrder(t, tr.order, []string{"base", "userOnly"})
}

// TestCopyOnWriteSnapshot verifies the copy is taken at first mutation:
// parent filters added afterwards do not appear in the subtype's chain.
func TestCopyOnWriteSnapshot(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)
	none := chain.Conditions{}

	if err := reg.AddFilter("user", "save", chain.Before, mark(tr, "userOnly"), none, chain.AtEnd); err != nil {
		t.Fatalf("add userOnly: %v", err)
	}
	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "lateBase"), none, chain.AtEnd); err != nil {
		t.Fatalf("add lateBase: %v", err)
	}

	runEvent(t, reg, "user")
	assertOrder(t, tr.order, []string{"userOnly"})

	tr.order = nil
	runEvent(t, reg, "record")
	assertOrder(t, tr.order, []string{"lateBase"})
}

// TestSkipFilterOnSubtype verifies skipping an inherited filter affects
// only the subtype.
func TestSkipFilterOnSubtype(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)
	none := chain.Conditions{}

	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "base"), none, chain.AtEnd); err != nil {
		t.Fatalf("add base: %v", err)
	}
	if err := reg.SkipFilter("user", "save", chain.Before, chain.Named{ID: "base"}, nil); err != nil {
		t.Fatalf("skip: %v", err)
	}

	runEvent(t, reg, "user")
	assertOrder(t, tr.order, nil)

	runEvent(t, reg, "record")
	assertOrder(t, tr.order, []string{"base"})
}

// TestSkipFilterWithConditions verifies a conditional skip retains the
// filter with inverted conditions at its original position.
func TestSkipFilterWithConditions(t *testing.T) {
	tr := &trace{}
	skip := true
	reg := setupHierarchy(t)
	none := chain.Conditions{}

	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "first"), none, chain.AtEnd); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "second"), none, chain.AtEnd); err != nil {
		t.Fatalf("add second: %v", err)
	}
	err := reg.SkipFilter("user", "save", chain.Before, chain.Named{ID: "first"}, &chain.Conditions{
		If: []chain.Condition{func(any) bool { return skip }},
	})
	if err != nil {
		t.Fatalf("skip: %v", err)
	}

	runEvent(t, reg, "user")
	assertOrder(t, tr.order, []string{"second"})

	skip = false
	tr.order = nil
	runEvent(t, reg, "user")
	assertOrder(t, tr.order, []string{"first", "second"})
}

// TestResetEvent verifies resetting clears the declaring type and removes
// the same filters from descendant copies while keeping their own.
func TestResetEvent(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)
	none := chain.Conditions{}

	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "base"), none, chain.AtEnd); err != nil {
		t.Fatalf("add base: %v", err)
	}
	if err := reg.AddFilter("user", "save", chain.Before, mark(tr, "userOnly"), none, chain.AtEnd); err != nil {
		t.Fatalf("add userOnly: %v", err)
	}

	if err := reg.ResetEvent("record", "save"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runEvent(t, reg, "record")
	assertOrder(t, tr.order, nil)

	runEvent(t, reg, "user")
	assertOrder(t, tr.order, []string{"userOnly"})
}

// TestRunUnknownEvent verifies running an undefined event fails.
func TestRunUnknownEvent(t *testing.T) {
	reg := setupHierarchy(t)
	if _, err := reg.Run("record", "destroy", nil, nil); !errors.Is(err, registry.ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := reg.Run("ghost", "save", nil, nil); !errors.Is(err, registry.ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent for unknown type, got %v", err)
	}
}

// TestEventOptions verifies event options reach the chain configuration.
func TestEventOptions(t *testing.T) {
	reg := registry.New()
	if err := reg.RegisterType("record", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.DefineEvent("record", "save",
		registry.WithTerminator(chain.HaltOnFalse),
		registry.WithSkipAfterIfHalted(),
	); err != nil {
		t.Fatalf("define: %v", err)
	}

	ran := false
	if err := reg.AddFilter("record", "save", chain.Before, func() bool { return false }, chain.Conditions{}, chain.AtEnd); err != nil {
		t.Fatalf("add: %v", err)
	}
	ctx, err := reg.RunContext("record", "save", nil, func(target any) (any, error) {
		ran = true
		return true, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ctx.Halted {
		t.Error("expected the terminator option to halt on false")
	}
	if ran {
		t.Error("expected the body not to run on a halted chain")
	}
}

// TestResetEventOnSubtype verifies resetting an inherited event copies
// the chain first: the subtype and its descendants are cleared while the
// ancestor and siblings keep their filters.
func TestResetEventOnSubtype(t *testing.T) {
	tr := &trace{}
	reg := setupHierarchy(t)

	if err := reg.AddFilter("record", "save", chain.Before, mark(tr, "base"), chain.Conditions{}, chain.AtEnd); err != nil {
		t.Fatalf("add base: %v", err)
	}
	if err := reg.ResetEvent("user", "save"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runEvent(t, reg, "record")
	assertOrder(t, tr.order, []string{"base"})

	tr.order = nil
	runEvent(t, reg, "post")
	assertOrder(t, tr.order, []string{"base"})

	tr.order = nil
	runEvent(t, reg, "user")
	assertOrder(t, tr.order, nil)

	runEvent(t, reg, "admin")
	assertOrder(t, tr.order, nil)
}
