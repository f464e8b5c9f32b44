package manifest

import (
	"fmt"
	"reflect"

	"github.com/dshills/hookchain/chain"
	"github.com/dshills/hookchain/registry"
	"github.com/dshills/hookchain/script"
)

// Apply binds the manifest into a registry: types are registered, events
// defined, and filters registered in declaration order. The script engine
// is required only when the manifest contains expression filters.
//
// Apply is a declaration-time operation; applying a manifest to a
// registry already serving runs is not supported.
func (m *Manifest) Apply(reg *registry.Registry, eng *script.Engine) error {
	for _, t := range m.Types {
		if err := reg.RegisterType(t.Name, t.Parent); err != nil {
			return fmt.Errorf("manifest: type %q: %w", t.Name, err)
		}
	}

	for _, e := range m.Events {
		opts := make([]registry.EventOption, 0, 3)
		if e.HaltOnFalse {
			opts = append(opts, registry.WithTerminator(chain.HaltOnFalse))
		}
		if e.SkipAfterIfHalted {
			opts = append(opts, registry.WithSkipAfterIfHalted())
		}
		if len(e.Scope) > 0 {
			opts = append(opts, registry.WithScope(e.Scope...))
		}
		if _, err := reg.DefineEvent(e.Type, e.Name, opts...); err != nil {
			return fmt.Errorf("manifest: event %q on %q: %w", e.Name, e.Type, err)
		}
	}

	for i, f := range m.Filters {
		if err := m.applyFilter(reg, eng, f); err != nil {
			return fmt.Errorf("manifest: filters[%d]: %w", i, err)
		}
	}
	return nil
}

func (m *Manifest) applyFilter(reg *registry.Registry, eng *script.Engine, f FilterDef) error {
	kind, err := chain.ParseKind(f.Kind)
	if err != nil {
		return err
	}

	var callback any
	if f.Expr != "" {
		if eng == nil {
			return ErrNoEngine
		}
		named, err := eng.Compile(script.Expr{Source: f.Expr})
		if err != nil {
			return err
		}
		callback = named
	} else {
		callback = f.Method
	}

	conds := chain.Conditions{}
	for _, name := range f.If {
		conds.If = append(conds.If, methodCondition(name))
	}
	for _, name := range f.Unless {
		conds.Unless = append(conds.Unless, methodCondition(name))
	}

	place := chain.AtEnd
	if f.Prepend {
		place = chain.AtFront
	}
	return reg.AddFilter(f.Type, f.Event, kind, callback, conds, place)
}

// methodCondition builds a guard that calls a zero-argument bool method
// on the run target. A missing or mismatched method evaluates to false.
func methodCondition(name string) chain.Condition {
	return func(target any) bool {
		if target == nil {
			return false
		}
		m := reflect.ValueOf(target).MethodByName(name)
		if !m.IsValid() {
			return false
		}
		t := m.Type()
		if t.NumIn() != 0 || t.NumOut() != 1 || t.Out(0).Kind() != reflect.Bool {
			return false
		}
		return m.Call(nil)[0].Bool()
	}
}
