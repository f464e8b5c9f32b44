package chain

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies when a filter's callback runs relative to the event body.
type Kind int

// Filter kinds.
const (
	// Before callbacks run ahead of the body in registration order.
	Before Kind = iota

	// After callbacks run behind the body in reverse registration order.
	After

	// Around callbacks wrap the rest of the chain via a continuation.
	Around
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Before:
		return "before"
	case After:
		return "after"
	case Around:
		return "around"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name as used in manifests.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	case "around":
		return Around, nil
	default:
		return 0, fmt.Errorf("chain: unknown filter kind %q", s)
	}
}

// Condition guards a filter. It is evaluated against the run target.
type Condition func(target any) bool

// Conditions holds the guard lists attached to a filter registration.
// The filter's callback fires only when every If condition is true and
// every Unless condition is false.
type Conditions struct {
	If     []Condition
	Unless []Condition
}

// Filter wraps one registered callback: its kind, stable identity, guard
// conditions, and a read-only reference to the owning chain's config.
// Filters are immutable once constructed and safe to share across chain
// copies; Merge produces a new Filter rather than mutating in place.
type Filter struct {
	kind         Kind
	identity     any
	call         *callable
	ifGuards     []Condition
	unlessGuards []Condition
	config       *Config
}

// Kind returns the filter kind.
func (f *Filter) Kind() Kind { return f.kind }

// Identity returns the key used to find, replace, or remove this filter.
// Named filters key on their method name, capability objects on the object
// itself, and anonymous funcs on a per-registration token.
func (f *Filter) Identity() any { return f.identity }

// matches reports whether this filter has the given kind and identity.
func (f *Filter) matches(kind Kind, identity any) bool {
	return f.kind == kind && sameIdentity(f.identity, identity)
}

// Merge returns a new Filter combining this filter's guards with the
// inverse of the given conditions. Skipping a filter "if X" is realized as
// an additional "unless X" on the retained filter, and vice versa, layered
// onto the existing guards.
func (f *Filter) Merge(conds Conditions) *Filter {
	nf := *f
	nf.ifGuards = append(slices.Clone(f.ifGuards), conds.Unless...)
	nf.unlessGuards = append(slices.Clone(f.unlessGuards), conds.If...)
	return &nf
}

// conditionsPass reports whether every If guard is true and every Unless
// guard is false for the given target.
func (f *Filter) conditionsPass(target any) bool {
	for _, cond := range f.ifGuards {
		if !cond(target) {
			return false
		}
	}
	for _, cond := range f.unlessGuards {
		if cond(target) {
			return false
		}
	}
	return true
}

// apply wraps the next stage with this filter's behavior, producing the
// stage that the compiled pipeline invokes.
func (f *Filter) apply(next Stage) Stage {
	switch f.kind {
	case Before:
		return f.beforeStage(next)
	case After:
		return f.afterStage(next)
	case Around:
		return f.aroundStage(next)
	default:
		return next
	}
}

// beforeStage invokes the callback ahead of the rest of the chain. The
// callback result is fed to the terminator; a halting result marks the
// context and notifies the target. The rest of the chain always runs:
// halting only disables subsequent user work, not traversal.
func (f *Filter) beforeStage(next Stage) Stage {
	terminator := f.config.terminator()
	return func(c *Context) *Context {
		if c.Err == nil && !c.Halted && f.conditionsPass(c.Target) {
			result, err := f.call.invoke(c)
			if err != nil {
				c.Err = err
				return c
			}
			c.Value = result
			if terminator(result) {
				c.Halted = true
				notifyHalted(c.Target, f.identity)
			}
		}
		return next(c)
	}
}

// afterStage runs the rest of the chain first, then the callback on the
// way back out. The callback return value is ignored. When the chain is
// configured to skip after-callbacks on halt, a halted context bypasses
// the callback; otherwise only the guard conditions decide.
func (f *Filter) afterStage(next Stage) Stage {
	return func(c *Context) *Context {
		c = next(c)
		if c.Err != nil {
			return c
		}
		if f.config.SkipAfterIfHalted && c.Halted {
			return c
		}
		if f.conditionsPass(c.Target) {
			if _, err := f.call.invoke(c); err != nil {
				c.Err = err
			}
		}
		return c
	}
}

// aroundStage hands the callback a continuation for the rest of the chain.
// The callback decides whether and when to invoke it; value propagation
// happens through the context. A halted or guarded-off around filter is
// pure passthrough.
func (f *Filter) aroundStage(next Stage) Stage {
	return func(c *Context) *Context {
		if c.Err != nil {
			return c
		}
		if c.Halted || !f.conditionsPass(c.Target) {
			return next(c)
		}
		continuation := func() (any, error) {
			c = next(c)
			return c.Value, c.Err
		}
		if err := f.call.invokeAround(c, continuation); err != nil {
			c.Err = err
		}
		return c
	}
}
