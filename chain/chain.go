package chain

import (
	"slices"
	"sync"
)

// Config holds the per-event chain configuration. It is shared read-only
// with every filter on the chain.
type Config struct {
	// Terminator maps a before-callback result to a halt decision.
	// Nil means the chain never halts.
	Terminator func(result any) bool

	// SkipAfterIfHalted suppresses after callbacks once a before filter
	// has halted the chain.
	SkipAfterIfHalted bool

	// Scope is the ordered list of naming tokens used to resolve the
	// method to call on a capability-object filter. Defaults to
	// [ScopeKind].
	Scope []string
}

func (cfg *Config) terminator() func(any) bool {
	if cfg.Terminator != nil {
		return cfg.Terminator
	}
	return func(any) bool { return false }
}

func (cfg *Config) scope() []string {
	if len(cfg.Scope) == 0 {
		return []string{ScopeKind}
	}
	return cfg.Scope
}

// HaltOnFalse is the canonical terminator: the chain halts when a before
// callback returns an explicit false.
func HaltOnFalse(result any) bool {
	b, ok := result.(bool)
	return ok && !b
}

// Placement selects where a registered filter is inserted.
type Placement int

const (
	// AtEnd appends the filter after existing registrations.
	AtEnd Placement = iota

	// AtFront prepends the filter ahead of existing registrations.
	AtFront
)

// Chain is the ordered, mutable filter list for one event name on one
// type. It compiles the list into a single composed stage on first run
// and caches the result until the list changes.
//
// Mutation is a declaration-time operation; once a chain is in concurrent
// use, only Compile, Run, and RunContext are safe to call from multiple
// goroutines.
type Chain struct {
	mu       sync.RWMutex
	name     string
	config   Config
	filters  []*Filter
	compiled Stage
}

// New creates an empty chain for the named event.
func New(name string, cfg Config) *Chain {
	return &Chain{name: name, config: cfg}
}

// Name returns the event name.
func (c *Chain) Name() string { return c.name }

// Config returns the chain configuration.
func (c *Chain) Config() *Config { return &c.config }

// NewFilter constructs a filter bound to this chain's configuration
// without registering it. Unsupported callback shapes fail here.
func (c *Chain) NewFilter(kind Kind, raw any, conds Conditions) (*Filter, error) {
	identity, call, err := resolveCallable(kind, raw, &c.config, c.name)
	if err != nil {
		return nil, err
	}
	return &Filter{
		kind:         kind,
		identity:     identity,
		call:         call,
		ifGuards:     slices.Clone(conds.If),
		unlessGuards: slices.Clone(conds.Unless),
		config:       &c.config,
	}, nil
}

// Register resolves and inserts a callback. At most one filter per
// (kind, identity) survives: re-registering replaces the previous filter
// at the new position with the new conditions.
func (c *Chain) Register(kind Kind, raw any, conds Conditions, place Placement) error {
	f, err := c.NewFilter(kind, raw, conds)
	if err != nil {
		return err
	}
	if place == AtFront {
		c.Prepend(f)
	} else {
		c.Append(f)
	}
	return nil
}

// Append inserts filters at the end of the chain, removing any previous
// filter with the same (kind, identity) first.
func (c *Chain) Append(filters ...*Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range filters {
		c.deleteMatching(f.kind, f.identity)
		c.filters = append(c.filters, f)
	}
	c.compiled = nil
}

// Prepend inserts filters at the front of the chain, removing any
// previous filter with the same (kind, identity) first.
func (c *Chain) Prepend(filters ...*Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range filters {
		c.deleteMatching(f.kind, f.identity)
		c.filters = append([]*Filter{f}, c.filters...)
	}
	c.compiled = nil
}

// Remove deletes the first filter matching (kind, identity) and returns
// it. Removing an absent filter is a silent no-op returning nil.
func (c *Chain) Remove(kind Kind, identity any) *Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.filters {
		if f.matches(kind, identity) {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			c.compiled = nil
			return f
		}
	}
	return nil
}

// Unregister removes the filter registered for the given callback. When
// conditions are supplied, the filter is instead replaced in place by its
// Merge result, so "skip if X" becomes "run unless X" at the original
// position. Unregistering an absent filter is a silent no-op.
func (c *Chain) Unregister(kind Kind, raw any, conds *Conditions) {
	identity := identityOf(raw)
	if identity == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.filters {
		if !f.matches(kind, identity) {
			continue
		}
		if conds == nil {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
		} else {
			c.filters[i] = f.Merge(*conds)
		}
		c.compiled = nil
		return
	}
}

// Clear removes all filters.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = nil
	c.compiled = nil
}

// Filters returns a snapshot of the registered filters in order.
func (c *Chain) Filters() []*Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.filters)
}

// Len returns the number of registered filters.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

// Duplicate returns a new chain with a copy of the configuration and the
// filter list. The copied filters are rebound to the duplicate's config,
// so later config edits through Config apply to one chain only. The
// compiled cache is not carried over.
func (c *Chain) Duplicate() *Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dup := &Chain{
		name:    c.name,
		config:  c.config,
		filters: make([]*Filter, len(c.filters)),
	}
	for i, f := range c.filters {
		nf := *f
		nf.config = &dup.config
		dup.filters[i] = &nf
	}
	return dup
}

// Compile folds the filter list into a single composed stage, first
// registered outermost, and caches it. Concurrent calls may race to a
// redundant but equivalent recompute.
func (c *Chain) Compile() Stage {
	c.mu.RLock()
	compiled := c.compiled
	c.mu.RUnlock()
	if compiled != nil {
		return compiled
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled == nil {
		stage := Stage(terminalStage)
		for i := len(c.filters) - 1; i >= 0; i-- {
			stage = c.filters[i].apply(stage)
		}
		c.compiled = stage
	}
	return c.compiled
}

// terminalStage runs the event body. A halted context yields false
// without running the body; an absent body yields true.
func terminalStage(c *Context) *Context {
	if c.Err != nil {
		return c
	}
	if c.Halted {
		c.Value = false
		return c
	}
	if c.Body == nil {
		c.Value = true
		return c
	}
	v, err := c.Body(c.Target)
	if err != nil {
		c.Err = err
		return c
	}
	c.Value = v
	return c
}

// Run compiles the chain if needed and executes it against the target.
// It returns the final context value: the body result, true when the body
// is absent, or false when a before filter halted the chain. A callback
// or body error is returned unmodified.
func (c *Chain) Run(target any, body BodyFunc) (any, error) {
	ctx := c.RunContext(target, body)
	return ctx.Value, ctx.Err
}

// RunContext is Run exposing the full execution context, for callers that
// need to distinguish a halted chain from a body that returned false.
func (c *Chain) RunContext(target any, body BodyFunc) *Context {
	ctx := &Context{Target: target, Body: body}
	return c.Compile()(ctx)
}

// deleteMatching removes the first (kind, identity) match. Callers hold
// the write lock.
func (c *Chain) deleteMatching(kind Kind, identity any) {
	for i, f := range c.filters {
		if f.matches(kind, identity) {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return
		}
	}
}
