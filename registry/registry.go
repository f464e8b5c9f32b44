package registry

import (
	"fmt"
	"sync"

	"github.com/dshills/hookchain/chain"
)

// Registry tracks a type hierarchy and the callback chains declared on it.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// node is one type in the hierarchy. chains holds only locally declared
// or copied chains; lookups fall back to the ancestors.
type node struct {
	name     string
	parent   *node
	children []*node
	chains   map[string]*chain.Chain
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{nodes: make(map[string]*node)}
}

// RegisterType adds a type to the hierarchy. The parent must already be
// registered; an empty parent registers a root type.
func (r *Registry) RegisterType(name, parent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("%w: empty type name", ErrBadType)
	}
	if _, ok := r.nodes[name]; ok {
		return fmt.Errorf("%w: %q", ErrTypeExists, name)
	}

	n := &node{name: name, chains: make(map[string]*chain.Chain)}
	if parent != "" {
		p, ok := r.nodes[parent]
		if !ok {
			return fmt.Errorf("%w: parent %q", ErrUnknownType, parent)
		}
		n.parent = p
		p.children = append(p.children, n)
	}
	r.nodes[name] = n
	return nil
}

// EventOption configures a defined event's chain.
type EventOption func(*chain.Config)

// WithTerminator sets the halt predicate applied to before-callback
// results. The default never halts.
func WithTerminator(fn func(result any) bool) EventOption {
	return func(cfg *chain.Config) { cfg.Terminator = fn }
}

// WithSkipAfterIfHalted suppresses after callbacks on halted runs.
func WithSkipAfterIfHalted() EventOption {
	return func(cfg *chain.Config) { cfg.SkipAfterIfHalted = true }
}

// WithScope sets the naming tokens for capability-object method lookup.
func WithScope(tokens ...string) EventOption {
	return func(cfg *chain.Config) { cfg.Scope = tokens }
}

// DefineEvent declares an event on a type and returns its new empty
// chain. Defining the same event twice on one type is an error; subtypes
// inherit the definition and never redefine it.
func (r *Registry) DefineEvent(typeName, event string, opts ...EventOption) (*chain.Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	if r.effectiveChain(n, event) != nil {
		return nil, fmt.Errorf("%w: %q on %q", ErrEventExists, event, typeName)
	}

	var cfg chain.Config
	for _, opt := range opts {
		opt(&cfg)
	}
	ch := chain.New(event, cfg)
	n.chains[event] = ch
	return ch, nil
}

// Chain returns the effective chain for an event on a type: the type's
// own chain if it has one, otherwise the nearest ancestor's. The result
// must be treated as read-only; mutations go through the registry.
func (r *Registry) Chain(typeName, event string) (*chain.Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[typeName]
	if !ok {
		return nil, false
	}
	ch := r.effectiveChain(n, event)
	return ch, ch != nil
}

// AddFilter registers a callback for an event on a type. The first
// mutation on a type that inherits its chain copies the chain first, so
// the addition is invisible to ancestors and siblings.
func (r *Registry) AddFilter(typeName, event string, kind chain.Kind, callback any, conds chain.Conditions, place chain.Placement) error {
	ch, err := r.mutableChain(typeName, event)
	if err != nil {
		return err
	}
	return ch.Register(kind, callback, conds, place)
}

// SkipFilter unregisters a callback for an event on a type, copying the
// inherited chain first as AddFilter does. With conditions, the matched
// filter is retained with the inverted conditions merged in rather than
// deleted. Skipping an absent filter is a silent no-op.
func (r *Registry) SkipFilter(typeName, event string, kind chain.Kind, callback any, conds *chain.Conditions) error {
	ch, err := r.mutableChain(typeName, event)
	if err != nil {
		return err
	}
	ch.Unregister(kind, callback, conds)
	return nil
}

// ResetEvent clears all filters for an event on the given type and
// removes that same filter set from every descendant's own chain copy.
// Filters a descendant added itself survive. Like AddFilter, resetting a
// type that merely inherits the chain copies it first, so ancestors and
// siblings keep their filters.
func (r *Registry) ResetEvent(typeName, event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[typeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	ch, err := r.mutableChainLocked(n, event)
	if err != nil {
		return err
	}

	removed := ch.Filters()
	ch.Clear()
	r.walkDescendants(n, func(d *node) {
		dc, ok := d.chains[event]
		if !ok || dc == ch {
			return
		}
		for _, f := range removed {
			dc.Remove(f.Kind(), f.Identity())
		}
	})
	return nil
}

// Run executes an event's effective chain against the target.
func (r *Registry) Run(typeName, event string, target any, body chain.BodyFunc) (any, error) {
	ch, ok := r.Chain(typeName, event)
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrUnknownEvent, event, typeName)
	}
	return ch.Run(target, body)
}

// RunContext is Run exposing the full execution context.
func (r *Registry) RunContext(typeName, event string, target any, body chain.BodyFunc) (*chain.Context, error) {
	ch, ok := r.Chain(typeName, event)
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrUnknownEvent, event, typeName)
	}
	return ch.RunContext(target, body), nil
}

// mutableChain resolves the chain an event mutation should land on,
// copying an inherited chain into the type on first write.
func (r *Registry) mutableChain(typeName, event string) (*chain.Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return r.mutableChainLocked(n, event)
}

// mutableChainLocked is mutableChain for callers already holding the
// write lock.
func (r *Registry) mutableChainLocked(n *node, event string) (*chain.Chain, error) {
	if ch, ok := n.chains[event]; ok {
		return ch, nil
	}
	inherited := r.effectiveChain(n, event)
	if inherited == nil {
		return nil, fmt.Errorf("%w: %q on %q", ErrUnknownEvent, event, n.name)
	}
	ch := inherited.Duplicate()
	n.chains[event] = ch
	return ch, nil
}

// effectiveChain walks up from n to the nearest chain for the event.
// Callers hold at least the read lock.
func (r *Registry) effectiveChain(n *node, event string) *chain.Chain {
	for ; n != nil; n = n.parent {
		if ch, ok := n.chains[event]; ok {
			return ch
		}
	}
	return nil
}

// walkDescendants visits every node below n. Callers hold the write lock.
func (r *Registry) walkDescendants(n *node, visit func(*node)) {
	for _, child := range n.children {
		visit(child)
		r.walkDescendants(child, visit)
	}
}
