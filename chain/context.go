package chain

// BodyFunc is the wrapped event action, e.g. "the save itself". A nil body
// is equivalent to a no-op that yields true.
type BodyFunc func(target any) (any, error)

// Context carries the state of a single Run invocation through the
// compiled pipeline. It is owned exclusively by that invocation; stages
// must not retain it past their own call.
type Context struct {
	// Target is the object the event is running on.
	Target any

	// Halted is set when a before filter's result satisfies the chain
	// terminator. Once set, subsequent before/around callbacks and the
	// body are skipped.
	Halted bool

	// Value is the evolving result: the latest before-callback return
	// value while before filters run, then the body result. A halted run
	// leaves false here; a run without a body leaves true.
	Value any

	// Body is the wrapped event action. May be nil.
	Body BodyFunc

	// Err is the first callback or body error. It aborts all remaining
	// callback work and is returned to the Run caller unmodified.
	Err error
}

// Stage is one composed step of a compiled pipeline.
type Stage func(*Context) *Context

// HaltObserver is implemented by targets that want notification when a
// before filter halts the chain. OnHalted receives the halting filter's
// identity and is called exactly once per halted run.
type HaltObserver interface {
	OnHalted(identity any)
}

// notifyHalted invokes the target's OnHalted hook if it has one.
func notifyHalted(target, identity any) {
	if obs, ok := target.(HaltObserver); ok {
		obs.OnHalted(identity)
	}
}
