package chain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Continuation invokes the rest of the chain from inside an around
// callback and returns the (possibly updated) context value.
type Continuation func() (any, error)

// BeforeHandler is the capability slot for before filters under the
// default scope. The return value is fed to the chain terminator.
type BeforeHandler interface {
	Before(c *Context) (any, error)
}

// AfterHandler is the capability slot for after filters under the default
// scope. After callbacks are for side effects; there is no result.
type AfterHandler interface {
	After(c *Context) error
}

// AroundHandler is the capability slot for around filters under the
// default scope. The handler decides whether and when to invoke next.
type AroundHandler interface {
	Around(c *Context, next Continuation) error
}

// Named pairs a callback func with a stable identity so that a later
// registration of the same logical filter replaces the earlier one. The
// script package uses it to key compiled Lua expressions on their source.
type Named struct {
	// ID is the filter identity. It must be comparable.
	ID any

	// Fn is the callback for before and after filters.
	Fn func(c *Context) (any, error)

	// AroundFn is the callback for around filters.
	AroundFn func(c *Context, next Continuation) error
}

// callable is a registered callback resolved into an invokable form.
// Exactly one of fn or around is set, matching the filter kind.
type callable struct {
	fn     func(c *Context) (any, error)
	around func(c *Context, next Continuation) error
}

func (cl *callable) invoke(c *Context) (any, error) {
	return cl.fn(c)
}

func (cl *callable) invokeAround(c *Context, next Continuation) error {
	return cl.around(c, next)
}

// resolveCallable turns a registered raw value into an identity and an
// invokable callable. Unsupported shapes fail here, at registration time,
// never at run time.
func resolveCallable(kind Kind, raw any, cfg *Config, event string) (any, *callable, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil, fmt.Errorf("%w: nil callback", ErrBadCallable)

	case string:
		return v, methodCallable(kind, v), nil

	case Named:
		cl, err := namedCallable(kind, v)
		if err != nil {
			return nil, nil, err
		}
		return v.ID, cl, nil

	case func(*Context) (any, error):
		if kind == Around {
			return nil, nil, fmt.Errorf("%w: around callbacks take a continuation", ErrBadCallable)
		}
		return uuid.NewString(), &callable{fn: v}, nil

	case func(*Context, Continuation) error:
		if kind != Around {
			return nil, nil, fmt.Errorf("%w: continuation callbacks are around-only", ErrBadCallable)
		}
		return uuid.NewString(), &callable{around: v}, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Func {
		cl, err := funcCallable(kind, rv)
		if err != nil {
			return nil, nil, err
		}
		return uuid.NewString(), cl, nil
	}

	cl, err := capabilityCallable(kind, raw, cfg.scope(), event)
	if err != nil {
		return nil, nil, err
	}
	return raw, cl, nil
}

// namedCallable validates that a Named value carries the func matching the
// registered kind.
func namedCallable(kind Kind, n Named) (*callable, error) {
	if kind == Around {
		if n.AroundFn == nil {
			return nil, fmt.Errorf("%w: Named around callback without AroundFn", ErrBadCallable)
		}
		return &callable{around: n.AroundFn}, nil
	}
	if n.Fn == nil {
		return nil, fmt.Errorf("%w: Named callback without Fn", ErrBadCallable)
	}
	return &callable{fn: n.Fn}, nil
}

// funcCallable adapts an arbitrary func shape via reflection. Funcs taking
// more than the supported arguments are a configuration error.
func funcCallable(kind Kind, fn reflect.Value) (*callable, error) {
	if kind == Around {
		inv, err := aroundInvoker(fn)
		if err != nil {
			return nil, err
		}
		return &callable{around: inv}, nil
	}
	inv, err := invoker(fn)
	if err != nil {
		return nil, err
	}
	return &callable{fn: inv}, nil
}

// methodCallable resolves a named method against the target at call time,
// so a more specific target type can override it.
func methodCallable(kind Kind, name string) *callable {
	if kind == Around {
		return &callable{around: func(c *Context, next Continuation) error {
			m, err := targetMethod(c.Target, name)
			if err != nil {
				return err
			}
			inv, err := aroundInvoker(m)
			if err != nil {
				return fmt.Errorf("method %q on %T: %w", name, c.Target, err)
			}
			return inv(c, next)
		}}
	}
	return &callable{fn: func(c *Context) (any, error) {
		m, err := targetMethod(c.Target, name)
		if err != nil {
			return nil, err
		}
		inv, err := invoker(m)
		if err != nil {
			return nil, fmt.Errorf("method %q on %T: %w", name, c.Target, err)
		}
		return inv(c)
	}}
}

func targetMethod(target any, name string) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, fmt.Errorf("chain: no target to resolve method %q", name)
	}
	m := reflect.ValueOf(target).MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("chain: target %T has no method %q", target, name)
	}
	return m, nil
}

// capabilityCallable resolves an external object against the chain scope.
// The default scope selects one of the explicit capability interfaces by
// kind; a custom scope resolves a method named by the joined scope tokens,
// checked once here rather than per call.
func capabilityCallable(kind Kind, obj any, scope []string, event string) (*callable, error) {
	if len(scope) == 1 && scope[0] == ScopeKind {
		switch kind {
		case Before:
			if h, ok := obj.(BeforeHandler); ok {
				return &callable{fn: h.Before}, nil
			}
		case After:
			if h, ok := obj.(AfterHandler); ok {
				return &callable{fn: func(c *Context) (any, error) {
					return nil, h.After(c)
				}}, nil
			}
		case Around:
			if h, ok := obj.(AroundHandler); ok {
				return &callable{around: h.Around}, nil
			}
		}
		return nil, fmt.Errorf("%w: %T does not implement the %s capability", ErrBadCallable, obj, kind)
	}

	name := scopedMethodName(kind, scope, event)
	m := reflect.ValueOf(obj).MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %q", ErrBadScope, obj, name)
	}
	if kind == Around {
		inv, err := aroundInvoker(m)
		if err != nil {
			return nil, fmt.Errorf("method %q on %T: %w", name, obj, err)
		}
		return &callable{around: inv}, nil
	}
	inv, err := invoker(m)
	if err != nil {
		return nil, fmt.Errorf("method %q on %T: %w", name, obj, err)
	}
	return &callable{fn: inv}, nil
}

// Scope tokens understood by scopedMethodName.
const (
	// ScopeKind expands to the filter kind ("before" -> "Before").
	ScopeKind = "kind"

	// ScopeName expands to the event name ("save" -> "Save").
	ScopeName = "name"
)

// scopedMethodName joins the configured scope tokens into an exported
// method name, e.g. scope [kind, name] on event "save" for a before filter
// yields "BeforeSave".
func scopedMethodName(kind Kind, scope []string, event string) string {
	var b strings.Builder
	for _, token := range scope {
		switch token {
		case ScopeKind:
			b.WriteString(exportName(kind.String()))
		case ScopeName:
			b.WriteString(exportName(event))
		default:
			b.WriteString(exportName(token))
		}
	}
	return b.String()
}

// exportName converts a lower or snake_case token to an exported CamelCase
// identifier segment.
func exportName(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

var (
	contextType      = reflect.TypeOf((*Context)(nil))
	continuationType = reflect.TypeOf(Continuation(nil))
	rawContinuation  = reflect.TypeOf((func() (any, error))(nil))
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
)

// invoker adapts a before/after func or method. Supported shapes take no
// argument or a single *Context and return nothing, a value, an error, or
// a (value, error) pair.
func invoker(fn reflect.Value) (func(c *Context) (any, error), error) {
	t := fn.Type()
	if t.IsVariadic() || t.NumIn() > 1 {
		return nil, ErrBadArity
	}
	if t.NumIn() == 1 && t.In(0) != contextType {
		return nil, fmt.Errorf("%w: argument must be *chain.Context", ErrBadCallable)
	}
	if err := checkOutputs(t); err != nil {
		return nil, err
	}

	wantsContext := t.NumIn() == 1
	return func(c *Context) (any, error) {
		var args []reflect.Value
		if wantsContext {
			args = []reflect.Value{reflect.ValueOf(c)}
		}
		return splitResults(t, fn.Call(args))
	}, nil
}

// aroundInvoker adapts an around func or method. Supported shapes take a
// *Context and a Continuation and return nothing or an error.
func aroundInvoker(fn reflect.Value) (func(c *Context, next Continuation) error, error) {
	t := fn.Type()
	if t.IsVariadic() || t.NumIn() != 2 {
		return nil, ErrBadArity
	}
	if t.In(0) != contextType || (t.In(1) != continuationType && t.In(1) != rawContinuation) {
		return nil, fmt.Errorf("%w: around signature must be func(*chain.Context, chain.Continuation)", ErrBadCallable)
	}
	if t.NumOut() > 1 || (t.NumOut() == 1 && !t.Out(0).Implements(errorType)) {
		return nil, fmt.Errorf("%w: around callbacks return at most an error", ErrBadCallable)
	}

	return func(c *Context, next Continuation) error {
		out := fn.Call([]reflect.Value{reflect.ValueOf(c), reflect.ValueOf(next)})
		if len(out) == 1 {
			return asError(out[0])
		}
		return nil
	}, nil
}

func checkOutputs(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if !t.Out(1).Implements(errorType) {
			return fmt.Errorf("%w: second return value must be error", ErrBadCallable)
		}
		return nil
	default:
		return fmt.Errorf("%w: too many return values", ErrBadCallable)
	}
}

func splitResults(t reflect.Type, out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0).Implements(errorType) {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

// asError converts a returned value to an error. Only nilable kinds are
// checked for nil; a concrete struct type implementing error converts
// directly.
func asError(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		if v.IsNil() {
			return nil
		}
	}
	err, _ := v.Interface().(error)
	return err
}

// identityOf derives the lookup identity for an unregister call. Anonymous
// funcs have per-registration identities and cannot be matched by value.
func identityOf(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return v
	case Named:
		return v.ID
	}
	if reflect.ValueOf(raw).Kind() == reflect.Func {
		return nil
	}
	return raw
}

// sameIdentity compares two identities without panicking on uncomparable
// values.
func sameIdentity(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() || !av.Comparable() {
		return false
	}
	return av.Equal(bv)
}
