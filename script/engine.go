package script

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookchain/chain"
)

// Engine owns a sandboxed Lua state and compiles expressions against it.
type Engine struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

// NewEngine creates a new engine with a sandboxed Lua state.
func NewEngine() (*Engine, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(L)
	removeUnsafeGlobals(L)

	return &Engine{L: L}, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Intentionally not opened: io, os, debug, package.
}

// removeUnsafeGlobals removes base-library functions that load code and
// could bypass the sandbox.
func removeUnsafeGlobals(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Expr is a Lua expression source to be compiled into a callback.
type Expr struct {
	Source string
}

// Compile compiles the expression once and returns a chain callback keyed
// on the expression source, so re-registering the same source replaces
// the earlier filter. A malformed expression fails here.
func (e *Engine) Compile(expr Expr) (chain.Named, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return chain.Named{}, ErrEngineClosed
	}
	if expr.Source == "" {
		return chain.Named{}, ErrEmptyExpr
	}

	fn, err := e.L.LoadString("local value = ...\nreturn " + expr.Source)
	if err != nil {
		return chain.Named{}, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	return chain.Named{
		ID: expr.Source,
		Fn: func(c *chain.Context) (any, error) {
			return e.eval(fn, c.Value)
		},
	}, nil
}

// eval calls a compiled expression with the given value.
func (e *Engine) eval(fn *lua.LFunction, value any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	e.L.Push(fn)
	e.L.Push(toLua(e.L, value))
	if err := e.L.PCall(1, 1, nil); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	ret := e.L.Get(-1)
	e.L.Pop(1)
	return fromLua(ret), nil
}

// Close releases the Lua state. Compiled callbacks fail after Close.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.L.Close()
	}
}

// toLua converts a Go value to its Lua representation. Unsupported types
// map to nil, which is enough for halt-predicate expressions.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			L.SetField(tbl, k, toLua(L, item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value back to Go.
func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	default:
		return nil
	}
}
