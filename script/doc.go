// Package script compiles Lua expressions into chain callbacks.
//
// An expression is a single Lua expression evaluated against the current
// chain value, e.g.:
//
//	eng, _ := script.NewEngine()
//	defer eng.Close()
//
//	cb, err := eng.Compile(script.Expr{Source: `value ~= nil`})
//	if err != nil { ... }
//	ch.Register(chain.Before, cb, chain.Conditions{}, chain.AtEnd)
//
// Compilation happens once, at registration time; a malformed expression
// is a configuration error and never reaches a run. The compiled callback
// receives the context value as the Lua local `value` and returns the
// expression result, so an expression returning false halts a chain
// configured with chain.HaltOnFalse.
//
// The engine's Lua state is sandboxed: only the base, table, string, and
// math libraries are opened, and code-loading globals are removed. The
// state is not goroutine-safe, so the engine serializes calls through a
// mutex; one engine per chain-heavy goroutine is reasonable.
package script
