// Package chain implements a lifecycle callback chain: an ordered list of
// before/after/around filters for a named event, compiled into a single
// composed pipeline and run against a target object.
//
// # Filters
//
// A filter wraps one registered callback plus its guard conditions:
//
//   - Before filters run in registration order ahead of the event body.
//     Their return value is fed to the chain's terminator predicate; a
//     halting result stops all subsequent before/around work and the body.
//   - After filters run on the way back out, in reverse registration order.
//     Their return values are ignored.
//   - Around filters wrap everything registered after them, including the
//     body. The callback receives a continuation and decides whether and
//     when to invoke it.
//
// # Callback Shapes
//
// Register accepts four callback shapes:
//
//   - A string names a method resolved on the target by reflection at call
//     time, so a more specific target type can override it.
//   - A func in one of the supported signatures (see Register). Funcs
//     taking more than one argument are rejected at registration.
//   - A Named value pairs a callback func with a stable identity, used by
//     the script package for compiled Lua expressions.
//   - Any other value is treated as a capability object. With the default
//     scope it must implement BeforeHandler, AfterHandler, or
//     AroundHandler to match the registered kind; a custom scope resolves
//     a method named by the joined scope tokens instead.
//
// # Compilation
//
// The chain lazily folds its filter list into nested stages, first
// registered outermost, and caches the result. Any structural mutation
// (append, prepend, remove, merge-replace, clear) invalidates the cache.
// Compilation is safe to race; mutation is a declaration-time operation.
//
// # Halting and Errors
//
// A halted run returns false; a run whose body is absent returns true.
// Callers that need to distinguish "halted" from "body returned false"
// should use RunContext and inspect the context. Callback errors propagate
// to the Run caller unmodified and abort remaining callbacks, including
// after filters on the way out.
package chain
