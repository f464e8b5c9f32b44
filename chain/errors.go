package chain

import "errors"

// Registration errors. All are configuration errors raised when a filter
// is registered, never during a run.
var (
	// ErrBadCallable indicates an unsupported callback shape.
	ErrBadCallable = errors.New("chain: unsupported callback shape")

	// ErrBadArity indicates a callback func with too many arguments.
	ErrBadArity = errors.New("chain: callback accepts too many arguments")

	// ErrBadScope indicates a capability object missing the method named
	// by the configured scope.
	ErrBadScope = errors.New("chain: no method matching configured scope")
)
