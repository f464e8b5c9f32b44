package registry

import "errors"

// Registry errors.
var (
	// ErrBadType indicates an invalid type name.
	ErrBadType = errors.New("registry: invalid type name")

	// ErrTypeExists indicates the type is already registered.
	ErrTypeExists = errors.New("registry: type already registered")

	// ErrUnknownType indicates the type is not registered.
	ErrUnknownType = errors.New("registry: unknown type")

	// ErrEventExists indicates the event is already defined for the type.
	ErrEventExists = errors.New("registry: event already defined")

	// ErrUnknownEvent indicates no event chain is visible to the type.
	ErrUnknownEvent = errors.New("registry: unknown event")
)
