package script

import "errors"

// Script errors.
var (
	// ErrEngineClosed is returned when using a closed engine.
	ErrEngineClosed = errors.New("script: engine is closed")

	// ErrEmptyExpr indicates an empty expression source.
	ErrEmptyExpr = errors.New("script: empty expression")

	// ErrCompile indicates the expression failed to compile.
	ErrCompile = errors.New("script: expression does not compile")
)
