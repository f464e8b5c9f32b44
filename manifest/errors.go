package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEngine indicates an expression filter with no script engine.
var ErrNoEngine = errors.New("manifest: expression filter requires a script engine")

// ParseError wraps a decode failure with the offending source.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("manifest: parsing %s: %s", e.Path, e.Message)
	}
	return "manifest: " + e.Message
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError describes one invalid manifest field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("manifest: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every validation failure in a manifest.
type ValidationErrors []ValidationError

// Error implements error.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
