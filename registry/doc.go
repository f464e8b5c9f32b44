// Package registry is the declarative front door for the chain engine: it
// maps an explicit type hierarchy to per-event callback chains with
// copy-on-write inheritance.
//
// Each registered type node owns an optional chain per event. Reading a
// type's effective chain walks up to the nearest ancestor that defined or
// mutated it; the first mutation on a subtype copies that chain into the
// subtype, so sibling types never observe each other's changes.
//
// Registering and skipping filters, defining events, and resetting them
// are declaration-time operations, expected during process setup. Running
// an event is safe under concurrent load once declaration has finished.
package registry
