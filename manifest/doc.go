// Package manifest loads declarative lifecycle definitions and applies
// them to a registry.
//
// A manifest lists types, events, and filters:
//
//	[[types]]
//	name = "record"
//
//	[[types]]
//	name = "user"
//	parent = "record"
//
//	[[events]]
//	type = "record"
//	name = "save"
//	halt_on_false = true
//	skip_after_if_halted = true
//
//	[[filters]]
//	type = "record"
//	event = "save"
//	kind = "before"
//	method = "Validate"
//
//	[[filters]]
//	type = "user"
//	event = "save"
//	kind = "before"
//	expr = 'value ~= false'
//
// TOML, YAML, and JSON are supported, selected by file extension. Method
// filters name an exported method resolved on the run target; expr
// filters are Lua expressions compiled through a script.Engine. Guard
// lists (if/unless) name zero-argument bool methods on the target.
//
// The Watcher reloads a manifest file when it changes on disk, with a
// debounce window for editors that write in bursts.
package manifest
