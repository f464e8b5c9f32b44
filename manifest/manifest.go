package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/hookchain/chain"
)

// Manifest is a declarative set of lifecycle definitions.
type Manifest struct {
	Types   []TypeDef   `toml:"types" yaml:"types" json:"types"`
	Events  []EventDef  `toml:"events" yaml:"events" json:"events"`
	Filters []FilterDef `toml:"filters" yaml:"filters" json:"filters"`
}

// TypeDef declares a type node. An empty parent declares a root type.
// Parents must be declared before their children.
type TypeDef struct {
	Name   string `toml:"name" yaml:"name" json:"name"`
	Parent string `toml:"parent" yaml:"parent" json:"parent"`
}

// EventDef declares an event chain on a type.
type EventDef struct {
	Type string `toml:"type" yaml:"type" json:"type"`
	Name string `toml:"name" yaml:"name" json:"name"`

	// HaltOnFalse installs the canonical terminator: a before callback
	// returning false halts the chain. Without it the chain never halts.
	HaltOnFalse bool `toml:"halt_on_false" yaml:"halt_on_false" json:"haltOnFalse"`

	// SkipAfterIfHalted suppresses after callbacks on halted runs.
	SkipAfterIfHalted bool `toml:"skip_after_if_halted" yaml:"skip_after_if_halted" json:"skipAfterIfHalted"`

	// Scope overrides the capability-object naming tokens.
	Scope []string `toml:"scope" yaml:"scope" json:"scope"`
}

// FilterDef declares one filter registration. Exactly one of Method or
// Expr must be set.
type FilterDef struct {
	Type  string `toml:"type" yaml:"type" json:"type"`
	Event string `toml:"event" yaml:"event" json:"event"`
	Kind  string `toml:"kind" yaml:"kind" json:"kind"`

	// Method names an exported method resolved on the run target.
	Method string `toml:"method" yaml:"method" json:"method"`

	// Expr is a Lua expression compiled through a script engine.
	Expr string `toml:"expr" yaml:"expr" json:"expr"`

	// If and Unless name zero-argument bool methods on the target.
	If     []string `toml:"if" yaml:"if" json:"if"`
	Unless []string `toml:"unless" yaml:"unless" json:"unless"`

	// Prepend inserts the filter ahead of existing registrations.
	Prepend bool `toml:"prepend" yaml:"prepend" json:"prepend"`
}

// Format identifies a manifest encoding.
type Format int

// Supported formats.
const (
	FormatTOML Format = iota
	FormatYAML
	FormatJSON
)

// Load reads and parses a manifest file, selecting the format from the
// file extension, and validates it.
func Load(path string) (*Manifest, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}
	return Parse(data, format)
}

// Parse decodes and validates manifest data in the given format.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatJSON:
		err = json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("manifest: unknown format %d", format)
	}
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func formatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("manifest: unsupported extension %q", filepath.Ext(path))
	}
}

// Validate checks internal consistency: types are declared before use,
// events reference declared types, filters reference declared events and
// parse to a known kind with exactly one callback source.
func (m *Manifest) Validate() error {
	var errs ValidationErrors

	types := make(map[string]bool)
	for i, t := range m.Types {
		field := fmt.Sprintf("types[%d]", i)
		if t.Name == "" {
			errs = append(errs, ValidationError{Field: field, Message: "missing name"})
			continue
		}
		if types[t.Name] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate type " + t.Name})
		}
		if t.Parent != "" && !types[t.Parent] {
			errs = append(errs, ValidationError{Field: field, Message: "parent declared after child or missing: " + t.Parent})
		}
		types[t.Name] = true
	}

	events := make(map[string]bool)
	for i, e := range m.Events {
		field := fmt.Sprintf("events[%d]", i)
		if e.Name == "" {
			errs = append(errs, ValidationError{Field: field, Message: "missing name"})
		}
		if !types[e.Type] {
			errs = append(errs, ValidationError{Field: field, Message: "unknown type " + e.Type})
		}
		events[e.Name] = true
	}

	for i, f := range m.Filters {
		field := fmt.Sprintf("filters[%d]", i)
		if !types[f.Type] {
			errs = append(errs, ValidationError{Field: field, Message: "unknown type " + f.Type})
		}
		if !events[f.Event] {
			errs = append(errs, ValidationError{Field: field, Message: "unknown event " + f.Event})
		}
		if _, err := chain.ParseKind(f.Kind); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: "bad kind " + f.Kind})
		}
		if (f.Method == "") == (f.Expr == "") {
			errs = append(errs, ValidationError{Field: field, Message: "exactly one of method or expr required"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
