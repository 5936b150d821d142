// Package lib holds the read-only primitive signature library the pass core
// consumes (spec.md §6): each primitive declares a name, parameter
// identifiers, typed/parameterized ports, attributes, and optionally an
// inline body the core never inspects. Parsing of source *workspaces* is
// out of scope (spec.md §1); this package only loads the already-resolved
// signature side-table.
package lib

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PortWidthExpr is a width expression over a primitive's parameters,
// e.g. "WIDTH" or "WIDTH - 1". Evaluation is a simple recursive-descent
// sum/difference of parameter references and integer literals — enough for
// the library signatures real primitives declare, without pulling in a
// general expression-parsing dependency for a handful of "+"/"-" terms.
type PortWidthExpr string

// Eval resolves a width expression against a primitive's bound parameters.
func (e PortWidthExpr) Eval(params map[string]int) (int, error) {
	return evalWidthExpr(string(e), params)
}

// PortSig describes one port on a primitive signature.
type PortSig struct {
	Name      string            `yaml:"name"`
	Width     PortWidthExpr     `yaml:"width"`
	Direction string            `yaml:"direction"` // "input" | "output" | "inout"
	Attrs     map[string]int    `yaml:"attrs,omitempty"`
}

// Signature is one primitive's declaration: its name, parameter
// identifiers, typed/parameterized ports, attributes, and whether it
// carries an inline body the core treats as opaque.
type Signature struct {
	Name       string         `yaml:"name"`
	Params     []string       `yaml:"params,omitempty"`
	Ports      []PortSig      `yaml:"ports"`
	Attrs      map[string]int `yaml:"attrs,omitempty"`
	HasBody    bool           `yaml:"has_body,omitempty"`
	IsExternal bool           `yaml:"extern,omitempty"`
}

// Library is the read-only set of primitive signatures available to a
// Context. The pass core only ever reads from a Library; nothing in this
// module mutates one after NewLibrary or LoadSignatures returns it.
type Library struct {
	byName map[string]Signature
	order  []string
}

// NewLibrary builds a Library from an explicit signature list, used by
// tests and by callers that already have signatures in memory.
func NewLibrary(sigs []Signature) *Library {
	l := &Library{byName: map[string]Signature{}}
	for _, s := range sigs {
		l.byName[s.Name] = s
		l.order = append(l.order, s.Name)
	}
	return l
}

// Lookup returns the signature for a primitive name.
func (l *Library) Lookup(name string) (Signature, bool) {
	s, ok := l.byName[name]
	return s, ok
}

// Names returns every signature name in declaration order.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// fileSchema is the on-disk shape LoadSignatures reads: a flat list of
// signatures (read file -> yaml.Unmarshal -> convert to a typed map)
// targeting a signature library.
type fileSchema struct {
	Primitives []Signature `yaml:"primitives"`
}

// LoadSignatures reads a YAML-encoded primitive signature library from
// disk.
func LoadSignatures(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lib: reading signature library %s: %w", path, err)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("lib: parsing signature library %s: %w", path, err)
	}

	return NewLibrary(schema.Primitives), nil
}

// evalWidthExpr evaluates a small "+"/"-"-separated sum of integer literals
// and parameter references.
func evalWidthExpr(expr string, params map[string]int) (int, error) {
	total := 0
	sign := 1
	term := ""

	flush := func() error {
		if term == "" {
			return nil
		}
		if v, ok := params[term]; ok {
			total += sign * v
			return nil
		}
		var n int
		if _, err := fmt.Sscanf(term, "%d", &n); err != nil {
			return fmt.Errorf("lib: unknown term %q in width expression %q", term, expr)
		}
		total += sign * n
		return nil
	}

	for _, r := range expr {
		switch r {
		case ' ':
			continue
		case '+':
			if err := flush(); err != nil {
				return 0, err
			}
			term, sign = "", 1
		case '-':
			if err := flush(); err != nil {
				return 0, err
			}
			term, sign = "", -1
		default:
			term += string(r)
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return total, nil
}
