package pass

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/hwir/calyxerr"
)

// OptionKind is the typed shape a pass option's value must parse as,
// per spec.md §6's "-x <pass-name>:<opt-name>[=<value>]" surface.
type OptionKind int

const (
	OptBool OptionKind = iota
	OptInt
	OptIntList
	OptOutputStream
)

// OptionSpec declares one option a pass understands. Arity is only
// consulted for OptIntList: a fixed number of comma-separated integers is
// required, matching spec.md §6's "integer lists with fixed arity".
type OptionSpec struct {
	Name  string
	Kind  OptionKind
	Arity int
}

// Schema is the small per-pass table of options it accepts, declared as a
// package-level value by each pass.
type Schema []OptionSpec

func (s Schema) lookup(name string) (OptionSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return OptionSpec{}, false
}

// Value is a parsed option value; exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind   OptionKind
	Bool   bool
	Int    int
	Ints   []int
	Stream string // output-stream specifier, e.g. a file path or "-" for stdout
}

// Options is one pass's resolved option set after parsing every "-x
// pass:opt[=value]" flag that targeted it.
type Options map[string]Value

func (o Options) Bool(name string) bool {
	return o[name].Bool
}

func (o Options) Int(name string) (int, bool) {
	v, ok := o[name]
	return v.Int, ok
}

func (o Options) Ints(name string) ([]int, bool) {
	v, ok := o[name]
	return v.Ints, ok
}

func (o Options) Stream(name string) (string, bool) {
	v, ok := o[name]
	if !ok {
		return "", false
	}
	return v.Stream, true
}

// flagEntry is one raw "-x pass:opt[=value]" occurrence, in command-line
// order so ParseFlags can apply "last occurrence wins" per spec.md §6.
type flagEntry struct {
	pass, opt, raw string
	hasValue       bool
}

func parseFlag(flag string) (flagEntry, error) {
	const prefix = "-x "
	body := strings.TrimPrefix(strings.TrimSpace(flag), "-x")
	body = strings.TrimSpace(body)
	if body == "" {
		return flagEntry{}, calyxerr.New(calyxerr.MalformedFile, "empty -x flag")
	}

	passOpt, value, hasValue := strings.Cut(body, "=")
	passName, optName, ok := strings.Cut(passOpt, ":")
	if !ok {
		return flagEntry{}, calyxerr.New(calyxerr.MalformedFile,
			"malformed -x flag %q: expected pass:opt[=value]", flag)
	}
	return flagEntry{pass: passName, opt: optName, raw: value, hasValue: hasValue}, nil
}

// ParseFlags parses every "-x pass:opt[=value]" flag and groups the
// resolved values by pass name, validating each option against the
// schema the pass declares (schemas keyed by pass name). An option not
// present in its pass's schema is a warning, not an error: it is recorded
// in Warnings and otherwise ignored, matching spec.md §4.3's "Unknown
// options are warned and ignored."
type ParseResult struct {
	ByPass   map[string]Options
	Warnings []string
}

// ParseFlags parses flags in order, applying "the last occurrence wins
// for a given option" when the same pass:opt appears more than once.
func ParseFlags(flags []string, schemas map[string]Schema) (*ParseResult, error) {
	res := &ParseResult{ByPass: map[string]Options{}}

	for _, flag := range flags {
		entry, err := parseFlag(flag)
		if err != nil {
			return nil, err
		}

		schema, ok := schemas[entry.pass]
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown pass %q in flag %q, ignored", entry.pass, flag))
			continue
		}
		spec, ok := schema.lookup(entry.opt)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pass %q has no option %q, ignored", entry.pass, entry.opt))
			continue
		}

		val, err := resolveValue(spec, entry)
		if err != nil {
			return nil, err
		}

		if res.ByPass[entry.pass] == nil {
			res.ByPass[entry.pass] = Options{}
		}
		res.ByPass[entry.pass][entry.opt] = val
	}

	return res, nil
}

func resolveValue(spec OptionSpec, entry flagEntry) (Value, error) {
	switch spec.Kind {
	case OptBool:
		if !entry.hasValue {
			return Value{Kind: OptBool, Bool: true}, nil
		}
		b, err := strconv.ParseBool(entry.raw)
		if err != nil {
			return Value{}, calyxerr.New(calyxerr.MalformedFile,
				"option %s:%s: not a bool: %q", entry.pass, entry.opt, entry.raw)
		}
		return Value{Kind: OptBool, Bool: b}, nil

	case OptInt:
		n, err := strconv.Atoi(strings.TrimSpace(entry.raw))
		if err != nil {
			return Value{}, calyxerr.New(calyxerr.MalformedFile,
				"option %s:%s: not an integer: %q", entry.pass, entry.opt, entry.raw)
		}
		return Value{Kind: OptInt, Int: n}, nil

	case OptIntList:
		parts := strings.Split(entry.raw, ",")
		if spec.Arity > 0 && len(parts) != spec.Arity {
			return Value{}, calyxerr.New(calyxerr.MalformedFile,
				"option %s:%s: expected %d comma-separated integers, got %d",
				entry.pass, entry.opt, spec.Arity, len(parts))
		}
		ints := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Value{}, calyxerr.New(calyxerr.MalformedFile,
					"option %s:%s: not an integer list: %q", entry.pass, entry.opt, entry.raw)
			}
			ints[i] = n
		}
		return Value{Kind: OptIntList, Ints: ints}, nil

	case OptOutputStream:
		if entry.raw == "" {
			return Value{}, calyxerr.New(calyxerr.MalformedFile,
				"option %s:%s: output-stream requires a value", entry.pass, entry.opt)
		}
		return Value{Kind: OptOutputStream, Stream: entry.raw}, nil

	default:
		return Value{}, calyxerr.New(calyxerr.Internal, "unknown option kind %d", spec.Kind)
	}
}
