// Package calyxerr defines the error taxonomy shared by every pass, analysis
// and builder in this module.
package calyxerr

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sarchlab/hwir/sourceinfo"
)

var titleCaser = cases.Title(language.English)

// Kind classifies the circumstance an Error was raised under.
type Kind int

const (
	// MalformedFile marks an import path not found, a parse failure, or a
	// library path that could not be canonicalized.
	MalformedFile Kind = iota
	// MalformedStructure marks a duplicate name, an undefined reference, a
	// wrong-direction write, a hole written by a continuous assignment, or a
	// cyclic hole dependency.
	MalformedStructure
	// MalformedControl marks a pass precondition violated by the control
	// program being visited.
	MalformedControl
	// InvalidConversion marks an attempted promotion/compilation that cannot
	// be carried out on the given IR (e.g. unknown latency, leftover
	// comb-group on an Invoke).
	InvalidConversion
	// WriteError marks an output file that could not be opened or written.
	WriteError
	// Internal marks an invariant the core itself asserts. Code that raises
	// this kind should have already panicked; it exists so a diagnostic pass
	// can report a recovered panic without crashing the whole run.
	Internal
)

func (k Kind) String() string {
	switch k {
	case MalformedFile:
		return titleCaser.String("malformed file")
	case MalformedStructure:
		return titleCaser.String("malformed structure")
	case MalformedControl:
		return titleCaser.String("malformed control")
	case InvalidConversion:
		return titleCaser.String("invalid conversion")
	case WriteError:
		return titleCaser.String("write error")
	case Internal:
		return titleCaser.String("internal")
	default:
		return titleCaser.String("unknown")
	}
}

// Error is the concrete error type returned by builders, analyses and
// passes. Pos is nil when the offending IR was not constructed from parsed
// source (e.g. synthesized by a pass).
type Error struct {
	Kind    Kind
	Message string
	Pos     *sourceinfo.Pos
}

func (e *Error) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error with no attached source position.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithPos attaches a source position to an Error and returns it.
func (e *Error) WithPos(pos *sourceinfo.Pos) *Error {
	e.Pos = pos
	return e
}

// List accumulates multiple errors, the shape diagnostic passes need since
// they must collect every violation before aborting (spec §7).
type List struct {
	Errs []*Error
}

func (l *List) Add(err *Error) {
	l.Errs = append(l.Errs, err)
}

func (l *List) HasErrors() bool {
	return len(l.Errs) > 0
}

func (l *List) Error() string {
	if len(l.Errs) == 0 {
		return ""
	}
	if len(l.Errs) == 1 {
		return l.Errs[0].Error()
	}
	return fmt.Sprintf("%d errors, first: %s", len(l.Errs), l.Errs[0].Error())
}
