package pass

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/ir"
)

// IterOrder controls whether a pass visits a Context's components in
// definition order or in an order derived from the component dependency
// DAG (spec.md §4.3's "separate from the control traversal within a
// component").
type IterOrder int

const (
	// IterPre visits callers before the components they instantiate.
	IterPre IterOrder = iota
	// IterPost visits sub-components before the components that
	// instantiate them.
	IterPost
)

// Pass is a registered transformation. NewVisitor is called once per
// component it is run over, so a pass can close over per-component state
// (e.g. a freshly built analysis) without that state leaking across
// components.
type Pass interface {
	Name() string
	IterationOrder() IterOrder
	Schema() Schema
	NewVisitor(ctx *ir.Context, comp *ir.Component, opts Options) (Visitor, error)
}

// DiagnosticPass runs once over the whole Context rather than per
// component, and may collect multiple errors before the manager aborts
// (spec.md §4.3, §7).
type DiagnosticPass interface {
	Name() string
	Schema() Schema
	RunDiagnostic(ctx *ir.Context, opts Options) *calyxerr.List
}

// Manager holds every registered pass and diagnostic, keyed by name, and
// the named aliases (ordered pipelines that may nest other aliases). It is
// produced by the fluent ManagerBuilder.
type Manager struct {
	passes      map[string]Pass
	diagnostics map[string]DiagnosticPass
	aliases     map[string][]string

	runID string
}

// ManagerBuilder fluently assembles a Manager with a value-receiver
// "WithX(...) Builder" shape and a terminal Build().
type ManagerBuilder struct {
	passes      map[string]Pass
	diagnostics map[string]DiagnosticPass
	aliases     map[string][]string
}

// NewManagerBuilder creates an empty builder.
func NewManagerBuilder() ManagerBuilder {
	return ManagerBuilder{
		passes:      map[string]Pass{},
		diagnostics: map[string]DiagnosticPass{},
		aliases:     map[string][]string{},
	}
}

// WithPass registers a per-component pass.
func (b ManagerBuilder) WithPass(p Pass) ManagerBuilder {
	b.passes[p.Name()] = p
	return b
}

// WithDiagnostic registers a whole-context diagnostic pass.
func (b ManagerBuilder) WithDiagnostic(d DiagnosticPass) ManagerBuilder {
	b.diagnostics[d.Name()] = d
	return b
}

// WithAlias registers a named ordered pipeline. Entries may themselves be
// the name of another alias; RunAlias flattens the nesting.
func (b ManagerBuilder) WithAlias(name string, members ...string) ManagerBuilder {
	b.aliases[name] = append([]string(nil), members...)
	return b
}

// Build produces the Manager, stamping it with a fresh run-correlation id
// used purely for log correlation rather than any semantically load-bearing
// value.
func (b ManagerBuilder) Build() *Manager {
	return &Manager{
		passes:      b.passes,
		diagnostics: b.diagnostics,
		aliases:     b.aliases,
		runID:       xid.New().String(),
	}
}

// flatten expands an alias name into its ordered leaf pass/diagnostic
// names, recursively inlining any nested alias. seen guards against an
// alias that (erroneously) refers to itself.
func (m *Manager) flatten(name string, seen map[string]bool) ([]string, error) {
	if _, isPass := m.passes[name]; isPass {
		return []string{name}, nil
	}
	if _, isDiag := m.diagnostics[name]; isDiag {
		return []string{name}, nil
	}
	members, ok := m.aliases[name]
	if !ok {
		return nil, calyxerr.New(calyxerr.MalformedControl, "unknown pass or alias %q", name)
	}
	if seen[name] {
		return nil, calyxerr.New(calyxerr.MalformedControl, "alias %q refers to itself", name)
	}
	seen[name] = true

	var out []string
	for _, member := range members {
		expanded, err := m.flatten(member, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// AliasNames returns every registered alias name, for diagnostic listing.
func (m *Manager) AliasNames() []string {
	out := make([]string, 0, len(m.aliases))
	for name := range m.aliases {
		out = append(out, name)
	}
	return out
}

// Alias returns an alias's direct (unflattened) member list.
func (m *Manager) Alias(name string) ([]string, bool) {
	members, ok := m.aliases[name]
	return members, ok
}

// Flatten expands an alias name (or a bare pass/diagnostic name) into its
// ordered leaf pass/diagnostic names, exported for diagnostic tooling.
func (m *Manager) Flatten(name string) ([]string, error) {
	return m.flatten(name, map[string]bool{})
}

// schemas collects every registered pass/diagnostic's option Schema, keyed
// by name, for ParseFlags.
func (m *Manager) schemas() map[string]Schema {
	out := make(map[string]Schema, len(m.passes)+len(m.diagnostics))
	for name, p := range m.passes {
		out[name] = p.Schema()
	}
	for name, d := range m.diagnostics {
		out[name] = d.Schema()
	}
	return out
}

// RunAlias executes the named alias (or a single bare pass name) over ctx:
// flattening nested aliases, parsing "-x pass:opt[=value]" flags against
// the participating passes' schemas, then running each pass/diagnostic in
// order. A non-diagnostic pass returning an error aborts the run
// immediately; a diagnostic pass collects every violation it finds before
// reporting (spec.md §7).
func (m *Manager) RunAlias(aliasName string, ctx *ir.Context, flags []string) error {
	order, err := m.flatten(aliasName, map[string]bool{})
	if err != nil {
		return err
	}

	parsed, err := ParseFlags(flags, m.schemas())
	if err != nil {
		return err
	}
	for _, w := range parsed.Warnings {
		slog.Warn("pass: ignoring unknown option", "run", m.runID, "detail", w)
	}

	defer m.closeOutputStreams(parsed)

	for _, name := range order {
		opts := parsed.ByPass[name]

		if diag, ok := m.diagnostics[name]; ok {
			slog.Info("pass: running diagnostic", "run", m.runID, "pass", name)
			if errs := diag.RunDiagnostic(ctx, opts); errs.HasErrors() {
				return errs
			}
			continue
		}

		p, ok := m.passes[name]
		if !ok {
			return calyxerr.New(calyxerr.Internal, "pass %q vanished from registry mid-run", name)
		}
		if err := m.runOverComponents(p, ctx, opts); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) runOverComponents(p Pass, ctx *ir.Context, opts Options) error {
	var comps []*ir.Component
	switch p.IterationOrder() {
	case IterPost:
		comps = ctx.DependencyOrder(true)
	default:
		comps = ctx.DependencyOrder(false)
	}

	for _, comp := range comps {
		v, err := p.NewVisitor(ctx, comp, opts)
		if err != nil {
			return err
		}
		slog.Log(context.Background(), slog.LevelDebug, "pass: visiting component",
			"run", m.runID, "pass", p.Name(), "component", comp.Name.String())
		if err := Run(v, comp); err != nil {
			return fmt.Errorf("pass %q on component %q: %w", p.Name(), comp.Name.String(), err)
		}
	}
	return nil
}

// closeOutputStreams registers, with atexit, one debug log line for every
// output-stream option a pass received this run. An output-stream value is
// only its specifier string; no handle is opened, so nothing is flushed or
// closed.
func (m *Manager) closeOutputStreams(parsed *ParseResult) {
	for _, opts := range parsed.ByPass {
		for optName, v := range opts {
			if v.Kind != OptOutputStream {
				continue
			}
			stream := v.Stream
			name := optName
			atexit.Register(func() {
				slog.Debug("pass: closing output stream", "option", name, "target", stream)
			})
		}
	}
}
