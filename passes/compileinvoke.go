package passes

import (
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// CompileInvoke implements spec.md §4.4.4: lowers each dynamic Invoke into
// an ordinary Enable of a freshly built group that (a) unconditionally
// drives every bound input port, (b) drives the invoked cell's go port
// while its done port is low, and (c) declares the group's done hole to be
// the cell's done port. Outputs need no group assignments: the invoked
// cell is an ordinary sibling cell, so its output ports are already
// readable wherever the invoke's Outputs binding would have named them.
// Ref-cell bindings are not handled here; by the time compile-invoke runs,
// passes/compileref.go has already turned them into ordinary Inputs and
// Outputs. An
// invoke whose comb-group has not yet been eliminated is an Invalid
// conversion (spec.md §7): there is no group assignment this pass could fold
// the comb-group's combinational work into without changing when it fires.
//
// Static invokes are left untouched: they belong to a purely static
// subtree lowered by passes/topdownstatic.go instead, which has no group
// go/done holes to synthesize.
//
// Grounded on: spec.md §4.4.4 directly (no single dedicated
// original_source file for this one); the invoke-handshake shape mirrors
// the go/done convention `ir/cell.go`'s Go/Done accessors already
// establish.
type CompileInvoke struct{}

func (p *CompileInvoke) Name() string                  { return "compile-invoke" }
func (p *CompileInvoke) Schema() pass.Schema            { return nil }
func (p *CompileInvoke) IterationOrder() pass.IterOrder { return pass.IterPre }

func (p *CompileInvoke) NewVisitor(_ *ir.Context, comp *ir.Component, _ pass.Options) (pass.Visitor, error) {
	return &compileInvokeVisitor{builder: ir.NewBuilder(comp, nil)}, nil
}

type compileInvokeVisitor struct {
	pass.BaseVisitor

	builder *ir.Builder
	one     *ir.Port // lazily created 1-bit high constant, shared across invokes in this component
}

func (v *compileInvokeVisitor) highSignal() *ir.Port {
	if v.one == nil {
		c := v.builder.AddConstant(1, 1)
		out, _ := c.Port(ir.Intern("out"))
		v.one = out
	}
	return v.one
}

func (v *compileInvokeVisitor) Invoke(n *ir.Control) (pass.Action, error) {
	g, err := v.lower(n)
	if err != nil {
		return pass.Action{}, err
	}
	return pass.ChangeAction(ir.Enable(g)), nil
}

func (v *compileInvokeVisitor) lower(n *ir.Control) (*ir.Group, error) {
	cell := n.Cell

	if n.CombGroup != nil {
		return nil, calyxerr.New(calyxerr.InvalidConversion,
			"compile-invoke: invoke of cell %q still carries a comb-group %q; "+
				"it must be eliminated (e.g. by compile-comb-group) before compile-invoke runs",
			cell.Name, n.CombGroup.Name)
	}

	goPort, ok := cell.Go()
	if !ok {
		return nil, calyxerr.New(calyxerr.MalformedStructure,
			"compile-invoke: cell %q has no go port", cell.Name)
	}
	donePort, ok := cell.Done()
	if !ok {
		return nil, calyxerr.New(calyxerr.MalformedStructure,
			"compile-invoke: cell %q has no done port", cell.Name)
	}

	g := v.builder.AddGroup("invoke")
	for _, b := range n.Inputs {
		formal, ok := cell.Port(b.Formal)
		if !ok {
			return nil, calyxerr.New(calyxerr.MalformedStructure,
				"compile-invoke: cell %q has no port %q", cell.Name, b.Formal)
		}
		g.Assignments = append(g.Assignments, ir.BuildAssignment[ir.Dynamic](formal, b.Actual, nil))
	}

	g.Assignments = append(g.Assignments,
		ir.BuildAssignment[ir.Dynamic](goPort, v.highSignal(), ir.Not(ir.PortGuard(donePort))))
	g.Assignments = append(g.Assignments,
		ir.BuildAssignment[ir.Dynamic](g.DoneHole, donePort, nil))

	return g, nil
}
