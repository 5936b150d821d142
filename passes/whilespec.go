package passes

import (
	"github.com/sarchlab/hwir/analysis"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// WhileSpec implements SPEC_FULL.md §4 item 5: a While whose body cannot
// possibly write any cell its condition reads, and whose AttrBound is
// statically known, loops a fixed number of times regardless of what the
// body does — it is rewritten to Repeat, letting later passes (static
// promotion, compaction) treat it as ordinary fixed-count repetition
// instead of an open-ended loop.
//
// Grounded on: calyx/src/passes/while_spec.rs (original_source).
type WhileSpec struct{}

func (p *WhileSpec) Name() string                  { return "while-spec" }
func (p *WhileSpec) Schema() pass.Schema            { return nil }
func (p *WhileSpec) IterationOrder() pass.IterOrder { return pass.IterPre }

func (p *WhileSpec) NewVisitor(_ *ir.Context, _ *ir.Component, _ pass.Options) (pass.Visitor, error) {
	return &whileSpecVisitor{}, nil
}

type whileSpecVisitor struct {
	pass.BaseVisitor
}

func (v *whileSpecVisitor) FinishWhile(n *ir.Control) (pass.Action, error) {
	bound, ok := n.Attrs.Num(ir.AttrBound)
	if !ok {
		return pass.ContinueAction(), nil
	}

	condCell := condCellOf(n.Cond)
	if condCell == nil {
		return pass.ContinueAction(), nil
	}

	condReads := []*ir.Cell{condCell}
	if n.CombGroup != nil {
		condReads = append(condReads, analysis.ComputeAssignments(n.CombGroup.Assignments).CellReads...)
	}
	bodyRW := analysis.ComputeControl(n.Body)
	for _, c := range bodyRW.CellWrites {
		for _, r := range condReads {
			if c != nil && r != nil && c.Name == r.Name {
				return pass.ContinueAction(), nil
			}
		}
	}
	if n.CombGroup != nil {
		combRW := analysis.ComputeAssignments(n.CombGroup.Assignments)
		for _, c := range combRW.CellWrites {
			if c.Name == condCell.Name {
				return pass.ContinueAction(), nil
			}
		}
	}

	repeat := ir.Repeat(n.Body, bound)
	repeat.Attrs = n.Attrs.Clone()
	return pass.ChangeAction(repeat), nil
}

// condCellOf returns the cell a While's condition port belongs to, or nil
// for a hole or signature port (neither of which analysis.ComputeControl's
// cell-write set ever names, so the write-freedom check would be vacuous).
func condCellOf(p *ir.Port) *ir.Cell {
	if p == nil || p.IsHole() || p.ParentKind() != ir.ParentCell {
		return nil
	}
	return p.Cell()
}
