package passes

import (
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// IfElseSpec implements SPEC_FULL.md §4 item 5: an If whose both branches
// are Empty is replaced by Empty. Its comb-group only computes the
// side-effect-free condition, so it is dropped together with the If — the
// branch contributes nothing once neither arm does any work.
//
// Grounded on: calyx/src/passes/if_else_spec.rs (original_source).
type IfElseSpec struct{}

func (p *IfElseSpec) Name() string                  { return "if-else-spec" }
func (p *IfElseSpec) Schema() pass.Schema            { return nil }
func (p *IfElseSpec) IterationOrder() pass.IterOrder { return pass.IterPre }

func (p *IfElseSpec) NewVisitor(_ *ir.Context, _ *ir.Component, _ pass.Options) (pass.Visitor, error) {
	return &ifElseSpecVisitor{}, nil
}

type ifElseSpecVisitor struct {
	pass.BaseVisitor
}

func (v *ifElseSpecVisitor) FinishIf(n *ir.Control) (pass.Action, error) {
	if !isEmptyControl(n.Then) || !isEmptyControl(n.Else) {
		return pass.ContinueAction(), nil
	}

	// The comb-group has no effect beyond the condition it computes, so
	// nothing is lost when it stops being referenced.
	return pass.ChangeAction(ir.Empty()), nil
}

// isEmptyControl reports whether n is either nil or the Empty leaf.
func isEmptyControl(n *ir.Control) bool {
	return n == nil || n.Kind == ir.CEmpty
}
