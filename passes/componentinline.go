package passes

import (
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// ComponentInline implements SPEC_FULL.md §4 item 7: a non-recursive
// sub-component instantiated from exactly one Invoke site across the whole
// Context is inlined directly into its caller — its cells, groups and
// control tree are cloned into the caller, every port and group reference
// rewritten to the clones, and the callee's signature boundary is spliced
// onto the actual ports bound at the call site. An Invoke that binds any
// ref-cell is not inlined. This eliminates the
// Invoke/component-boundary overhead for leaf components that are never
// shared, at the cost of duplicating their structure if they ever become
// shared later (which single-instantiation already rules out).
//
// Grounded on: calyx/src/passes/inliner.rs (original_source).
type ComponentInline struct {
	// callCount is computed once, lazily, from the whole Context: how many
	// Invoke/StaticInvoke sites across every component target a given
	// component name.
	callCount map[ir.Identifier]int
}

func (p *ComponentInline) Name() string                  { return "component-inline" }
func (p *ComponentInline) Schema() pass.Schema            { return nil }
func (p *ComponentInline) IterationOrder() pass.IterOrder { return pass.IterPost }

func (p *ComponentInline) NewVisitor(ctx *ir.Context, comp *ir.Component, _ pass.Options) (pass.Visitor, error) {
	if p.callCount == nil {
		p.callCount = countInvocations(ctx)
	}
	return &componentInlineVisitor{pass: p, ctx: ctx, builder: ir.NewBuilder(comp, nil)}, nil
}

func countInvocations(ctx *ir.Context) map[ir.Identifier]int {
	counts := map[ir.Identifier]int{}
	var walk func(n *ir.Control)
	walk = func(n *ir.Control) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ir.CInvoke, ir.CStaticInvoke:
			if n.Cell.Prototype.Kind == ir.ProtoComponent {
				counts[n.Cell.Prototype.ComponentName]++
			}
		case ir.CSeq, ir.CPar, ir.CStaticSeq, ir.CStaticPar:
			for _, ch := range n.Children {
				walk(ch)
			}
		case ir.CIf, ir.CStaticIf:
			walk(n.Then)
			walk(n.Else)
		case ir.CWhile, ir.CRepeat, ir.CStaticRepeat:
			walk(n.Body)
		}
	}
	for _, c := range ctx.Components() {
		walk(c.Control)
	}
	return counts
}

// invokesComponent reports whether any node in n's subtree invokes a
// component named target — used as this pass's (non-transitive)
// recursion check.
func invokesComponent(n *ir.Control, target ir.Identifier) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ir.CInvoke, ir.CStaticInvoke:
		return n.Cell.Prototype.Kind == ir.ProtoComponent && n.Cell.Prototype.ComponentName == target
	case ir.CSeq, ir.CPar, ir.CStaticSeq, ir.CStaticPar:
		for _, ch := range n.Children {
			if invokesComponent(ch, target) {
				return true
			}
		}
		return false
	case ir.CIf, ir.CStaticIf:
		return invokesComponent(n.Then, target) || invokesComponent(n.Else, target)
	case ir.CWhile, ir.CRepeat, ir.CStaticRepeat:
		return invokesComponent(n.Body, target)
	default:
		return false
	}
}

type componentInlineVisitor struct {
	pass.BaseVisitor

	pass    *ComponentInline
	ctx     *ir.Context
	builder *ir.Builder
}

func (v *componentInlineVisitor) Invoke(n *ir.Control) (pass.Action, error) {
	if n.Cell.Prototype.Kind != ir.ProtoComponent || len(n.RefCells) > 0 {
		return pass.ContinueAction(), nil
	}
	callee, ok := v.ctx.Component(n.Cell.Prototype.ComponentName)
	if !ok {
		return pass.ContinueAction(), nil
	}
	if v.pass.callCount[callee.Name] != 1 {
		return pass.ContinueAction(), nil
	}
	if invokesComponent(callee.Control, callee.Name) {
		return pass.ContinueAction(), nil
	}

	inlined := v.inline(callee, n)
	return pass.ChangeAction(inlined), nil
}

// inline clones callee's cells, groups and control into v.builder's
// component, rewrites every reference to the clones, splices callee's
// signature ports onto the actual ports bound at the call site, and
// returns the rewritten control tree to replace the Invoke leaf with.
func (v *componentInlineVisitor) inline(callee *ir.Component, site *ir.Control) *ir.Control {
	prefix := site.Cell.Name.String()
	r := ir.NewRewriter()

	for _, c := range callee.Cells {
		clone := v.builder.CloneCell(prefix+"_"+c.Name.String(), c)
		r.CellMap[c.Name] = clone
	}

	for _, g := range callee.Groups {
		ng := v.builder.AddGroup(prefix + "_" + g.Name.String())
		r.GroupMap[g.Name] = ng
		r.PortMap[ir.PortKey{Parent: g.Name, Name: g.GoHole.Name}] = ng.GoHole
		r.PortMap[ir.PortKey{Parent: g.Name, Name: g.DoneHole.Name}] = ng.DoneHole
	}
	for _, g := range callee.CombGroups {
		ng := v.builder.AddCombGroup(prefix + "_" + g.Name.String())
		r.CombGroupMap[g.Name] = ng
	}
	for _, g := range callee.StaticGroups {
		ng := v.builder.AddStaticGroup(prefix+"_"+g.Name.String(), g.Latency)
		r.StaticGroupMap[g.Name] = ng
	}

	for _, b := range site.Inputs {
		r.PortMap[ir.PortKey{Parent: callee.Signature.Name, Name: b.Formal}] = b.Actual
	}
	for _, b := range site.Outputs {
		r.PortMap[ir.PortKey{Parent: callee.Signature.Name, Name: b.Formal}] = b.Actual
	}

	for _, g := range callee.Groups {
		ng := r.GroupMap[g.Name]
		for _, a := range g.Assignments {
			ng.Assignments = append(ng.Assignments, ir.RewriteAssignment(r, a))
		}
	}
	for _, g := range callee.CombGroups {
		ng := r.CombGroupMap[g.Name]
		for _, a := range g.Assignments {
			ng.Assignments = append(ng.Assignments, ir.RewriteAssignment(r, a))
		}
	}
	for _, g := range callee.StaticGroups {
		ng := r.StaticGroupMap[g.Name]
		for _, a := range g.Assignments {
			ng.Assignments = append(ng.Assignments, ir.RewriteAssignment(r, a))
		}
	}

	cloned := cloneControl(callee.Control)
	r.RewriteControl(cloned)
	return cloned
}

// cloneControl deep-copies a control tree so the original (the callee's
// own, still-registered-in-Context template) is left untouched by the
// Rewriter mutating the copy in place.
func cloneControl(n *ir.Control) *ir.Control {
	if n == nil {
		return nil
	}
	c := &ir.Control{
		Kind:        n.Kind,
		Attrs:       n.Attrs.Clone(),
		Group:       n.Group,
		StaticGroup: n.StaticGroup,
		Cond:        n.Cond,
		Count:       n.Count,
		Cell:        n.Cell,
		Latency:     n.Latency,
	}
	if n.Children != nil {
		c.Children = make([]*ir.Control, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = cloneControl(ch)
		}
	}
	c.Then = cloneControl(n.Then)
	c.Else = cloneControl(n.Else)
	c.Body = cloneControl(n.Body)
	c.CombGroup = n.CombGroup
	c.Inputs = append([]ir.PortBinding(nil), n.Inputs...)
	c.Outputs = append([]ir.PortBinding(nil), n.Outputs...)
	c.RefCells = append([]ir.RefCellBinding(nil), n.RefCells...)
	return c
}
