package passes

import (
	"sort"

	"github.com/sarchlab/hwir/analysis"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// RegisterUnsharing implements spec.md §4.4.3: a register written by two
// groups (or invokes) whose live ranges never overlap does not need to be
// the same physical cell. This pass computes analysis.OverlapPartitions for
// every register in a component and, for each register split into more
// than one partition, clones the cell once per extra partition and
// rewrites every write and every unambiguously-resolved read to target the
// partition's own cell. Partition 0 always keeps the original cell so
// every untouched reference (an ambiguous read, a write under static
// control the reaching-defs analysis does not model) is left alone.
//
// Grounded on: calyx-opt/src/passes/register_unsharing.rs (original_source);
// spec.md §4.4.3.
type RegisterUnsharing struct{}

func (p *RegisterUnsharing) Name() string                  { return "register-unsharing" }
func (p *RegisterUnsharing) Schema() pass.Schema            { return nil }
func (p *RegisterUnsharing) IterationOrder() pass.IterOrder { return pass.IterPre }

func (p *RegisterUnsharing) NewVisitor(_ *ir.Context, _ *ir.Component, _ pass.Options) (pass.Visitor, error) {
	return &registerUnsharingVisitor{}, nil
}

type registerUnsharingVisitor struct {
	pass.BaseVisitor

	cells        map[ir.Identifier][]*ir.Cell
	defPartition map[analysis.Definition]int
	reaching     *analysis.ReachingDefs
}

func (v *registerUnsharingVisitor) Start(comp *ir.Component) error {
	partitions := analysis.OverlapPartitions(comp.Control)
	v.reaching = analysis.ComputeReachingDefs(comp.Control)
	v.cells = map[ir.Identifier][]*ir.Cell{}
	v.defPartition = map[analysis.Definition]int{}

	var regs []*ir.Cell
	for reg := range partitions {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name.String() < regs[j].Name.String() })

	b := ir.NewBuilder(comp, nil)
	for _, reg := range regs {
		parts := partitions[reg]
		if len(parts) < 2 {
			continue
		}
		sort.Slice(parts, func(i, j int) bool {
			return partitionKey(parts[i]) < partitionKey(parts[j])
		})

		replacements := make([]*ir.Cell, len(parts))
		replacements[0] = reg
		for i := 1; i < len(parts); i++ {
			replacements[i] = b.CloneCell(reg.Name.String()+"_split", reg)
		}
		v.cells[reg.Name] = replacements

		for i, part := range parts {
			for _, d := range part {
				v.defPartition[d] = i
			}
		}
	}

	v.walk(comp.Control)
	return nil
}

// partitionKey derives a deterministic sort key for a partition so cloned
// cells are assigned to the same partition index across runs, independent
// of OverlapPartitions' internal map-iteration order.
func partitionKey(part []analysis.Definition) string {
	best := ""
	first := true
	for _, d := range part {
		label := groupLabel(d)
		if first || label < best {
			best, first = label, false
		}
	}
	return best
}

func groupLabel(d analysis.Definition) string {
	if d.Group == nil {
		return ""
	}
	switch d.Group.Kind {
	case ir.CEnable:
		return d.Group.Group.Name.String()
	case ir.CInvoke, ir.CStaticInvoke:
		return d.Group.Cell.Name.String()
	default:
		return ""
	}
}

func (v *registerUnsharingVisitor) walk(n *ir.Control) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ir.CEnable:
		rewriteAssignmentList(v, n, n.Group.Assignments)
	case ir.CStaticEnable:
		rewriteAssignmentList(v, n, n.StaticGroup.Assignments)
	case ir.CSeq, ir.CPar, ir.CStaticSeq, ir.CStaticPar:
		for _, ch := range n.Children {
			v.walk(ch)
		}
	case ir.CIf, ir.CStaticIf:
		n.Cond = v.rewriteRead(n, n.Cond)
		if n.CombGroup != nil {
			rewriteAssignmentList(v, n, n.CombGroup.Assignments)
		}
		v.walk(n.Then)
		v.walk(n.Else)
	case ir.CWhile:
		n.Cond = v.rewriteRead(n, n.Cond)
		if n.CombGroup != nil {
			rewriteAssignmentList(v, n, n.CombGroup.Assignments)
		}
		v.walk(n.Body)
	case ir.CRepeat, ir.CStaticRepeat:
		v.walk(n.Body)
	case ir.CInvoke, ir.CStaticInvoke:
		for i, b := range n.Inputs {
			n.Inputs[i].Actual = v.rewriteRead(n, b.Actual)
		}
		for i, b := range n.Outputs {
			n.Outputs[i].Actual = v.rewriteWrite(n, b.Actual)
		}
	}
}

// rewriteAssignmentList rewrites every write/read port in assigns in place.
// A standalone generic function, since Go methods cannot carry their own
// type parameters: Assignment[Dynamic] (group/comb-group) and
// Assignment[Static] (static-group) assignments share this one body.
func rewriteAssignmentList[T any](v *registerUnsharingVisitor, n *ir.Control, assigns []ir.Assignment[T]) {
	for i, a := range assigns {
		assigns[i].Dst = v.rewriteWrite(n, a.Dst)
		assigns[i].Src = v.rewriteRead(n, a.Src)
		assigns[i].Guard = a.Guard.Map(func(p *ir.Port) *ir.Port { return v.rewriteRead(n, p) })
	}
}

func (v *registerUnsharingVisitor) rewriteWrite(n *ir.Control, p *ir.Port) *ir.Port {
	cell := portCell(p)
	if cell == nil {
		return p
	}
	replacements, ok := v.cells[cell.Name]
	if !ok {
		return p
	}
	idx, ok := v.defPartition[analysis.Definition{Register: cell, Group: n}]
	if !ok {
		return p
	}
	return substitute(replacements[idx], cell, p)
}

func (v *registerUnsharingVisitor) rewriteRead(n *ir.Control, p *ir.Port) *ir.Port {
	cell := portCell(p)
	if cell == nil {
		return p
	}
	replacements, ok := v.cells[cell.Name]
	if !ok {
		return p
	}
	idx, ok := v.readPartition(n, cell)
	if !ok {
		return p
	}
	return substitute(replacements[idx], cell, p)
}

// readPartition resolves the single partition a read at n may observe,
// using the reaching-definitions set computed at n's entry. A read with no
// reaching definition for this register, or with more than one reaching
// definition landing in different partitions, is left unresolved and the
// original cell is kept, matching this pass's conservative scope.
func (v *registerUnsharingVisitor) readPartition(n *ir.Control, cell *ir.Cell) (int, bool) {
	var found int
	matched := false
	for _, d := range v.reaching.In[n] {
		if d.Register != cell {
			continue
		}
		idx, ok := v.defPartition[d]
		if !ok {
			continue
		}
		if matched && idx != found {
			return 0, false
		}
		found, matched = idx, true
	}
	return found, matched
}

func portCell(p *ir.Port) *ir.Cell {
	if p == nil || p.IsHole() {
		return nil
	}
	return p.Cell()
}

func substitute(newCell, oldCell *ir.Cell, p *ir.Port) *ir.Port {
	if newCell == oldCell {
		return p
	}
	np, ok := newCell.Port(p.Name)
	if !ok {
		return p
	}
	return np
}
