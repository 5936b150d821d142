package analysis

import "github.com/sarchlab/hwir/ir"

// LiveRange is the result of a backward liveness dataflow over a control
// tree, recording which registers are live immediately before and after
// each dynamic-group-bearing node (Enable, If/While's comb-group sample,
// Invoke).
type LiveRange struct {
	LiveIn  map[*ir.Control][]*ir.Cell
	LiveOut map[*ir.Control][]*ir.Cell
}

type regSet struct {
	order []*ir.Cell
	has   map[ir.Identifier]bool
}

func newRegSet() *regSet { return &regSet{has: map[ir.Identifier]bool{}} }

func (s *regSet) add(c *ir.Cell) {
	if c == nil || s.has[c.Name] {
		return
	}
	s.has[c.Name] = true
	s.order = append(s.order, c)
}

func (s *regSet) addAll(cells []*ir.Cell) {
	for _, c := range cells {
		s.add(c)
	}
}

func (s *regSet) without(kill *regSet) *regSet {
	out := newRegSet()
	for _, c := range s.order {
		if !kill.has[c.Name] {
			out.add(c)
		}
	}
	return out
}

func (s *regSet) union(other *regSet) *regSet {
	out := newRegSet()
	out.addAll(s.order)
	out.addAll(other.order)
	return out
}

// ComputeLiveRanges runs the dataflow to a fixed point (While bodies
// iterate until their live-in set stops growing) and returns every node's
// live-in/live-out register sets.
func ComputeLiveRanges(root *ir.Control) *LiveRange {
	lr := &LiveRange{LiveIn: map[*ir.Control][]*ir.Cell{}, LiveOut: map[*ir.Control][]*ir.Cell{}}
	analyzeNode(root, newRegSet(), lr)
	return lr
}

func record(lr *LiveRange, n *ir.Control, in, out *regSet) {
	lr.LiveIn[n] = in.order
	lr.LiveOut[n] = out.order
}

// gkOfAssignments returns the registers read (gen) and unconditionally
// written (kill) by a set of dynamic assignments.
func gkOfAssignments(assigns []ir.Assignment[ir.Dynamic]) (gen, kill *regSet) {
	rw := ComputeAssignments(assigns)
	gen, kill = newRegSet(), newRegSet()
	for _, p := range rw.RegisterReads {
		gen.add(cellOf(p))
	}
	for _, p := range rw.MustWrites {
		if c := cellOf(p); isRegister(c) {
			kill.add(c)
		}
	}
	return gen, kill
}

func analyzeNode(n *ir.Control, liveOut *regSet, lr *LiveRange) *regSet {
	if n == nil {
		return liveOut
	}

	switch n.Kind {
	case ir.CEmpty:
		record(lr, n, liveOut, liveOut)
		return liveOut

	case ir.CEnable:
		gen, kill := gkOfAssignments(n.Group.Assignments)
		in := liveOut.without(kill).union(gen)
		record(lr, n, in, liveOut)
		return in

	case ir.CSeq:
		out := liveOut
		for i := len(n.Children) - 1; i >= 0; i-- {
			out = analyzeNode(n.Children[i], out, lr)
		}
		record(lr, n, out, liveOut)
		return out

	case ir.CPar:
		in := newRegSet()
		for _, ch := range n.Children {
			in = in.union(analyzeNode(ch, liveOut, lr))
		}
		record(lr, n, in, liveOut)
		return in

	case ir.CIf:
		thenIn := analyzeNode(n.Then, liveOut, lr)
		elseIn := analyzeNode(n.Else, liveOut, lr)
		branchUnion := thenIn.union(elseIn)
		gen, kill := combGenKill(n)
		gen.add(cellOf(n.Cond))
		in := branchUnion.without(kill).union(gen)
		record(lr, n, in, liveOut)
		return in

	case ir.CWhile:
		out := liveOut
		var in *regSet
		for i := 0; i < 32; i++ {
			bodyOut := liveOut.union(out)
			next := analyzeNode(n.Body, bodyOut, lr)
			if in != nil && sameRegSet(in, next) {
				in = next
				break
			}
			in = next
			out = next
		}
		gen, _ := combGenKill(n)
		gen.add(cellOf(n.Cond))
		in = in.union(gen)
		record(lr, n, in, liveOut)
		return in

	case ir.CRepeat:
		in := analyzeNode(n.Body, liveOut, lr)
		record(lr, n, in, liveOut)
		return in

	case ir.CInvoke:
		gen, kill := newRegSet(), newRegSet()
		for _, b := range n.Inputs {
			if c := cellOf(b.Actual); isRegister(c) {
				gen.add(c)
			}
		}
		for _, b := range n.Outputs {
			if c := cellOf(b.Actual); isRegister(c) {
				kill.add(c)
			}
		}
		in := liveOut.without(kill).union(gen)
		record(lr, n, in, liveOut)
		return in

	default:
		// Static control carries no further register liveness obligations
		// for this analysis: its groups were already drained of holes by
		// the time promotion ran.
		record(lr, n, liveOut, liveOut)
		return liveOut
	}
}

func combGenKill(n *ir.Control) (gen, kill *regSet) {
	gen, kill = newRegSet(), newRegSet()
	if n.CombGroup == nil {
		return gen, kill
	}
	g, k := gkOfAssignments(n.CombGroup.Assignments)
	return g, k
}

func sameRegSet(a, b *regSet) bool {
	if len(a.order) != len(b.order) {
		return false
	}
	for _, c := range a.order {
		if !b.has[c.Name] {
			return false
		}
	}
	return true
}
