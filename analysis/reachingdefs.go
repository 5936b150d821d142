package analysis

import "github.com/sarchlab/hwir/ir"

// Definition is a (register, writing-group) pair: the reaching-definitions
// dataflow's unit of propagation.
type Definition struct {
	Register *ir.Cell
	Group    *ir.Control
}

// ReachingDefs is the result of a forward reaching-definitions dataflow
// over a control tree.
type ReachingDefs struct {
	In  map[*ir.Control][]Definition
	Out map[*ir.Control][]Definition
}

type defSet struct {
	order []Definition
	has   map[ir.Identifier]map[*ir.Control]bool
}

func newDefSet() *defSet {
	return &defSet{has: map[ir.Identifier]map[*ir.Control]bool{}}
}

func (s *defSet) add(d Definition) {
	if d.Register == nil {
		return
	}
	if s.has[d.Register.Name] == nil {
		s.has[d.Register.Name] = map[*ir.Control]bool{}
	}
	if s.has[d.Register.Name][d.Group] {
		return
	}
	s.has[d.Register.Name][d.Group] = true
	s.order = append(s.order, d)
}

func (s *defSet) addAll(ds []Definition) {
	for _, d := range ds {
		s.add(d)
	}
}

func (s *defSet) contains(reg ir.Identifier, group *ir.Control) bool {
	return s.has[reg] != nil && s.has[reg][group]
}

func (s *defSet) withoutRegister(reg ir.Identifier, keep *ir.Control) *defSet {
	out := newDefSet()
	for _, d := range s.order {
		if d.Register.Name == reg && d.Group != keep {
			continue
		}
		out.add(d)
	}
	return out
}

// ComputeReachingDefs runs the forward dataflow starting from an empty
// entry set.
func ComputeReachingDefs(root *ir.Control) *ReachingDefs {
	rd := &ReachingDefs{In: map[*ir.Control][]Definition{}, Out: map[*ir.Control][]Definition{}}
	forward(root, newDefSet(), rd)
	return rd
}

func recordRD(rd *ReachingDefs, n *ir.Control, in, out *defSet) {
	rd.In[n] = in.order
	rd.Out[n] = out.order
}

func genKillOf(n *ir.Control, assigns []ir.Assignment[ir.Dynamic]) (gen *defSet, killed map[ir.Identifier]bool) {
	gen = newDefSet()
	killed = map[ir.Identifier]bool{}
	rw := ComputeAssignments(assigns)
	written := map[ir.Identifier]*ir.Cell{}
	for _, c := range rw.CellWrites {
		if isRegister(c) {
			written[c.Name] = c
		}
	}
	read := map[ir.Identifier]bool{}
	for _, p := range rw.RegisterReads {
		if c := cellOf(p); c != nil {
			read[c.Name] = true
		}
	}
	mustWritten := map[ir.Identifier]bool{}
	for _, p := range rw.MustWrites {
		if c := cellOf(p); isRegister(c) {
			mustWritten[c.Name] = true
		}
	}
	for name, c := range written {
		gen.add(Definition{Register: c, Group: n})
		if mustWritten[name] && !read[name] {
			killed[name] = true
		}
	}
	return gen, killed
}

func forward(n *ir.Control, in *defSet, rd *ReachingDefs) *defSet {
	if n == nil {
		return in
	}

	switch n.Kind {
	case ir.CEmpty:
		recordRD(rd, n, in, in)
		return in

	case ir.CEnable:
		gen, killed := genKillOf(n, n.Group.Assignments)
		out := applyGenKill(in, gen, killed)
		recordRD(rd, n, in, out)
		return out

	case ir.CSeq:
		cur := in
		for _, ch := range n.Children {
			cur = forward(ch, cur, rd)
		}
		recordRD(rd, n, in, cur)
		return cur

	case ir.CPar:
		allKilled := map[ir.Identifier]bool{}
		armOuts := make([]*defSet, len(n.Children))
		for i, ch := range n.Children {
			_, killed := genKillOf(ch, groupAssignsOf(ch))
			for k := range killed {
				allKilled[k] = true
			}
			armOuts[i] = forward(ch, in, rd)
		}
		out := newDefSet()
		for i, armOut := range armOuts {
			for _, d := range armOut.order {
				if allKilled[d.Register.Name] && d.Group != n.Children[i] {
					continue
				}
				out.add(d)
			}
		}
		recordRD(rd, n, in, out)
		return out

	case ir.CIf:
		thenOut := forward(n.Then, in, rd)
		elseOut := forward(n.Else, in, rd)
		out := newDefSet()
		out.addAll(thenOut.order)
		out.addAll(elseOut.order)
		recordRD(rd, n, in, out)
		return out

	case ir.CWhile:
		out := in
		for i := 0; i < 32; i++ {
			next := forward(n.Body, out, rd)
			merged := newDefSet()
			merged.addAll(in.order)
			merged.addAll(next.order)
			if sameDefSet(merged, out) {
				out = merged
				break
			}
			out = merged
		}
		recordRD(rd, n, in, out)
		return out

	case ir.CRepeat:
		out := forward(n.Body, in, rd)
		recordRD(rd, n, in, out)
		return out

	case ir.CInvoke:
		gen := newDefSet()
		killed := map[ir.Identifier]bool{}
		for _, b := range n.Outputs {
			if c := cellOf(b.Actual); isRegister(c) {
				gen.add(Definition{Register: c, Group: n})
				killed[c.Name] = true
			}
		}
		out := applyGenKill(in, gen, killed)
		recordRD(rd, n, in, out)
		return out

	default:
		recordRD(rd, n, in, in)
		return in
	}
}

func groupAssignsOf(n *ir.Control) []ir.Assignment[ir.Dynamic] {
	if n.Kind == ir.CEnable {
		return n.Group.Assignments
	}
	return nil
}

func applyGenKill(in, gen *defSet, killed map[ir.Identifier]bool) *defSet {
	out := newDefSet()
	for _, d := range in.order {
		if killed[d.Register.Name] {
			continue
		}
		out.add(d)
	}
	out.addAll(gen.order)
	return out
}

func sameDefSet(a, b *defSet) bool {
	if len(a.order) != len(b.order) {
		return false
	}
	for _, d := range a.order {
		if !b.contains(d.Register.Name, d.Group) {
			return false
		}
	}
	return true
}

// OverlapPartitions computes, per register, the partitions of definitions
// that reach simultaneously at some program point and therefore must
// share a physical register. Two definitions land in the same partition
// if they both appear in some node's In or Out set at once; definitions
// that never co-occur fall into separate partitions and may be split onto
// distinct physical registers by register unsharing.
func OverlapPartitions(root *ir.Control) map[*ir.Cell][][]Definition {
	rd := ComputeReachingDefs(root)

	parent := map[Definition]Definition{}
	var find func(d Definition) Definition
	find = func(d Definition) Definition {
		p, ok := parent[d]
		if !ok || p == d {
			return d
		}
		r := find(p)
		parent[d] = r
		return r
	}
	union := func(a, b Definition) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	seenDefs := map[Definition]bool{}
	observe := func(defs []Definition) {
		byReg := map[ir.Identifier][]Definition{}
		for _, d := range defs {
			seenDefs[d] = true
			if _, ok := parent[d]; !ok {
				parent[d] = d
			}
			byReg[d.Register.Name] = append(byReg[d.Register.Name], d)
		}
		for _, ds := range byReg {
			for i := 1; i < len(ds); i++ {
				union(ds[0], ds[i])
			}
		}
	}
	for _, defs := range rd.In {
		observe(defs)
	}
	for _, defs := range rd.Out {
		observe(defs)
	}

	groups := map[*ir.Cell]map[Definition][]Definition{}
	for d := range seenDefs {
		root := find(d)
		if groups[d.Register] == nil {
			groups[d.Register] = map[Definition][]Definition{}
		}
		groups[d.Register][root] = append(groups[d.Register][root], d)
	}

	out := map[*ir.Cell][][]Definition{}
	for reg, byRoot := range groups {
		for _, part := range byRoot {
			out[reg] = append(out[reg], part)
		}
	}
	return out
}
