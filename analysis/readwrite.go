// Package analysis computes derived facts over an immutable borrow of IR:
// read/write sets, dependency graphs, latency, liveness, reaching
// definitions, and conflict-graph coloring. Every analysis here is a pure
// function (or a short-lived value built from one); nothing in this
// package mutates the ir package's types, and nothing caches across a
// mutation — a caller that changes the IR must rebuild.
package analysis

import "github.com/sarchlab/hwir/ir"

// RegisterPrimitive is the primitive name treated as a register by
// register_reads, live-range, and reaching-definitions analyses.
const RegisterPrimitive = "std_reg"

// ReadWriteSet is the read/write projection of a set of assignments or a
// control sub-tree: the ports and cells read and written, the subset of
// writes that are unconditional, and the subset of reads that sample a
// register's output.
type ReadWriteSet struct {
	PortReads  []*ir.Port
	PortWrites []*ir.Port
	CellReads  []*ir.Cell
	CellWrites []*ir.Cell

	MustWrites    []*ir.Port
	RegisterReads []*ir.Port
}

func newReadWriteSet() *ReadWriteSet {
	return &ReadWriteSet{}
}

type cellSet struct {
	order []*ir.Cell
	seen  map[ir.Identifier]bool
}

func newCellSet() *cellSet {
	return &cellSet{seen: map[ir.Identifier]bool{}}
}

func (s *cellSet) add(c *ir.Cell) {
	if c == nil || s.seen[c.Name] {
		return
	}
	s.seen[c.Name] = true
	s.order = append(s.order, c)
}

// isRegister reports whether a cell is a std_reg primitive instance.
func isRegister(c *ir.Cell) bool {
	return c != nil && c.Prototype.Kind == ir.ProtoPrimitive &&
		c.Prototype.PrimitiveName.String() == RegisterPrimitive
}

// cellOf projects a port to its owning cell, or nil for a hole or a
// signature port (constants and the enclosing signature are excluded from
// cell_reads/cell_writes per the data model).
func cellOf(p *ir.Port) *ir.Cell {
	if p == nil || p.IsHole() {
		return nil
	}
	if p.ParentKind() != ir.ParentCell {
		return nil
	}
	cell := p.Cell()
	if cell.Prototype.Kind == ir.ProtoConstant || cell.Prototype.Kind == ir.ProtoSignature {
		return nil
	}
	return cell
}

// ComputeAssignments computes the read/write set of a list of assignments
// sharing one timing flavor.
func ComputeAssignments[T any](assigns []ir.Assignment[T]) *ReadWriteSet {
	rw := newReadWriteSet()
	reads := newCellSet()
	writes := newCellSet()

	for _, a := range assigns {
		for _, p := range a.ReadPorts() {
			rw.PortReads = append(rw.PortReads, p)
			reads.add(cellOf(p))
			if isRegister(cellOf(p)) && p.Name.String() == "out" {
				rw.RegisterReads = append(rw.RegisterReads, p)
			}
		}
		for _, p := range a.WritePorts() {
			rw.PortWrites = append(rw.PortWrites, p)
			writes.add(cellOf(p))
			if a.IsUnconditional() {
				rw.MustWrites = append(rw.MustWrites, p)
			}
		}
	}

	rw.CellReads = reads.order
	rw.CellWrites = writes.order
	return rw
}

func merge(dst, src *ReadWriteSet) {
	dst.PortReads = append(dst.PortReads, src.PortReads...)
	dst.PortWrites = append(dst.PortWrites, src.PortWrites...)
	dst.MustWrites = append(dst.MustWrites, src.MustWrites...)
	dst.RegisterReads = append(dst.RegisterReads, src.RegisterReads...)

	seenR := map[ir.Identifier]bool{}
	for _, c := range dst.CellReads {
		seenR[c.Name] = true
	}
	for _, c := range src.CellReads {
		if !seenR[c.Name] {
			seenR[c.Name] = true
			dst.CellReads = append(dst.CellReads, c)
		}
	}

	seenW := map[ir.Identifier]bool{}
	for _, c := range dst.CellWrites {
		seenW[c.Name] = true
	}
	for _, c := range src.CellWrites {
		if !seenW[c.Name] {
			seenW[c.Name] = true
			dst.CellWrites = append(dst.CellWrites, c)
		}
	}
}

// ComputeControl computes the read/write set of a control sub-tree,
// unioning over every sub-assignment it reaches. Invoke contributes its
// input actuals as reads (values the enclosing component samples to drive
// into the callee) and its output actuals as writes (values the enclosing
// component receives back from the callee); every ref-cell it binds counts
// as both a read and a write of the statement.
func ComputeControl(c *ir.Control) *ReadWriteSet {
	rw := computeControlRaw(c)
	dedupeCells(&rw.CellReads)
	dedupeCells(&rw.CellWrites)
	return rw
}

func dedupeCells(cells *[]*ir.Cell) {
	seen := map[ir.Identifier]bool{}
	out := (*cells)[:0]
	for _, c := range *cells {
		if c == nil || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	*cells = out
}

func computeControlRaw(c *ir.Control) *ReadWriteSet {
	rw := newReadWriteSet()
	if c == nil {
		return rw
	}

	switch c.Kind {
	case ir.CEmpty:
		return rw
	case ir.CEnable:
		return ComputeAssignments(c.Group.Assignments)
	case ir.CStaticEnable:
		return ComputeAssignments(c.StaticGroup.Assignments)
	case ir.CSeq, ir.CPar, ir.CStaticSeq, ir.CStaticPar:
		for _, ch := range c.Children {
			merge(rw, computeControlRaw(ch))
		}
	case ir.CIf, ir.CStaticIf:
		rw.PortReads = append(rw.PortReads, c.Cond)
		if cell := cellOf(c.Cond); cell != nil {
			rw.CellReads = append(rw.CellReads, cell)
		}
		if c.CombGroup != nil {
			merge(rw, ComputeAssignments(c.CombGroup.Assignments))
		}
		merge(rw, computeControlRaw(c.Then))
		merge(rw, computeControlRaw(c.Else))
	case ir.CWhile:
		rw.PortReads = append(rw.PortReads, c.Cond)
		if cell := cellOf(c.Cond); cell != nil {
			rw.CellReads = append(rw.CellReads, cell)
		}
		if c.CombGroup != nil {
			merge(rw, ComputeAssignments(c.CombGroup.Assignments))
		}
		merge(rw, computeControlRaw(c.Body))
	case ir.CRepeat, ir.CStaticRepeat:
		merge(rw, computeControlRaw(c.Body))
	case ir.CInvoke, ir.CStaticInvoke:
		if c.CombGroup != nil {
			merge(rw, ComputeAssignments(c.CombGroup.Assignments))
		}
		for _, b := range c.Inputs {
			rw.PortReads = append(rw.PortReads, b.Actual)
			if cell := cellOf(b.Actual); cell != nil {
				rw.CellReads = append(rw.CellReads, cell)
			}
		}
		for _, b := range c.Outputs {
			rw.PortWrites = append(rw.PortWrites, b.Actual)
			rw.MustWrites = append(rw.MustWrites, b.Actual)
			if cell := cellOf(b.Actual); cell != nil {
				rw.CellWrites = append(rw.CellWrites, cell)
			}
		}
		for _, rc := range c.RefCells {
			if rc.Actual != nil {
				rw.CellReads = append(rw.CellReads, rc.Actual)
				rw.CellWrites = append(rw.CellWrites, rc.Actual)
			}
		}
	}

	return rw
}
