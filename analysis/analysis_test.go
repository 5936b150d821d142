package analysis_test

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/analysis"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
)

// cellNames renders a read/write set's cell slice as a sorted name list, so
// it can be compared structurally (cmp.Diff) instead of by pointer
// identity or Gomega's element-order-sensitive matchers.
func cellNames(cells []*ir.Cell) []string {
	names := make([]string, len(cells))
	for i, c := range cells {
		names[i] = c.Name.String()
	}
	sort.Strings(names)
	return names
}

var stdRegSig = lib.Signature{
	Name:   "std_reg",
	Params: []string{"WIDTH"},
	Ports: []lib.PortSig{
		{Name: "in", Width: "WIDTH", Direction: "input"},
		{Name: "write_en", Width: "1", Direction: "input"},
		{Name: "out", Width: "WIDTH", Direction: "output"},
		{Name: "done", Width: "1", Direction: "output"},
	},
}

func newFixture() (*ir.Component, *ir.Builder) {
	library := lib.NewLibrary([]lib.Signature{stdRegSig})
	comp := ir.NewComponent(ir.Intern("main"))
	return comp, ir.NewBuilder(comp, library)
}

var _ = Describe("ReadWriteSet", func() {
	It("computes reads, writes, must-writes, and register reads", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})

		r1Out, _ := r1.Port(ir.Intern("out"))
		r2In, _ := r2.Port(ir.Intern("in"))

		assigns := []ir.Assignment[ir.Dynamic]{
			ir.BuildAssignment[ir.Dynamic](r2In, r1Out, nil),
		}

		rw := analysis.ComputeAssignments(assigns)
		Expect(rw.CellReads).To(ConsistOf(r1))
		Expect(rw.CellWrites).To(ConsistOf(r2))
		Expect(rw.MustWrites).To(ConsistOf(r2In))
		Expect(rw.RegisterReads).To(ConsistOf(r1Out))
	})

	It("computes the same cell sets regardless of assignment order", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})
		r3, _ := b.AddPrimitive("r3", "std_reg", map[string]int{"WIDTH": 32})

		r1Out, _ := r1.Port(ir.Intern("out"))
		r2In, _ := r2.Port(ir.Intern("in"))
		r2Out, _ := r2.Port(ir.Intern("out"))
		r3In, _ := r3.Port(ir.Intern("in"))

		forward := []ir.Assignment[ir.Dynamic]{
			ir.BuildAssignment[ir.Dynamic](r2In, r1Out, nil),
			ir.BuildAssignment[ir.Dynamic](r3In, r2Out, nil),
		}
		reversed := []ir.Assignment[ir.Dynamic]{forward[1], forward[0]}

		rwForward := analysis.ComputeAssignments(forward)
		rwReversed := analysis.ComputeAssignments(reversed)

		if diff := cmp.Diff(cellNames(rwForward.CellReads), cellNames(rwReversed.CellReads)); diff != "" {
			Fail("cell-read sets differ by assignment order (-forward +reversed):\n" + diff)
		}
		if diff := cmp.Diff(cellNames(rwForward.CellWrites), cellNames(rwReversed.CellWrites)); diff != "" {
			Fail("cell-write sets differ by assignment order (-forward +reversed):\n" + diff)
		}
	})

	It("excludes holes and the signature pseudo-cell", func() {
		comp, b := newFixture()
		g := b.AddGroup("g")
		sigPort := comp.Signature.Ports
		Expect(sigPort).To(BeEmpty())
		sigIn := ir.NewSignaturePort(comp, ir.Intern("in"), 1, ir.DirInput)

		assigns := []ir.Assignment[ir.Dynamic]{
			ir.BuildAssignment[ir.Dynamic](g.DoneHole, g.GoHole, nil),
			ir.BuildAssignment[ir.Dynamic](g.DoneHole, sigIn, nil),
		}
		rw := analysis.ComputeAssignments(assigns)
		Expect(rw.CellReads).To(BeEmpty())
		Expect(rw.CellWrites).To(BeEmpty())
	})
})

var _ = Describe("Control dependency graph and races", func() {
	It("finds no edges between statements touching disjoint cells", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})
		c1 := b.AddConstant(1, 32)
		c2 := b.AddConstant(2, 32)

		g1 := b.AddGroup("g1")
		in1, _ := r1.Port(ir.Intern("in"))
		out1, _ := c1.Port(ir.Intern("out"))
		g1.Assignments = append(g1.Assignments, ir.BuildAssignment[ir.Dynamic](in1, out1, nil))

		g2 := b.AddGroup("g2")
		in2, _ := r2.Port(ir.Intern("in"))
		out2, _ := c2.Port(ir.Intern("out"))
		g2.Assignments = append(g2.Assignments, ir.BuildAssignment[ir.Dynamic](in2, out2, nil))

		stmts := []*ir.Control{ir.Enable(g1), ir.Enable(g2)}
		graph := analysis.BuildSeqDepGraph(stmts, nil)
		Expect(graph.Edges[0]).To(BeEmpty())
		Expect(analysis.FindRaces(graph)).To(BeEmpty())
	})

	It("detects a race between concurrent writers of the same register", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		c1 := b.AddConstant(1, 32)
		c2 := b.AddConstant(2, 32)

		g1 := b.AddGroup("g1")
		in1, _ := r1.Port(ir.Intern("in"))
		out1, _ := c1.Port(ir.Intern("out"))
		g1.Assignments = append(g1.Assignments, ir.BuildAssignment[ir.Dynamic](in1, out1, nil))

		g2 := b.AddGroup("g2")
		out2, _ := c2.Port(ir.Intern("out"))
		g2.Assignments = append(g2.Assignments, ir.BuildAssignment[ir.Dynamic](in1, out2, nil))

		children := []*ir.Control{ir.Enable(g1), ir.Enable(g2)}
		graph := analysis.BuildParConflictGraph(children, nil)
		races := analysis.FindRaces(graph)
		Expect(races).To(HaveLen(1))
		Expect(races[0]).To(ConsistOf(0, 1))
	})
})

func staticAttr(g *ir.Group, latency int) {
	g.Attrs.SetNum(ir.AttrStatic, latency)
}

var _ = Describe("Static latency and promotion", func() {
	It("sums a Seq of Enables with declared latencies and is idempotent", func() {
		_, b := newFixture()
		ctx := ir.NewContext(b.Library)

		g1 := b.AddGroup("g1")
		staticAttr(g1, 3)
		g2 := b.AddGroup("g2")
		staticAttr(g2, 2)

		root := ir.Seq(ir.Enable(g1), ir.Enable(g2))

		l, ok := analysis.ComputeStaticLatency(ctx, root)
		Expect(ok).To(BeTrue())
		Expect(l).To(Equal(5))

		l2, ok2 := analysis.ComputeStaticLatency(ctx, root)
		Expect(ok2).To(BeTrue())
		Expect(l2).To(Equal(5))
	})

	It("promotes a latency-annotated Seq to a StaticSeq with the same total latency", func() {
		_, b := newFixture()
		ctx := ir.NewContext(b.Library)

		g1 := b.AddGroup("g1")
		staticAttr(g1, 3)
		g1.DoneHole.Attrs.SetBool(ir.AttrDone, true)
		g2 := b.AddGroup("g2")
		staticAttr(g2, 2)

		root := ir.Seq(ir.Enable(g1), ir.Enable(g2))
		_, ok := analysis.ComputeStaticLatency(ctx, root)
		Expect(ok).To(BeTrue())

		promoted, ok := analysis.Promote(b, root)
		Expect(ok).To(BeTrue())
		Expect(promoted.Kind).To(Equal(ir.CStaticSeq))
		l, hasLatency := promoted.GetLatency()
		Expect(hasLatency).To(BeTrue())
		Expect(l).To(Equal(5))
	})
})

var _ = Describe("Compaction", func() {
	It("leaves a sequence unchanged when there is no parallelism to find", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})
		c1 := b.AddConstant(1, 32)

		sg1 := b.AddStaticGroup("s1", 2)
		in1, _ := r1.Port(ir.Intern("in"))
		out1, _ := c1.Port(ir.Intern("out"))
		sg1.Assignments = append(sg1.Assignments, ir.BuildAssignment[ir.Static](in1, out1, nil))

		sg2 := b.AddStaticGroup("s2", 2)
		in2, _ := r2.Port(ir.Intern("in"))
		r1out, _ := r1.Port(ir.Intern("out"))
		sg2.Assignments = append(sg2.Assignments, ir.BuildAssignment[ir.Static](in2, r1out, nil))

		stmts := []*ir.Control{ir.StaticEnable(sg1), ir.StaticEnable(sg2)}
		result, changed, err := analysis.Compact(b, stmts, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
		Expect(result.Kind).To(Equal(ir.CStaticSeq))
	})

	It("finds parallelism between statements with disjoint read/write sets", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})
		c1 := b.AddConstant(1, 32)
		c2 := b.AddConstant(2, 32)

		sg1 := b.AddStaticGroup("s1", 3)
		in1, _ := r1.Port(ir.Intern("in"))
		out1, _ := c1.Port(ir.Intern("out"))
		sg1.Assignments = append(sg1.Assignments, ir.BuildAssignment[ir.Static](in1, out1, nil))

		sg2 := b.AddStaticGroup("s2", 3)
		in2, _ := r2.Port(ir.Intern("in"))
		out2, _ := c2.Port(ir.Intern("out"))
		sg2.Assignments = append(sg2.Assignments, ir.BuildAssignment[ir.Static](in2, out2, nil))

		stmts := []*ir.Control{ir.StaticEnable(sg1), ir.StaticEnable(sg2)}
		result, changed, err := analysis.Compact(b, stmts, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
		Expect(result.Kind).To(Equal(ir.CStaticPar))
		Expect(result.Latency).To(Equal(3))
	})
})

var _ = Describe("Live range analysis", func() {
	It("marks a register live before the enable that reads it and dead after its last use", func() {
		_, b := newFixture()
		r1, _ := b.AddPrimitive("r1", "std_reg", map[string]int{"WIDTH": 32})
		r2, _ := b.AddPrimitive("r2", "std_reg", map[string]int{"WIDTH": 32})
		c1 := b.AddConstant(1, 32)

		gWrite := b.AddGroup("write_r1")
		in1, _ := r1.Port(ir.Intern("in"))
		out1, _ := c1.Port(ir.Intern("out"))
		gWrite.Assignments = append(gWrite.Assignments, ir.BuildAssignment[ir.Dynamic](in1, out1, nil))

		gRead := b.AddGroup("read_r1")
		in2, _ := r2.Port(ir.Intern("in"))
		r1out, _ := r1.Port(ir.Intern("out"))
		gRead.Assignments = append(gRead.Assignments, ir.BuildAssignment[ir.Dynamic](in2, r1out, nil))

		writeNode := ir.Enable(gWrite)
		readNode := ir.Enable(gRead)
		root := ir.Seq(writeNode, readNode)

		lr := analysis.ComputeLiveRanges(root)
		Expect(lr.LiveIn[readNode]).To(ContainElement(r1))
		Expect(lr.LiveOut[readNode]).To(BeEmpty())
	})
})

var _ = Describe("Reaching definitions and overlap partitions", func() {
	It("splits a register's two non-overlapping lifetimes into separate partitions", func() {
		_, b := newFixture()
		x, _ := b.AddPrimitive("x", "std_reg", map[string]int{"WIDTH": 32})
		one := b.AddConstant(1, 32)
		five := b.AddConstant(5, 32)

		xIn, _ := x.Port(ir.Intern("in"))
		oneOut, _ := one.Port(ir.Intern("out"))
		fiveOut, _ := five.Port(ir.Intern("out"))

		defX1 := b.AddGroup("def_x_1")
		defX1.Assignments = append(defX1.Assignments, ir.BuildAssignment[ir.Dynamic](xIn, oneOut, nil))

		useX := b.AddGroup("use_x")
		y, _ := b.AddPrimitive("y", "std_reg", map[string]int{"WIDTH": 32})
		yIn, _ := y.Port(ir.Intern("in"))
		xOut, _ := x.Port(ir.Intern("out"))
		useX.Assignments = append(useX.Assignments, ir.BuildAssignment[ir.Dynamic](yIn, xOut, nil))

		defX2 := b.AddGroup("def_x_2")
		defX2.Assignments = append(defX2.Assignments, ir.BuildAssignment[ir.Dynamic](xIn, fiveOut, nil))

		useX2 := b.AddGroup("use_x_2")
		z, _ := b.AddPrimitive("z", "std_reg", map[string]int{"WIDTH": 32})
		zIn, _ := z.Port(ir.Intern("in"))
		useX2.Assignments = append(useX2.Assignments, ir.BuildAssignment[ir.Dynamic](zIn, xOut, nil))

		root := ir.Seq(ir.Enable(defX1), ir.Enable(useX), ir.Enable(defX2), ir.Enable(useX2))

		partitions := analysis.OverlapPartitions(root)
		Expect(partitions[x]).To(HaveLen(2))
	})
})

var _ = Describe("Graph coloring", func() {
	It("respects a reuse bound and never colors conflicting nodes alike", func() {
		c := analysis.NewColoring[string]()
		c.AddAllPairs([]string{"a", "b", "c"})
		c.AddConflict("c", "d")

		coloring := c.ColorGreedy(0)
		Expect(coloring["a"]).NotTo(Equal(coloring["b"]))
		Expect(coloring["b"]).NotTo(Equal(coloring["c"]))
		Expect(coloring["c"]).NotTo(Equal(coloring["d"]))
	})

	It("keeps a marked node from ever sharing a color", func() {
		c := analysis.NewColoring[string]()
		c.MarkKeepSelf("solo")
		coloring := c.ColorGreedy(0)
		Expect(coloring["solo"]).To(Equal("solo"))
	})
})

var _ = Describe("Control order", func() {
	It("proves order within a Seq but not across Par siblings", func() {
		_, b := newFixture()
		g1 := b.AddGroup("g1")
		g2 := b.AddGroup("g2")
		g3 := b.AddGroup("g3")

		e1, e2 := ir.Enable(g1), ir.Enable(g2)
		par := ir.Par(ir.Enable(g3), ir.Enable(g3))
		root := ir.Seq(e1, par, e2)

		order := analysis.BuildControlOrder(root)
		Expect(order.CanPrecede(e1, e2)).To(BeTrue())
		Expect(order.CanPrecede(par.Children[0], par.Children[1])).To(BeFalse())
	})
})

var _ = Describe("Static par domination", func() {
	It("picks the longest-running thread as dominant", func() {
		_, b := newFixture()
		sg1 := b.AddStaticGroup("s1", 2)
		sg2 := b.AddStaticGroup("s2", 5)

		par := ir.StaticPar(ir.StaticEnable(sg1), ir.StaticEnable(sg2))
		dom := analysis.NewStaticParDomination(par)

		Expect(dom.DominantThread()).To(Equal(1))
		idx, ok := dom.DominantAt(3)
		Expect(ok).To(BeTrue())
		Expect(idx).To(Equal(1))

		_, ok = dom.DominantAt(10)
		Expect(ok).To(BeFalse())
	})
})
