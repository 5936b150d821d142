package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
)

var _ = Describe("Rewriter", func() {
	var (
		library *lib.Library
		comp    *ir.Component
		b       *ir.Builder
		a, bb   *ir.Cell
	)

	BeforeEach(func() {
		library = lib.NewLibrary([]lib.Signature{stdRegSig})
		comp = ir.NewComponent(ir.Intern("main"))
		b = ir.NewBuilder(comp, library)
		a, _ = b.AddPrimitive("a", "std_reg", map[string]int{"WIDTH": 32})
		bb, _ = b.AddPrimitive("b", "std_reg", map[string]int{"WIDTH": 32})
	})

	It("rewrites a.in through the cell map to the same-named port on b", func() {
		r := ir.NewRewriter()
		r.CellMap[a.Name] = bb

		in, _ := a.Port(ir.Intern("in"))
		out := r.RewritePort(in)

		bIn, _ := bb.Port(ir.Intern("in"))
		Expect(out).To(Equal(bIn))
	})

	It("prefers a direct port rewrite over the cell map", func() {
		r := ir.NewRewriter()
		r.CellMap[a.Name] = bb

		in, _ := a.Port(ir.Intern("in"))
		doneOut, _ := bb.Port(ir.Intern("done"))
		r.PortMap[ir.PortKey{Parent: a.Name, Name: ir.Intern("in")}] = doneOut

		Expect(r.RewritePort(in)).To(Equal(doneOut))
	})

	It("never rewrites a hole through the cell map", func() {
		g := b.AddGroup("g")
		r := ir.NewRewriter()
		r.CellMap[a.Name] = bb

		Expect(r.RewritePort(g.GoHole)).To(Equal(g.GoHole))
	})

	It("rewrites group references inside a control tree", func() {
		g1 := b.AddGroup("g1")
		g2 := b.AddGroup("g2")

		root := ir.Seq(ir.Enable(g1))
		r := ir.NewRewriter()
		r.GroupMap[g1.Name] = g2

		r.RewriteControl(root)
		Expect(root.Children[0].Group).To(Equal(g2))
	})

	It("rewrites invoke cell and port bindings", func() {
		out, _ := a.Port(ir.Intern("out"))
		in, _ := bb.Port(ir.Intern("in"))

		inv := ir.Invoke(a, []ir.PortBinding{{Formal: ir.Intern("in"), Actual: out}}, nil, nil, nil)

		r := ir.NewRewriter()
		other, _ := b.AddPrimitive("c", "std_reg", map[string]int{"WIDTH": 32})
		r.CellMap[a.Name] = other
		r.PortMap[ir.PortKey{Parent: a.Name, Name: ir.Intern("out")}] = in

		r.RewriteControl(inv)
		Expect(inv.Cell).To(Equal(other))
		Expect(inv.Inputs[0].Actual).To(Equal(in))
	})
})
