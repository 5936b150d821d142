package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
)

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

var _ = Describe("Builder", func() {
	var (
		library *lib.Library
		comp    *ir.Component
		b       *ir.Builder
	)

	BeforeEach(func() {
		library = lib.NewLibrary([]lib.Signature{stdRegSig})
		comp = ir.NewComponent(ir.Intern("main"))
		b = ir.NewBuilder(comp, library)
	})

	It("instantiates a primitive with uniqued names and resolved port widths", func() {
		r0, err := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		Expect(err).NotTo(HaveOccurred())
		r1, err := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		Expect(err).NotTo(HaveOccurred())

		Expect(r0.Name).NotTo(Equal(r1.Name))
		Expect(comp.Cells).To(HaveLen(2))

		out, ok := r0.Port(ir.Intern("out"))
		Expect(ok).To(BeTrue())
		Expect(out.Width).To(Equal(32))
		Expect(out.Direction).To(Equal(ir.DirOutput))
	})

	It("fails on an unknown primitive", func() {
		_, err := b.AddPrimitive("x", "not_a_thing", nil)
		Expect(err).To(HaveOccurred())
	})

	It("fails when a required parameter is missing", func() {
		_, err := b.AddPrimitive("r", "std_reg", nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds a constant cell with a single output port", func() {
		c := b.AddConstant(7, 8)
		Expect(c.Prototype.Kind).To(Equal(ir.ProtoConstant))
		Expect(c.Ports).To(HaveLen(1))
		Expect(c.Ports[0].Width).To(Equal(8))
	})

	It("adds a dynamic group with go/done holes", func() {
		g := b.AddGroup("do_add")
		Expect(g.GoHole).NotTo(BeNil())
		Expect(g.DoneHole).NotTo(BeNil())
		Expect(comp.Groups).To(ContainElement(g))
	})

	It("adds comb and static groups without holes", func() {
		cg := b.AddCombGroup("cmp")
		Expect(comp.CombGroups).To(ContainElement(cg))

		sg := b.AddStaticGroup("st", 3)
		Expect(sg.Latency).To(Equal(3))
		Expect(comp.StaticGroups).To(ContainElement(sg))
	})

	It("builds an assignment without inserting it anywhere", func() {
		r, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		in, _ := r.Port(ir.Intern("in"))
		c := b.AddConstant(1, 32)
		out, _ := c.Port(ir.Intern("out"))

		asn := ir.BuildAssignment[ir.Dynamic](in, out, nil)
		Expect(comp.Continuous).To(BeEmpty())

		comp.Continuous = append(comp.Continuous, asn)
		Expect(comp.Continuous).To(HaveLen(1))
	})

	It("combines multiple comb groups into one fresh group", func() {
		r, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		out, _ := r.Port(ir.Intern("out"))

		g1 := b.AddCombGroup("c1")
		g1.Assignments = append(g1.Assignments, ir.BuildAssignment[ir.Dynamic](out, out, nil))
		g2 := b.AddCombGroup("c2")
		g2.Assignments = append(g2.Assignments, ir.BuildAssignment[ir.Dynamic](out, out, nil))

		merged := b.CombineGroups(g1, g2)
		Expect(merged.Assignments).To(HaveLen(2))
	})

	It("instantiates a sub-component with inverted port directions", func() {
		sub := ir.NewComponent(ir.Intern("adder"))
		sub.Signature.Ports = append(sub.Signature.Ports,
			&ir.Port{Name: ir.Intern("lhs"), Width: 32, Direction: ir.DirInput},
			&ir.Port{Name: ir.Intern("out"), Width: 32, Direction: ir.DirOutput},
		)

		inst := b.AddComponentInstance("add", sub)
		lhs, ok := inst.Port(ir.Intern("lhs"))
		Expect(ok).To(BeTrue())
		Expect(lhs.Direction).To(Equal(ir.DirOutput))

		out, ok := inst.Port(ir.Intern("out"))
		Expect(ok).To(BeTrue())
		Expect(out.Direction).To(Equal(ir.DirInput))
	})
})

var _ = Describe("Component and Context", func() {
	It("finds cells, groups, and the signature pseudo-cell by name", func() {
		library := lib.NewLibrary([]lib.Signature{stdRegSig})
		comp := ir.NewComponent(ir.Intern("main"))
		b := ir.NewBuilder(comp, library)

		r, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		g := b.AddGroup("g")

		found, ok := comp.FindCell(r.Name)
		Expect(ok).To(BeTrue())
		Expect(found).To(Equal(r))

		sigCell, ok := comp.FindCell(comp.Name)
		Expect(ok).To(BeTrue())
		Expect(sigCell).To(Equal(comp.Signature))

		foundGroup, ok := comp.FindGroup(g.Name)
		Expect(ok).To(BeTrue())
		Expect(foundGroup).To(Equal(g))

		comp.RemoveCell(r.Name)
		_, ok = comp.FindCell(r.Name)
		Expect(ok).To(BeFalse())

		comp.RemoveGroup(g.Name)
		_, ok = comp.FindGroup(g.Name)
		Expect(ok).To(BeFalse())
	})

	It("indexes control nodes by the group they enable", func() {
		comp := ir.NewComponent(ir.Intern("main"))
		b := ir.NewBuilder(comp, nil)
		g1 := b.AddGroup("g1")
		g2 := b.AddGroup("g2")

		root := ir.Seq(ir.Enable(g1), ir.Par(ir.Enable(g2), ir.Enable(g1)))
		cl := ir.BuildControlLookup(root)

		Expect(cl.Enablers(g1.Name)).To(HaveLen(2))
		Expect(cl.IsEnabled(g2.Name)).To(BeTrue())
		Expect(cl.IsEnabled(ir.Intern("nope"))).To(BeFalse())
	})

	It("orders components by their instantiation dependency DAG", func() {
		library := lib.NewLibrary(nil)
		ctx := ir.NewContext(library)

		leaf := ir.NewComponent(ir.Intern("leaf"))
		ctx.AddComponent(leaf)

		mid := ir.NewComponent(ir.Intern("mid"))
		midBuilder := ir.NewBuilder(mid, library)
		midBuilder.AddComponentInstance("l", leaf)
		ctx.AddComponent(mid)

		top := ir.NewComponent(ir.Intern("top"))
		topBuilder := ir.NewBuilder(top, library)
		topBuilder.AddComponentInstance("m", mid)
		ctx.AddComponent(top)

		ctx.Entrypoint = top.Name

		post := ctx.DependencyOrder(true)
		Expect(post[len(post)-1]).To(Equal(top))
		Expect(post[0]).To(Equal(leaf))

		pre := ctx.DependencyOrder(false)
		Expect(pre[0]).To(Equal(top))
		Expect(pre[len(pre)-1]).To(Equal(leaf))

		entry, ok := ctx.EntrypointComponent()
		Expect(ok).To(BeTrue())
		Expect(entry).To(Equal(top))
	})
})
