package passes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
	"github.com/sarchlab/hwir/pass"
	"github.com/sarchlab/hwir/passes"
)

var stdWireSig = lib.Signature{
	Name: "std_wire",
	Ports: []lib.PortSig{
		{Name: "in", Width: "32", Direction: "input"},
		{Name: "out", Width: "32", Direction: "output"},
	},
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

var _ = Describe("CombProp", func() {
	var (
		library *lib.Library
		comp    *ir.Component
		b       *ir.Builder
	)

	BeforeEach(func() {
		library = lib.NewLibrary([]lib.Signature{stdWireSig, stdRegSig})
		comp = ir.NewComponent(ir.Intern("main"))
		b = ir.NewBuilder(comp, library)
	})

	runCombProp := func() {
		cp := passes.CombProp{}
		v, err := cp.NewVisitor(nil, comp, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, comp)).To(Succeed())
	}

	It("collapses wire.in = c.out; r.in = wire.out into r.in = c.out and drops the wire", func() {
		c, _ := b.AddPrimitive("c", "std_reg", map[string]int{"WIDTH": 32})
		wire, _ := b.AddPrimitive("wire", "std_wire", nil)
		r, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})

		cOut, _ := c.Port(ir.Intern("out"))
		wireIn, _ := wire.Port(ir.Intern("in"))
		wireOut, _ := wire.Port(ir.Intern("out"))
		rIn, _ := r.Port(ir.Intern("in"))

		comp.Continuous = append(comp.Continuous,
			ir.BuildAssignment[ir.Dynamic](wireIn, cOut, nil),
			ir.BuildAssignment[ir.Dynamic](rIn, wireOut, nil),
		)

		runCombProp()

		Expect(comp.Continuous).To(HaveLen(1))
		Expect(comp.Continuous[0].Dst).To(Equal(rIn))
		Expect(comp.Continuous[0].Src).To(Equal(cOut))
	})

	It("keeps the wire-driving assignment, marked dead, when no-eliminate is set", func() {
		c, _ := b.AddPrimitive("c", "std_reg", map[string]int{"WIDTH": 32})
		wire, _ := b.AddPrimitive("wire", "std_wire", nil)
		r, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})

		cOut, _ := c.Port(ir.Intern("out"))
		wireIn, _ := wire.Port(ir.Intern("in"))
		wireOut, _ := wire.Port(ir.Intern("out"))
		rIn, _ := r.Port(ir.Intern("in"))

		comp.Continuous = append(comp.Continuous,
			ir.BuildAssignment[ir.Dynamic](wireIn, cOut, nil),
			ir.BuildAssignment[ir.Dynamic](rIn, wireOut, nil),
		)

		cp := passes.CombProp{}
		v, err := cp.NewVisitor(nil, comp, pass.Options{"no-eliminate": {Kind: pass.OptBool, Bool: true}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, comp)).To(Succeed())

		Expect(comp.Continuous).To(HaveLen(2))
		var dead int
		for _, a := range comp.Continuous {
			if a.Attrs.Bool(ir.AttrDead) {
				dead++
			}
		}
		Expect(dead).To(Equal(1))
	})

	It("rewrites an Invoke actual bound to a forwarded wire output", func() {
		library = lib.NewLibrary([]lib.Signature{stdWireSig, stdRegSig, stdCompSig})
		comp = ir.NewComponent(ir.Intern("main"))
		b = ir.NewBuilder(comp, library)

		c, _ := b.AddPrimitive("c", "std_reg", map[string]int{"WIDTH": 32})
		wire, _ := b.AddPrimitive("wire", "std_wire", nil)
		callee, _ := b.AddPrimitive("sub", "callee_proto", nil)

		cOut, _ := c.Port(ir.Intern("out"))
		wireIn, _ := wire.Port(ir.Intern("in"))
		wireOut, _ := wire.Port(ir.Intern("out"))

		comp.Continuous = append(comp.Continuous,
			ir.BuildAssignment[ir.Dynamic](wireIn, cOut, nil))
		comp.Control = ir.Seq(ir.Invoke(callee,
			[]ir.PortBinding{{Formal: ir.Intern("in"), Actual: wireOut}},
			nil, nil, nil))

		runCombProp()

		invoke := comp.Control.Children[0]
		Expect(invoke.Inputs[0].Actual).To(Equal(cOut))
	})
})
