package passes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
	"github.com/sarchlab/hwir/pass"
	"github.com/sarchlab/hwir/passes"
)

var _ = Describe("RegisterUnsharing", func() {
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

	run := func() {
		ru := &passes.RegisterUnsharing{}
		v, err := ru.NewVisitor(nil, comp, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, comp)).To(Succeed())
	}

	It("splits a register written by two non-overlapping groups into two cells", func() {
		reg, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		one := b.AddConstant(1, 32)
		two := b.AddConstant(2, 32)

		regIn, _ := reg.Port(ir.Intern("in"))
		oneOut, _ := one.Port(ir.Intern("out"))
		twoOut, _ := two.Port(ir.Intern("out"))

		first := b.AddGroup("first")
		first.Assignments = append(first.Assignments, ir.BuildAssignment[ir.Dynamic](regIn, oneOut, nil))
		second := b.AddGroup("second")
		second.Assignments = append(second.Assignments, ir.BuildAssignment[ir.Dynamic](regIn, twoOut, nil))

		comp.Control = ir.Seq(ir.Enable(first), ir.Enable(second))

		run()

		firstDst := first.Assignments[0].Dst
		secondDst := second.Assignments[0].Dst
		Expect(firstDst.Cell()).NotTo(BeNil())
		Expect(secondDst.Cell()).NotTo(BeNil())
		Expect(firstDst.Cell()).NotTo(Equal(secondDst.Cell()))

		var sawOriginal bool
		for _, c := range comp.Cells {
			if c == reg {
				sawOriginal = true
			}
		}
		Expect(sawOriginal).To(BeTrue())
		Expect(comp.Cells).To(HaveLen(4)) // r, const 1, const 2, r_split
	})

	It("leaves a register written by a single group alone", func() {
		reg, _ := b.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		one := b.AddConstant(1, 32)
		regIn, _ := reg.Port(ir.Intern("in"))
		oneOut, _ := one.Port(ir.Intern("out"))

		only := b.AddGroup("only")
		only.Assignments = append(only.Assignments, ir.BuildAssignment[ir.Dynamic](regIn, oneOut, nil))
		comp.Control = ir.Seq(ir.Enable(only))

		run()

		Expect(only.Assignments[0].Dst).To(Equal(regIn))
		Expect(comp.Cells).To(HaveLen(2))
	})
})
