package passes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
	"github.com/sarchlab/hwir/passes"
)

var _ = Describe("IfElseSpec", func() {
	It("collapses an If with two empty branches to Empty", func() {
		comp := ir.NewComponent(ir.Intern("m"))
		cond := ir.NewSignaturePort(comp, ir.Intern("cond"), 1, ir.DirInput)
		comp.Control = ir.Seq(ir.If(cond, nil, ir.Empty(), ir.Empty()))

		p := &passes.IfElseSpec{}
		v, err := p.NewVisitor(nil, comp, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, comp)).To(Succeed())

		Expect(comp.Control.Kind).To(Equal(ir.CSeq))
		Expect(comp.Control.Children[0].Kind).To(Equal(ir.CEmpty))
	})

	It("leaves an If with a non-empty branch untouched", func() {
		comp := ir.NewComponent(ir.Intern("m"))
		cond := ir.NewSignaturePort(comp, ir.Intern("cond"), 1, ir.DirInput)
		g := ir.NewBuilder(comp, nil).AddGroup("work")
		comp.Control = ir.Seq(ir.If(cond, nil, ir.Enable(g), ir.Empty()))

		p := &passes.IfElseSpec{}
		v, err := p.NewVisitor(nil, comp, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, comp)).To(Succeed())

		Expect(comp.Control.Children[0].Kind).To(Equal(ir.CIf))
	})
})
