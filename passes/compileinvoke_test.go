package passes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
	"github.com/sarchlab/hwir/pass"
	"github.com/sarchlab/hwir/passes"
)

var stdCompSig = lib.Signature{
	Name: "callee_proto",
	Ports: []lib.PortSig{
		{Name: "in", Width: "32", Direction: "input"},
		{Name: "go", Width: "1", Direction: "input"},
		{Name: "out", Width: "32", Direction: "output"},
		{Name: "done", Width: "1", Direction: "output"},
	},
}

var _ = Describe("CompileInvoke", func() {
	It("lowers an Invoke into an Enable of a group driving inputs, go and done", func() {
		library := lib.NewLibrary([]lib.Signature{stdRegSig, stdCompSig})

		callee := ir.NewComponent(ir.Intern("callee"))
		ir.NewBuilder(callee, library)
		callee.Control = ir.Empty()

		caller := ir.NewComponent(ir.Intern("caller"))
		cb := ir.NewBuilder(caller, library)
		reg, _ := cb.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		regOut, _ := reg.Port(ir.Intern("out"))

		calleeCell, _ := cb.AddPrimitive("sub", "callee_proto", nil)
		calleeIn, _ := calleeCell.Port(ir.Intern("in"))
		calleeGo, _ := calleeCell.Port(ir.Intern("go"))
		calleeDone, _ := calleeCell.Port(ir.Intern("done"))

		invoke := ir.Invoke(calleeCell,
			[]ir.PortBinding{{Formal: ir.Intern("in"), Actual: regOut}},
			nil, nil, nil)
		caller.Control = ir.Seq(invoke)

		ci := &passes.CompileInvoke{}
		v, err := ci.NewVisitor(nil, caller, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, caller)).To(Succeed())

		Expect(caller.Control.Kind).To(Equal(ir.CSeq))
		lowered := caller.Control.Children[0]
		Expect(lowered.Kind).To(Equal(ir.CEnable))

		g := lowered.Group
		Expect(g.Assignments).To(HaveLen(3))

		var sawInput, sawGo, sawDone bool
		for _, a := range g.Assignments {
			switch {
			case a.Dst == calleeIn:
				sawInput = true
				Expect(a.Src).To(Equal(regOut))
				Expect(a.Guard.IsTrue()).To(BeTrue())
			case a.Dst == calleeGo:
				sawGo = true
				Expect(a.Guard.Kind).To(Equal(ir.GuardNot))
			case a.Dst == g.DoneHole:
				sawDone = true
				Expect(a.Src).To(Equal(calleeDone))
			}
		}
		Expect(sawInput).To(BeTrue())
		Expect(sawGo).To(BeTrue())
		Expect(sawDone).To(BeTrue())
	})

	It("rejects an Invoke whose comb-group has not been eliminated", func() {
		library := lib.NewLibrary([]lib.Signature{stdRegSig, stdCompSig})

		caller := ir.NewComponent(ir.Intern("caller"))
		cb := ir.NewBuilder(caller, library)
		reg, _ := cb.AddPrimitive("r", "std_reg", map[string]int{"WIDTH": 32})
		regOut, _ := reg.Port(ir.Intern("out"))

		calleeCell, _ := cb.AddPrimitive("sub", "callee_proto", nil)
		comb := cb.AddCombGroup("cond")

		invoke := ir.Invoke(calleeCell,
			[]ir.PortBinding{{Formal: ir.Intern("in"), Actual: regOut}},
			nil, comb, nil)
		caller.Control = ir.Seq(invoke)

		ci := &passes.CompileInvoke{}
		v, err := ci.NewVisitor(nil, caller, pass.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pass.Run(v, caller)).To(HaveOccurred())
	})
})
