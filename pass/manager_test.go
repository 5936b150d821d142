package pass_test

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/lib"
	"github.com/sarchlab/hwir/pass"
)

var _ = Describe("Manager", func() {
	var (
		mockCtrl *gomock.Controller
		ctx      *ir.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		ctx = ir.NewContext(lib.NewLibrary(nil))
		ctx.AddComponent(ir.NewComponent(ir.Intern("main")))
	})

	It("runs a registered pass once per component and flattens aliases", func() {
		mockPass := NewMockPass(mockCtrl)
		mockPass.EXPECT().Name().Return("stub-pass").AnyTimes()
		mockPass.EXPECT().Schema().Return(nil).AnyTimes()
		mockPass.EXPECT().IterationOrder().Return(pass.IterPre).AnyTimes()
		mockPass.EXPECT().
			NewVisitor(ctx, gomock.Any(), gomock.Any()).
			Return(&pass.BaseVisitor{}, nil).
			Times(1)

		m := pass.NewManagerBuilder().
			WithPass(mockPass).
			WithAlias("pipeline", "stub-pass").
			Build()

		Expect(m.RunAlias("pipeline", ctx, nil)).To(Succeed())
	})

	It("rejects an unknown alias without invoking any pass", func() {
		mockPass := NewMockPass(mockCtrl)
		mockPass.EXPECT().Name().Return("stub-pass").AnyTimes()

		m := pass.NewManagerBuilder().WithPass(mockPass).Build()

		err := m.RunAlias("does-not-exist", ctx, nil)
		Expect(err).To(HaveOccurred())
	})
})
