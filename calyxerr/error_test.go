package calyxerr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/sourceinfo"
)

var _ = Describe("Error", func() {
	It("formats without a position", func() {
		err := calyxerr.New(calyxerr.MalformedStructure, "duplicate group %q", "g")
		Expect(err.Error()).To(Equal(`Malformed Structure: duplicate group "g"`))
	})

	It("formats with a position once attached", func() {
		err := calyxerr.New(calyxerr.MalformedControl, "missing done hole").
			WithPos(&sourceinfo.Pos{File: "a.futil", Line: 4})
		Expect(err.Error()).To(ContainSubstring("a.futil:4"))
	})

	It("accumulates multiple errors in a List", func() {
		var l calyxerr.List
		Expect(l.HasErrors()).To(BeFalse())

		l.Add(calyxerr.New(calyxerr.MalformedStructure, "first"))
		l.Add(calyxerr.New(calyxerr.MalformedStructure, "second"))

		Expect(l.HasErrors()).To(BeTrue())
		Expect(l.Error()).To(ContainSubstring("2 errors"))
	})
})
