package sourceinfo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/sourceinfo"
)

var _ = Describe("Table", func() {
	It("round-trips through the textual codec", func() {
		t := sourceinfo.NewTable()
		fa := t.AddFile("a.futil")
		fb := t.AddFile("b.futil")

		p0, err := t.AddPosition(fa, 3)
		Expect(err).NotTo(HaveOccurred())
		p1, err := t.AddPosition(fb, 10)
		Expect(err).NotTo(HaveOccurred())

		encoded := t.Encode()

		decoded, err := sourceinfo.Decode(encoded)
		Expect(err).NotTo(HaveOccurred())

		pos0, ok := decoded.Resolve(p0)
		Expect(ok).To(BeTrue())
		Expect(pos0).To(Equal(sourceinfo.Pos{File: "a.futil", Line: 3}))

		pos1, ok := decoded.Resolve(p1)
		Expect(ok).To(BeTrue())
		Expect(pos1).To(Equal(sourceinfo.Pos{File: "b.futil", Line: 10}))
	})

	It("rejects line 0", func() {
		t := sourceinfo.NewTable()
		f := t.AddFile("a.futil")
		_, err := t.AddPosition(f, 0)
		Expect(err).To(HaveOccurred())
	})

	It("rejects out-of-order ids on decode", func() {
		bad := "sourceinfo #{\nFILES\n  0: a.futil\nPOSITIONS\n  1: 0 5\n}#\n"
		_, err := sourceinfo.Decode(bad)
		Expect(err).To(HaveOccurred())
	})

	It("returns false for an unresolved PosID", func() {
		t := sourceinfo.NewTable()
		_, ok := t.Resolve(7)
		Expect(ok).To(BeFalse())
	})
})
