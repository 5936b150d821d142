package lib_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/lib"
)

var _ = Describe("Library", func() {
	It("resolves a parameterized width expression against bound params", func() {
		expr := lib.PortWidthExpr("WIDTH - 1")
		w, err := expr.Eval(map[string]int{"WIDTH": 32})
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(31))
	})

	It("loads a signature library from YAML", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "primitives.yaml")
		contents := `
primitives:
  - name: std_reg
    params: [WIDTH]
    ports:
      - {name: in, width: "WIDTH", direction: input}
      - {name: write_en, width: "1", direction: input}
      - {name: out, width: "WIDTH", direction: output}
      - {name: done, width: "1", direction: output}
    attrs: {clk: 1, reset: 1}
`
		Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())

		l, err := lib.LoadSignatures(path)
		Expect(err).NotTo(HaveOccurred())

		sig, ok := l.Lookup("std_reg")
		Expect(ok).To(BeTrue())
		Expect(sig.Params).To(Equal([]string{"WIDTH"}))
		Expect(sig.Ports).To(HaveLen(4))
	})

	It("reports a missing signature", func() {
		l := lib.NewLibrary(nil)
		_, ok := l.Lookup("std_reg")
		Expect(ok).To(BeFalse())
	})
})
