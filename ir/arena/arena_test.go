package arena_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hwir/ir/arena"
)

type widget struct{ name string }

var _ = Describe("Map", func() {
	It("hands back stable indices in insertion order", func() {
		m := arena.New[widget]()
		i0 := m.Add(widget{name: "a"})
		i1 := m.Add(widget{name: "b"})

		Expect(m.Get(i0).name).To(Equal("a"))
		Expect(m.Get(i1).name).To(Equal("b"))
		Expect(m.Len()).To(Equal(2))
	})

	It("lets callers mutate an entry in place via Set", func() {
		m := arena.New[widget]()
		i0 := m.Add(widget{name: "a"})
		m.Set(i0, widget{name: "renamed"})
		Expect(m.Get(i0).name).To(Equal("renamed"))
	})

	It("iterates every entry in insertion order and can stop early", func() {
		m := arena.New[widget]()
		m.Add(widget{name: "a"})
		m.Add(widget{name: "b"})
		m.Add(widget{name: "c"})

		var seen []string
		m.All(func(_ arena.Index[widget], w widget) bool {
			seen = append(seen, w.name)
			return w.name != "b"
		})

		Expect(seen).To(Equal([]string{"a", "b"}))
	})
})
