package analysis

import "github.com/sarchlab/hwir/ir"

// Order is a lighter sibling of the control dependency graph: it only
// answers whether one statement is structurally proven to execute before
// another, without building a conflict graph over read/write sets.
// Sequential children get disjoint, increasing position ranges; Par and
// If/While's concurrent branches all share their parent's range, so
// nothing inside them can be proven ordered relative to a sibling branch.
type Order struct {
	lo, hi map[*ir.Control]int
}

// BuildControlOrder computes position ranges for every node reachable
// from root.
func BuildControlOrder(root *ir.Control) *Order {
	o := &Order{lo: map[*ir.Control]int{}, hi: map[*ir.Control]int{}}
	counter := 0
	assignOrder(root, &counter, o)
	return o
}

// CanPrecede reports whether a is structurally proven to fully execute
// before b starts.
func (o *Order) CanPrecede(a, b *ir.Control) bool {
	ah, aok := o.hi[a]
	bl, bok := o.lo[b]
	return aok && bok && ah <= bl
}

func assignOrder(n *ir.Control, counter *int, o *Order) (lo, hi int) {
	if n == nil {
		lo = *counter
		return lo, lo
	}

	switch n.Kind {
	case ir.CSeq, ir.CStaticSeq:
		lo = *counter
		for _, ch := range n.Children {
			assignOrder(ch, counter, o)
		}
		hi = *counter

	case ir.CPar, ir.CStaticPar:
		lo = *counter
		maxHi := *counter
		for _, ch := range n.Children {
			*counter = lo
			_, chHi := assignOrder(ch, counter, o)
			if chHi > maxHi {
				maxHi = chHi
			}
		}
		*counter = maxHi
		hi = maxHi

	case ir.CIf, ir.CStaticIf:
		lo = *counter
		*counter++ // condition sample
		base := *counter
		*counter = base
		_, thenHi := assignOrder(n.Then, counter, o)
		*counter = base
		_, elseHi := assignOrder(n.Else, counter, o)
		hi = thenHi
		if elseHi > hi {
			hi = elseHi
		}
		*counter = hi

	case ir.CWhile:
		lo = *counter
		*counter++
		assignOrder(n.Body, counter, o)
		hi = lo // a loop's exit point cannot be proven ordered after its own body

	case ir.CRepeat, ir.CStaticRepeat:
		lo = *counter
		_, bodyHi := assignOrder(n.Body, counter, o)
		hi = bodyHi

	default: // Empty, Enable, StaticEnable, Invoke, StaticInvoke
		lo = *counter
		*counter++
		hi = *counter
	}

	o.lo[n] = lo
	o.hi[n] = hi
	return lo, hi
}
