package analysis

import "github.com/sarchlab/hwir/ir"

// StaticParDomination answers, for one CStaticPar node, which thread is
// authoritative at a given FSM offset — the thread the hole inliner should
// trust to drive the par's done signal instead of taking a disjunction
// over every thread's (possibly already-idle) done wire.
type StaticParDomination struct {
	par        *ir.Control
	threadLats []int
}

// NewStaticParDomination indexes a CStaticPar node's children by their
// total latency.
func NewStaticParDomination(par *ir.Control) *StaticParDomination {
	d := &StaticParDomination{par: par}
	for _, th := range par.Children {
		d.threadLats = append(d.threadLats, threadLatency(th))
	}
	return d
}

func threadLatency(th *ir.Control) int {
	if l, ok := th.GetLatency(); ok {
		return l
	}
	sum := 0
	for _, c := range th.Children {
		if l, ok := c.GetLatency(); ok {
			sum += l
		}
	}
	return sum
}

// DominantThread returns the index of the longest-running thread (ties
// broken toward the lowest index), the thread whose completion always
// coincides with the par's own completion.
func (d *StaticParDomination) DominantThread() int {
	best, bestLat := 0, -1
	for i, l := range d.threadLats {
		if l > bestLat {
			best, bestLat = i, l
		}
	}
	return best
}

// DominantAt returns the index of the longest-running thread that is
// still active (has not yet idled past its own schedule) at FSM offset t,
// or false if every thread has already completed by t.
func (d *StaticParDomination) DominantAt(t int) (int, bool) {
	best, bestLat := -1, -1
	for i, l := range d.threadLats {
		if l > t && l > bestLat {
			best, bestLat = i, l
		}
	}
	return best, best >= 0
}

// ActiveAt returns the indices of every thread still active at offset t.
func (d *StaticParDomination) ActiveAt(t int) []int {
	var out []int
	for i, l := range d.threadLats {
		if l > t {
			out = append(out, i)
		}
	}
	return out
}
