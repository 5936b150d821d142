package analysis

import (
	"strconv"

	"github.com/sarchlab/hwir/ir"
)

// DepGraph is a directed graph over a flat statement list: an edge i -> j
// means statement i must precede statement j.
type DepGraph struct {
	Nodes []*ir.Control
	Edges map[int][]int
}

func newDepGraph(nodes []*ir.Control) *DepGraph {
	return &DepGraph{Nodes: nodes, Edges: map[int][]int{}}
}

func (g *DepGraph) addEdge(i, j int) {
	for _, k := range g.Edges[i] {
		if k == j {
			return
		}
	}
	g.Edges[i] = append(g.Edges[i], j)
}

func conflicts(a, b *ReadWriteSet) bool {
	return intersects(a.CellWrites, b.CellReads) ||
		intersects(a.CellWrites, b.CellWrites) ||
		intersects(a.CellReads, b.CellWrites)
}

func intersects(a, b []*ir.Cell) bool {
	set := map[ir.Identifier]bool{}
	for _, c := range a {
		set[c.Name] = true
	}
	for _, c := range b {
		if set[c.Name] {
			return true
		}
	}
	return false
}

func augment(rw *ReadWriteSet, continuous []ir.Assignment[ir.Dynamic]) *ReadWriteSet {
	if len(continuous) == 0 {
		return rw
	}
	out := &ReadWriteSet{
		PortReads: append([]*ir.Port(nil), rw.PortReads...), PortWrites: append([]*ir.Port(nil), rw.PortWrites...),
		CellReads: append([]*ir.Cell(nil), rw.CellReads...), CellWrites: append([]*ir.Cell(nil), rw.CellWrites...),
		MustWrites: append([]*ir.Port(nil), rw.MustWrites...), RegisterReads: append([]*ir.Port(nil), rw.RegisterReads...),
	}
	merge(out, ComputeAssignments(continuous))
	return out
}

// BuildSeqDepGraph builds the "must-precede" graph over a sequential
// statement list: edge i -> j (i<j) exists when statement j reads
// something i wrote, both write the same cell, or j writes something i
// read. Continuous assignments' cell reads/writes augment every
// statement's own sets before the comparison.
func BuildSeqDepGraph(stmts []*ir.Control, continuous []ir.Assignment[ir.Dynamic]) *DepGraph {
	g := newDepGraph(stmts)
	sets := make([]*ReadWriteSet, len(stmts))
	for i, s := range stmts {
		sets[i] = augment(ComputeControl(s), continuous)
	}
	for i := 0; i < len(stmts); i++ {
		for j := i + 1; j < len(stmts); j++ {
			if conflicts(sets[i], sets[j]) {
				g.addEdge(i, j)
			}
		}
	}
	return g
}

// BuildParConflictGraph builds a bidirectional conflict graph over a set of
// concurrent (Par) children: since no sequencing is enforced between them,
// any conflicting pair is an edge in both directions, which the
// strongly-connected-component check below reports as a race.
func BuildParConflictGraph(children []*ir.Control, continuous []ir.Assignment[ir.Dynamic]) *DepGraph {
	g := newDepGraph(children)
	sets := make([]*ReadWriteSet, len(children))
	for i, s := range children {
		sets[i] = augment(ComputeControl(s), continuous)
	}
	for i := 0; i < len(children); i++ {
		for j := i + 1; j < len(children); j++ {
			if conflicts(sets[i], sets[j]) {
				g.addEdge(i, j)
				g.addEdge(j, i)
			}
		}
	}
	return g
}

// FindRaces returns every strongly-connected component of size > 1 in g,
// each one a group of statements whose relative order is ambiguous.
func FindRaces(g *DepGraph) [][]int {
	return tarjanSCC(g)
}

// tarjanSCC is the standard SCC algorithm, restricted to returning
// components with more than one member (singletons are never a race).
func tarjanSCC(g *DepGraph) [][]int {
	n := len(g.Nodes)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var sccs [][]int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Edges[v] {
			if index[w] == -1 {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 {
				sccs = append(sccs, comp)
			}
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
	return sccs
}

// Explain renders a human-readable description of a race: the statement
// indices involved.
func Explain(scc []int) string {
	out := "data race among statements: "
	for i, idx := range scc {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(idx)
	}
	return out
}
