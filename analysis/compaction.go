package analysis

import (
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/ir"
)

// Compact reschedules a sequential list of already-static statements into
// a static-parallel schedule. It builds the dependency graph, computes a
// critical-path start time per statement, and bails out returning the
// original sequence unchanged when no parallelism is available. Otherwise
// it list-schedules statements into the fewest threads that respect the
// computed starts, padding a thread with a freshly built no-op static
// group whenever it must idle to reach its next statement's start time,
// and wraps the threads in a StaticPar.
func Compact(b *ir.Builder, stmts []*ir.Control, continuous []ir.Assignment[ir.Dynamic]) (*ir.Control, bool, error) {
	if len(stmts) == 0 {
		return ir.StaticSeq(), false, nil
	}

	latencies := make([]int, len(stmts))
	seqSum := 0
	for i, s := range stmts {
		l, ok := s.GetLatency()
		if !ok {
			return nil, false, calyxerr.New(calyxerr.InvalidConversion,
				"compaction: statement %d has no known static latency", i)
		}
		latencies[i] = l
		seqSum += l
	}

	graph := BuildSeqDepGraph(stmts, continuous)
	preds := make([][]int, len(stmts))
	for i, succs := range graph.Edges {
		for _, j := range succs {
			preds[j] = append(preds[j], i)
		}
	}

	start := make([]int, len(stmts))
	total := 0
	for i := range stmts {
		max := 0
		for _, p := range preds[i] {
			if cand := start[p] + latencies[p]; cand > max {
				max = cand
			}
		}
		start[i] = max
		if end := start[i] + latencies[i]; end > total {
			total = end
		}
	}

	if total == seqSum {
		return ir.StaticSeq(stmts...), false, nil
	}

	type thread struct {
		cursor int
		nodes  []*ir.Control
	}
	var threads []*thread

	for i, s := range stmts {
		var best *thread
		for _, t := range threads {
			if t.cursor <= start[i] && (best == nil || t.cursor > best.cursor) {
				best = t
			}
		}
		if best == nil {
			best = &thread{}
			threads = append(threads, best)
		}
		if gap := start[i] - best.cursor; gap > 0 {
			nop := b.AddStaticGroup("nop", gap)
			best.nodes = append(best.nodes, ir.StaticEnable(nop))
			best.cursor += gap
		}
		best.nodes = append(best.nodes, s)
		best.cursor += latencies[i]
	}

	children := make([]*ir.Control, 0, len(threads))
	for _, t := range threads {
		children = append(children, ir.StaticSeq(t.nodes...))
	}

	par := ir.StaticPar(children...)
	par.Latency = total
	par.Attrs.SetBool(ir.AttrPromoted, true)
	return par, true, nil
}
