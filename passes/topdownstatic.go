package passes

import (
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/fsm"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// TopDownStaticTiming implements spec.md §4.4.5: for a purely static
// control program, assigns every enable (and static invoke) a half-open
// FSM-state range, replaces the component's entire control with a single
// Enable of one dynamic group gated by one FSM register, and records the
// structural fsm.Description SPEC_FULL.md's supplement #9 adds alongside
// it. A While survives inside an otherwise-static program only when it
// carries a statically known AttrBound; it is compiled with a dedicated
// index register and a loop-exit transition gated by idx+1 reaching bound
// at the body's last state (so the body runs bound times, at least once),
// instead of being unrolled. A component whose control mixes in a true
// dynamic node (an unbounded While, a bare Invoke) is left untouched —
// this pass only fires on programs that qualify as purely static.
//
// Grounded on: calyx-opt/src/passes/top_down_static_timing/compute_states.rs
// and calyx/src/passes/top_down_static_timing.rs (original_source);
// calyx/src/backend/fsm/machine_gen.rs for the structural FSM value;
// spec.md §4.4.5.
type TopDownStaticTiming struct {
	Descriptions map[ir.Identifier]*fsm.Description
}

func (p *TopDownStaticTiming) Name() string                  { return "top-down-static-timing" }
func (p *TopDownStaticTiming) Schema() pass.Schema            { return nil }
func (p *TopDownStaticTiming) IterationOrder() pass.IterOrder { return pass.IterPost }

func (p *TopDownStaticTiming) NewVisitor(_ *ir.Context, comp *ir.Component, _ pass.Options) (pass.Visitor, error) {
	if p.Descriptions == nil {
		p.Descriptions = map[ir.Identifier]*fsm.Description{}
	}
	return &topDownStaticVisitor{pass: p, builder: ir.NewBuilder(comp, nil)}, nil
}

// interval is one enable's or static invoke's half-open FSM-state range.
// Exactly one of group/goPort is set: a static-enable interval replays its
// group's own assignments gated by the range; a static-invoke interval
// just drives the callee's go port for the duration of the range.
type interval struct {
	lo, hi int
	cond   *ir.Guard

	group  *ir.StaticGroup
	goPort *ir.Port
}

// loopBoundary is the one special FSM state a bounded While contributes:
// the last cycle of its body, where the next state either loops back to
// the body's first state (another iteration remains) or falls through to
// the state following the loop (idx+1 has reached bound).
type loopBoundary struct {
	atState  int
	loopBase int
	idx      *ir.Cell
	bound    int
}

type topDownStaticVisitor struct {
	pass.BaseVisitor

	pass    *TopDownStaticTiming
	builder *ir.Builder

	intervals      []interval
	loopBoundaries []loopBoundary
	consts         map[[2]int]*ir.Port
	err            error
}

func (v *topDownStaticVisitor) Start(comp *ir.Component) error {
	if !isStaticProgram(comp.Control) {
		return nil
	}

	end := v.assign(comp.Control, 0)
	if v.err != nil {
		return v.err
	}
	if end == 0 {
		return nil
	}

	width := bitsFor(end + 1)
	fsmReg, err := v.builder.AddPrimitive("fsm", "std_reg", map[string]int{"WIDTH": width})
	if err != nil {
		return err
	}
	fsmOut, _ := fsmReg.Port(ir.Intern("out"))
	fsmIn, _ := fsmReg.Port(ir.Intern("in"))
	fsmWriteEn, _ := fsmReg.Port(ir.Intern("write_en"))

	g := v.builder.AddGroup("tdst")

	for _, iv := range v.intervals {
		rangeGuard := v.rangeGuard(fsmOut, iv.lo, iv.hi)
		if iv.cond != nil {
			rangeGuard = ir.And(rangeGuard, iv.cond)
		}
		switch {
		case iv.group != nil:
			for _, a := range iv.group.Assignments {
				guard := rangeGuard
				if !a.Guard.IsTrue() {
					guard = ir.And(rangeGuard, a.Guard)
				}
				g.Assignments = append(g.Assignments, ir.BuildAssignment[ir.Dynamic](a.Dst, a.Src, guard))
			}
		case iv.goPort != nil:
			g.Assignments = append(g.Assignments,
				ir.BuildAssignment[ir.Dynamic](iv.goPort, v.constPort(1, 1), rangeGuard))
		}
	}

	var transitions []fsm.Transition
	boundaryStates := map[int]bool{}

	for _, lb := range v.loopBoundaries {
		boundaryStates[lb.atState] = true

		idxOut, _ := lb.idx.Port(ir.Intern("out"))
		idxIn, _ := lb.idx.Port(ir.Intern("in"))
		idxWriteEn, _ := lb.idx.Port(ir.Intern("write_en"))

		// idx counts the iterations finished before this one, so the
		// incremented value is the number finished once this boundary passes.
		idxNext := v.incrementer(idxOut)
		atGuard := v.rangeGuard(fsmOut, lb.atState, lb.atState+1)
		boundConst := v.constPort(lb.bound, idxOut.Width)
		notDone := ir.Cmp(ir.CmpLt, idxNext, boundConst)
		isDone := ir.Cmp(ir.CmpGe, idxNext, boundConst)

		g.Assignments = append(g.Assignments,
			ir.BuildAssignment[ir.Dynamic](fsmIn, v.constPort(lb.loopBase, width), ir.And(atGuard, notDone)),
			ir.BuildAssignment[ir.Dynamic](fsmIn, v.constPort(lb.atState+1, width), ir.And(atGuard, isDone)),
			ir.BuildAssignment[ir.Dynamic](idxIn, idxNext, ir.And(atGuard, notDone)),
			ir.BuildAssignment[ir.Dynamic](idxWriteEn, v.constPort(1, 1), atGuard))

		transitions = append(transitions,
			fsm.Transition{From: lb.atState, To: lb.loopBase, Cond: notDone},
			fsm.Transition{From: lb.atState, To: lb.atState + 1, Cond: isDone})
	}
	if v.err != nil {
		return v.err
	}

	notBoundary := ir.True()
	for s := range boundaryStates {
		notBoundary = ir.And(notBoundary, ir.Not(v.rangeGuard(fsmOut, s, s+1)))
	}
	g.Assignments = append(g.Assignments,
		ir.BuildAssignment[ir.Dynamic](fsmIn, v.incrementer(fsmOut), notBoundary),
		ir.BuildAssignment[ir.Dynamic](fsmWriteEn, v.constPort(1, 1), nil),
		ir.BuildAssignment[ir.Dynamic](g.DoneHole, v.constPort(1, 1), v.rangeGuard(fsmOut, end, end+1)))
	if v.err != nil {
		return v.err
	}

	for s := 0; s < end; s++ {
		if !boundaryStates[s] {
			transitions = append(transitions, fsm.Transition{From: s, To: s + 1})
		}
	}

	comp.Control = ir.Enable(g)
	v.pass.Descriptions[comp.Name] = &fsm.Description{
		Register:    fsmReg,
		States:      end + 1,
		Transitions: transitions,
	}
	return nil
}

func isStaticProgram(n *ir.Control) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case ir.CEmpty, ir.CStaticEnable, ir.CStaticInvoke:
		return true
	case ir.CStaticSeq, ir.CStaticPar:
		for _, ch := range n.Children {
			if !isStaticProgram(ch) {
				return false
			}
		}
		return true
	case ir.CStaticIf:
		return isStaticProgram(n.Then) && isStaticProgram(n.Else)
	case ir.CStaticRepeat:
		return isStaticProgram(n.Body)
	case ir.CWhile:
		_, ok := n.Attrs.Num(ir.AttrBound)
		return ok && isStaticProgram(n.Body)
	default:
		return false
	}
}

func (v *topDownStaticVisitor) assign(n *ir.Control, base int) int {
	if v.err != nil || n == nil {
		return base
	}

	switch n.Kind {
	case ir.CEmpty:
		return base

	case ir.CStaticEnable:
		lat, ok := n.GetLatency()
		if !ok {
			v.err = calyxerr.New(calyxerr.InvalidConversion, "static enable has no known latency")
			return base
		}
		v.intervals = append(v.intervals, interval{lo: base, hi: base + lat, group: n.StaticGroup})
		return base + lat

	case ir.CStaticInvoke:
		lat, ok := n.GetLatency()
		if !ok {
			v.err = calyxerr.New(calyxerr.InvalidConversion, "static invoke has no known latency")
			return base
		}
		goPort, ok := n.Cell.Go()
		if !ok {
			v.err = calyxerr.New(calyxerr.MalformedStructure, "static invoke target %q has no go port", n.Cell.Name)
			return base
		}
		v.intervals = append(v.intervals, interval{lo: base, hi: base + lat, goPort: goPort})
		return base + lat

	case ir.CStaticSeq:
		cur := base
		for _, ch := range n.Children {
			cur = v.assign(ch, cur)
		}
		return cur

	case ir.CStaticPar:
		end := base
		for _, ch := range n.Children {
			if e := v.assign(ch, base); e > end {
				end = e
			}
		}
		return end

	case ir.CStaticIf:
		cond := ir.PortGuard(n.Cond)
		thenEnd := v.assignGuarded(n.Then, base, cond)
		elseEnd := v.assignGuarded(n.Else, base, ir.Not(cond))
		if thenEnd > elseEnd {
			return thenEnd
		}
		return elseEnd

	case ir.CStaticRepeat:
		cur := base
		for i := 0; i < n.Count; i++ {
			cur = v.assign(n.Body, cur)
		}
		return cur

	case ir.CWhile:
		bound, _ := n.Attrs.Num(ir.AttrBound)
		idx, err := v.builder.AddPrimitive("idx", "std_reg", map[string]int{"WIDTH": bitsFor(bound + 1)})
		if err != nil {
			v.err = err
			return base
		}
		bodyEnd := v.assign(n.Body, base)
		v.loopBoundaries = append(v.loopBoundaries, loopBoundary{
			atState: bodyEnd - 1, loopBase: base, idx: idx, bound: bound,
		})
		return bodyEnd

	default:
		v.err = calyxerr.New(calyxerr.Internal, "top-down static timing: unexpected control kind %v", n.Kind)
		return base
	}
}

func (v *topDownStaticVisitor) assignGuarded(n *ir.Control, base int, cond *ir.Guard) int {
	before := len(v.intervals)
	end := v.assign(n, base)
	for i := before; i < len(v.intervals); i++ {
		v.intervals[i].cond = cond
	}
	return end
}

func (v *topDownStaticVisitor) rangeGuard(fsmOut *ir.Port, lo, hi int) *ir.Guard {
	loPort := v.constPort(lo, fsmOut.Width)
	hiPort := v.constPort(hi, fsmOut.Width)
	return ir.And(ir.Cmp(ir.CmpGe, fsmOut, loPort), ir.Cmp(ir.CmpLt, fsmOut, hiPort))
}

func (v *topDownStaticVisitor) constPort(value, width int) *ir.Port {
	key := [2]int{value, width}
	if p, ok := v.consts[key]; ok {
		return p
	}
	c := v.builder.AddConstant(uint64(value), width)
	out, _ := c.Port(ir.Intern("out"))
	if v.consts == nil {
		v.consts = map[[2]int]*ir.Port{}
	}
	v.consts[key] = out
	return out
}

// incrementer wires a fresh std_add cell to p+1 and returns its out port.
// One adder per counter (the fsm register, each loop's index register) —
// combinational wiring the hole inliner leaves untouched since these are
// ordinary continuous assignments, not hole references.
func (v *topDownStaticVisitor) incrementer(p *ir.Port) *ir.Port {
	adder, err := v.builder.AddPrimitive("incr", "std_add", map[string]int{"WIDTH": p.Width})
	if err != nil {
		v.err = err
		return p
	}
	left, _ := adder.Port(ir.Intern("left"))
	right, _ := adder.Port(ir.Intern("right"))
	out, _ := adder.Port(ir.Intern("out"))
	v.builder.Component.Continuous = append(v.builder.Component.Continuous,
		ir.BuildAssignment[ir.Dynamic](left, p, nil),
		ir.BuildAssignment[ir.Dynamic](right, v.constPort(1, p.Width), nil))
	return out
}

// bitsFor returns the number of bits needed to represent values 0..n-1.
func bitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	bits := 0
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return bits
}
