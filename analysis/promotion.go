package analysis

import "github.com/sarchlab/hwir/ir"

// Promote converts a dynamic control node already labeled with a computed
// latency (see ComputeStaticLatency) into its Static* counterpart,
// synthesizing a StaticGroup for every Enable it passes through by copying
// the dynamic group's assignments, minus any write to its own done hole
// (a Static* node has no done hole to drive). b supplies the component the
// new static groups are added to.
func Promote(b *ir.Builder, c *ir.Control) (*ir.Control, bool) {
	if c == nil {
		return nil, true
	}
	if c.Kind.IsStatic() {
		return c, true
	}

	switch c.Kind {
	case ir.CEmpty:
		return c, true
	case ir.CEnable:
		latency, ok := c.GetLatency()
		if !ok {
			return nil, false
		}
		sg := b.AddStaticGroup(c.Group.Name.String(), latency)
		for _, a := range c.Group.Assignments {
			if a.Dst.IsHole() && a.Dst.Name == c.Group.DoneHole.Name {
				continue
			}
			sg.Assignments = append(sg.Assignments, ir.Assignment[ir.Static]{
				Dst: a.Dst, Src: a.Src, Guard: a.Guard, Attrs: a.Attrs.Clone(),
			})
		}
		return ir.StaticEnable(sg), true
	case ir.CSeq:
		children, ok := promoteAll(b, c.Children)
		if !ok {
			return nil, false
		}
		seq := ir.StaticSeq(children...)
		seq.Latency = sumLatency(children)
		return seq, true
	case ir.CPar:
		children, ok := promoteAll(b, c.Children)
		if !ok {
			return nil, false
		}
		par := ir.StaticPar(children...)
		par.Latency = maxLatency(children)
		return par, true
	case ir.CIf:
		if c.CombGroup != nil {
			return nil, false
		}
		then, ok := Promote(b, c.Then)
		if !ok {
			return nil, false
		}
		els, ok := Promote(b, c.Else)
		if !ok {
			return nil, false
		}
		node := ir.StaticIf(c.Cond, then, els)
		node.Latency = maxLatency([]*ir.Control{then, els})
		return node, true
	case ir.CWhile:
		bound, ok := c.Attrs.Num(ir.AttrBound)
		if !ok {
			return nil, false
		}
		body, ok := Promote(b, c.Body)
		if !ok {
			return nil, false
		}
		node := ir.StaticRepeat(body, bound)
		if l, ok := body.GetLatency(); ok {
			node.Latency = bound * l
		}
		return node, true
	case ir.CRepeat:
		body, ok := Promote(b, c.Body)
		if !ok {
			return nil, false
		}
		node := ir.StaticRepeat(body, c.Count)
		if l, ok := body.GetLatency(); ok {
			node.Latency = c.Count * l
		}
		return node, true
	case ir.CInvoke:
		return ir.StaticInvoke(c.Cell, c.Inputs, c.Outputs, c.RefCells), true
	default:
		return nil, false
	}
}

func sumLatency(nodes []*ir.Control) int {
	total := 0
	for _, n := range nodes {
		if l, ok := n.GetLatency(); ok {
			total += l
		}
	}
	return total
}

func maxLatency(nodes []*ir.Control) int {
	max := 0
	for _, n := range nodes {
		if l, ok := n.GetLatency(); ok && l > max {
			max = l
		}
	}
	return max
}

func promoteAll(b *ir.Builder, children []*ir.Control) ([]*ir.Control, bool) {
	out := make([]*ir.Control, 0, len(children))
	for _, ch := range children {
		p, ok := Promote(b, ch)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}
