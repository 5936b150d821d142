package analysis

import "github.com/sarchlab/hwir/ir"

// ComputeStaticLatency computes a control node's statically-known latency,
// recording it as the node's AttrStatic attribute on success so later
// passes can read it back without recomputing. Re-running on an
// already-annotated tree recomputes and overwrites the same value, so it
// is idempotent: it never adds a new attribute key, only refreshes the
// existing one.
func ComputeStaticLatency(ctx *ir.Context, c *ir.Control) (int, bool) {
	if c == nil {
		return 0, true
	}

	if c.Kind.IsStatic() {
		return c.GetLatency()
	}

	latency, ok := computeDynamic(ctx, c)
	if ok {
		c.Attrs.SetNum(ir.AttrStatic, latency)
	}
	return latency, ok
}

func computeDynamic(ctx *ir.Context, c *ir.Control) (int, bool) {
	switch c.Kind {
	case ir.CEmpty:
		return 0, true
	case ir.CEnable:
		if v, ok := c.Attrs.Num(ir.AttrStatic); ok {
			return v, true
		}
		return c.Group.Attrs.Num(ir.AttrStatic)
	case ir.CSeq:
		total := 0
		for _, ch := range c.Children {
			l, ok := ComputeStaticLatency(ctx, ch)
			if !ok {
				return 0, false
			}
			total += l
		}
		return total, true
	case ir.CPar:
		max := 0
		for _, ch := range c.Children {
			l, ok := ComputeStaticLatency(ctx, ch)
			if !ok {
				return 0, false
			}
			if l > max {
				max = l
			}
		}
		return max, true
	case ir.CIf:
		if c.CombGroup != nil {
			return 0, false
		}
		lt, ok := ComputeStaticLatency(ctx, c.Then)
		if !ok {
			return 0, false
		}
		le, ok := ComputeStaticLatency(ctx, c.Else)
		if !ok {
			return 0, false
		}
		if le > lt {
			return le, true
		}
		return lt, true
	case ir.CWhile:
		bound, ok := c.Attrs.Num(ir.AttrBound)
		if !ok {
			return 0, false
		}
		body, ok := ComputeStaticLatency(ctx, c.Body)
		if !ok {
			return 0, false
		}
		return bound * body, true
	case ir.CRepeat:
		body, ok := ComputeStaticLatency(ctx, c.Body)
		if !ok {
			return 0, false
		}
		return c.Count * body, true
	case ir.CInvoke:
		sub, ok := ctx.Component(c.Cell.Prototype.ComponentName)
		if !ok {
			return 0, false
		}
		return ComputeStaticLatency(ctx, sub.Control)
	default:
		return 0, false
	}
}
