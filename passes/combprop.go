// Package passes implements spec.md §4.4's representative optimization and
// compilation passes over the pass framework in package pass.
package passes

import (
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

const stdWirePrimitive = "std_wire"

// CombProp implements spec.md §4.4.1: it forwards values written into a
// std_wire cell directly to every reader of that wire's output, collapsing
// `wire.in = x; r.in = wire.out;` into `r.in = x;` and dropping the now-dead
// continuous assignment that drove the wire (unless the "no-eliminate"
// option asks to keep it, marked dead instead of removed).
type CombProp struct{}

var combPropSchema = pass.Schema{
	{Name: "no-eliminate", Kind: pass.OptBool},
}

func (CombProp) Name() string        { return "comb-prop" }
func (CombProp) Schema() pass.Schema { return combPropSchema }
func (CombProp) IterationOrder() pass.IterOrder { return pass.IterPre }

func (CombProp) NewVisitor(_ *ir.Context, comp *ir.Component, opts pass.Options) (pass.Visitor, error) {
	v := &combPropVisitor{comp: comp, noEliminate: opts.Bool("no-eliminate")}
	return v, nil
}

type combPropVisitor struct {
	pass.BaseVisitor
	comp        *ir.Component
	noEliminate bool
	rewriter    *ir.Rewriter
}

func isWirePort(p *ir.Port, portName string) bool {
	if p == nil || p.IsHole() || p.ParentKind() != ir.ParentCell {
		return false
	}
	cell := p.Cell()
	if cell.Prototype.Kind != ir.ProtoPrimitive {
		return false
	}
	return cell.Prototype.PrimitiveName.String() == stdWirePrimitive && p.Name.String() == portName
}

// Start builds the forwarding map over comp's continuous assignments,
// applies it to every assignment the component owns (continuous, and
// every group's own), and removes (or marks dead) the wire-driving
// assignments it consumed.
func (v *combPropVisitor) Start(*ir.Component) error {
	fwd := map[ir.PortKey]*ir.Port{}
	cancelled := map[ir.PortKey]bool{}
	consumed := map[ir.PortKey]bool{}

	for _, a := range v.comp.Continuous {
		if !a.IsUnconditional() {
			continue
		}
		if isWirePort(a.Dst, "in") {
			wire := a.Dst.Cell()
			outKey := keyOf(wire, "out")
			consumed[portKeyOf(a.Dst)] = true
			if existing, ok := fwd[outKey]; ok && existing != a.Src {
				cancelled[outKey] = true
				continue
			}
			fwd[outKey] = a.Src
		}
	}
	for k := range cancelled {
		delete(fwd, k)
	}

	// Rule 2: `c.in = wire.out` additionally lets an upstream writer of
	// wire.in be redirected straight to c.in, so chains of wires collapse
	// in one pass instead of needing one comb-prop run per link.
	for _, a := range v.comp.Continuous {
		if !a.IsUnconditional() || !isWirePort(a.Src, "out") {
			continue
		}
		wire := a.Src.Cell()
		inKey := keyOf(wire, "in")
		if _, ok := fwd[inKey]; !ok {
			fwd[inKey] = a.Dst
		}
	}

	// Chase chains to a fixpoint: a forwarded value may itself be another
	// wire's output still pending its own forward entry.
	for changed := true; changed; {
		changed = false
		for k, p := range fwd {
			if p == nil {
				continue
			}
			pk := portKeyOf(p)
			if next, ok := fwd[pk]; ok && next != p {
				fwd[k] = next
				changed = true
			}
		}
	}

	// Rule 2 may rewrite a consumed wire.in destination, so which
	// assignments were consumed is decided before the rewrite.
	wasConsumed := make([]bool, len(v.comp.Continuous))
	for i, a := range v.comp.Continuous {
		wasConsumed[i] = consumed[portKeyOf(a.Dst)]
	}

	r := ir.NewRewriter()
	for k, p := range fwd {
		r.PortMap[k] = p
	}
	v.rewriter = r

	for i, a := range v.comp.Continuous {
		v.comp.Continuous[i] = ir.RewriteAssignment(r, a)
	}
	for _, g := range v.comp.Groups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment(r, a)
		}
	}
	for _, g := range v.comp.CombGroups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment(r, a)
		}
	}
	for _, g := range v.comp.StaticGroups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment[ir.Static](r, a)
		}
	}

	var kept []ir.Assignment[ir.Dynamic]
	for i, a := range v.comp.Continuous {
		if !wasConsumed[i] {
			kept = append(kept, a)
			continue
		}
		if v.noEliminate {
			a.Attrs.SetBool(ir.AttrDead, true)
			kept = append(kept, a)
			continue
		}
		// dropped: this wire-driving assignment was forwarded away.
	}
	v.comp.Continuous = kept

	// spec.md §4.4.1: "apply the combined remap to all assignments and all
	// control ports" — If/While conditions and Invoke input/output actuals
	// are control ports too, so the same port map is walked over the whole
	// control tree rather than just the group/continuous assignments above.
	v.rewriter.RewriteControl(v.comp.Control)

	return nil
}

func keyOf(cell *ir.Cell, portName string) ir.PortKey {
	return ir.PortKey{Parent: cell.Name, Name: ir.Intern(portName)}
}

func portKeyOf(p *ir.Port) ir.PortKey {
	parent, name := p.CanonicalName()
	return ir.PortKey{Parent: parent, Name: name}
}
