package passes

import (
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// HoleInliner implements spec.md §4.4.6, the final lowering step: holes
// must not appear in the emitted netlist. It requires the component's
// control to already be a single top-level enable (or empty) — the state
// top-down static timing (passes/topdownstatic.go) leaves a component in —
// and folds every go/done hole into the guards of the assignments that
// read it, then turns the surviving assignments into continuous wires.
//
// Grounded on: calyx/opt/src/passes_experimental/hole_inliner.rs
// (original_source), the experimental tree spec.md §9 designates as the
// one this spec follows.
type HoleInliner struct{}

func (p *HoleInliner) Name() string                  { return "hole-inliner" }
func (p *HoleInliner) Schema() pass.Schema            { return nil }
func (p *HoleInliner) IterationOrder() pass.IterOrder { return pass.IterPre }

func (p *HoleInliner) NewVisitor(_ *ir.Context, comp *ir.Component, _ pass.Options) (pass.Visitor, error) {
	return &holeInlinerVisitor{comp: comp}, nil
}

type holeInlinerVisitor struct {
	pass.BaseVisitor

	comp *ir.Component
}

func (v *holeInlinerVisitor) Start(comp *ir.Component) error {
	switch comp.Control.Kind {
	case ir.CEmpty, ir.CEnable:
	default:
		return calyxerr.New(calyxerr.MalformedControl,
			"hole-inliner: component %q must be reduced to a single top-level enable before hole inlining, found %s",
			comp.Name, comp.Control.Kind)
	}
	return inlineHoles(comp)
}

// holeResolver memoizes each hole's fully-inlined (hole-free) guard
// expression and detects cyclic hole dependencies along the way.
type holeResolver struct {
	writers  map[*ir.Port][]ir.Assignment[ir.Dynamic]
	resolved map[*ir.Port]*ir.Guard
	visiting map[*ir.Port]bool
}

func newHoleResolver(comp *ir.Component) *holeResolver {
	r := &holeResolver{
		writers:  map[*ir.Port][]ir.Assignment[ir.Dynamic]{},
		resolved: map[*ir.Port]*ir.Guard{},
		visiting: map[*ir.Port]bool{},
	}
	for _, g := range comp.Groups {
		for _, a := range g.Assignments {
			if a.Dst.IsHole() {
				r.writers[a.Dst] = append(r.writers[a.Dst], a)
			}
		}
	}
	return r
}

// guardOfPort returns a hole-free guard standing in for p's boolean value:
// p's own resolved guard if p is a hole, or a plain PortGuard otherwise.
func (r *holeResolver) guardOfPort(p *ir.Port) (*ir.Guard, error) {
	if p.IsHole() {
		return r.resolve(p)
	}
	return ir.PortGuard(p), nil
}

// resolveGuard substitutes every hole reference within g by that hole's
// resolved guard, recursively, leaving every comparison operand untouched
// (a well-formed Cmp never compares against a hole).
func (r *holeResolver) resolveGuard(g *ir.Guard) (*ir.Guard, error) {
	if g.IsTrue() {
		return ir.True(), nil
	}
	switch g.Kind {
	case ir.GuardPort:
		return r.guardOfPort(g.Port)
	case ir.GuardNot:
		sub, err := r.resolveGuard(g.Sub)
		if err != nil {
			return nil, err
		}
		return ir.Not(sub), nil
	case ir.GuardAnd:
		l, err := r.resolveGuard(g.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := r.resolveGuard(g.Rhs)
		if err != nil {
			return nil, err
		}
		return ir.And(l, rhs), nil
	case ir.GuardOr:
		l, err := r.resolveGuard(g.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := r.resolveGuard(g.Rhs)
		if err != nil {
			return nil, err
		}
		return ir.Or(l, rhs), nil
	default:
		return g, nil
	}
}

// resolve computes hole h's guard: the disjunction over every writer of
// (writer's guard AND writer's source), per spec.md §4.4.6.
func (r *holeResolver) resolve(h *ir.Port) (*ir.Guard, error) {
	if g, ok := r.resolved[h]; ok {
		return g, nil
	}
	if r.visiting[h] {
		return nil, calyxerr.New(calyxerr.MalformedStructure,
			"hole-inliner: cyclic hole dependency through %s", h)
	}
	r.visiting[h] = true

	var parts []*ir.Guard
	for _, w := range r.writers[h] {
		wg, err := r.resolveGuard(w.Guard)
		if err != nil {
			delete(r.visiting, h)
			return nil, err
		}
		sg, err := r.guardOfPort(w.Src)
		if err != nil {
			delete(r.visiting, h)
			return nil, err
		}
		parts = append(parts, ir.And(wg, sg))
	}

	delete(r.visiting, h)
	g := ir.OrAll(parts)
	r.resolved[h] = g
	return g, nil
}

// inlineHoles implements spec.md §4.4.6 over comp in place: folds every
// hole into the guards of the assignments that read it, drops the
// assignments that wrote holes, clears every group, and leaves the
// surviving assignments as continuous wires.
func inlineHoles(comp *ir.Component) error {
	resolver := newHoleResolver(comp)

	var out []ir.Assignment[ir.Dynamic]
	appendFrom := func(as []ir.Assignment[ir.Dynamic]) error {
		for _, a := range as {
			if a.Dst.IsHole() {
				// Folded into whatever reads the hole it wrote; drop it.
				continue
			}

			guard, err := resolver.resolveGuard(a.Guard)
			if err != nil {
				return err
			}

			if a.Src.IsHole() {
				srcGuard, err := resolver.resolve(a.Src)
				if err != nil {
					return err
				}
				high := highConstant(comp)
				if !guard.IsTrue() {
					srcGuard = ir.And(guard, srcGuard)
				}
				out = append(out, ir.BuildAssignment[ir.Dynamic](a.Dst, high, srcGuard))
				continue
			}

			out = append(out, ir.BuildAssignment[ir.Dynamic](a.Dst, a.Src, guard))
		}
		return nil
	}

	for _, g := range comp.Groups {
		if err := appendFrom(g.Assignments); err != nil {
			return err
		}
	}
	if err := appendFrom(comp.Continuous); err != nil {
		return err
	}

	comp.Continuous = out
	comp.Groups = nil
	comp.CombGroups = nil
	comp.StaticGroups = nil
	comp.Control = ir.Empty()

	return nil
}

// highConstant returns a shared 1-bit-high constant cell's output port,
// reusing one already present on comp (e.g. left behind by
// passes/compileinvoke.go) before building a fresh one.
func highConstant(comp *ir.Component) *ir.Port {
	for _, cell := range comp.Cells {
		if cell.Prototype.Kind == ir.ProtoConstant && cell.Prototype.Width == 1 && cell.Prototype.Value == 1 {
			if out, ok := cell.Port(ir.Intern("out")); ok {
				return out
			}
		}
	}
	b := ir.NewBuilder(comp, nil)
	c := b.AddConstant(1, 1)
	out, _ := c.Port(ir.Intern("out"))
	return out
}
