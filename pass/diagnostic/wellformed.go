// Package diagnostic holds whole-context diagnostic passes: passes that
// check a property across every component and accumulate every violation
// before aborting, rather than transforming the IR (spec.md §4.3, §7).
package diagnostic

import (
	"github.com/sarchlab/hwir/analysis"
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// WellFormed checks the structural invariants spec.md §3/§8 require of
// every component: unique cell/group names, every referenced port
// resolving to an entity the component owns, no continuous assignment
// writing a hole, every dynamic group's done hole actually driven, and no
// data race among Par siblings. Grounded on verify/lint.go +
// verify/report.go's "accumulate []Issue, categorize by kind, don't stop
// at the first" shape, retargeted from CGRA-program lint checks to IR
// well-formedness checks.
type WellFormed struct{}

func (WellFormed) Name() string      { return "well-formed" }
func (WellFormed) Schema() pass.Schema { return nil }

func (w WellFormed) RunDiagnostic(ctx *ir.Context, _ pass.Options) *calyxerr.List {
	errs := &calyxerr.List{}

	for _, comp := range ctx.Components() {
		checkUniqueNames(comp, errs)
		checkPortOwnership(comp, errs)
		checkContinuousNoHoles(comp, errs)
		checkDoneDriven(comp, errs)
		checkRaces(comp, errs)
	}

	return errs
}

func checkUniqueNames(comp *ir.Component, errs *calyxerr.List) {
	cellNames := map[ir.Identifier]int{}
	for _, c := range comp.Cells {
		cellNames[c.Name]++
	}
	for name, n := range cellNames {
		if n > 1 {
			errs.Add(calyxerr.New(calyxerr.MalformedStructure,
				"component %q: duplicate cell name %q (%d uses)", comp.Name, name, n))
		}
	}

	groupNames := map[ir.Identifier]int{}
	for _, g := range comp.Groups {
		groupNames[g.Name]++
	}
	for _, g := range comp.CombGroups {
		groupNames[g.Name]++
	}
	for _, g := range comp.StaticGroups {
		groupNames[g.Name]++
	}
	for name, n := range groupNames {
		if n > 1 {
			errs.Add(calyxerr.New(calyxerr.MalformedStructure,
				"component %q: duplicate group name %q (%d uses)", comp.Name, name, n))
		}
	}
}

func checkPortOwnership(comp *ir.Component, errs *calyxerr.List) {
	owned := map[ir.Identifier]bool{comp.Signature.Name: true}
	for _, c := range comp.Cells {
		owned[c.Name] = true
	}
	for _, g := range comp.Groups {
		owned[g.Name] = true
	}
	for _, g := range comp.CombGroups {
		owned[g.Name] = true
	}
	for _, g := range comp.StaticGroups {
		owned[g.Name] = true
	}

	check := func(p *ir.Port) {
		if p == nil {
			return
		}
		if p.ParentKind() == ir.ParentSignature && !p.IsHole() {
			// A ref-cell port inlined into another component's signature
			// still resolves locally once compile-ref has run; only flag
			// it when it neither belongs to this component's own
			// signature nor to anything else this component owns.
			if p.ParentName() == comp.Signature.Name {
				return
			}
		}
		if !owned[p.ParentName()] {
			errs.Add(calyxerr.New(calyxerr.MalformedStructure,
				"component %q: port %s resolves to unowned parent %q",
				comp.Name, p, p.ParentName()))
		}
	}

	for _, a := range comp.Continuous {
		check(a.Dst)
		check(a.Src)
		for _, p := range a.Guard.Ports() {
			check(p)
		}
	}
	for _, g := range comp.Groups {
		for _, a := range g.Assignments {
			check(a.Dst)
			check(a.Src)
			for _, p := range a.Guard.Ports() {
				check(p)
			}
		}
	}
	for _, g := range comp.StaticGroups {
		for _, a := range g.Assignments {
			check(a.Dst)
			check(a.Src)
			for _, p := range a.Guard.Ports() {
				check(p)
			}
		}
	}
}

func checkContinuousNoHoles(comp *ir.Component, errs *calyxerr.List) {
	for _, a := range comp.Continuous {
		if a.Dst.IsHole() {
			errs.Add(calyxerr.New(calyxerr.MalformedStructure,
				"component %q: continuous assignment writes hole %s", comp.Name, a.Dst))
		}
	}
}

func checkDoneDriven(comp *ir.Component, errs *calyxerr.List) {
	for _, g := range comp.Groups {
		driven := false
		for _, a := range g.Assignments {
			if a.Dst.IsHole() && a.Dst.Name == g.DoneHole.Name {
				driven = true
				break
			}
		}
		if !driven {
			errs.Add(calyxerr.New(calyxerr.MalformedStructure,
				"component %q: group %q's done hole is never driven", comp.Name, g.Name))
		}
	}
}

func checkRaces(comp *ir.Component, errs *calyxerr.List) {
	var walk func(n *ir.Control)
	walk = func(n *ir.Control) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ir.CPar:
			g := analysis.BuildParConflictGraph(n.Children, comp.Continuous)
			for _, scc := range analysis.FindRaces(g) {
				errs.Add(calyxerr.New(calyxerr.MalformedStructure,
					"component %q: %s", comp.Name, analysis.Explain(scc)))
			}
			for _, ch := range n.Children {
				walk(ch)
			}
		case ir.CSeq, ir.CStaticSeq, ir.CStaticPar:
			for _, ch := range n.Children {
				walk(ch)
			}
		case ir.CIf, ir.CStaticIf:
			walk(n.Then)
			walk(n.Else)
		case ir.CWhile, ir.CRepeat, ir.CStaticRepeat:
			walk(n.Body)
		}
	}
	walk(comp.Control)
}
