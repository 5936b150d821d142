package passes

import (
	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// CompileRef implements spec.md §4.4.2 ("compile-ref"): for every
// component, in reverse-topological order (sub-components first), remove
// each cell flagged as a reference and inline its ports into the
// enclosing component's signature with direction inverted, then
// materialize the ref-cell bindings at every Invoke of that component
// into ordinary input/output port bindings. It must run with IterPost so
// a caller only ever sees an already-inlined callee signature.
type CompileRef struct {
	// refPorts[component] maps a ref-cell's formal (cell, port) pair to the
	// freshly created signature port it was inlined as, populated the
	// moment that component is processed and consulted by every later
	// (caller) component in the same run.
	refPorts map[ir.Identifier]map[ir.PortKey]*ir.Port
}

func (p *CompileRef) Name() string                   { return "compile-ref" }
func (p *CompileRef) Schema() pass.Schema            { return nil }
func (p *CompileRef) IterationOrder() pass.IterOrder { return pass.IterPost }

func (p *CompileRef) NewVisitor(_ *ir.Context, _ *ir.Component, _ pass.Options) (pass.Visitor, error) {
	if p.refPorts == nil {
		p.refPorts = map[ir.Identifier]map[ir.PortKey]*ir.Port{}
	}
	return &compileRefVisitor{pass: p}, nil
}

type compileRefVisitor struct {
	pass.BaseVisitor
	pass *CompileRef
}

func (v *compileRefVisitor) Start(comp *ir.Component) error {
	v.inlineOwnRefCells(comp)
	v.mirrorInstantiatedRefPorts(comp)
	return nil
}

// inlineOwnRefCells removes every IsReference cell this component owns,
// projects its ports onto the component's own signature (inverted), and
// rewrites every internal reference to point at the new signature ports.
func (v *compileRefVisitor) inlineOwnRefCells(comp *ir.Component) {
	var refCells []*ir.Cell
	var kept []*ir.Cell
	for _, c := range comp.Cells {
		if c.IsReference {
			refCells = append(refCells, c)
		} else {
			kept = append(kept, c)
		}
	}
	if len(refCells) == 0 {
		return
	}
	comp.Cells = kept

	mapping := map[ir.PortKey]*ir.Port{}
	r := ir.NewRewriter()

	for _, cell := range refCells {
		for _, oldPort := range cell.Ports {
			newName := ir.Intern(cell.Name.String() + "_" + oldPort.Name.String())
			newPort := ir.NewSignaturePort(comp, newName, oldPort.Width, ir.Invert(oldPort.Direction))
			comp.Signature.Ports = append(comp.Signature.Ports, newPort)

			key := ir.PortKey{Parent: cell.Name, Name: oldPort.Name}
			mapping[key] = newPort
			r.PortMap[key] = newPort
		}
	}
	v.pass.refPorts[comp.Name] = mapping

	for i, a := range comp.Continuous {
		comp.Continuous[i] = ir.RewriteAssignment(r, a)
	}
	for _, g := range comp.Groups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment(r, a)
		}
	}
	for _, g := range comp.CombGroups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment(r, a)
		}
	}
	for _, g := range comp.StaticGroups {
		for i, a := range g.Assignments {
			g.Assignments[i] = ir.RewriteAssignment[ir.Static](r, a)
		}
	}
	r.RewriteControl(comp.Control)
}

// mirrorInstantiatedRefPorts adds a mirrored cell port for every new
// signature port an already-processed sub-component gained, on every cell
// of this component that instantiates it.
func (v *compileRefVisitor) mirrorInstantiatedRefPorts(comp *ir.Component) {
	for _, cell := range comp.Cells {
		if cell.Prototype.Kind != ir.ProtoComponent {
			continue
		}
		mapping, ok := v.pass.refPorts[cell.Prototype.ComponentName]
		if !ok {
			continue
		}
		for _, sigPort := range mapping {
			if _, exists := cell.Port(sigPort.Name); exists {
				continue
			}
			cell.Ports = append(cell.Ports, ir.NewMirroredCellPort(cell, sigPort.Name, sigPort.Width, ir.Invert(sigPort.Direction)))
		}
	}
}

func (v *compileRefVisitor) materializeRefCells(cell *ir.Cell, refCells []ir.RefCellBinding) ([]ir.PortBinding, []ir.PortBinding) {
	if cell.Prototype.Kind != ir.ProtoComponent {
		return nil, nil
	}
	mapping, ok := v.pass.refPorts[cell.Prototype.ComponentName]
	if !ok {
		return nil, nil
	}

	var extraIn, extraOut []ir.PortBinding
	for _, binding := range refCells {
		for key, sigPort := range mapping {
			if key.Parent != binding.Formal {
				continue
			}
			actualPort, ok := binding.Actual.Port(key.Name)
			if !ok {
				continue
			}
			pb := ir.PortBinding{Formal: sigPort.Name, Actual: actualPort}
			if sigPort.Direction == ir.DirInput {
				extraIn = append(extraIn, pb)
			} else {
				extraOut = append(extraOut, pb)
			}
		}
	}
	return extraIn, extraOut
}

func (v *compileRefVisitor) Invoke(n *ir.Control) (pass.Action, error) {
	extraIn, extraOut := v.materializeRefCells(n.Cell, n.RefCells)
	n.Inputs = append(n.Inputs, extraIn...)
	n.Outputs = append(n.Outputs, extraOut...)
	return pass.ContinueAction(), nil
}

func (v *compileRefVisitor) StaticInvoke(n *ir.Control) (pass.Action, error) {
	extraIn, extraOut := v.materializeRefCells(n.Cell, n.RefCells)
	n.Inputs = append(n.Inputs, extraIn...)
	n.Outputs = append(n.Outputs, extraOut...)
	return pass.ContinueAction(), nil
}
