package ir

import (
	"github.com/sarchlab/hwir/calyxerr"
	"github.com/sarchlab/hwir/lib"
)

// Builder wraps a mutable borrow of one component and a read-only borrow of
// the library: a small value that can only build into the component it was
// handed, with fluent "add" methods producing shared handles.
type Builder struct {
	Component *Component
	Library   *lib.Library
}

// NewBuilder creates a Builder over comp using library for primitive
// signature lookups.
func NewBuilder(comp *Component, library *lib.Library) *Builder {
	return &Builder{Component: comp, Library: library}
}

// AddPrimitive instantiates a primitive cell. The cell's name is the given
// prefix with a uniqueing counter appended. Fails with a MalformedStructure
// error if the primitive is unknown, or if params is missing a parameter
// the signature declares.
func (b *Builder) AddPrimitive(namePrefix string, primType string, params map[string]int) (*Cell, error) {
	sig, ok := b.Library.Lookup(primType)
	if !ok {
		return nil, calyxerr.New(calyxerr.MalformedStructure, "unknown primitive %q", primType)
	}

	bound := map[Identifier]int{}
	for _, p := range sig.Params {
		v, ok := params[p]
		if !ok {
			return nil, calyxerr.New(calyxerr.MalformedStructure,
				"primitive %q requires parameter %q", primType, p)
		}
		bound[Intern(p)] = v
	}

	name := b.Component.nextAnon(namePrefix)
	cell := &Cell{
		Name: name,
		Prototype: Prototype{
			Kind:          ProtoPrimitive,
			PrimitiveName: Intern(primType),
			Params:        bound,
		},
		Attrs:      NewAttributes(),
		IsExternal: sig.IsExternal,
		owner:      b.Component,
	}

	strParams := params
	for _, ps := range sig.Ports {
		width, err := ps.Width.Eval(strParams)
		if err != nil {
			return nil, calyxerr.New(calyxerr.MalformedStructure,
				"primitive %q port %q: %v", primType, ps.Name, err)
		}
		dir := parseDirection(ps.Direction)
		port := newCellPort(Intern(ps.Name), width, dir, cell)
		cell.Ports = append(cell.Ports, port)
	}

	b.Component.Cells = append(b.Component.Cells, cell)
	return cell, nil
}

// AddComponentInstance instantiates a sub-component cell, mirroring the
// sub-component's signature ports with directions inverted (an input on the
// sub-component's signature becomes an output on the instantiating cell).
func (b *Builder) AddComponentInstance(namePrefix string, sub *Component) *Cell {
	name := b.Component.nextAnon(namePrefix)
	cell := &Cell{
		Name:      name,
		Prototype: Prototype{Kind: ProtoComponent, ComponentName: sub.Name},
		Attrs:     NewAttributes(),
		owner:     b.Component,
	}
	for _, p := range sub.Signature.Ports {
		port := newCellPort(p.Name, p.Width, invert(p.Direction), cell)
		cell.Ports = append(cell.Ports, port)
	}
	b.Component.Cells = append(b.Component.Cells, cell)
	return cell
}

// AddConstant creates a literal constant cell with a single "out" port.
func (b *Builder) AddConstant(value uint64, width int) *Cell {
	name := b.Component.nextAnon("const")
	cell := &Cell{
		Name:      name,
		Prototype: Prototype{Kind: ProtoConstant, Value: value, Width: width},
		Attrs:     NewAttributes(),
		owner:     b.Component,
	}
	cell.Ports = []*Port{newCellPort(Intern("out"), width, DirOutput, cell)}
	b.Component.Cells = append(b.Component.Cells, cell)
	return cell
}

// AddGroup creates a dynamic group with its go/done holes.
func (b *Builder) AddGroup(namePrefix string) *Group {
	name := b.Component.nextAnon(namePrefix)
	g := &Group{Name: name, Attrs: NewAttributes(), owner: b.Component}
	g.GoHole = newHolePort(Intern("go"), g)
	g.DoneHole = newHolePort(Intern("done"), g)
	b.Component.Groups = append(b.Component.Groups, g)
	return g
}

// AddCombGroup creates a combinational group (no holes).
func (b *Builder) AddCombGroup(namePrefix string) *CombGroup {
	name := b.Component.nextAnon(namePrefix)
	g := &CombGroup{Name: name, Attrs: NewAttributes(), owner: b.Component}
	b.Component.CombGroups = append(b.Component.CombGroups, g)
	return g
}

// AddStaticGroup creates a static group with a known latency.
func (b *Builder) AddStaticGroup(namePrefix string, latency int) *StaticGroup {
	name := b.Component.nextAnon(namePrefix)
	g := &StaticGroup{Name: name, Attrs: NewAttributes(), Latency: latency, owner: b.Component}
	b.Component.StaticGroups = append(b.Component.StaticGroups, g)
	return g
}

// BuildAssignment constructs an assignment value without inserting it
// anywhere. Callers append the result to a Group's, CombGroup's, or
// StaticGroup's Assignments slice, or to a Component's Continuous slice.
func BuildAssignment[T any](dst, src *Port, guard *Guard) Assignment[T] {
	return NewAssignment[T](dst, src, guard)
}

// CombineGroups merges several comb groups' assignments into a single
// fresh comb group, used when an If/While's condition depends on more than
// one existing comb-group's work.
func (b *Builder) CombineGroups(groups ...*CombGroup) *CombGroup {
	merged := b.AddCombGroup("comb")
	for _, g := range groups {
		merged.Assignments = append(merged.Assignments, g.Assignments...)
	}
	return merged
}

// NewSignaturePort creates a port owned by comp's own signature pseudo-cell,
// for a pass that grows a component's boundary after it was first built
// (compile-ref inlining a ref-cell's ports into the enclosing signature).
func NewSignaturePort(comp *Component, name Identifier, width int, dir Direction) *Port {
	return newCellPort(name, width, dir, comp.Signature)
}

// NewMirroredCellPort creates a port on an ordinary cell, for a pass that
// extends an already-built cell's ports (compile-ref mirroring a
// sub-component's newly inlined signature ports onto every cell that
// instantiates it).
func NewMirroredCellPort(cell *Cell, name Identifier, width int, dir Direction) *Port {
	return newCellPort(name, width, dir, cell)
}

// Invert returns the opposite signal direction, the convention
// AddComponentInstance uses when mirroring a sub-component's signature onto
// an instantiating cell.
func Invert(d Direction) Direction {
	return invert(d)
}

// CloneCell creates a fresh cell with the same prototype and port layout as
// orig, owned by the same component, named with namePrefix. Used by a pass
// that splits one physically-shared cell (e.g. a register written by
// non-overlapping live ranges) into several cells occupying the same role.
func (b *Builder) CloneCell(namePrefix string, orig *Cell) *Cell {
	name := b.Component.nextAnon(namePrefix)
	clone := &Cell{
		Name:        name,
		Prototype:   orig.Prototype.clone(),
		Attrs:       NewAttributes(),
		IsReference: orig.IsReference,
		IsExternal:  orig.IsExternal,
		owner:       b.Component,
	}
	for _, p := range orig.Ports {
		clone.Ports = append(clone.Ports, newCellPort(p.Name, p.Width, p.Direction, clone))
	}
	b.Component.Cells = append(b.Component.Cells, clone)
	return clone
}

func parseDirection(s string) Direction {
	switch s {
	case "output":
		return DirOutput
	case "inout":
		return DirInOut
	default:
		return DirInput
	}
}

func invert(d Direction) Direction {
	switch d {
	case DirInput:
		return DirOutput
	case DirOutput:
		return DirInput
	default:
		return DirInOut
	}
}
