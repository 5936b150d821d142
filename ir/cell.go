package ir

// ProtoKind distinguishes the four things a Cell can be an instance of,
// per spec.md §3.
type ProtoKind int

const (
	ProtoPrimitive ProtoKind = iota
	ProtoComponent
	ProtoConstant
	ProtoSignature
)

// Prototype describes what a Cell instantiates.
type Prototype struct {
	Kind ProtoKind

	// ProtoPrimitive
	PrimitiveName Identifier
	Params        map[Identifier]int

	// ProtoComponent
	ComponentName Identifier

	// ProtoConstant
	Value uint64
	Width int
}

// Param looks up a primitive-binding parameter, returning the "malformed
// IR" condition spec.md §4.1 requires builders to surface when a requested
// parameter is missing.
func (p Prototype) Param(name Identifier) (int, bool) {
	v, ok := p.Params[name]
	return v, ok
}

// clone deep-copies a Prototype's Params map so two cells can share a
// Prototype's scalar fields without aliasing its parameter bindings.
func (p Prototype) clone() Prototype {
	np := p
	if p.Params != nil {
		np.Params = make(map[Identifier]int, len(p.Params))
		for k, v := range p.Params {
			np.Params[k] = v
		}
	}
	return np
}

// Cell is an instance of a primitive, a sub-component, a literal constant,
// or the enclosing component's own signature: a struct that owns its ports
// and carries identity plus a handful of boolean flags.
type Cell struct {
	Name      Identifier
	Prototype Prototype
	Attrs     Attributes

	IsReference bool // passed in by the caller (a ref-cell)
	IsExternal  bool // primitive memory visible to the runtime

	Ports []*Port

	owner *Component // weak: a Cell never keeps its Component alive
}

// Component returns the component that owns this cell.
func (c *Cell) Component() *Component {
	return c.owner
}

// Port looks up an owned port by name.
func (c *Cell) Port(name Identifier) (*Port, bool) {
	for _, p := range c.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Go returns the signature's invert of a primitive's "go" input, or nil if
// this cell has no such port (comb cells, constants).
func (c *Cell) Go() (*Port, bool) {
	return c.Port(Intern("go"))
}

// Done returns the cell's "done" output, if it declares one.
func (c *Cell) Done() (*Port, bool) {
	return c.Port(Intern("done"))
}
