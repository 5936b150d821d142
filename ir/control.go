package ir

// ControlKind discriminates every variant of the recursive control tree
// (spec.md §3). The static variants (prefixed Static) structurally mirror
// their dynamic counterparts; a subtree is "static" exactly when every node
// under its root uses one of the Static* kinds, matching the "Static control
// tree... whose every node has a statically-known latency" phrasing.
type ControlKind int

const (
	CEmpty ControlKind = iota
	CEnable
	CSeq
	CPar
	CIf
	CWhile
	CRepeat
	CInvoke

	CStaticSeq
	CStaticPar
	CStaticIf
	CStaticRepeat
	CStaticEnable
	CStaticInvoke
)

func (k ControlKind) IsStatic() bool {
	return k >= CStaticSeq
}

func (k ControlKind) String() string {
	switch k {
	case CEmpty:
		return "empty"
	case CEnable:
		return "enable"
	case CSeq:
		return "seq"
	case CPar:
		return "par"
	case CIf:
		return "if"
	case CWhile:
		return "while"
	case CRepeat:
		return "repeat"
	case CInvoke:
		return "invoke"
	case CStaticSeq:
		return "static seq"
	case CStaticPar:
		return "static par"
	case CStaticIf:
		return "static if"
	case CStaticRepeat:
		return "static repeat"
	case CStaticEnable:
		return "static enable"
	case CStaticInvoke:
		return "static invoke"
	default:
		return "unknown"
	}
}

// PortBinding associates a cell's formal port with an actual port at an
// Invoke call site.
type PortBinding struct {
	Formal Identifier
	Actual *Port
}

// RefCellBinding associates a callee's formal ref-cell name with the actual
// cell supplied at an Invoke call site (spec.md §3's "ref-cell-bindings").
type RefCellBinding struct {
	Formal Identifier
	Actual *Cell
}

// Control is one node of the recursive control tree, a tagged sum of
// fixed-shape variants per spec.md §9's design note. Every node carries
// Attrs; the internal node-id attribute (spec.md §3, "a distinguished
// internal attribute stores a unique numeric node-id") is read/written via
// NodeID/SetNodeID rather than a dedicated field, consistent with
// attributes being the sole cross-pass channel (spec.md §6).
type Control struct {
	Kind  ControlKind
	Attrs Attributes

	// CEnable / CStaticEnable
	Group       *Group
	StaticGroup *StaticGroup
	// Latency carries the StaticGroup's declared latency for CStaticEnable,
	// the sum/max computed by promotion for composite static nodes, and the
	// per-iteration body latency times Count for CStaticRepeat.
	Latency int

	// CSeq / CPar / CStaticSeq / CStaticPar
	Children []*Control

	// CIf / CWhile / CStaticIf
	Cond      *Port
	CombGroup *CombGroup
	Then      *Control // CIf / CStaticIf
	Else      *Control // CIf / CStaticIf
	Body      *Control // CWhile / CRepeat / CStaticRepeat

	// CRepeat / CStaticRepeat
	Count int

	// CInvoke / CStaticInvoke
	Cell     *Cell
	Inputs   []PortBinding
	Outputs  []PortBinding
	RefCells []RefCellBinding
}

func newControl(kind ControlKind) *Control {
	return &Control{Kind: kind, Attrs: NewAttributes(), Latency: -1}
}

func Empty() *Control { return newControl(CEmpty) }

func Enable(g *Group) *Control {
	c := newControl(CEnable)
	c.Group = g
	return c
}

func Seq(children ...*Control) *Control {
	c := newControl(CSeq)
	c.Children = children
	return c
}

func Par(children ...*Control) *Control {
	c := newControl(CPar)
	c.Children = children
	return c
}

func If(cond *Port, comb *CombGroup, then, els *Control) *Control {
	c := newControl(CIf)
	c.Cond, c.CombGroup, c.Then, c.Else = cond, comb, then, els
	if c.Else == nil {
		c.Else = Empty()
	}
	return c
}

func While(cond *Port, comb *CombGroup, body *Control) *Control {
	c := newControl(CWhile)
	c.Cond, c.CombGroup, c.Body = cond, comb, body
	return c
}

func Repeat(body *Control, count int) *Control {
	c := newControl(CRepeat)
	c.Body, c.Count = body, count
	return c
}

func Invoke(cell *Cell, inputs, outputs []PortBinding, comb *CombGroup, refCells []RefCellBinding) *Control {
	c := newControl(CInvoke)
	c.Cell, c.Inputs, c.Outputs, c.CombGroup, c.RefCells = cell, inputs, outputs, comb, refCells
	return c
}

func StaticEnable(g *StaticGroup) *Control {
	c := newControl(CStaticEnable)
	c.StaticGroup = g
	c.Latency = g.Latency
	return c
}

func StaticSeq(children ...*Control) *Control {
	c := newControl(CStaticSeq)
	c.Children = children
	return c
}

func StaticPar(children ...*Control) *Control {
	c := newControl(CStaticPar)
	c.Children = children
	return c
}

func StaticIf(cond *Port, then, els *Control) *Control {
	c := newControl(CStaticIf)
	c.Cond, c.Then, c.Else = cond, then, els
	if c.Else == nil {
		c.Else = newControl(CStaticSeq)
	}
	return c
}

func StaticRepeat(body *Control, count int) *Control {
	c := newControl(CStaticRepeat)
	c.Body, c.Count = body, count
	return c
}

func StaticInvoke(cell *Cell, inputs, outputs []PortBinding, refCells []RefCellBinding) *Control {
	c := newControl(CStaticInvoke)
	c.Cell, c.Inputs, c.Outputs, c.RefCells = cell, inputs, outputs, refCells
	return c
}

// NodeID returns the node's assigned id and whether one has been assigned.
func (c *Control) NodeID() (int, bool) {
	return c.Attrs.Num(attrNodeID)
}

// SetNodeID assigns a unique numeric node-id to this control node.
func (c *Control) SetNodeID(id int) {
	c.Attrs.SetNum(attrNodeID, id)
}

// GetLatency returns the node's statically-known latency, when one has been
// computed (either an intrinsic Static* latency, or a dynamic node's
// AttrStatic attribute set by the static-latency analysis).
func (c *Control) GetLatency() (int, bool) {
	if c.Kind.IsStatic() {
		if c.Latency < 0 {
			return 0, false
		}
		return c.Latency, true
	}
	return c.Attrs.Num(AttrStatic)
}
