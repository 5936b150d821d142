package ir

// PortKey is a port's canonical (parent, name) pair, used as a map key by
// Rewriter's direct port-rewrite table.
type PortKey struct {
	Parent Identifier
	Name   Identifier
}

// Rewriter substitutes cells, ports, and groups throughout assignments and
// control trees. It tracks two independent maps over ports: a direct
// port-to-port map and a cell-to-cell map. A direct port rewrite always
// wins; only when none is registered does Rewriter fall back to asking the
// cell map for a same-named port on the replacement cell, and only for
// ports actually owned by a cell — a group's go/done hole is never
// rewritten through the cell map, since holes have no cell parent to look
// up.
type Rewriter struct {
	CellMap        map[Identifier]*Cell
	PortMap        map[PortKey]*Port
	GroupMap       map[Identifier]*Group
	CombGroupMap   map[Identifier]*CombGroup
	StaticGroupMap map[Identifier]*StaticGroup
}

// NewRewriter creates an empty Rewriter; callers populate whichever maps
// they need before use.
func NewRewriter() *Rewriter {
	return &Rewriter{
		CellMap:        map[Identifier]*Cell{},
		PortMap:        map[PortKey]*Port{},
		GroupMap:       map[Identifier]*Group{},
		CombGroupMap:   map[Identifier]*CombGroup{},
		StaticGroupMap: map[Identifier]*StaticGroup{},
	}
}

func (r *Rewriter) getPortRewrite(p *Port) (*Port, bool) {
	if len(r.PortMap) == 0 {
		return nil, false
	}
	parent, name := p.CanonicalName()
	np, ok := r.PortMap[PortKey{Parent: parent, Name: name}]
	return np, ok
}

func (r *Rewriter) getCellPortRewrite(p *Port) (*Port, bool) {
	if len(r.CellMap) == 0 || p.ParentKind() != ParentCell {
		return nil, false
	}
	newCell, ok := r.CellMap[p.Cell().Name]
	if !ok {
		return nil, false
	}
	return newCell.Port(p.Name)
}

// Get returns the rewrite for a port, if any, trying the direct port map
// before falling back to the cell map.
func (r *Rewriter) Get(p *Port) (*Port, bool) {
	if np, ok := r.getPortRewrite(p); ok {
		return np, true
	}
	return r.getCellPortRewrite(p)
}

// RewritePort returns p's replacement, or p unchanged if none is registered.
func (r *Rewriter) RewritePort(p *Port) *Port {
	if p == nil {
		return nil
	}
	if np, ok := r.Get(p); ok {
		return np
	}
	return p
}

// RewriteGuard returns a new guard tree with every port substituted.
func (r *Rewriter) RewriteGuard(g *Guard) *Guard {
	return g.Map(r.RewritePort)
}

// RewriteAssignment returns a with its destination, source, and guard ports
// substituted.
func RewriteAssignment[T any](r *Rewriter, a Assignment[T]) Assignment[T] {
	a.Dst = r.RewritePort(a.Dst)
	a.Src = r.RewritePort(a.Src)
	a.Guard = r.RewriteGuard(a.Guard)
	return a
}

func (r *Rewriter) rewriteCell(c *Cell) *Cell {
	if nc, ok := r.CellMap[c.Name]; ok {
		return nc
	}
	return c
}

// RewriteControl mutates a control tree in place, substituting every group,
// comb group, static group, cell, and port reference it holds.
func (r *Rewriter) RewriteControl(c *Control) {
	if c == nil {
		return
	}
	switch c.Kind {
	case CEmpty:
		return
	case CEnable:
		if ng, ok := r.GroupMap[c.Group.Name]; ok {
			c.Group = ng
		}
	case CStaticEnable:
		if ng, ok := r.StaticGroupMap[c.StaticGroup.Name]; ok {
			c.StaticGroup = ng
		}
	case CSeq, CPar, CStaticSeq, CStaticPar:
		for _, ch := range c.Children {
			r.RewriteControl(ch)
		}
	case CIf, CStaticIf:
		c.Cond = r.RewritePort(c.Cond)
		if c.CombGroup != nil {
			if ncg, ok := r.CombGroupMap[c.CombGroup.Name]; ok {
				c.CombGroup = ncg
			}
		}
		r.RewriteControl(c.Then)
		r.RewriteControl(c.Else)
	case CWhile:
		c.Cond = r.RewritePort(c.Cond)
		if c.CombGroup != nil {
			if ncg, ok := r.CombGroupMap[c.CombGroup.Name]; ok {
				c.CombGroup = ncg
			}
		}
		r.RewriteControl(c.Body)
	case CRepeat, CStaticRepeat:
		r.RewriteControl(c.Body)
	case CInvoke, CStaticInvoke:
		c.Cell = r.rewriteCell(c.Cell)
		if c.CombGroup != nil {
			if ncg, ok := r.CombGroupMap[c.CombGroup.Name]; ok {
				c.CombGroup = ncg
			}
		}
		for i, b := range c.Inputs {
			c.Inputs[i] = PortBinding{Formal: b.Formal, Actual: r.RewritePort(b.Actual)}
		}
		for i, b := range c.Outputs {
			c.Outputs[i] = PortBinding{Formal: b.Formal, Actual: r.RewritePort(b.Actual)}
		}
		for i, b := range c.RefCells {
			c.RefCells[i] = RefCellBinding{Formal: b.Formal, Actual: r.rewriteCell(b.Actual)}
		}
	}
}
