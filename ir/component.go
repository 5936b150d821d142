package ir

import "strconv"

// Component is a single unit of the IR: a signature (its own boundary,
// represented as a pseudo-cell with inverted ports), the cells and groups
// it owns, its continuous assignments, and exactly one control tree root
// (spec.md §3). A Context owns its Components exclusively; a Component
// exclusively owns everything reachable from it except the signatures of
// the sub-components its cells instantiate.
type Component struct {
	Name      Identifier
	Signature *Cell

	Cells        []*Cell
	Groups       []*Group
	CombGroups   []*CombGroup
	StaticGroups []*StaticGroup

	Continuous []Assignment[Dynamic]
	Control    *Control

	// nextAnonID is the single counter shared by every anonymous-name call
	// site in this component (builder name-uniqueing and compaction's
	// synthesized no-op groups), resolving spec.md §9's open question about
	// no-op-name collision ordering: "first requested, lowest number",
	// documented as an implementation detail rather than a public contract.
	nextAnonID int
}

// NewComponent creates an empty component with only its signature cell.
func NewComponent(name Identifier) *Component {
	c := &Component{Name: name}
	c.Signature = &Cell{
		Name:      name,
		Prototype: Prototype{Kind: ProtoSignature},
		Attrs:     NewAttributes(),
		owner:     c,
	}
	c.Control = Empty()
	return c
}

func (c *Component) nextAnon(prefix string) Identifier {
	id := c.nextAnonID
	c.nextAnonID++
	return Intern(prefix + "_" + strconv.Itoa(id))
}

// FindCell looks up an owned cell (including the signature pseudo-cell) by
// name.
func (c *Component) FindCell(name Identifier) (*Cell, bool) {
	if c.Signature.Name == name {
		return c.Signature, true
	}
	for _, cell := range c.Cells {
		if cell.Name == name {
			return cell, true
		}
	}
	return nil, false
}

// FindGroup looks up an owned dynamic group by name.
func (c *Component) FindGroup(name Identifier) (*Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// FindCombGroup looks up an owned comb group by name.
func (c *Component) FindCombGroup(name Identifier) (*CombGroup, bool) {
	for _, g := range c.CombGroups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// FindStaticGroup looks up an owned static group by name.
func (c *Component) FindStaticGroup(name Identifier) (*StaticGroup, bool) {
	for _, g := range c.StaticGroups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// RemoveGroup deletes a dynamic group by name.
func (c *Component) RemoveGroup(name Identifier) {
	for i, g := range c.Groups {
		if g.Name == name {
			c.Groups = append(c.Groups[:i], c.Groups[i+1:]...)
			return
		}
	}
}

// RemoveCell deletes a cell by name.
func (c *Component) RemoveCell(name Identifier) {
	for i, cell := range c.Cells {
		if cell.Name == name {
			c.Cells = append(c.Cells[:i], c.Cells[i+1:]...)
			return
		}
	}
}

// ControlLookup is the supplemented feature from SPEC_FULL.md §4 item 6: a
// reverse index from an enabled group's name to every control node that
// enables it, so asking whether a group is enabled needs no control-tree
// scan per group.
type ControlLookup struct {
	byGroup map[Identifier][]*Control
}

// BuildControlLookup walks a control tree once and indexes every Enable /
// StaticEnable leaf by the group it activates.
func BuildControlLookup(root *Control) *ControlLookup {
	cl := &ControlLookup{byGroup: map[Identifier][]*Control{}}
	cl.walk(root)
	return cl
}

func (cl *ControlLookup) walk(n *Control) {
	if n == nil {
		return
	}
	switch n.Kind {
	case CEnable:
		cl.byGroup[n.Group.Name] = append(cl.byGroup[n.Group.Name], n)
	case CStaticEnable:
		cl.byGroup[n.StaticGroup.Name] = append(cl.byGroup[n.StaticGroup.Name], n)
	case CSeq, CPar, CStaticSeq, CStaticPar:
		for _, ch := range n.Children {
			cl.walk(ch)
		}
	case CIf, CStaticIf:
		cl.walk(n.Then)
		cl.walk(n.Else)
	case CWhile:
		cl.walk(n.Body)
	case CRepeat, CStaticRepeat:
		cl.walk(n.Body)
	}
}

// Enablers returns every control node that enables the named group.
func (cl *ControlLookup) Enablers(name Identifier) []*Control {
	return cl.byGroup[name]
}

// IsEnabled reports whether any control node enables the named group.
func (cl *ControlLookup) IsEnabled(name Identifier) bool {
	return len(cl.byGroup[name]) > 0
}
