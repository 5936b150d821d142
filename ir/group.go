package ir

// Group is a dynamic group: a named bundle of assignments plus its own
// go/done holes. It completes when its done hole is driven high; its
// assignments fire while go is asserted (spec.md §3).
type Group struct {
	Name  Identifier
	Attrs Attributes

	Assignments []Assignment[Dynamic]

	GoHole, DoneHole *Port

	owner *Component
}

func (g *Group) Component() *Component { return g.owner }

// Hole looks up a hole port by name ("go" or "done", or a user-extended
// name in principle, though this core only ever creates the two).
func (g *Group) Hole(name Identifier) (*Port, bool) {
	if g.GoHole != nil && g.GoHole.Name == name {
		return g.GoHole, true
	}
	if g.DoneHole != nil && g.DoneHole.Name == name {
		return g.DoneHole, true
	}
	return nil, false
}

// CombGroup holds assignments only, with no holes: combinational work to
// perform while sampling a condition port (spec.md §3).
type CombGroup struct {
	Name  Identifier
	Attrs Attributes

	Assignments []Assignment[Dynamic]

	owner *Component
}

func (g *CombGroup) Component() *Component { return g.owner }

// StaticGroup has a known integer latency and no holes: its assignments are
// active for exactly Latency cycles from activation (spec.md §3).
type StaticGroup struct {
	Name    Identifier
	Attrs   Attributes
	Latency int

	Assignments []Assignment[Static]

	owner *Component
}

func (g *StaticGroup) Component() *Component { return g.owner }
