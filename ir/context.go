package ir

import (
	"github.com/sarchlab/hwir/lib"
	"github.com/sarchlab/hwir/sourceinfo"
)

// Context is the process-wide compilation context (spec.md §3): it owns
// every Component exclusively, holds the read-only primitive-signature
// Library, the entry-point component's name, extra options, and an
// optional source-info table. Built once per compiler run, handed to
// passes, dropped at the end.
type Context struct {
	components []*Component
	byName     map[Identifier]int

	Library    *lib.Library
	Entrypoint Identifier
	Options    map[string]string
	SourceInfo *sourceinfo.Table
}

// NewContext creates an empty Context over the given library.
func NewContext(library *lib.Library) *Context {
	return &Context{
		byName:  map[Identifier]int{},
		Library: library,
		Options: map[string]string{},
	}
}

// AddComponent appends a component in definition order. It is a
// MalformedStructure-class caller error to add two components with the
// same name; AddComponent panics in that case since it is only ever called
// from trusted construction code (the builder, or a backend assembling a
// Context), never from data a pass receives.
func (ctx *Context) AddComponent(c *Component) {
	if _, exists := ctx.byName[c.Name]; exists {
		panic("ir: duplicate component name " + c.Name.String())
	}
	ctx.byName[c.Name] = len(ctx.components)
	ctx.components = append(ctx.components, c)
}

// Components returns every component, in definition order.
func (ctx *Context) Components() []*Component {
	return ctx.components
}

// Component looks up a component by name.
func (ctx *Context) Component(name Identifier) (*Component, bool) {
	idx, ok := ctx.byName[name]
	if !ok {
		return nil, false
	}
	return ctx.components[idx], true
}

// EntrypointComponent resolves the entry-point component.
func (ctx *Context) EntrypointComponent() (*Component, bool) {
	return ctx.Component(ctx.Entrypoint)
}

// DependencyOrder returns components ordered so that every component
// appears before the components it instantiates ("pre" order, i.e.
// callers before callees) when reverse is false, or sub-components before
// their callers ("post" order) when reverse is true. This realizes the
// "iteration-order attribute per pass (pre/post over the component
// dependency DAG, where A depends on B iff A instantiates B)" from spec.md
// §5.
func (ctx *Context) DependencyOrder(reverse bool) []*Component {
	visited := map[Identifier]bool{}
	var order []*Component

	var visit func(c *Component)
	visit = func(c *Component) {
		if visited[c.Name] {
			return
		}
		visited[c.Name] = true
		for _, cell := range c.Cells {
			if cell.Prototype.Kind != ProtoComponent {
				continue
			}
			if sub, ok := ctx.Component(cell.Prototype.ComponentName); ok {
				visit(sub)
			}
		}
		order = append(order, c)
	}

	for _, c := range ctx.components {
		visit(c)
	}

	if reverse {
		return order
	}

	// order is currently post (callees before callers); reverse it for pre.
	out := make([]*Component, len(order))
	for i, c := range order {
		out[len(order)-1-i] = c
	}
	return out
}
