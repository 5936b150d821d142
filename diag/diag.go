// Package diag renders IR and pass-manager state as tables, for humans
// inspecting a component, a coloring assignment, or a manager's registered
// aliases from the command line or a log.
//
// Grounded on core/util.go's PrintState, which builds its register/buffer
// dumps the same way: a table.Writer per logical section, a title, a
// header row, and one row per item.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/hwir/ir"
	"github.com/sarchlab/hwir/pass"
)

// DumpComponent renders a component's cells, groups and top-level control
// shape as a pair of tables.
func DumpComponent(comp *ir.Component) string {
	var b strings.Builder

	cellTable := table.NewWriter()
	cellTable.SetTitle(fmt.Sprintf("%s: cells", comp.Name.String()))
	cellTable.AppendHeader(table.Row{"Name", "Kind", "Ref", "Ports"})
	for _, c := range comp.Cells {
		cellTable.AppendRow(table.Row{
			c.Name.String(),
			cellKind(c),
			c.IsReference,
			len(c.Ports),
		})
	}
	b.WriteString(cellTable.Render())
	b.WriteString("\n\n")

	groupTable := table.NewWriter()
	groupTable.SetTitle(fmt.Sprintf("%s: groups", comp.Name.String()))
	groupTable.AppendHeader(table.Row{"Name", "Kind", "Assignments"})
	for _, g := range comp.Groups {
		groupTable.AppendRow(table.Row{g.Name.String(), "dynamic", len(g.Assignments)})
	}
	for _, g := range comp.CombGroups {
		groupTable.AppendRow(table.Row{g.Name.String(), "comb", len(g.Assignments)})
	}
	for _, g := range comp.StaticGroups {
		groupTable.AppendRow(table.Row{g.Name.String(), fmt.Sprintf("static[%d]", g.Latency), len(g.Assignments)})
	}
	b.WriteString(groupTable.Render())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("control: %s\n", controlShape(comp.Control)))

	return b.String()
}

func cellKind(c *ir.Cell) string {
	switch c.Prototype.Kind {
	case ir.ProtoPrimitive:
		return "primitive " + c.Prototype.PrimitiveName.String()
	case ir.ProtoComponent:
		return "instance " + c.Prototype.ComponentName.String()
	case ir.ProtoConstant:
		return fmt.Sprintf("const %d (%d bits)", c.Prototype.Value, c.Prototype.Width)
	case ir.ProtoSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// controlShape renders a one-line summary of a control tree's shape,
// without recursing into every leaf's assignments.
func controlShape(n *ir.Control) string {
	if n == nil {
		return "empty"
	}
	switch n.Kind {
	case ir.CEmpty:
		return "empty"
	case ir.CEnable:
		return "enable(" + n.Group.Name.String() + ")"
	case ir.CStaticEnable:
		return fmt.Sprintf("static-enable(%s)", n.StaticGroup.Name.String())
	case ir.CSeq, ir.CStaticSeq:
		return "seq[" + joinShapes(n.Children) + "]"
	case ir.CPar, ir.CStaticPar:
		return "par[" + joinShapes(n.Children) + "]"
	case ir.CIf, ir.CStaticIf:
		return fmt.Sprintf("if(%s, %s, %s)", n.Kind, controlShape(n.Then), controlShape(n.Else))
	case ir.CWhile:
		return fmt.Sprintf("while(%s)", controlShape(n.Body))
	case ir.CRepeat, ir.CStaticRepeat:
		return fmt.Sprintf("repeat[%d](%s)", n.Count, controlShape(n.Body))
	case ir.CInvoke, ir.CStaticInvoke:
		return "invoke(" + n.Cell.Name.String() + ")"
	default:
		return n.Kind.String()
	}
}

func joinShapes(children []*ir.Control) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = controlShape(c)
	}
	return strings.Join(parts, ", ")
}

// DumpColoring renders a graph-coloring assignment (analysis.Coloring's
// ColorGreedy result, keyed by cell/register identifier) as a table mapping
// every item to the representative item chosen for its color.
func DumpColoring(assignment map[ir.Identifier]ir.Identifier) string {
	items := make([]ir.Identifier, 0, len(assignment))
	for item := range assignment {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].String() < items[j].String()
	})

	t := table.NewWriter()
	t.SetTitle("coloring")
	t.AppendHeader(table.Row{"Item", "Representative"})
	for _, item := range items {
		t.AppendRow(table.Row{item.String(), assignment[item].String()})
	}
	return t.Render()
}

// DumpAliases renders every alias registered on a Manager alongside its
// flattened pass/diagnostic order.
func DumpAliases(m *pass.Manager) string {
	names := m.AliasNames()
	sort.Strings(names)

	t := table.NewWriter()
	t.SetTitle("aliases")
	t.AppendHeader(table.Row{"Alias", "Members", "Flattened order"})
	for _, name := range names {
		members, _ := m.Alias(name)
		flattened, err := m.Flatten(name)
		flatStr := strings.Join(flattened, " -> ")
		if err != nil {
			flatStr = "error: " + err.Error()
		}
		t.AppendRow(table.Row{name, strings.Join(members, ", "), flatStr})
	}
	return t.Render()
}
