// Package pass implements the visitor contract, the pass manager, and
// alias/option plumbing spec.md §4.3 describes: a depth-first pre-order
// traversal of one component's control tree, hooks that return a small
// action describing what the framework should do next, and a manager that
// runs registered passes (grouped into named aliases) over every component
// in a Context.
package pass

import "github.com/sarchlab/hwir/ir"

// ActionKind discriminates what a visitor hook asks the traversal to do
// next (spec.md §4.3).
type ActionKind int

const (
	// Continue descends into the node's children (or, at a leaf, continues
	// sibling traversal). It is the zero value so an unimplemented hook
	// defaults to it.
	Continue ActionKind = iota
	// SkipChildren does not descend further into this node, but does not
	// abort the rest of the component's traversal.
	SkipChildren
	// Stop aborts this component's traversal entirely.
	Stop
	// Change replaces the current node with New and does not descend into
	// the old subtree. Change is applied after ascent; see Run's doc
	// comment for how multiple Changes at nested levels compose.
	Change
)

// Action is the value every visitor hook returns.
type Action struct {
	Kind ActionKind
	New  *ir.Control
}

// ContinueAction is the default, explicit spelling of "descend normally".
func ContinueAction() Action { return Action{Kind: Continue} }

// SkipAction does not descend into the current node's children.
func SkipAction() Action { return Action{Kind: SkipChildren} }

// StopAction aborts the rest of this component's traversal.
func StopAction() Action { return Action{Kind: Stop} }

// ChangeAction replaces the current node with replacement.
func ChangeAction(replacement *ir.Control) Action {
	return Action{Kind: Change, New: replacement}
}

// Visitor is the hook interface a pass implements (spec.md §4.3): start/
// finish once per component, start_X/finish_X on descent/ascent for every
// composite control variant, and leaf hooks for the rest. BaseVisitor
// supplies a no-op Continue for every hook so a concrete pass only
// overrides what it cares about: embed the default, override a few.
type Visitor interface {
	Start(comp *ir.Component) error
	Finish(comp *ir.Component) error

	StartSeq(n *ir.Control) (Action, error)
	FinishSeq(n *ir.Control) (Action, error)
	StartPar(n *ir.Control) (Action, error)
	FinishPar(n *ir.Control) (Action, error)
	StartIf(n *ir.Control) (Action, error)
	FinishIf(n *ir.Control) (Action, error)
	StartWhile(n *ir.Control) (Action, error)
	FinishWhile(n *ir.Control) (Action, error)
	StartRepeat(n *ir.Control) (Action, error)
	FinishRepeat(n *ir.Control) (Action, error)

	Empty(n *ir.Control) (Action, error)
	Enable(n *ir.Control) (Action, error)
	Invoke(n *ir.Control) (Action, error)
	StaticEnable(n *ir.Control) (Action, error)
	StaticInvoke(n *ir.Control) (Action, error)
}

// BaseVisitor implements Visitor with every hook defaulting to Continue
// and no error. A concrete pass embeds *BaseVisitor and overrides only the
// hooks relevant to its transformation, mirroring spec.md §4.3's "subset
// of hooks; unimplemented hooks default to continue".
type BaseVisitor struct{}

func (BaseVisitor) Start(*ir.Component) error  { return nil }
func (BaseVisitor) Finish(*ir.Component) error { return nil }

func (BaseVisitor) StartSeq(*ir.Control) (Action, error)    { return ContinueAction(), nil }
func (BaseVisitor) FinishSeq(*ir.Control) (Action, error)   { return ContinueAction(), nil }
func (BaseVisitor) StartPar(*ir.Control) (Action, error)    { return ContinueAction(), nil }
func (BaseVisitor) FinishPar(*ir.Control) (Action, error)   { return ContinueAction(), nil }
func (BaseVisitor) StartIf(*ir.Control) (Action, error)     { return ContinueAction(), nil }
func (BaseVisitor) FinishIf(*ir.Control) (Action, error)    { return ContinueAction(), nil }
func (BaseVisitor) StartWhile(*ir.Control) (Action, error)  { return ContinueAction(), nil }
func (BaseVisitor) FinishWhile(*ir.Control) (Action, error) { return ContinueAction(), nil }
func (BaseVisitor) StartRepeat(*ir.Control) (Action, error) { return ContinueAction(), nil }
func (BaseVisitor) FinishRepeat(*ir.Control) (Action, error) {
	return ContinueAction(), nil
}

func (BaseVisitor) Empty(*ir.Control) (Action, error)        { return ContinueAction(), nil }
func (BaseVisitor) Enable(*ir.Control) (Action, error)       { return ContinueAction(), nil }
func (BaseVisitor) Invoke(*ir.Control) (Action, error)       { return ContinueAction(), nil }
func (BaseVisitor) StaticEnable(*ir.Control) (Action, error) { return ContinueAction(), nil }
func (BaseVisitor) StaticInvoke(*ir.Control) (Action, error) { return ContinueAction(), nil }

// Run traverses comp's control tree depth-first pre-order, children in
// source order, dispatching to v's hooks and threading the returned
// Actions: a Stop aborts immediately; a Change at a child replaces that
// child in its parent's Children/Then/Else/Body slot once the child's own
// subtree has finished ascending, so a Change made deep in the tree is
// already baked into the subtree a shallower ascent hook observes. Run
// calls v.Start before descending; after the whole traversal it writes
// back the (possibly replaced) root, then calls v.Finish.
func Run(v Visitor, comp *ir.Component) error {
	if err := v.Start(comp); err != nil {
		return err
	}

	newRoot, _, err := visit(v, comp.Control)
	if err != nil {
		return err
	}
	comp.Control = newRoot

	return v.Finish(comp)
}

// visit returns the (possibly replaced) node and whether traversal should
// stop.
func visit(v Visitor, n *ir.Control) (*ir.Control, bool, error) {
	if n == nil {
		return n, false, nil
	}

	switch n.Kind {
	case ir.CEmpty:
		return dispatchLeaf(v.Empty, n)
	case ir.CEnable:
		return dispatchLeaf(v.Enable, n)
	case ir.CInvoke:
		return dispatchLeaf(v.Invoke, n)
	case ir.CStaticEnable:
		return dispatchLeaf(v.StaticEnable, n)
	case ir.CStaticInvoke:
		return dispatchLeaf(v.StaticInvoke, n)

	case ir.CSeq, ir.CStaticSeq:
		return visitComposite(n, v.StartSeq, v.FinishSeq, func() (bool, error) {
			return visitChildren(v, n)
		})
	case ir.CPar, ir.CStaticPar:
		return visitComposite(n, v.StartPar, v.FinishPar, func() (bool, error) {
			return visitChildren(v, n)
		})
	case ir.CIf, ir.CStaticIf:
		return visitComposite(n, v.StartIf, v.FinishIf, func() (bool, error) {
			return visitThenElse(v, n)
		})
	case ir.CWhile:
		return visitComposite(n, v.StartWhile, v.FinishWhile, func() (bool, error) {
			return visitBody(v, n)
		})
	case ir.CRepeat, ir.CStaticRepeat:
		return visitComposite(n, v.StartRepeat, v.FinishRepeat, func() (bool, error) {
			return visitBody(v, n)
		})
	default:
		return n, false, nil
	}
}

func dispatchLeaf(hook func(*ir.Control) (Action, error), n *ir.Control) (*ir.Control, bool, error) {
	act, err := hook(n)
	if err != nil {
		return n, false, err
	}
	switch act.Kind {
	case Stop:
		return n, true, nil
	case Change:
		return act.New, false, nil
	default:
		return n, false, nil
	}
}

func visitChildren(v Visitor, n *ir.Control) (bool, error) {
	for i, ch := range n.Children {
		nc, stop, err := visit(v, ch)
		if err != nil {
			return false, err
		}
		n.Children[i] = nc
		if stop {
			return true, nil
		}
	}
	return false, nil
}

func visitThenElse(v Visitor, n *ir.Control) (bool, error) {
	nt, stop, err := visit(v, n.Then)
	if err != nil {
		return false, err
	}
	n.Then = nt
	if stop {
		return true, nil
	}
	ne, stop, err := visit(v, n.Else)
	if err != nil {
		return false, err
	}
	n.Else = ne
	return stop, nil
}

func visitBody(v Visitor, n *ir.Control) (bool, error) {
	nb, stop, err := visit(v, n.Body)
	if err != nil {
		return false, err
	}
	n.Body = nb
	return stop, nil
}

// visitComposite runs start, then (unless start already changed/stopped/
// skipped) the node-specific child descent, then finish, composing the
// three Actions into a single (node, stop) result.
func visitComposite(
	n *ir.Control,
	start, finish func(*ir.Control) (Action, error),
	descend func() (bool, error),
) (*ir.Control, bool, error) {
	startAct, err := start(n)
	if err != nil {
		return n, false, err
	}
	switch startAct.Kind {
	case Stop:
		return n, true, nil
	case Change:
		return startAct.New, false, nil
	case SkipChildren:
		// fall through to finish without descending
	default:
		stop, err := descend()
		if err != nil {
			return n, false, err
		}
		if stop {
			return n, true, nil
		}
	}

	finishAct, err := finish(n)
	if err != nil {
		return n, false, err
	}
	switch finishAct.Kind {
	case Stop:
		return n, true, nil
	case Change:
		return finishAct.New, false, nil
	default:
		return n, false, nil
	}
}
