package ir

// CmpOp is a guard comparison operator.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNeq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	default:
		return "?"
	}
}

// GuardKind discriminates Guard's variants, per spec.md §3.
type GuardKind int

const (
	GuardTrue GuardKind = iota
	GuardPort
	GuardNot
	GuardAnd
	GuardOr
	GuardCmp
)

// Guard is a ternary boolean expression over ports, evaluated
// combinationally with no side effects. It is an immutable tree built via
// the constructor functions below.
type Guard struct {
	Kind GuardKind

	Port *Port // GuardPort

	Sub      *Guard // GuardNot
	Lhs, Rhs *Guard  // GuardAnd, GuardOr

	CmpOp       CmpOp // GuardCmp
	CmpLhs, CmpRhs *Port
}

// True builds the always-true guard, the default for an unconditional
// assignment.
func True() *Guard { return &Guard{Kind: GuardTrue} }

// PortGuard treats a wire's current 1-bit value as a boolean.
func PortGuard(p *Port) *Guard { return &Guard{Kind: GuardPort, Port: p} }

// Not negates a guard.
func Not(g *Guard) *Guard { return &Guard{Kind: GuardNot, Sub: g} }

// And conjoins two guards.
func And(l, r *Guard) *Guard { return &Guard{Kind: GuardAnd, Lhs: l, Rhs: r} }

// Or disjoins two guards. OrAll folds a (possibly empty) slice of guards
// with Or, returning True() for an empty slice, so in the hole inliner's
// "disjunction over all writers" (spec.md §4.4.6) a hole that no
// assignment writes resolves to an always-true guard.
func Or(l, r *Guard) *Guard { return &Guard{Kind: GuardOr, Lhs: l, Rhs: r} }

func OrAll(gs []*Guard) *Guard {
	if len(gs) == 0 {
		return True()
	}
	out := gs[0]
	for _, g := range gs[1:] {
		out = Or(out, g)
	}
	return out
}

func AndAll(gs []*Guard) *Guard {
	if len(gs) == 0 {
		return True()
	}
	out := gs[0]
	for _, g := range gs[1:] {
		out = And(out, g)
	}
	return out
}

// Cmp compares two ports with op.
func Cmp(op CmpOp, lhs, rhs *Port) *Guard {
	return &Guard{Kind: GuardCmp, CmpOp: op, CmpLhs: lhs, CmpRhs: rhs}
}

// IsTrue reports whether g is syntactically the True guard (not whether it
// is semantically always true — that is a job for an analysis, not this
// tree).
func (g *Guard) IsTrue() bool {
	return g == nil || g.Kind == GuardTrue
}

// Ports returns every port this guard reads, used by the read/write-set
// analysis (spec.md §4.2).
func (g *Guard) Ports() []*Port {
	if g == nil {
		return nil
	}
	switch g.Kind {
	case GuardTrue:
		return nil
	case GuardPort:
		return []*Port{g.Port}
	case GuardNot:
		return g.Sub.Ports()
	case GuardAnd, GuardOr:
		return append(g.Lhs.Ports(), g.Rhs.Ports()...)
	case GuardCmp:
		return []*Port{g.CmpLhs, g.CmpRhs}
	default:
		return nil
	}
}

// Map applies f to every port referenced in g, returning a new guard tree
// with the substitution applied. Used by Rewriter.
func (g *Guard) Map(f func(*Port) *Port) *Guard {
	if g == nil {
		return nil
	}
	switch g.Kind {
	case GuardTrue:
		return g
	case GuardPort:
		return PortGuard(f(g.Port))
	case GuardNot:
		return Not(g.Sub.Map(f))
	case GuardAnd:
		return And(g.Lhs.Map(f), g.Rhs.Map(f))
	case GuardOr:
		return Or(g.Lhs.Map(f), g.Rhs.Map(f))
	case GuardCmp:
		return Cmp(g.CmpOp, f(g.CmpLhs), f(g.CmpRhs))
	default:
		return g
	}
}
