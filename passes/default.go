package passes

import (
	"github.com/sarchlab/hwir/pass"
	"github.com/sarchlab/hwir/pass/diagnostic"
)

// RegisterDefaults registers every pass and diagnostic this module ships,
// plus the named alias pipelines a driver selects with "-p <alias>"
// (spec.md §6), onto b. Grounded on calyx/opt/src/default_passes.rs
// (original_source): the same small set of aliases ("all", "compile",
// "no-opt") built from the same underlying pass list, adjusted to the
// passes this core actually implements.
func RegisterDefaults(b pass.ManagerBuilder) pass.ManagerBuilder {
	b = b.
		WithDiagnostic(diagnostic.WellFormed{}).
		WithPass(&CombProp{}).
		WithPass(&CompileRef{}).
		WithPass(&RegisterUnsharing{}).
		WithPass(&IfElseSpec{}).
		WithPass(&WhileSpec{}).
		WithPass(&ComponentInline{}).
		WithPass(&CompileInvoke{}).
		WithPass(&TopDownStaticTiming{}).
		WithPass(&HoleInliner{})

	// "validate": structural checks only, no transformation.
	b = b.WithAlias("validate", "well-formed")

	// "optimizations": the peephole/structural cleanups that keep the
	// program dynamic (no lowering of Invoke or control-to-FSM yet).
	b = b.WithAlias("optimizations",
		"well-formed",
		"comb-prop",
		"if-else-spec",
		"while-spec",
		"component-inline",
		"register-unsharing",
	)

	// "compile": lowers everything to a structural netlist, ready for a
	// Verilog backend (out of scope here) — compile-ref must run before
	// compile-invoke can see a ref-cell's bindings as ordinary ports, and
	// hole-inliner must run last since every other pass here still
	// produces or consumes holes.
	b = b.WithAlias("compile",
		"compile-ref",
		"compile-invoke",
		"top-down-static-timing",
		"hole-inliner",
	)

	// "all": the full pipeline a default driver invocation runs.
	b = b.WithAlias("all", "optimizations", "compile")

	// "no-opt": skip the optimizations alias, compile only.
	b = b.WithAlias("no-opt", "well-formed", "compile")

	return b
}
