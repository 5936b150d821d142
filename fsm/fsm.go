// Package fsm is the structural counterpart to the single dynamic group
// top-down static timing emits: a typed description of the linear state
// counter (states, transitions, the register that holds it) for a backend
// that needs more than the emitted guard expressions to regenerate a state
// machine.
//
// Grounded on: calyx/src/backend/fsm/machine_gen.rs (original_source,
// signature only — SPEC_FULL.md supplement #9).
package fsm

import "github.com/sarchlab/hwir/ir"

// Transition is one edge of the linear state counter. The default
// "advance by one" edge has a nil Cond; a loop-exit edge's Cond compares
// the loop's incremented index register value against its bound.
type Transition struct {
	From, To int
	Cond     *ir.Guard
}

// Description is the structural FSM artifact for one component's static
// region: the register the emitted group's guards compare against, the
// number of distinct states, and the transition table a backend would use
// to regenerate the state machine instead of re-deriving it from guards.
type Description struct {
	Register    *ir.Cell
	States      int
	Transitions []Transition
}
