package ir

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var attrTitleCaser = cases.Title(language.English)

// Attributes is the wire protocol between passes (spec.md §6): boolean,
// numeric, and set-valued facts attached to a port, cell, group, or control
// node. Attribute keys are plain strings rather than an exhaustive enum,
// tagging structured facts with a string code rather than a closed Go type
// per fact — new attributes (a future pass's custom tag) don't require
// touching this package.
type Attributes struct {
	bools   map[string]bool
	nums    map[string]int
	posSets map[string][]int // set-valued attributes, e.g. "pos"
}

// NewAttributes returns an empty, ready-to-use Attributes value.
func NewAttributes() Attributes {
	return Attributes{
		bools:   map[string]bool{},
		nums:    map[string]int{},
		posSets: map[string][]int{},
	}
}

// Well-known attribute keys, per spec.md §6.
const (
	AttrExternal   = "external"
	AttrReference  = "reference"
	AttrPromoted   = "promoted"
	AttrClk        = "clk"
	AttrReset      = "reset"
	AttrGo         = "go"
	AttrDone       = "done"
	AttrDead       = "dead"
	AttrCompactable = "compactable"
	AttrNewFSM     = "new_fsm"

	AttrStatic        = "static"
	AttrPromotable    = "promotable"
	AttrBound         = "bound"
	AttrWriteTogether = "write_together"
	AttrReadTogether  = "read_together"

	AttrPos = "pos"

	// internal, not user-visible
	attrStID    = "st_id"
	attrNodeID  = "node_id"
	attrLoop    = "loop"
	attrStart   = "start"
	attrEnd     = "end"
	attrLockstep = "lockstep"
	attrInline  = "inline"
	attrOffload = "offload"
	attrUnroll  = "unroll"
)

func (a *Attributes) ensure() {
	if a.bools == nil {
		a.bools = map[string]bool{}
	}
	if a.nums == nil {
		a.nums = map[string]int{}
	}
	if a.posSets == nil {
		a.posSets = map[string][]int{}
	}
}

func (a *Attributes) SetBool(key string, v bool) {
	a.ensure()
	if !v {
		delete(a.bools, key)
		return
	}
	a.bools[key] = true
}

func (a Attributes) Bool(key string) bool {
	return a.bools[key]
}

func (a *Attributes) SetNum(key string, v int) {
	a.ensure()
	a.nums[key] = v
}

func (a Attributes) Num(key string) (int, bool) {
	v, ok := a.nums[key]
	return v, ok
}

func (a *Attributes) DeleteNum(key string) {
	delete(a.nums, key)
}

func (a *Attributes) SetPosSet(key string, ids []int) {
	a.ensure()
	cp := append([]int(nil), ids...)
	sort.Ints(cp)
	a.posSets[key] = cp
}

func (a Attributes) PosSet(key string) []int {
	return a.posSets[key]
}

// Clone deep-copies an Attributes value so a pass can build a derived set of
// attributes without aliasing the source entity's map.
func (a Attributes) Clone() Attributes {
	out := NewAttributes()
	for k, v := range a.bools {
		out.bools[k] = v
	}
	for k, v := range a.nums {
		out.nums[k] = v
	}
	for k, v := range a.posSets {
		out.posSets[k] = append([]int(nil), v...)
	}
	return out
}

// DisplayKey titlecases an attribute key for diagnostic output, e.g.
// "write_together" -> "Write Together".
func DisplayKey(key string) string {
	return attrTitleCaser.String(strings.ReplaceAll(key, "_", " "))
}
