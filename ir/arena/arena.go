// Package arena implements the indexed-map entity storage spec.md §9
// recommends: each entity type owned by a component lives in its own arena,
// and every reference to it is a small stable integer index rather than a
// pointer, so a later pass can rewrite "the cell at index 3" without chasing
// down every alias. Grounded on the Rust `cider` indexed_map/index_trait
// design the original calyx sources use for the same reason.
package arena

// Index is a phantom-typed handle into a Map[T]. Two indices of different
// element types never unify, so a CellIndex cannot be used where a
// GroupIndex is expected even though both are backed by a plain int.
type Index[T any] int

// Map is an insert-only, index-stable arena. Entries are never removed,
// matching the "ports are owned by their parent... lifetime is longest
// holder" invariant in spec.md §3: nothing in this core ever needs to free
// a slot mid-run.
type Map[T any] struct {
	items []T
}

// New creates an empty Map.
func New[T any]() *Map[T] {
	return &Map[T]{}
}

// Add inserts a value and returns its stable index.
func (m *Map[T]) Add(v T) Index[T] {
	m.items = append(m.items, v)
	return Index[T](len(m.items) - 1)
}

// Get dereferences an index. It panics on an out-of-range index: an
// out-of-range arena index is an internal invariant violation (spec.md §7's
// "Internal" error kind), never an expected-failure condition.
func (m *Map[T]) Get(i Index[T]) T {
	return m.items[i]
}

// Set overwrites the value at an existing index.
func (m *Map[T]) Set(i Index[T], v T) {
	m.items[i] = v
}

// Len returns the number of entries ever added.
func (m *Map[T]) Len() int {
	return len(m.items)
}

// All iterates every (index, value) pair in insertion order.
func (m *Map[T]) All(yield func(Index[T], T) bool) {
	for i, v := range m.items {
		if !yield(Index[T](i), v) {
			return
		}
	}
}
