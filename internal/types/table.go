package types

import (
	"lumen/internal/ast"
)

// Table maps node identity to resolved type. Entries are inserted or
// overwritten, never removed: after type checking succeeds, every expression
// node present in the final tree has one, and any pass that fabricates a node
// must insert its type before a consumer can query it.
type Table struct {
	entries map[ast.NodeID]Type
}

func NewTable() *Table {
	return &Table{entries: make(map[ast.NodeID]Type, 256)}
}

// Insert records or overwrites the type of a node.
func (t *Table) Insert(id ast.NodeID, ty Type) {
	if !id.IsValid() || ty == nil {
		return
	}
	t.entries[id] = ty
}

// Get returns the resolved type of a node, or nil when absent. Absence is
// ordinary during the fixed point and an internal invariant violation after
// it.
func (t *Table) Get(id ast.NodeID) Type {
	return t.entries[id]
}

// Range visits every typed node; used by the artifact codec.
func (t *Table) Range(fn func(id ast.NodeID, ty Type) bool) {
	for id, ty := range t.entries {
		if !fn(id, ty) {
			return
		}
	}
}

// Copy mirrors the type of src onto dst; used by passes that clone subtrees.
func (t *Table) Copy(src, dst ast.NodeID) {
	if ty, ok := t.entries[src]; ok {
		t.entries[dst] = ty
	}
}

// Len returns the number of typed nodes.
func (t *Table) Len() int { return len(t.entries) }
