package symbols

import (
	"lumen/internal/ast"
)

// Scope is one node of the lexical scope tree. Scopes are keyed by the node
// ID of the construct that owns them (function body, block, unrolled loop
// iteration), so duplicated blocks never alias.
type Scope struct {
	ID       ast.NodeID
	Parent   *Scope
	children map[ast.NodeID]*Scope
	vars     map[string]*VariableSymbol
}

func newScope(id ast.NodeID, parent *Scope) *Scope {
	return &Scope{
		ID:       id,
		Parent:   parent,
		children: make(map[ast.NodeID]*Scope),
		vars:     make(map[string]*VariableSymbol),
	}
}

// Child returns the child scope for id, creating it when absent.
func (s *Scope) Child(id ast.NodeID) *Scope {
	if c, ok := s.children[id]; ok {
		return c
	}
	c := newScope(id, s)
	s.children[id] = c
	return c
}

// Insert declares a variable in this scope. It returns the previous symbol
// and false when the name is already declared here.
func (s *Scope) Insert(sym *VariableSymbol) (*VariableSymbol, bool) {
	if prev, ok := s.vars[sym.Name]; ok {
		return prev, false
	}
	s.vars[sym.Name] = sym
	return sym, true
}

// Local returns the variable declared directly in this scope, if any.
func (s *Scope) Local(name string) *VariableSymbol {
	return s.vars[name]
}

// Lookup resolves a name by walking from this scope to the root.
func (s *Scope) Lookup(name string) *VariableSymbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.vars[name]; ok {
			return sym
		}
	}
	return nil
}
