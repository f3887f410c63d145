package symbols

import (
	"fmt"

	"lumen/internal/ast"
)

// Table is the symbol side table: a scope tree for variables plus flat
// program-granularity indexes for functions, composites, mappings and storage
// declarations. The fixed-point driver resets everything but folded constants
// between rounds and re-collects the rest from the mutated tree.
type Table struct {
	root    *Scope
	current *Scope
	scopes  map[ast.NodeID]*Scope

	functions map[string]*FunctionSymbol
	structs   map[string]*ast.Struct
	mappings  map[string]*ast.Mapping
	storages  map[string]*ast.Storage
}

func NewTable() *Table {
	root := newScope(ast.NoNodeID, nil)
	return &Table{
		root:      root,
		current:   root,
		scopes:    map[ast.NodeID]*Scope{ast.NoNodeID: root},
		functions: make(map[string]*FunctionSymbol),
		structs:   make(map[string]*ast.Struct),
		mappings:  make(map[string]*ast.Mapping),
		storages:  make(map[string]*ast.Storage),
	}
}

// Current returns the active scope.
func (t *Table) Current() *Scope { return t.current }

// Root returns the global root scope.
func (t *Table) Root() *Scope { return t.root }

// EnterScope descends into the child scope owned by id, creating it when
// absent, and makes it the active scope.
func (t *Table) EnterScope(id ast.NodeID) *Scope {
	child := t.current.Child(id)
	t.scopes[id] = child
	t.current = child
	return child
}

// EnterParent pops back to the parent of the active scope.
func (t *Table) EnterParent() {
	if t.current.Parent != nil {
		t.current = t.current.Parent
	}
}

// ScopeOf returns the scope owned by id, or nil.
func (t *Table) ScopeOf(id ast.NodeID) *Scope { return t.scopes[id] }

// InsertVariable declares a variable in the active scope.
func (t *Table) InsertVariable(sym *VariableSymbol) (*VariableSymbol, bool) {
	return t.current.Insert(sym)
}

// LookupVariable resolves a name from the active scope outward.
func (t *Table) LookupVariable(name string) *VariableSymbol {
	return t.current.Lookup(name)
}

// InsertFunction registers a function under its qualified location.
func (t *Table) InsertFunction(loc Location, fn *ast.Function) (*FunctionSymbol, bool) {
	key := loc.String()
	if prev, ok := t.functions[key]; ok {
		return prev, false
	}
	sym := &FunctionSymbol{Loc: loc, Fn: fn}
	t.functions[key] = sym
	return sym, true
}

// LookupFunction resolves a qualified function location.
func (t *Table) LookupFunction(loc Location) *FunctionSymbol {
	return t.functions[loc.String()]
}

func programKey(program, name string) string {
	return fmt.Sprintf("%s/%s", program, name)
}

// InsertStruct registers a composite definition.
func (t *Table) InsertStruct(program string, s *ast.Struct) (*ast.Struct, bool) {
	key := programKey(program, s.Name)
	if prev, ok := t.structs[key]; ok {
		return prev, false
	}
	t.structs[key] = s
	return s, true
}

// LookupStruct resolves a composite by program and name.
func (t *Table) LookupStruct(program, name string) *ast.Struct {
	return t.structs[programKey(program, name)]
}

// InsertMapping registers a mapping declaration.
func (t *Table) InsertMapping(program string, m *ast.Mapping) (*ast.Mapping, bool) {
	key := programKey(program, m.Name)
	if prev, ok := t.mappings[key]; ok {
		return prev, false
	}
	t.mappings[key] = m
	return m, true
}

// LookupMapping resolves a mapping by program and name.
func (t *Table) LookupMapping(program, name string) *ast.Mapping {
	return t.mappings[programKey(program, name)]
}

// InsertStorage registers a storage declaration.
func (t *Table) InsertStorage(program string, s *ast.Storage) (*ast.Storage, bool) {
	key := programKey(program, s.Name)
	if prev, ok := t.storages[key]; ok {
		return prev, false
	}
	t.storages[key] = s
	return s, true
}

// LookupStorage resolves a storage declaration by program and name.
func (t *Table) LookupStorage(program, name string) *ast.Storage {
	return t.storages[programKey(program, name)]
}

// Functions returns the function index; callers must not modify it.
func (t *Table) Functions() map[string]*FunctionSymbol { return t.functions }

// ResetButConsts clears every entry except constants whose value has already
// been folded to a literal. Required between fixed-point rounds: the tree's
// declaration set is not stable mid-convergence, so everything else is
// re-collected from the rewritten tree, while folded constants must survive
// because the expressions that produced them may since have been consumed.
func (t *Table) ResetButConsts() {
	t.functions = make(map[string]*FunctionSymbol)
	t.structs = make(map[string]*ast.Struct)
	t.mappings = make(map[string]*ast.Mapping)
	t.storages = make(map[string]*ast.Storage)

	keep := func(s *Scope) map[string]*VariableSymbol {
		kept := make(map[string]*VariableSymbol)
		for name, sym := range s.vars {
			if sym.IsFoldedConst() {
				kept[name] = sym
			}
		}
		return kept
	}

	scopes := make(map[ast.NodeID]*Scope, len(t.scopes))
	var rebuild func(old *Scope, parent *Scope) *Scope
	rebuild = func(old *Scope, parent *Scope) *Scope {
		fresh := newScope(old.ID, parent)
		fresh.vars = keep(old)
		scopes[old.ID] = fresh
		for id, child := range old.children {
			rebuilt := rebuild(child, fresh)
			if len(rebuilt.vars) > 0 || len(rebuilt.children) > 0 {
				fresh.children[id] = rebuilt
			} else {
				delete(scopes, id)
			}
		}
		return fresh
	}
	t.root = rebuild(t.root, nil)
	scopes[ast.NoNodeID] = t.root
	t.scopes = scopes
	t.current = t.root
}
