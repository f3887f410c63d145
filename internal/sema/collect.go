// Package sema populates the symbol table and validates the program: global
// collection, path resolution, bidirectional type checking and the
// await-exactly-once analysis for async functions.
//
// Collection runs before every type-checking round and must be re-run after
// every structural rewrite, because the fixed-point passes add, remove and
// rename functions and composites.
package sema

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/symbols"
)

// CollectGlobals inserts every struct and function into the symbol table
// under its fully-qualified path, without validating types. Name collisions
// are reported but not fatal at this stage.
func CollectGlobals(prog *ast.Program, syms *symbols.Table, r diag.Reporter) {
	for _, scope := range prog.Scopes {
		for _, st := range scope.Structs {
			if prev, ok := syms.InsertStruct(scope.Name, st); !ok {
				diag.Errorf(r, diag.CollectDuplicateStruct, st.Span(),
					"struct '%s' already declared in program '%s'", st.Name, scope.Name)
				_ = prev
			}
		}
		for _, fn := range scope.Functions {
			insertFunction(syms, scope.Name, fn, r)
		}
		if scope.Constructor != nil {
			insertFunction(syms, scope.Name, scope.Constructor, r)
		}
	}
}

func insertFunction(syms *symbols.Table, program string, fn *ast.Function, r diag.Reporter) {
	loc := symbols.Location{Program: program, Name: fn.Name}
	if _, ok := syms.InsertFunction(loc, fn); !ok {
		diag.Errorf(r, diag.CollectDuplicateSymbol, fn.Span(),
			"function '%s' already declared in program '%s'", fn.Name, program)
	}
}

// CollectItems inserts program-scope consts, mappings and storage variables.
// Consts land in the per-program scope keyed by the program scope's node ID,
// so folded values survive table resets alongside their scope.
func CollectItems(prog *ast.Program, syms *symbols.Table, r diag.Reporter) {
	for _, scope := range prog.Scopes {
		syms.EnterScope(scope.ID())
		for _, c := range scope.Consts {
			sym := &symbols.VariableSymbol{
				Name: c.Name,
				Kind: ast.DeclConst,
				Span: c.Span(),
			}
			if prev, ok := syms.InsertVariable(sym); !ok {
				// A folded value kept across the reset re-collects onto
				// the same symbol; only a genuinely different declaration
				// is a collision.
				if !prev.IsFoldedConst() {
					diag.Errorf(r, diag.CollectDuplicateConst, c.Span(),
						"constant '%s' already declared", c.Name)
				}
			}
		}
		for _, m := range scope.Mappings {
			if _, ok := syms.InsertMapping(scope.Name, m); !ok {
				diag.Errorf(r, diag.CollectDuplicateMapping, m.Span(),
					"mapping '%s' already declared in program '%s'", m.Name, scope.Name)
			}
		}
		for _, st := range scope.Storages {
			if _, ok := syms.InsertStorage(scope.Name, st); !ok {
				diag.Errorf(r, diag.CollectDuplicateStorage, st.Span(),
					"storage '%s' already declared in program '%s'", st.Name, scope.Name)
			}
		}
		syms.EnterParent()
	}
}
