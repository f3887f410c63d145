// Package symbols implements the scoped symbol table side of the compiler
// state: variables per lexical scope, functions under qualified locations,
// and composite/mapping/storage declarations at program granularity.
package symbols

import (
	"strings"

	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/types"
)

// Location is the fully-qualified address of a function: program, optional
// module path, and name.
type Location struct {
	Program string
	Path    []string
	Name    string
}

func (l Location) String() string {
	parts := make([]string, 0, len(l.Path)+2)
	if l.Program != "" {
		parts = append(parts, l.Program)
	}
	parts = append(parts, l.Path...)
	parts = append(parts, l.Name)
	return strings.Join(parts, "/")
}

// VariableSymbol describes one named binding in a scope. Type stays nil until
// type checking infers it. Value holds the folded literal for constants whose
// initializer has been reduced; those survive table resets.
type VariableSymbol struct {
	Name  string
	Kind  ast.DeclKind
	Type  types.Type
	Span  source.Span
	Value *ast.Literal
}

// IsFoldedConst reports whether the symbol is a constant with a known value.
func (v *VariableSymbol) IsFoldedConst() bool {
	return v != nil && v.Kind == ast.DeclConst && v.Value != nil
}

// FunctionSymbol binds a qualified location to its signature and body.
type FunctionSymbol struct {
	Loc Location
	Fn  *ast.Function
}
