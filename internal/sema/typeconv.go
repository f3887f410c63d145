package sema

import (
	"lumen/internal/ast"
	"lumen/internal/types"
	"lumen/internal/value"
)

// resolveType lowers a syntactic annotation into the semantic model. A nil
// result means "not resolvable yet" (a const expression inside the type has
// not been reduced to a literal); that is not an error here — constant
// propagation records the pending span and the fixed point decides.
func (c *Checker) resolveType(t ast.Type) types.Type {
	return types.FromSyntax(t, c.scope.Name)
}

// literalValues extracts compile-time values when every expression is
// already a literal.
func literalValues(exprs []ast.Expression) ([]value.Value, bool) {
	vals := make([]value.Value, len(exprs))
	for i, e := range exprs {
		lit, ok := e.(*ast.Literal)
		if !ok {
			return nil, false
		}
		v, err := value.FromLiteral(lit)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func literalLength(e ast.Expression) (uint32, bool) {
	return types.LiteralLength(e)
}
