package types

import (
	"fortio.org/safecast"

	"lumen/internal/ast"
	"lumen/internal/value"
)

// FromSyntax lowers a syntactic annotation into the semantic model. A nil
// result means the annotation is not resolvable yet: a const expression
// inside it has not been reduced to a literal. Unqualified named types are
// attributed to defaultProgram.
func FromSyntax(t ast.Type, defaultProgram string) Type {
	switch n := t.(type) {
	case nil:
		return nil
	case ast.PrimitiveType:
		return Primitive{Kind: n.Kind}
	case ast.NamedType:
		program := n.Program
		if program == "" {
			program = defaultProgram
		}
		if len(n.ConstArgs) == 0 {
			return Composite{Program: program, Name: n.Name}
		}
		vals, ok := literalValues(n.ConstArgs)
		if !ok {
			return nil
		}
		return Composite{Program: program, Name: value.MangleName(n.Name, vals)}
	case ast.ArrayType:
		elem := FromSyntax(n.Elem, defaultProgram)
		if elem == nil {
			return nil
		}
		length, ok := LiteralLength(n.Length)
		if !ok {
			return nil
		}
		return Array{Elem: elem, Length: length}
	case ast.TupleType:
		elems := make([]Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = FromSyntax(e, defaultProgram)
			if elems[i] == nil {
				return nil
			}
		}
		return Tuple{Elems: elems}
	case ast.FutureType:
		return Future{}
	case ast.OptionType:
		inner := FromSyntax(n.Inner, defaultProgram)
		if inner == nil {
			return nil
		}
		return Option{Inner: inner}
	case ast.UnitType:
		return Unit{}
	}
	return nil
}

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

// LiteralLength extracts an array length from an already-folded expression.
func LiteralLength(e ast.Expression) (uint32, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok {
		return 0, false
	}
	v, err := value.FromLiteral(lit)
	if err != nil {
		return 0, false
	}
	n, ok := v.AsUint64()
	if !ok {
		return 0, false
	}
	length, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, false
	}
	return length, true
}
