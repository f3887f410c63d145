// Package types defines the semantic type model produced by type checking.
// Unlike the syntactic annotations in internal/ast, these types carry concrete
// array lengths and fully-specialized composite names; they only exist for
// nodes whose const expressions have been reduced.
package types

import (
	"fmt"
	"strings"

	"lumen/internal/ast"
)

// Type is the closed set of semantic types.
type Type interface {
	isType()
	String() string
}

// Primitive is a builtin scalar type, sharing the kind enum with the AST.
type Primitive struct {
	Kind ast.PrimKind
}

// Composite references a fully-specialized struct or record.
type Composite struct {
	Program string
	Name    string
}

// Array has a concrete element count.
type Array struct {
	Elem   Type
	Length uint32
}

// Tuple is an ordered list of at least two types.
type Tuple struct {
	Elems []Type
}

// Mapping is the type of an on-chain key-value declaration.
type Mapping struct {
	Key   Type
	Value Type
}

// Future is the opaque pending result of an async call.
type Future struct{}

// Option is a maybe-value, lowered to a tagged record before SSA.
type Option struct {
	Inner Type
}

// Unit is the empty type.
type Unit struct{}

func (Primitive) isType() {}
func (Composite) isType() {}
func (Array) isType()     {}
func (Tuple) isType()     {}
func (Mapping) isType()   {}
func (Future) isType()    {}
func (Option) isType()    {}
func (Unit) isType()      {}

func (t Primitive) String() string { return t.Kind.String() }

func (t Composite) String() string {
	if t.Program == "" {
		return t.Name
	}
	return t.Program + "/" + t.Name
}

func (t Array) String() string { return fmt.Sprintf("[%s; %d]", t.Elem, t.Length) }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t Mapping) String() string { return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value) }
func (Future) String() string    { return "Future" }
func (t Option) String() string  { return "Option<" + t.Inner.String() + ">" }
func (Unit) String() string      { return "()" }

// Equal reports structural equality of two semantic types.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case Primitive:
		y, ok := b.(Primitive)
		return ok && x.Kind == y.Kind
	case Composite:
		y, ok := b.(Composite)
		return ok && x.Program == y.Program && x.Name == y.Name
	case Array:
		y, ok := b.(Array)
		return ok && x.Length == y.Length && Equal(x.Elem, y.Elem)
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case Mapping:
		y, ok := b.(Mapping)
		return ok && Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
	case Future:
		_, ok := b.(Future)
		return ok
	case Option:
		y, ok := b.(Option)
		return ok && Equal(x.Inner, y.Inner)
	case Unit:
		_, ok := b.(Unit)
		return ok
	}
	return false
}

// IsBool reports whether t is the boolean primitive.
func IsBool(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p.Kind == ast.PrimBool
}

// IsInteger reports whether t is a sized integer primitive.
func IsInteger(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p.Kind.IsInteger()
}

// IsField reports whether t is the field primitive.
func IsField(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p.Kind == ast.PrimField
}

// IsAggregate reports whether a ternary over t needs elementwise flattening
// because the conditional-select instruction only takes primitive operands.
func IsAggregate(t Type) bool {
	switch t.(type) {
	case Array, Tuple, Composite:
		return true
	}
	return false
}
