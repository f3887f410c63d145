package ast

import (
	"fmt"
	"strings"
)

// PrimKind enumerates primitive syntactic types.
type PrimKind uint8

const (
	PrimBool PrimKind = iota
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimField
	PrimAddress
)

func (k PrimKind) String() string {
	switch k {
	case PrimBool:
		return "bool"
	case PrimU8:
		return "u8"
	case PrimU16:
		return "u16"
	case PrimU32:
		return "u32"
	case PrimU64:
		return "u64"
	case PrimU128:
		return "u128"
	case PrimI8:
		return "i8"
	case PrimI16:
		return "i16"
	case PrimI32:
		return "i32"
	case PrimI64:
		return "i64"
	case PrimI128:
		return "i128"
	case PrimField:
		return "field"
	case PrimAddress:
		return "address"
	}
	return "?"
}

// IsInteger reports whether the primitive is a sized integer.
func (k PrimKind) IsInteger() bool {
	return k >= PrimU8 && k <= PrimI128
}

// Signed reports whether the integer primitive is signed.
func (k PrimKind) Signed() bool {
	return k >= PrimI8 && k <= PrimI128
}

// Bits returns the width of an integer primitive, or 0.
func (k PrimKind) Bits() uint {
	switch k {
	case PrimU8, PrimI8:
		return 8
	case PrimU16, PrimI16:
		return 16
	case PrimU32, PrimI32:
		return 32
	case PrimU64, PrimI64:
		return 64
	case PrimU128, PrimI128:
		return 128
	}
	return 0
}

// Type is a syntactic type annotation as written in the source. Array lengths
// and const-generic arguments are expressions until constant propagation
// reduces them to literals; the semantic model (internal/types) only exists
// after that reduction.
type Type interface {
	isType()
	String() string
}

// PrimitiveType is a builtin scalar type.
type PrimitiveType struct {
	Kind PrimKind
}

// NamedType references a composite, optionally in another program and
// optionally with const-generic arguments (`Pair::[2u8]`).
type NamedType struct {
	Program   string
	Name      string
	ConstArgs []Expression
}

// ArrayType is `[Elem; Length]` with a const-expression length.
type ArrayType struct {
	Elem   Type
	Length Expression
}

// TupleType is a parenthesized list of at least two types.
type TupleType struct {
	Elems []Type
}

// FutureType is the opaque handle of a pending async call.
type FutureType struct{}

// OptionType is `Option<Inner>`, lowered to a tagged record before SSA.
type OptionType struct {
	Inner Type
}

// UnitType is the empty output type.
type UnitType struct{}

func (PrimitiveType) isType() {}
func (NamedType) isType()     {}
func (ArrayType) isType()     {}
func (TupleType) isType()     {}
func (FutureType) isType()    {}
func (OptionType) isType()    {}
func (UnitType) isType()      {}

func (t PrimitiveType) String() string { return t.Kind.String() }

func (t NamedType) String() string {
	var sb strings.Builder
	if t.Program != "" {
		sb.WriteString(t.Program)
		sb.WriteByte('/')
	}
	sb.WriteString(t.Name)
	if len(t.ConstArgs) > 0 {
		sb.WriteString("::[...]")
	}
	return sb.String()
}

func (t ArrayType) String() string { return fmt.Sprintf("[%s; _]", t.Elem) }

func (t TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (FutureType) String() string   { return "Future" }
func (t OptionType) String() string { return "Option<" + t.Inner.String() + ">" }
func (UnitType) String() string     { return "()" }
