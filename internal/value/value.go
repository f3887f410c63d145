// Package value implements the compile-time constants manipulated by constant
// propagation: width-checked integers, booleans, addresses, and elements of
// the bls12-377 scalar field.
package value

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"lumen/internal/ast"
	"lumen/internal/source"
)

var (
	// ErrOverflow is returned when a folded operation leaves the range of
	// its integer width.
	ErrOverflow = errors.New("operation overflows")
	// ErrDivByZero is returned for a folded division or remainder by zero.
	ErrDivByZero = errors.New("division by zero")
	// ErrOperand marks an operand combination no fold rule covers; callers
	// treat it as "not foldable", not as a user error.
	ErrOperand = errors.New("unsupported operand")
)

// Kind discriminates compile-time value categories.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindField
	KindAddress
)

// Value is a single compile-time constant.
type Value struct {
	Kind    Kind
	Width   ast.PrimKind // KindInt only
	Bool    bool
	Int     *big.Int
	Field   fr.Element
	Address string
}

// NewBool builds a boolean constant.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewInt builds an integer constant of the given width. The caller is
// responsible for range-checking via Check.
func NewInt(width ast.PrimKind, v *big.Int) Value {
	return Value{Kind: KindInt, Width: width, Int: new(big.Int).Set(v)}
}

// NewField builds a field constant.
func NewField(e fr.Element) Value { return Value{Kind: KindField, Field: e} }

// NewAddress builds an address constant.
func NewAddress(s string) Value { return Value{Kind: KindAddress, Address: s} }

// Bounds returns the inclusive range of an integer width.
func Bounds(width ast.PrimKind) (min, max *big.Int) {
	bits := width.Bits()
	if width.Signed() {
		max = new(big.Int).Lsh(big.NewInt(1), bits-1)
		min = new(big.Int).Neg(max)
		max = max.Sub(max, big.NewInt(1))
		return min, max
	}
	max = new(big.Int).Lsh(big.NewInt(1), bits)
	max = max.Sub(max, big.NewInt(1))
	return big.NewInt(0), max
}

// Check validates that an integer value fits its width.
func (v Value) Check() error {
	if v.Kind != KindInt {
		return nil
	}
	min, max := Bounds(v.Width)
	if v.Int.Cmp(min) < 0 || v.Int.Cmp(max) > 0 {
		return ErrOverflow
	}
	return nil
}

// FromLiteral parses a literal node into a compile-time value.
func FromLiteral(lit *ast.Literal) (Value, error) {
	switch lit.Kind {
	case ast.LitBool:
		return NewBool(lit.Text == "true"), nil
	case ast.LitInt:
		n, ok := new(big.Int).SetString(lit.Text, 10)
		if !ok {
			return Value{}, fmt.Errorf("malformed integer literal %q", lit.Text)
		}
		v := NewInt(lit.Width, n)
		if err := v.Check(); err != nil {
			return Value{}, err
		}
		return v, nil
	case ast.LitField:
		var e fr.Element
		if _, err := e.SetString(lit.Text); err != nil {
			return Value{}, fmt.Errorf("malformed field literal %q: %w", lit.Text, err)
		}
		return NewField(e), nil
	case ast.LitAddress:
		return NewAddress(lit.Text), nil
	}
	return Value{}, fmt.Errorf("unknown literal kind %d", lit.Kind)
}

// ToLiteral renders the value back into a fresh literal node.
func (v Value) ToLiteral(c *ast.Counter, sp source.Span) *ast.Literal {
	lit := &ast.Literal{Meta: ast.NewMeta(c, sp)}
	switch v.Kind {
	case KindBool:
		lit.Kind = ast.LitBool
		if v.Bool {
			lit.Text = "true"
		} else {
			lit.Text = "false"
		}
	case KindInt:
		lit.Kind = ast.LitInt
		lit.Width = v.Width
		lit.Text = v.Int.Text(10)
	case KindField:
		lit.Kind = ast.LitField
		lit.Text = v.Field.String()
	case KindAddress:
		lit.Kind = ast.LitAddress
		lit.Text = v.Address
	}
	return lit
}

// Mangle renders the canonical suffixed form used in specialized names, e.g.
// `2u8`, `true`, `7field`.
func (v Value) Mangle() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return v.Int.Text(10) + v.Width.String()
	case KindField:
		return v.Field.String() + "field"
	case KindAddress:
		return v.Address
	}
	return "?"
}

// AsUint64 extracts a non-negative integer that fits uint64.
func (v Value) AsUint64() (uint64, bool) {
	if v.Kind != KindInt || v.Int.Sign() < 0 || !v.Int.IsUint64() {
		return 0, false
	}
	return v.Int.Uint64(), true
}

func (v Value) String() string { return v.Mangle() }
