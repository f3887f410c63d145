package value

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"lumen/internal/ast"
)

// Binary folds `a op b`. ErrOperand means the combination is not foldable;
// ErrOverflow and ErrDivByZero are user-facing fold failures.
func Binary(op ast.BinaryOp, a, b Value) (Value, error) {
	switch op {
	case ast.OpAnd, ast.OpOr:
		if a.Kind != KindBool || b.Kind != KindBool {
			return Value{}, ErrOperand
		}
		if op == ast.OpAnd {
			return NewBool(a.Bool && b.Bool), nil
		}
		return NewBool(a.Bool || b.Bool), nil
	case ast.OpEq, ast.OpNeq:
		eq, err := equal(a, b)
		if err != nil {
			return Value{}, err
		}
		if op == ast.OpNeq {
			eq = !eq
		}
		return NewBool(eq), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return order(op, a, b)
	}

	if a.Kind == KindField && b.Kind == KindField {
		return fieldBinary(op, a, b)
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		return intBinary(op, a, b)
	}
	return Value{}, ErrOperand
}

// Unary folds `op a`.
func Unary(op ast.UnaryOp, a Value) (Value, error) {
	switch op {
	case ast.OpNot:
		if a.Kind != KindBool {
			return Value{}, ErrOperand
		}
		return NewBool(!a.Bool), nil
	case ast.OpNeg:
		switch a.Kind {
		case KindInt:
			if !a.Width.Signed() {
				return Value{}, ErrOperand
			}
			out := NewInt(a.Width, new(big.Int).Neg(a.Int))
			if err := out.Check(); err != nil {
				return Value{}, err
			}
			return out, nil
		case KindField:
			var e fr.Element
			e.Neg(&a.Field)
			return NewField(e), nil
		}
		return Value{}, ErrOperand
	case ast.OpBitNot:
		if a.Kind != KindInt {
			return Value{}, ErrOperand
		}
		// ^x == -x - 1 in two's complement; mask back into the width for
		// unsigned operands.
		n := new(big.Int).Not(a.Int)
		if !a.Width.Signed() {
			n.And(n, mask(a.Width))
		}
		out := NewInt(a.Width, n)
		if err := out.Check(); err != nil {
			return Value{}, err
		}
		return out, nil
	}
	return Value{}, ErrOperand
}

// FieldInverse folds field::inv; zero inverts to zero, matching the VM.
func FieldInverse(a Value) (Value, error) {
	if a.Kind != KindField {
		return Value{}, ErrOperand
	}
	var e fr.Element
	e.Inverse(&a.Field)
	return NewField(e), nil
}

// Cast folds `a as to`.
func Cast(a Value, to ast.PrimKind) (Value, error) {
	switch {
	case to == ast.PrimBool:
		if a.Kind == KindBool {
			return a, nil
		}
		return Value{}, ErrOperand
	case to.IsInteger():
		var n *big.Int
		switch a.Kind {
		case KindInt:
			n = a.Int
		case KindField:
			n = new(big.Int)
			a.Field.BigInt(n)
		case KindBool:
			n = big.NewInt(0)
			if a.Bool {
				n = big.NewInt(1)
			}
		default:
			return Value{}, ErrOperand
		}
		out := NewInt(to, n)
		if err := out.Check(); err != nil {
			return Value{}, err
		}
		return out, nil
	case to == ast.PrimField:
		switch a.Kind {
		case KindField:
			return a, nil
		case KindInt:
			if a.Int.Sign() < 0 {
				return Value{}, ErrOverflow
			}
			var e fr.Element
			e.SetBigInt(a.Int)
			return NewField(e), nil
		case KindBool:
			var e fr.Element
			if a.Bool {
				e.SetOne()
			}
			return NewField(e), nil
		}
		return Value{}, ErrOperand
	}
	return Value{}, ErrOperand
}

func equal(a, b Value) (bool, error) {
	if a.Kind != b.Kind {
		return false, ErrOperand
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool, nil
	case KindInt:
		if a.Width != b.Width {
			return false, ErrOperand
		}
		return a.Int.Cmp(b.Int) == 0, nil
	case KindField:
		return a.Field.Equal(&b.Field), nil
	case KindAddress:
		return a.Address == b.Address, nil
	}
	return false, ErrOperand
}

func order(op ast.BinaryOp, a, b Value) (Value, error) {
	var cmp int
	switch {
	case a.Kind == KindInt && b.Kind == KindInt && a.Width == b.Width:
		cmp = a.Int.Cmp(b.Int)
	case a.Kind == KindField && b.Kind == KindField:
		cmp = a.Field.Cmp(&b.Field)
	default:
		return Value{}, ErrOperand
	}
	switch op {
	case ast.OpLt:
		return NewBool(cmp < 0), nil
	case ast.OpLe:
		return NewBool(cmp <= 0), nil
	case ast.OpGt:
		return NewBool(cmp > 0), nil
	case ast.OpGe:
		return NewBool(cmp >= 0), nil
	}
	return Value{}, ErrOperand
}

func mask(width ast.PrimKind) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), width.Bits())
	return m.Sub(m, big.NewInt(1))
}

func intBinary(op ast.BinaryOp, a, b Value) (Value, error) {
	// Shift amounts may use a narrower width than the shifted operand.
	if op == ast.OpShl || op == ast.OpShr {
		return intShift(op, a, b)
	}
	if op == ast.OpPow {
		return intPow(a, b)
	}
	if a.Width != b.Width {
		return Value{}, ErrOperand
	}
	n := new(big.Int)
	switch op {
	case ast.OpAdd:
		n.Add(a.Int, b.Int)
	case ast.OpSub:
		n.Sub(a.Int, b.Int)
	case ast.OpMul:
		n.Mul(a.Int, b.Int)
	case ast.OpDiv:
		if b.Int.Sign() == 0 {
			return Value{}, ErrDivByZero
		}
		n.Quo(a.Int, b.Int)
	case ast.OpRem:
		if b.Int.Sign() == 0 {
			return Value{}, ErrDivByZero
		}
		n.Rem(a.Int, b.Int)
	case ast.OpBitAnd:
		n.And(a.Int, b.Int)
	case ast.OpBitOr:
		n.Or(a.Int, b.Int)
	case ast.OpBitXor:
		n.Xor(a.Int, b.Int)
	default:
		return Value{}, ErrOperand
	}
	out := NewInt(a.Width, n)
	if err := out.Check(); err != nil {
		return Value{}, err
	}
	return out, nil
}

func intShift(op ast.BinaryOp, a, b Value) (Value, error) {
	amount, ok := b.AsUint64()
	if !ok {
		return Value{}, ErrOperand
	}
	if amount >= uint64(a.Width.Bits()) {
		return Value{}, ErrOverflow
	}
	n := new(big.Int)
	if op == ast.OpShl {
		n.Lsh(a.Int, uint(amount))
	} else {
		n.Rsh(a.Int, uint(amount))
	}
	out := NewInt(a.Width, n)
	if err := out.Check(); err != nil {
		return Value{}, err
	}
	return out, nil
}

func intPow(a, b Value) (Value, error) {
	exp, ok := b.AsUint64()
	if !ok {
		return Value{}, ErrOperand
	}
	// Exponentiate with an early range check so 2u8 ** 200u32 fails fast
	// instead of materializing a huge big.Int.
	_, max := Bounds(a.Width)
	n := big.NewInt(1)
	for i := uint64(0); i < exp; i++ {
		n.Mul(n, a.Int)
		if !a.Width.Signed() && n.CmpAbs(max) > 0 {
			return Value{}, ErrOverflow
		}
	}
	out := NewInt(a.Width, n)
	if err := out.Check(); err != nil {
		return Value{}, err
	}
	return out, nil
}

func fieldBinary(op ast.BinaryOp, a, b Value) (Value, error) {
	var e fr.Element
	switch op {
	case ast.OpAdd:
		e.Add(&a.Field, &b.Field)
	case ast.OpSub:
		e.Sub(&a.Field, &b.Field)
	case ast.OpMul:
		e.Mul(&a.Field, &b.Field)
	case ast.OpDiv:
		if b.Field.IsZero() {
			return Value{}, ErrDivByZero
		}
		e.Div(&a.Field, &b.Field)
	default:
		return Value{}, ErrOperand
	}
	return NewField(e), nil
}
