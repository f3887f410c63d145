package ast

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpPow
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpAnd
	OpOr
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpRem:
		return "%"
	case OpPow:
		return "**"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// IsComparison reports whether the operator yields a boolean from
// non-boolean operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	case OpBitNot:
		return "~"
	}
	return "?"
}

// CoreFn enumerates VM-provided associated functions. Mapping operations,
// randomness and cheat codes are never constant-foldable; FieldInv is.
type CoreFn uint8

const (
	CoreMappingGet CoreFn = iota
	CoreMappingGetOrUse
	CoreMappingSet
	CoreMappingRemove
	CoreMappingContains
	CoreStorageRead
	CoreStorageWrite
	CoreOptionSome
	CoreOptionNone
	CoreFieldInv
	CoreRandChaCha
	CoreCheatCode
)

func (f CoreFn) String() string {
	switch f {
	case CoreMappingGet:
		return "Mapping::get"
	case CoreMappingGetOrUse:
		return "Mapping::get_or_use"
	case CoreMappingSet:
		return "Mapping::set"
	case CoreMappingRemove:
		return "Mapping::remove"
	case CoreMappingContains:
		return "Mapping::contains"
	case CoreStorageRead:
		return "Storage::read"
	case CoreStorageWrite:
		return "Storage::write"
	case CoreOptionSome:
		return "Option::some"
	case CoreOptionNone:
		return "Option::none"
	case CoreFieldInv:
		return "field::inv"
	case CoreRandChaCha:
		return "ChaCha::rand"
	case CoreCheatCode:
		return "CheatCode::call"
	}
	return "?"
}

// Foldable reports whether a core function may be constant-folded.
func (f CoreFn) Foldable() bool {
	return f == CoreFieldInv
}

// TakesDeclaration reports whether the first operand names a mapping or
// storage declaration rather than a value.
func (f CoreFn) TakesDeclaration() bool {
	switch f {
	case CoreMappingGet, CoreMappingGetOrUse, CoreMappingSet,
		CoreMappingRemove, CoreMappingContains,
		CoreStorageRead, CoreStorageWrite:
		return true
	}
	return false
}
