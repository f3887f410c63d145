package ast

// Expression is the closed set of expression nodes. Every pass switches
// exhaustively over the concrete types; adding a variant must break every
// switch at compile time via the default-internal-error arms.
type Expression interface {
	Node
	isExpression()
}

// LitKind enumerates literal categories.
type LitKind uint8

const (
	LitBool LitKind = iota
	LitInt
	LitField
	LitAddress
)

func (k LitKind) String() string {
	switch k {
	case LitBool:
		return "bool"
	case LitInt:
		return "integer"
	case LitField:
		return "field"
	case LitAddress:
		return "address"
	}
	return "?"
}

// Literal is a typed literal. Text holds the canonical decimal digits for
// integer and field literals, "true"/"false" for booleans, and the bech32
// string for addresses. Integer literals always carry their width suffix in
// Width; the frontend rejects unsuffixed numbers.
type Literal struct {
	Meta
	Kind  LitKind
	Width PrimKind // integer literals only
	Text  string
}

// Identifier is a read or write of a named binding.
type Identifier struct {
	Meta
	Name string
}

// Binary is `Left op Right`.
type Binary struct {
	Meta
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Unary is `op Operand`.
type Unary struct {
	Meta
	Op      UnaryOp
	Operand Expression
}

// Ternary is `Condition ? IfTrue : IfFalse`.
type Ternary struct {
	Meta
	Condition Expression
	IfTrue    Expression
	IfFalse   Expression
}

// Cast is `Value as To`.
type Cast struct {
	Meta
	Value Expression
	To    Type
}

// Call invokes a user function, optionally in another program and optionally
// with const-generic arguments.
type Call struct {
	Meta
	Program   string // empty for a local call
	Function  string
	ConstArgs []Expression
	Args      []Expression
}

// AssociatedCall invokes a VM-provided core function. The first argument of a
// mapping or storage operation is an Identifier naming the declaration.
type AssociatedCall struct {
	Meta
	Fn   CoreFn
	Of   Type // Option::none carries its element type here
	Args []Expression
}

// Await consumes a future exactly once.
type Await struct {
	Meta
	Future Expression
}

// CompositeInit constructs a composite value member by member.
type CompositeInit struct {
	Meta
	Name      string
	ConstArgs []Expression
	Members   []CompositeMember
}

// CompositeMember is one `name: value` entry of a CompositeInit.
type CompositeMember struct {
	Name  string
	Value Expression
}

// MemberAccess is `Inner.Member` on a composite value.
type MemberAccess struct {
	Meta
	Inner  Expression
	Member string
}

// ArrayInit is `[e0, e1, ...]`.
type ArrayInit struct {
	Meta
	Elements []Expression
}

// Repeat is `[Value; Count]` with a const-expression count.
type Repeat struct {
	Meta
	Value Expression
	Count Expression
}

// ArrayAccess is `Array[Index]`.
type ArrayAccess struct {
	Meta
	Array Expression
	Index Expression
}

// TupleExpr is `(e0, e1, ...)` with at least two elements.
type TupleExpr struct {
	Meta
	Elements []Expression
}

// TupleAccess is `Tuple.Index` with a literal index.
type TupleAccess struct {
	Meta
	Tuple Expression
	Index uint32
}

func (*Literal) isExpression()        {}
func (*Identifier) isExpression()     {}
func (*Binary) isExpression()         {}
func (*Unary) isExpression()          {}
func (*Ternary) isExpression()        {}
func (*Cast) isExpression()           {}
func (*Call) isExpression()           {}
func (*AssociatedCall) isExpression() {}
func (*Await) isExpression()          {}
func (*CompositeInit) isExpression()  {}
func (*MemberAccess) isExpression()   {}
func (*ArrayInit) isExpression()      {}
func (*Repeat) isExpression()         {}
func (*ArrayAccess) isExpression()    {}
func (*TupleExpr) isExpression()      {}
func (*TupleAccess) isExpression()    {}

// BoolValue reports the value of a boolean literal.
func (l *Literal) BoolValue() bool {
	return l.Kind == LitBool && l.Text == "true"
}

// IsLiteral reports whether e is a literal expression.
func IsLiteral(e Expression) bool {
	_, ok := e.(*Literal)
	return ok
}
