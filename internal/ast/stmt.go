package ast

// Statement is the closed set of statement nodes.
type Statement interface {
	Node
	isStatement()
}

// DeclKind distinguishes how a variable binding was declared.
type DeclKind uint8

const (
	DeclConst DeclKind = iota
	DeclMutable
	DeclStorage
)

func (k DeclKind) String() string {
	switch k {
	case DeclConst:
		return "const"
	case DeclMutable:
		return "let"
	case DeclStorage:
		return "storage"
	}
	return "?"
}

// Definition introduces one or more bindings. Multiple targets destructure a
// tuple-valued right-hand side (`let (a, b) = f(x);`).
type Definition struct {
	Meta
	Kind    DeclKind
	Targets []*Identifier
	Type    Type // optional until inferred
	Value   Expression
}

// Assign writes to an existing place. Place is an Identifier, or a TupleExpr
// of identifiers for tuple-producing right-hand sides after definition
// lowering.
type Assign struct {
	Meta
	Place Expression
	Value Expression
}

// Block is a brace-delimited statement list owning one symbol-table scope,
// keyed by the block's node ID.
type Block struct {
	Meta
	Statements []Statement
}

// Conditional is `if Condition Then else Otherwise`. Otherwise is nil, a
// *Block, or a chained *Conditional.
type Conditional struct {
	Meta
	Condition Expression
	Then      *Block
	Otherwise Statement
}

// ConsoleKind enumerates console statement flavors.
type ConsoleKind uint8

const (
	ConsoleAssert ConsoleKind = iota
	ConsoleAssertEq
	ConsoleAssertNeq
	ConsoleLog
)

func (k ConsoleKind) String() string {
	switch k {
	case ConsoleAssert:
		return "assert"
	case ConsoleAssertEq:
		return "assert_eq"
	case ConsoleAssertNeq:
		return "assert_neq"
	case ConsoleLog:
		return "log"
	}
	return "?"
}

// Console is an assertion or debug log statement.
type Console struct {
	Meta
	Kind   ConsoleKind
	Format string // log only
	Args   []Expression
}

// Iteration is a bounded `for Variable: VarType in Start..Stop` loop.
// Inclusive loops use `..=` and include Stop.
type Iteration struct {
	Meta
	Variable  *Identifier
	VarType   Type
	Start     Expression
	Stop      Expression
	Inclusive bool
	Body      *Block
}

// Return exits the enclosing function. Value is nil for unit outputs.
type Return struct {
	Meta
	Value Expression
}

// ExprStatement evaluates an expression for its effect (mapping writes,
// awaited calls).
type ExprStatement struct {
	Meta
	Expr Expression
}

func (*Definition) isStatement()    {}
func (*Assign) isStatement()        {}
func (*Block) isStatement()         {}
func (*Conditional) isStatement()   {}
func (*Console) isStatement()       {}
func (*Iteration) isStatement()     {}
func (*Return) isStatement()        {}
func (*ExprStatement) isStatement() {}
