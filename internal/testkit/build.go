// Package testkit provides compact tree constructors for pass tests. Every
// node gets a real ID from the builder's counter, so the fixtures behave like
// frontend output.
package testkit

import (
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/source"
)

// B builds fixture trees.
type B struct {
	C *ast.Counter
}

func New() *B {
	return &B{C: ast.NewCounter(1)}
}

func (b *B) meta() ast.Meta {
	return ast.NewMeta(b.C, source.Span{})
}

func (b *B) Int(v uint64, width ast.PrimKind) *ast.Literal {
	return &ast.Literal{Meta: b.meta(), Kind: ast.LitInt, Width: width, Text: strconv.FormatUint(v, 10)}
}

func (b *B) U32(v uint64) *ast.Literal { return b.Int(v, ast.PrimU32) }
func (b *B) U8(v uint64) *ast.Literal  { return b.Int(v, ast.PrimU8) }

func (b *B) Bool(v bool) *ast.Literal {
	text := "false"
	if v {
		text = "true"
	}
	return &ast.Literal{Meta: b.meta(), Kind: ast.LitBool, Text: text}
}

func (b *B) Ident(name string) *ast.Identifier {
	return &ast.Identifier{Meta: b.meta(), Name: name}
}

func (b *B) Bin(op ast.BinaryOp, left, right ast.Expression) *ast.Binary {
	return &ast.Binary{Meta: b.meta(), Op: op, Left: left, Right: right}
}

func (b *B) Ternary(cond, ifTrue, ifFalse ast.Expression) *ast.Ternary {
	return &ast.Ternary{Meta: b.meta(), Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

func (b *B) Tuple(elems ...ast.Expression) *ast.TupleExpr {
	return &ast.TupleExpr{Meta: b.meta(), Elements: elems}
}

func (b *B) Call(function string, args ...ast.Expression) *ast.Call {
	return &ast.Call{Meta: b.meta(), Function: function, Args: args}
}

func (b *B) Block(stmts ...ast.Statement) *ast.Block {
	return &ast.Block{Meta: b.meta(), Statements: stmts}
}

func (b *B) Let(name string, value ast.Expression) *ast.Definition {
	return &ast.Definition{Meta: b.meta(), Kind: ast.DeclMutable, Targets: []*ast.Identifier{b.Ident(name)}, Value: value}
}

func (b *B) Const(name string, value ast.Expression) *ast.Definition {
	return &ast.Definition{Meta: b.meta(), Kind: ast.DeclConst, Targets: []*ast.Identifier{b.Ident(name)}, Value: value}
}

func (b *B) Assign(place, value ast.Expression) *ast.Assign {
	return &ast.Assign{Meta: b.meta(), Place: place, Value: value}
}

func (b *B) Return(value ast.Expression) *ast.Return {
	return &ast.Return{Meta: b.meta(), Value: value}
}

func (b *B) If(cond ast.Expression, then *ast.Block, otherwise ast.Statement) *ast.Conditional {
	return &ast.Conditional{Meta: b.meta(), Condition: cond, Then: then, Otherwise: otherwise}
}

func (b *B) For(variable string, start, stop ast.Expression, body *ast.Block) *ast.Iteration {
	return &ast.Iteration{
		Meta:     b.meta(),
		Variable: b.Ident(variable),
		VarType:  ast.PrimitiveType{Kind: ast.PrimU32},
		Start:    start,
		Stop:     stop,
		Body:     body,
	}
}

func (b *B) Fn(variant ast.FunctionVariant, name string, body *ast.Block) *ast.Function {
	return &ast.Function{
		Meta:    b.meta(),
		Variant: variant,
		Name:    name,
		Output:  ast.UnitType{},
		Body:    body,
	}
}

func (b *B) Transition(name string, body *ast.Block) *ast.Function {
	return b.Fn(ast.VariantTransition, name, body)
}

func (b *B) Program(name string, fns ...*ast.Function) *ast.Program {
	scope := &ast.ProgramScope{
		Meta:      b.meta(),
		Name:      name,
		Network:   "testnet",
		Functions: fns,
	}
	return &ast.Program{Scopes: []*ast.ProgramScope{scope}}
}
