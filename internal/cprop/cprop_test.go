package cprop

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

func run(t *testing.T, b *testkit.B, prog *ast.Program) (Result, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	res := Run(prog, symbols.NewTable(), types.NewTable(), b.C, diag.BagReporter{Bag: bag})
	return res, bag
}

func literalText(t *testing.T, e ast.Expression) string {
	t.Helper()
	lit, ok := e.(*ast.Literal)
	if !ok {
		t.Fatalf("expected literal, got %T", e)
	}
	return lit.Text
}

func TestFoldsBinaryLiterals(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.Bin(ast.OpAdd, b.U32(2), b.U32(3)))
	prog := b.Program("demo", b.Transition("main", b.Block(def)))

	res, bag := run(t, b, prog)
	if !res.Changed {
		t.Fatalf("fold must report a change")
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if got := literalText(t, def.Value); got != "5" {
		t.Fatalf("2 + 3 folded to %q", got)
	}
}

func TestPropagatesConstBinding(t *testing.T) {
	b := testkit.New()
	use := b.Let("y", b.Bin(ast.OpMul, b.Ident("N"), b.U32(2)))
	body := b.Block(b.Const("N", b.U32(4)), use)
	prog := b.Program("demo", b.Transition("main", body))

	res, bag := run(t, b, prog)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(res.UnresolvedConsts) != 0 {
		t.Fatalf("const N must resolve, got %d unresolved", len(res.UnresolvedConsts))
	}
	if got := literalText(t, use.Value); got != "8" {
		t.Fatalf("N * 2 folded to %q", got)
	}
}

func TestTernaryOnLiteralConditionPicksBranch(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.Ternary(b.Bool(false), b.U32(1), b.Ident("v")))
	prog := b.Program("demo", b.Transition("main", b.Block(def)))

	run(t, b, prog)
	ident, ok := def.Value.(*ast.Identifier)
	if !ok || ident.Name != "v" {
		t.Fatalf("false ternary must keep the else branch, got %T", def.Value)
	}
}

func TestDivisionByZeroReportsError(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.Bin(ast.OpDiv, b.U32(1), b.U32(0)))
	prog := b.Program("demo", b.Transition("main", b.Block(def)))

	_, bag := run(t, b, prog)
	if !bag.HasErrors() {
		t.Fatalf("division by zero must be an error")
	}
	if bag.Items()[0].Code != diag.LowerFoldDivByZero {
		t.Fatalf("wrong code: %s", bag.Items()[0].Code)
	}
}

func TestOverflowReportsError(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.Bin(ast.OpAdd, b.U8(200), b.U8(100)))
	prog := b.Program("demo", b.Transition("main", b.Block(def)))

	_, bag := run(t, b, prog)
	if !bag.HasErrors() {
		t.Fatalf("u8 overflow must be an error")
	}
	if bag.Items()[0].Code != diag.LowerFoldOverflow {
		t.Fatalf("wrong code: %s", bag.Items()[0].Code)
	}
}

func TestRecordsUnresolvedConst(t *testing.T) {
	b := testkit.New()
	// B is declared after A, so A's value has not folded this round.
	body := b.Block(
		b.Const("A", b.Ident("B")),
		b.Const("B", b.U32(1)),
	)
	prog := b.Program("demo", b.Transition("main", body))

	res, bag := run(t, b, prog)
	if bag.HasErrors() {
		t.Fatalf("unresolved consts are deferred, not errors: %v", bag.Items())
	}
	if len(res.UnresolvedConsts) != 1 {
		t.Fatalf("expected 1 unresolved const, got %d", len(res.UnresolvedConsts))
	}
}

func TestForwardConstResolvesOnSecondRound(t *testing.T) {
	b := testkit.New()
	a := b.Const("A", b.Ident("B"))
	body := b.Block(a, b.Const("B", b.U32(7)))
	prog := b.Program("demo", b.Transition("main", body))

	syms := symbols.NewTable()
	tt := types.NewTable()
	bag := diag.NewBag(64)
	r := diag.BagReporter{Bag: bag}

	first := Run(prog, syms, tt, b.C, r)
	if len(first.UnresolvedConsts) != 1 {
		t.Fatalf("round 1 must defer A, got %d unresolved", len(first.UnresolvedConsts))
	}
	second := Run(prog, syms, tt, b.C, r)
	if len(second.UnresolvedConsts) != 0 {
		t.Fatalf("round 2 must resolve A via B's binding")
	}
	if got := literalText(t, a.Value); got != "7" {
		t.Fatalf("A folded to %q", got)
	}
}

func TestRecordsUnresolvedArrayIndex(t *testing.T) {
	b := testkit.New()
	access := &ast.ArrayAccess{
		Meta:  ast.NewMeta(b.C, source.Span{}),
		Array: b.Ident("arr"),
		Index: b.Ident("i"),
	}
	def := b.Let("x", access)
	prog := b.Program("demo", b.Transition("main", b.Block(def)))

	res, _ := run(t, b, prog)
	if len(res.UnresolvedIndices) != 1 {
		t.Fatalf("symbolic index must be recorded, got %d", len(res.UnresolvedIndices))
	}
}

func TestSkipsGenericFunctions(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.Bin(ast.OpAdd, b.Ident("N"), b.U32(1)))
	fn := b.Transition("helper", b.Block(def))
	fn.Variant = ast.VariantFunction
	fn.ConstParams = []*ast.ConstParam{{Name: "N", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	prog := b.Program("demo", fn)

	res, _ := run(t, b, prog)
	if res.Changed {
		t.Fatalf("generic bodies must be left alone until specialization")
	}
	if _, ok := def.Value.(*ast.Binary); !ok {
		t.Fatalf("generic body was rewritten to %T", def.Value)
	}
}
