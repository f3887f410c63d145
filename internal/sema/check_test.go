package sema

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

// run drives the whole analysis sequence the driver performs per round.
func run(prog *ast.Program) *diag.Bag {
	syms := symbols.NewTable()
	tt := types.NewTable()
	bag := diag.NewBag(64)
	r := diag.BagReporter{Bag: bag}
	CollectGlobals(prog, syms, r)
	ResolvePaths(prog, syms, r)
	CollectItems(prog, syms, r)
	Check(prog, syms, tt, r)
	return bag
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestWellTypedProgramIsClean(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(
		b.Let("x", b.Bin(ast.OpAdd, b.U32(1), b.U32(2))),
		b.Return(b.Ident("x")),
	))
	main.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	prog := b.Program("demo", main)

	if bag := run(prog); bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestReturnTypeMismatch(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(b.Return(b.Bool(true))))
	main.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	prog := b.Program("demo", main)

	if bag := run(prog); !hasCode(bag, diag.TypeReturnMismatch) {
		t.Fatalf("missing return mismatch, got %v", bag.Items())
	}
}

func TestBranchConditionMustBeBool(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(
		b.If(b.U32(1), b.Block(), nil),
	))
	prog := b.Program("demo", main)

	if bag := run(prog); !hasCode(bag, diag.TypeConditionNotBool) {
		t.Fatalf("missing condition diagnostic, got %v", bag.Items())
	}
}

func TestAssignToConstant(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(
		b.Const("K", b.U32(1)),
		b.Assign(b.Ident("K"), b.U32(2)),
	))
	prog := b.Program("demo", main)

	if bag := run(prog); !hasCode(bag, diag.TypeAssignToConst) {
		t.Fatalf("missing assign-to-const diagnostic, got %v", bag.Items())
	}
}

func TestAssignToUnknownVariable(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(
		b.Assign(b.Ident("ghost"), b.U32(1)),
	))
	prog := b.Program("demo", main)

	if bag := run(prog); !hasCode(bag, diag.TypeUnknownVariable) {
		t.Fatalf("missing unknown-variable diagnostic, got %v", bag.Items())
	}
}

func TestDuplicateLocalDeclaration(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block(
		b.Let("x", b.U32(1)),
		b.Let("x", b.U32(2)),
	))
	prog := b.Program("demo", main)

	if bag := run(prog); !hasCode(bag, diag.CollectDuplicateSymbol) {
		t.Fatalf("missing duplicate diagnostic, got %v", bag.Items())
	}
}

func asyncWithFuture(b *testkit.B, body *ast.Block) *ast.Program {
	fn := b.Fn(ast.VariantAsyncFunction, "settle", body)
	fn.Params = []*ast.Param{{Name: "f", Type: ast.FutureType{}}}
	return b.Program("demo", fn)
}

func await(b *testkit.B, name string) ast.Statement {
	return &ast.ExprStatement{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Expr: &ast.Await{Meta: ast.NewMeta(b.C, source.Span{}), Future: b.Ident(name)},
	}
}

func TestAwaitExactlyOnceIsClean(t *testing.T) {
	b := testkit.New()
	prog := asyncWithFuture(b, b.Block(await(b, "f")))

	if bag := run(prog); bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestMissingAwaitReported(t *testing.T) {
	b := testkit.New()
	prog := asyncWithFuture(b, b.Block())

	if bag := run(prog); !hasCode(bag, diag.TypeAwaitMissing) {
		t.Fatalf("missing await diagnostic, got %v", bag.Items())
	}
}

func TestDuplicateAwaitReported(t *testing.T) {
	b := testkit.New()
	prog := asyncWithFuture(b, b.Block(await(b, "f"), await(b, "f")))

	if bag := run(prog); !hasCode(bag, diag.TypeAwaitDuplicate) {
		t.Fatalf("missing duplicate-await diagnostic, got %v", bag.Items())
	}
}

func TestBranchedAwaitSatisfiedOnOnePath(t *testing.T) {
	b := testkit.New()
	// One arm awaits, the other does not; a single satisfying path keeps the
	// missing-await error quiet while the analysis still walks both.
	body := b.Block(
		b.If(b.Bool(true), b.Block(await(b, "f")), nil),
	)
	prog := asyncWithFuture(b, body)

	if bag := run(prog); hasCode(bag, diag.TypeAwaitMissing) {
		t.Fatalf("a satisfying path must suffice, got %v", bag.Items())
	}
}
