package inline

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

// helper builds `function bump(n): return n + 1;` in single-assignment form.
func bumpHelper(b *testkit.B) *ast.Function {
	fn := b.Fn(ast.VariantFunction, "bump", b.Block(
		b.Return(b.Bin(ast.OpAdd, b.Ident("n"), b.U32(1))),
	))
	fn.Params = []*ast.Param{{Name: "n", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	fn.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	return fn
}

func TestInlinesHelperCall(t *testing.T) {
	b := testkit.New()
	use := b.Assign(b.Ident("x"), b.Call("bump", b.Ident("v")))
	main := b.Transition("main", b.Block(use))
	prog := b.Program("demo", bumpHelper(b), main)

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	bin, ok := use.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("call must be replaced by the helper's return value, got %T", use.Value)
	}
	if ident := bin.Left.(*ast.Identifier); ident.Name != "v" {
		t.Fatalf("parameter must be substituted by the argument, got %q", ident.Name)
	}
	if prog.Scopes[0].Function("bump") != nil {
		t.Fatalf("fully inlined helper must be dropped")
	}
}

func TestHoistsNonTrivialArguments(t *testing.T) {
	b := testkit.New()
	arg := b.Bin(ast.OpMul, b.Ident("v"), b.Ident("v"))
	use := b.Assign(b.Ident("x"), b.Call("bump", arg))
	body := b.Block(use)
	main := b.Transition("main", body)
	prog := b.Program("demo", bumpHelper(b), main)

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("argument must be bound once in a prelude, got %d statements", len(body.Statements))
	}
	hoisted := body.Statements[0].(*ast.Assign)
	if hoisted.Value != arg {
		t.Fatalf("prelude must bind the original argument expression")
	}
	bin := use.Value.(*ast.Binary)
	ref := bin.Left.(*ast.Identifier)
	if ref.Name != hoisted.Place.(*ast.Identifier).Name {
		t.Fatalf("substituted parameter must reference the bound temp")
	}
}

func TestMultiStatementHelperSplicesBody(t *testing.T) {
	b := testkit.New()
	helper := b.Fn(ast.VariantFunction, "scale", b.Block(
		b.Assign(b.Ident("t"), b.Bin(ast.OpMul, b.Ident("n"), b.U32(2))),
		b.Return(b.Ident("t")),
	))
	helper.Params = []*ast.Param{{Name: "n", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	helper.Output = ast.PrimitiveType{Kind: ast.PrimU32}

	first := b.Assign(b.Ident("x"), b.Call("scale", b.Ident("v")))
	second := b.Assign(b.Ident("y"), b.Call("scale", b.Ident("w")))
	body := b.Block(first, second)
	prog := b.Program("demo", helper, b.Transition("main", body))

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	if len(body.Statements) != 4 {
		t.Fatalf("each expansion splices one body statement, got %d", len(body.Statements))
	}
	firstLocal := body.Statements[0].(*ast.Assign).Place.(*ast.Identifier).Name
	secondLocal := body.Statements[2].(*ast.Assign).Place.(*ast.Identifier).Name
	if firstLocal == secondLocal {
		t.Fatalf("two expansions must not share local names, both got %q", firstLocal)
	}
	if got := first.Value.(*ast.Identifier).Name; got != firstLocal {
		t.Fatalf("result must reference the expansion's own local, got %q", got)
	}
}

func TestRecursiveHelperReportedAndKept(t *testing.T) {
	b := testkit.New()
	rec := b.Fn(ast.VariantFunction, "loop", b.Block(
		b.Return(b.Call("loop")),
	))
	rec.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	use := b.Assign(b.Ident("x"), b.Call("loop"))
	prog := b.Program("demo", rec, b.Transition("main", b.Block(use)))

	bag := diag.NewBag(8)
	Run(prog, types.NewTable(), b.C, diag.BagReporter{Bag: bag})
	if !bag.HasErrors() {
		t.Fatalf("recursion must be reported")
	}
	if bag.Items()[0].Code != diag.LowerRecursiveCall {
		t.Fatalf("wrong code: %s", bag.Items()[0].Code)
	}
	if prog.Scopes[0].Function("loop") == nil {
		t.Fatalf("recursive helper must not be dropped")
	}
	if _, ok := use.Value.(*ast.Call); !ok {
		t.Fatalf("call to a recursive helper must stay, got %T", use.Value)
	}
}

func TestTransitiveInlining(t *testing.T) {
	b := testkit.New()
	inner := bumpHelper(b)
	outer := b.Fn(ast.VariantFunction, "twice", b.Block(
		b.Return(b.Call("bump", b.Call("bump", b.Ident("n")))),
	))
	outer.Params = []*ast.Param{{Name: "n", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	outer.Output = ast.PrimitiveType{Kind: ast.PrimU32}

	use := b.Assign(b.Ident("x"), b.Call("twice", b.Ident("v")))
	prog := b.Program("demo", inner, outer, b.Transition("main", b.Block(use)))

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	scope := prog.Scopes[0]
	if scope.Function("bump") != nil || scope.Function("twice") != nil {
		t.Fatalf("both helpers must be dropped after inlining")
	}
	if _, ok := use.Value.(*ast.Binary); !ok {
		t.Fatalf("nested calls must fully collapse, got %T", use.Value)
	}
}

func TestAsyncFunctionBodyNotInlinedInto(t *testing.T) {
	b := testkit.New()
	use := b.Assign(b.Ident("x"), b.Call("bump", b.Ident("v")))
	async := b.Fn(ast.VariantAsyncFunction, "settle", b.Block(use))
	prog := b.Program("demo", bumpHelper(b), async)

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	if _, ok := use.Value.(*ast.Call); !ok {
		t.Fatalf("async bodies keep their helper calls, got %T", use.Value)
	}
	if prog.Scopes[0].Function("bump") == nil {
		t.Fatalf("a helper an async body still calls must survive")
	}
}
