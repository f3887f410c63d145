package ssa

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

func TestDefinitionBecomesAssignment(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.Let("x", b.U32(1)))
	prog := b.Program("demo", b.Transition("main", body))

	LowerDefinitions(prog, types.NewTable(), b.C, diag.NopReporter{})
	assign, ok := body.Statements[0].(*ast.Assign)
	if !ok {
		t.Fatalf("definition must lower to assignment, got %T", body.Statements[0])
	}
	if ident, ok := assign.Place.(*ast.Identifier); !ok || ident.Name != "x" {
		t.Fatalf("place must be the defined identifier")
	}
}

func TestTupleLiteralDefinitionSplits(t *testing.T) {
	b := testkit.New()
	def := &ast.Definition{
		Meta:    ast.NewMeta(b.C, source.Span{}),
		Kind:    ast.DeclMutable,
		Targets: []*ast.Identifier{b.Ident("a"), b.Ident("b")},
		Value:   b.Tuple(b.U32(1), b.U32(2)),
	}
	body := b.Block(def)
	prog := b.Program("demo", b.Transition("main", body))

	LowerDefinitions(prog, types.NewTable(), b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("tuple literal destructuring must split, got %d statements", len(body.Statements))
	}
	for i, name := range []string{"a", "b"} {
		assign := body.Statements[i].(*ast.Assign)
		if assign.Place.(*ast.Identifier).Name != name {
			t.Fatalf("component %d assigns %q", i, assign.Place.(*ast.Identifier).Name)
		}
	}
}

func TestTupleCallDefinitionKeepsCallWhole(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	left, right := b.Ident("a"), b.Ident("b")
	tt.Insert(left.ID(), types.Primitive{Kind: ast.PrimU32})
	tt.Insert(right.ID(), types.Primitive{Kind: ast.PrimBool})
	def := &ast.Definition{
		Meta:    ast.NewMeta(b.C, source.Span{}),
		Kind:    ast.DeclMutable,
		Targets: []*ast.Identifier{left, right},
		Value:   b.Call("split", b.Ident("v")),
	}
	body := b.Block(def)
	prog := b.Program("demo", b.Transition("main", body))

	LowerDefinitions(prog, tt, b.C, diag.NopReporter{})
	if len(body.Statements) != 1 {
		t.Fatalf("call destructuring must stay one assignment")
	}
	assign := body.Statements[0].(*ast.Assign)
	place, ok := assign.Place.(*ast.TupleExpr)
	if !ok {
		t.Fatalf("place must be a tuple, got %T", assign.Place)
	}
	ty, ok := tt.Get(place.ID()).(types.Tuple)
	if !ok || len(ty.Elems) != 2 {
		t.Fatalf("tuple place must be typed from its components")
	}
}

func TestConsoleLogDropped(t *testing.T) {
	b := testkit.New()
	logStmt := &ast.Console{Meta: ast.NewMeta(b.C, source.Span{}), Kind: ast.ConsoleLog, Format: "x = {}"}
	assertStmt := &ast.Console{Meta: ast.NewMeta(b.C, source.Span{}), Kind: ast.ConsoleAssert, Args: []ast.Expression{b.Bool(true)}}
	body := b.Block(logStmt, assertStmt)
	prog := b.Program("demo", b.Transition("main", body))

	LowerDefinitions(prog, types.NewTable(), b.C, diag.NopReporter{})
	if len(body.Statements) != 1 {
		t.Fatalf("log must be dropped, assert kept; got %d statements", len(body.Statements))
	}
	if body.Statements[0] != assertStmt {
		t.Fatalf("surviving statement must be the assertion")
	}
}

func TestRenameVersionsEveryWrite(t *testing.T) {
	b := testkit.New()
	read := b.Ident("x")
	body := b.Block(
		b.Assign(b.Ident("x"), b.U32(1)),
		b.Assign(b.Ident("x"), b.Bin(ast.OpAdd, b.Ident("x"), b.U32(1))),
		b.Return(read),
	)
	prog := b.Program("demo", b.Transition("main", body))

	Rename(prog, types.NewTable(), b.C, diag.NopReporter{})
	first := body.Statements[0].(*ast.Assign).Place.(*ast.Identifier)
	second := body.Statements[1].(*ast.Assign)
	if first.Name != "x$1" {
		t.Fatalf("first write renamed to %q", first.Name)
	}
	if got := second.Place.(*ast.Identifier).Name; got != "x$2" {
		t.Fatalf("second write renamed to %q", got)
	}
	if got := second.Value.(*ast.Binary).Left.(*ast.Identifier).Name; got != "x$1" {
		t.Fatalf("read in second assign resolves to %q", got)
	}
	if read.Name != "x$2" {
		t.Fatalf("final read resolves to %q", read.Name)
	}
}

func TestRenameLeavesParameterReadsAlone(t *testing.T) {
	b := testkit.New()
	read := b.Ident("n")
	body := b.Block(b.Assign(b.Ident("y"), read), b.Return(b.Ident("y")))
	fn := b.Transition("main", body)
	fn.Params = []*ast.Param{{Name: "n", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	prog := b.Program("demo", fn)

	Rename(prog, types.NewTable(), b.C, diag.NopReporter{})
	if read.Name != "n" {
		t.Fatalf("parameter read must keep its name, got %q", read.Name)
	}
}

func TestRenameSkipsMappingDeclarationOperand(t *testing.T) {
	b := testkit.New()
	decl := b.Ident("counts")
	key := b.Ident("k")
	get := &ast.AssociatedCall{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Fn:   ast.CoreMappingGet,
		Args: []ast.Expression{decl, key},
	}
	body := b.Block(
		b.Assign(b.Ident("k"), b.U32(1)),
		b.Assign(b.Ident("v"), get),
	)
	async := b.Fn(ast.VariantTransition, "main", body)
	prog := b.Program("demo", async)

	Rename(prog, types.NewTable(), b.C, diag.NopReporter{})
	if decl.Name != "counts" {
		t.Fatalf("declaration operand must not be versioned, got %q", decl.Name)
	}
	if key.Name != "k$1" {
		t.Fatalf("key operand must resolve to the latest version, got %q", key.Name)
	}
}

func TestRenameRejectsResidualControlFlow(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.If(b.Ident("c"), b.Block(), nil))
	prog := b.Program("demo", b.Transition("main", body))

	bag := diag.NewBag(8)
	Rename(prog, types.NewTable(), b.C, diag.BagReporter{Bag: bag})
	if !bag.HasErrors() {
		t.Fatalf("a conditional surviving into renaming is an internal error")
	}
}

func TestAsyncFunctionBodyIsExempt(t *testing.T) {
	b := testkit.New()
	def := b.Let("x", b.U32(1))
	body := b.Block(def)
	async := b.Fn(ast.VariantAsyncFunction, "settle", body)
	prog := b.Program("demo", async)

	LowerDefinitions(prog, types.NewTable(), b.C, diag.NopReporter{})
	Rename(prog, types.NewTable(), b.C, diag.NopReporter{})
	if body.Statements[0] != def {
		t.Fatalf("async bodies keep their definitions")
	}
}
