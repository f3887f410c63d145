package flatten

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

func tupleU32(n int) types.Tuple {
	elems := make([]types.Type, n)
	for i := range elems {
		elems[i] = types.Primitive{Kind: ast.PrimU32}
	}
	return types.Tuple{Elems: elems}
}

func TestTupleLiteralAssignmentSplits(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	place := b.Ident("x")
	tt.Insert(place.ID(), tupleU32(2))
	body := b.Block(b.Assign(place, b.Tuple(b.U32(1), b.U32(2))))
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, tt, b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("tuple assignment must split into 2, got %d", len(body.Statements))
	}
	for i, want := range []string{"x$__0", "x$__1"} {
		assign := body.Statements[i].(*ast.Assign)
		got := assign.Place.(*ast.Identifier).Name
		if got != want {
			t.Fatalf("component %d named %q, want %q", i, got, want)
		}
	}
}

func TestTupleAccessResolvesToComponent(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	place := b.Ident("x")
	tt.Insert(place.ID(), tupleU32(2))
	access := &ast.TupleAccess{Meta: ast.NewMeta(b.C, place.Span()), Tuple: b.Ident("x"), Index: 1}
	use := b.Assign(b.Ident("y"), access)
	body := b.Block(b.Assign(place, b.Tuple(b.U32(1), b.U32(2))), use)
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, tt, b.C, diag.NopReporter{})
	ident, ok := use.Value.(*ast.Identifier)
	if !ok || ident.Name != "x$__1" {
		t.Fatalf("access must resolve to the split component, got %v", use.Value)
	}
}

func TestTupleReturnWidens(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	place := b.Ident("x")
	tt.Insert(place.ID(), tupleU32(2))
	ret := b.Return(b.Ident("x"))
	body := b.Block(b.Assign(place, b.Tuple(b.U32(1), b.U32(2))), ret)
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, tt, b.C, diag.NopReporter{})
	tuple, ok := ret.Value.(*ast.TupleExpr)
	if !ok || len(tuple.Elements) != 2 {
		t.Fatalf("return of a split tuple must widen, got %T", ret.Value)
	}
}

func TestFutureAccessBecomesArrayAccess(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	fut := b.Ident("f")
	tt.Insert(fut.ID(), types.Future{})
	access := &ast.TupleAccess{Meta: ast.NewMeta(b.C, fut.Span()), Tuple: fut, Index: 1}
	use := b.Assign(b.Ident("y"), access)
	async := b.Fn(ast.VariantAsyncFunction, "settle", b.Block(use))
	prog := b.Program("demo", async)

	Run(prog, tt, b.C, diag.NopReporter{})
	arr, ok := use.Value.(*ast.ArrayAccess)
	if !ok {
		t.Fatalf("future access must become positional, got %T", use.Value)
	}
	if lit := arr.Index.(*ast.Literal); lit.Text != "1" {
		t.Fatalf("position rendered as %q", lit.Text)
	}
}

func TestAggregateTernaryEvaluatesConditionOnce(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	arrT := types.Array{Elem: types.Primitive{Kind: ast.PrimU32}, Length: 2}

	cond := b.Bin(ast.OpLt, b.Ident("a"), b.Ident("b"))
	tern := b.Ternary(cond, b.Ident("xs"), b.Ident("ys"))
	tt.Insert(tern.ID(), arrT)
	use := b.Assign(b.Ident("z"), tern)
	body := b.Block(use)
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, tt, b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("condition must be hoisted into a prelude assignment, got %d statements", len(body.Statements))
	}
	hoisted, ok := body.Statements[0].(*ast.Assign)
	if !ok || hoisted.Value != cond {
		t.Fatalf("first statement must bind the condition")
	}
	condName := hoisted.Place.(*ast.Identifier).Name

	init, ok := body.Statements[1].(*ast.Assign).Value.(*ast.ArrayInit)
	if !ok || len(init.Elements) != 2 {
		t.Fatalf("aggregate ternary must flatten to per-element form, got %T", body.Statements[1].(*ast.Assign).Value)
	}
	for i, el := range init.Elements {
		leaf, ok := el.(*ast.Ternary)
		if !ok {
			t.Fatalf("element %d is %T, want scalar ternary", i, el)
		}
		ref, ok := leaf.Condition.(*ast.Identifier)
		if !ok || ref.Name != condName {
			t.Fatalf("element %d condition must reference the hoisted temp", i)
		}
	}
}

func TestCompositeTernaryFlattensPerMember(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	tern := b.Ternary(b.Ident("c"), b.Ident("p"), b.Ident("q"))
	tt.Insert(tern.ID(), types.Composite{Program: "demo", Name: "Point"})
	use := b.Assign(b.Ident("z"), tern)
	main := b.Transition("main", b.Block(use))
	prog := b.Program("demo", main)
	prog.Scopes[0].Structs = []*ast.Struct{{
		Meta: ast.NewMeta(b.C, main.Span()),
		Name: "Point",
		Members: []*ast.Member{
			{Name: "x", Type: ast.PrimitiveType{Kind: ast.PrimU32}},
			{Name: "y", Type: ast.PrimitiveType{Kind: ast.PrimU32}},
		},
	}}

	Run(prog, tt, b.C, diag.NopReporter{})
	init, ok := use.Value.(*ast.CompositeInit)
	if !ok || init.Name != "Point" {
		t.Fatalf("composite ternary must flatten to an initializer, got %T", use.Value)
	}
	for i, m := range init.Members {
		leaf, ok := m.Value.(*ast.Ternary)
		if !ok {
			t.Fatalf("member %d is %T, want scalar ternary", i, m.Value)
		}
		if _, ok := leaf.IfTrue.(*ast.MemberAccess); !ok {
			t.Fatalf("member %d true branch must project the hoisted value", i)
		}
	}
}
