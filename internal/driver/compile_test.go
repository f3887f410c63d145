package driver

import (
	"errors"
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/testkit"
)

func constDecl(b *testkit.B, name string, value ast.Expression) *ast.ConstDecl {
	return &ast.ConstDecl{
		Meta:  ast.NewMeta(b.C, source.Span{}),
		Name:  name,
		Type:  ast.PrimitiveType{Kind: ast.PrimU8},
		Value: value,
	}
}

func hasIteration(b *ast.Block) bool {
	for _, s := range b.Statements {
		switch n := s.(type) {
		case *ast.Iteration:
			return true
		case *ast.Block:
			if hasIteration(n) {
				return true
			}
		}
	}
	return false
}

func TestLoopUnrollsToStraightLine(t *testing.T) {
	b := testkit.New()
	body := b.Block(
		b.Let("s", b.U32(0)),
		b.For("i", b.U32(0), b.U32(2), b.Block(
			b.Assign(b.Ident("s"), b.Bin(ast.OpAdd, b.Ident("s"), b.Ident("i"))),
		)),
		b.Return(b.Ident("s")),
	)
	main := b.Transition("main", body)
	main.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	prog := b.Program("demo", main)

	st, err := Compile(prog, b.C, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v; %d diagnostics", err, st.Bag.Len())
	}
	if hasIteration(body) {
		t.Fatalf("loop must be fully unrolled")
	}
	// One assignment from the definition, one spliced copy per index, then
	// the return reading the last version.
	if len(body.Statements) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(body.Statements))
	}
	first := body.Statements[0].(*ast.Assign)
	if got := first.Place.(*ast.Identifier).Name; got != "s$1" {
		t.Fatalf("first write renamed to %q", got)
	}
	ret := body.Statements[3].(*ast.Return)
	if got := ret.Value.(*ast.Identifier).Name; got != "s$3" {
		t.Fatalf("return reads %q, want the final version", got)
	}
}

func TestForwardConstConverges(t *testing.T) {
	b := testkit.New()
	// A refers to B before B is declared; the fixed point resolves it on the
	// second round.
	a := constDecl(b, "A", b.Bin(ast.OpAdd, b.Ident("B"), b.U8(1)))
	declB := constDecl(b, "B", b.U8(2))
	main := b.Transition("main", b.Block())
	prog := b.Program("demo", main)
	prog.Scopes[0].Consts = []*ast.ConstDecl{a, declB}

	_, err := Compile(prog, b.C, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	lit, ok := a.Value.(*ast.Literal)
	if !ok || lit.Text != "3" {
		t.Fatalf("forward-referenced constant must fold, got %v", a.Value)
	}
}

func TestCyclicConstsAreInvalid(t *testing.T) {
	b := testkit.New()
	a := constDecl(b, "A", b.Bin(ast.OpAdd, b.Ident("B"), b.U8(1)))
	declB := constDecl(b, "B", b.Bin(ast.OpAdd, b.Ident("A"), b.U8(1)))
	main := b.Transition("main", b.Block())
	prog := b.Program("demo", main)
	prog.Scopes[0].Consts = []*ast.ConstDecl{a, declB}

	st, err := Compile(prog, b.C, Options{})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("cyclic constants must fail, got %v", err)
	}
	found := false
	for _, d := range st.Bag.Items() {
		if d.Code == diag.LowerConstNotEvaluable {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing not-evaluable diagnostic")
	}
}

func TestRoundCeilingReportsNoConvergence(t *testing.T) {
	b := testkit.New()
	// Folding B is itself a change, so one round is never enough to observe
	// a quiet round.
	main := b.Transition("main", b.Block())
	prog := b.Program("demo", main)
	prog.Scopes[0].Consts = []*ast.ConstDecl{constDecl(b, "B", b.U8(2))}

	_, err := Compile(prog, b.C, Options{MaxRounds: 1})
	if !errors.Is(err, ErrNoConvergence) {
		t.Fatalf("expected no-convergence, got %v", err)
	}
}

func TestInlineOptionExpandsHelpers(t *testing.T) {
	b := testkit.New()
	helper := b.Fn(ast.VariantFunction, "bump", b.Block(
		b.Return(b.Bin(ast.OpAdd, b.Ident("n"), b.U32(1))),
	))
	helper.Params = []*ast.Param{{Name: "n", Type: ast.PrimitiveType{Kind: ast.PrimU32}}}
	helper.Output = ast.PrimitiveType{Kind: ast.PrimU32}

	use := b.Let("x", b.Call("bump", b.U32(5)))
	main := b.Transition("main", b.Block(use, b.Return(b.Ident("x"))))
	main.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	prog := b.Program("demo", helper, main)

	st, err := Compile(prog, b.C, Options{Inline: true})
	if err != nil {
		t.Fatalf("compile failed: %v; %d diagnostics", err, st.Bag.Len())
	}
	if prog.Scopes[0].Function("bump") != nil {
		t.Fatalf("inlined helper must be dropped")
	}
	body := prog.Scopes[0].Function("main").Body
	assign := body.Statements[0].(*ast.Assign)
	if _, ok := assign.Value.(*ast.Binary); !ok {
		t.Fatalf("call must expand to the helper's return value, got %T", assign.Value)
	}
}

func TestDualSpecialization(t *testing.T) {
	b := testkit.New()
	generic := b.Fn(ast.VariantFunction, "pad", b.Block(
		b.Return(b.Bin(ast.OpAdd, b.Ident("N"), b.U8(1))),
	))
	generic.ConstParams = []*ast.ConstParam{{Name: "N", Type: ast.PrimitiveType{Kind: ast.PrimU8}}}
	generic.Output = ast.PrimitiveType{Kind: ast.PrimU8}

	first := b.Call("pad")
	first.ConstArgs = []ast.Expression{b.U8(1)}
	second := b.Call("pad")
	second.ConstArgs = []ast.Expression{b.U8(2)}
	main := b.Transition("main", b.Block(b.Let("a", first), b.Let("b", second)))
	prog := b.Program("demo", generic, main)

	st, err := Compile(prog, b.C, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v; %d diagnostics", err, st.Bag.Len())
	}
	scope := prog.Scopes[0]
	if scope.Function("pad::[1u8]") == nil || scope.Function("pad::[2u8]") == nil {
		t.Fatalf("both specializations must be minted")
	}
	if first.Function == second.Function {
		t.Fatalf("distinct const arguments must not share a specialization")
	}
}

func TestTimingsOptionAttachesReport(t *testing.T) {
	b := testkit.New()
	prog := b.Program("demo", b.Transition("main", b.Block()))

	st, err := Compile(prog, b.C, Options{Timings: true})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	var timing *diag.Diagnostic
	items := st.Bag.Items()
	for i := range items {
		if items[i].Code == diag.ObsTimings {
			timing = &items[i]
		}
	}
	if timing == nil {
		t.Fatalf("timing diagnostic missing")
	}
	if timing.Severity != diag.SevInfo {
		t.Fatalf("timing must be informational, got %v", timing.Severity)
	}
	if len(timing.Notes) != 1 {
		t.Fatalf("timing must carry its payload note")
	}
}
