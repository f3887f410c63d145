package unroll

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/testkit"
)

func bodyLiteral(t *testing.T, s ast.Statement) string {
	t.Helper()
	block, ok := s.(*ast.Block)
	if !ok {
		t.Fatalf("unrolled copy must be a block, got %T", s)
	}
	if len(block.Statements) != 1 {
		t.Fatalf("copy has %d statements", len(block.Statements))
	}
	def, ok := block.Statements[0].(*ast.Definition)
	if !ok {
		t.Fatalf("expected definition, got %T", block.Statements[0])
	}
	lit, ok := def.Value.(*ast.Literal)
	if !ok {
		t.Fatalf("loop variable must be substituted, got %T", def.Value)
	}
	return lit.Text
}

func TestUnrollsLiteralBoundsInOrder(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.For("i", b.U32(0), b.U32(3), b.Block(b.Let("a", b.Ident("i")))))
	prog := b.Program("demo", b.Transition("main", body))

	bag := diag.NewBag(16)
	res := Run(prog, b.C, diag.BagReporter{Bag: bag})
	if !res.Changed {
		t.Fatalf("unroll must report a change")
	}
	if len(body.Statements) != 3 {
		t.Fatalf("0..3 must expand to 3 copies, got %d", len(body.Statements))
	}
	for i, want := range []string{"0", "1", "2"} {
		if got := bodyLiteral(t, body.Statements[i]); got != want {
			t.Fatalf("copy %d bound to %q, want %q", i, got, want)
		}
	}
}

func TestInclusiveRangeIncludesStop(t *testing.T) {
	b := testkit.New()
	loop := b.For("i", b.U32(1), b.U32(2), b.Block(b.Let("a", b.Ident("i"))))
	loop.Inclusive = true
	body := b.Block(loop)
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("1..=2 must expand to 2 copies, got %d", len(body.Statements))
	}
	if got := bodyLiteral(t, body.Statements[1]); got != "2" {
		t.Fatalf("inclusive stop bound to %q", got)
	}
}

func TestEmptyRangeWarnsAndDropsLoop(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.For("i", b.U32(2), b.U32(2), b.Block(b.Let("a", b.Ident("i")))))
	prog := b.Program("demo", b.Transition("main", body))

	bag := diag.NewBag(16)
	Run(prog, b.C, diag.BagReporter{Bag: bag})
	if len(body.Statements) != 0 {
		t.Fatalf("empty range must leave no statements, got %d", len(body.Statements))
	}
	if bag.HasErrors() {
		t.Fatalf("empty range is a warning, not an error")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.LowerLoopRangeEmpty {
		t.Fatalf("expected one LowerLoopRangeEmpty warning, got %v", bag.Items())
	}
}

func TestSymbolicBoundIsDeferred(t *testing.T) {
	b := testkit.New()
	loop := b.For("i", b.U32(0), b.Ident("N"), b.Block(b.Let("a", b.Ident("i"))))
	body := b.Block(loop)
	prog := b.Program("demo", b.Transition("main", body))

	res := Run(prog, b.C, diag.NopReporter{})
	if len(res.UnresolvedBounds) != 1 {
		t.Fatalf("symbolic bound must be recorded, got %d", len(res.UnresolvedBounds))
	}
	if len(body.Statements) != 1 || body.Statements[0] != loop {
		t.Fatalf("rolled loop must stay in place")
	}
}

func TestNestedLiteralLoopInsideSymbolicOne(t *testing.T) {
	b := testkit.New()
	inner := b.For("j", b.U32(0), b.U32(2), b.Block(b.Let("a", b.Ident("j"))))
	outer := b.For("i", b.U32(0), b.Ident("N"), b.Block(inner))
	prog := b.Program("demo", b.Transition("main", b.Block(outer)))

	res := Run(prog, b.C, diag.NopReporter{})
	if !res.Changed {
		t.Fatalf("inner loop must unroll even when the outer is symbolic")
	}
	if len(outer.Body.Statements) != 2 {
		t.Fatalf("inner loop must expand inside the rolled body, got %d statements", len(outer.Body.Statements))
	}
}

func TestFreshNodeIDsPerCopy(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.For("i", b.U32(0), b.U32(2), b.Block(b.Let("a", b.Ident("i")))))
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog, b.C, diag.NopReporter{})
	seen := make(map[ast.NodeID]bool)
	for _, s := range body.Statements {
		block := s.(*ast.Block)
		if seen[block.ID()] {
			t.Fatalf("copies must not share node IDs")
		}
		seen[block.ID()] = true
		for _, inner := range block.Statements {
			if seen[inner.ID()] {
				t.Fatalf("copies must not share node IDs")
			}
			seen[inner.ID()] = true
		}
	}
}
