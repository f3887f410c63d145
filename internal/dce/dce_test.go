package dce

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/testkit"
)

func TestTrueConditionKeepsThenBranch(t *testing.T) {
	b := testkit.New()
	then := b.Block(b.Let("a", b.U32(1)))
	body := b.Block(b.If(b.Bool(true), then, b.Block(b.Let("a", b.U32(2)))))
	prog := b.Program("demo", b.Transition("main", body))

	res := Run(prog)
	if !res.Changed {
		t.Fatalf("folded branch must report a change")
	}
	if len(body.Statements) != 1 || body.Statements[0] != then {
		t.Fatalf("taken branch must be spliced in, got %v", body.Statements)
	}
}

func TestFalseConditionWithoutElseDropsStatement(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.If(b.Bool(false), b.Block(b.Let("a", b.U32(1))), nil))
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog)
	if len(body.Statements) != 0 {
		t.Fatalf("untaken branch with no else must vanish, got %d statements", len(body.Statements))
	}
}

func TestChainedElseIfFolds(t *testing.T) {
	b := testkit.New()
	final := b.Block(b.Let("a", b.U32(3)))
	chain := b.If(b.Bool(false), b.Block(b.Let("a", b.U32(2))), final)
	body := b.Block(b.If(b.Bool(false), b.Block(b.Let("a", b.U32(1))), chain))
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog)
	if len(body.Statements) != 1 || body.Statements[0] != final {
		t.Fatalf("chained else-if must collapse to the final arm, got %v", body.Statements)
	}
}

func TestDynamicElseArmFoldsAway(t *testing.T) {
	b := testkit.New()
	outer := b.If(b.Ident("cond"), b.Block(b.Let("a", b.U32(1))),
		b.If(b.Bool(false), b.Block(b.Let("a", b.U32(2))), nil))
	body := b.Block(outer)
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog)
	if outer.Otherwise != nil {
		t.Fatalf("folded-empty else arm must be cleared, got %T", outer.Otherwise)
	}
}

func TestDropsFoldedConstDefinition(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.Const("N", b.U32(4)), b.Let("x", b.Ident("N")))
	prog := b.Program("demo", b.Transition("main", body))

	res := Run(prog)
	if !res.Changed {
		t.Fatalf("dropping a folded const must report a change")
	}
	if len(body.Statements) != 1 {
		t.Fatalf("folded const definition must be dropped, got %d statements", len(body.Statements))
	}
	if _, ok := body.Statements[0].(*ast.Definition); !ok {
		t.Fatalf("the let must survive")
	}
}

func TestUnfoldedConstDefinitionStays(t *testing.T) {
	b := testkit.New()
	body := b.Block(b.Const("N", b.Ident("M")))
	prog := b.Program("demo", b.Transition("main", body))

	Run(prog)
	if len(body.Statements) != 1 {
		t.Fatalf("a const whose value has not folded must stay")
	}
}

func TestRemainingBranchRecordedOnlyInCircuit(t *testing.T) {
	b := testkit.New()
	circuitBody := b.Block(b.If(b.Ident("c"), b.Block(b.Let("a", b.U32(1))), nil))
	asyncBody := b.Block(b.If(b.Ident("c"), b.Block(b.Let("a", b.U32(1))), nil))
	async := b.Fn(ast.VariantAsyncFunction, "settle", asyncBody)
	prog := b.Program("demo", b.Transition("main", circuitBody), async)

	res := Run(prog)
	if len(res.RemainingBranches) != 1 {
		t.Fatalf("only the circuit branch must be recorded, got %d", len(res.RemainingBranches))
	}
	if len(asyncBody.Statements) != 1 {
		t.Fatalf("async branches must survive")
	}
}
