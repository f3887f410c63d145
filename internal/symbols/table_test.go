package symbols

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/source"
)

func TestScopeLookupWalksParents(t *testing.T) {
	table := NewTable()
	counter := ast.NewCounter(1)

	outer := counter.Next()
	inner := counter.Next()

	table.EnterScope(outer)
	if _, ok := table.InsertVariable(&VariableSymbol{Name: "x", Kind: ast.DeclMutable}); !ok {
		t.Fatalf("insert x failed")
	}
	table.EnterScope(inner)
	if sym := table.LookupVariable("x"); sym == nil {
		t.Fatalf("expected x visible from inner scope")
	}
	if sym := table.Current().Local("x"); sym != nil {
		t.Fatalf("x must not be local to inner scope")
	}
	table.EnterParent()
	table.EnterParent()
	if table.Current() != table.Root() {
		t.Fatalf("expected to be back at root")
	}
}

func TestInsertVariableDuplicate(t *testing.T) {
	table := NewTable()
	table.EnterScope(ast.NodeID(7))

	first := &VariableSymbol{Name: "n", Kind: ast.DeclConst, Span: source.Span{Start: 1, End: 2}}
	if _, ok := table.InsertVariable(first); !ok {
		t.Fatalf("first insert failed")
	}
	prev, ok := table.InsertVariable(&VariableSymbol{Name: "n", Kind: ast.DeclMutable})
	if ok {
		t.Fatalf("duplicate insert must fail")
	}
	if prev != first {
		t.Fatalf("duplicate insert must return the existing symbol")
	}
}

func TestResetButConstsKeepsFoldedValues(t *testing.T) {
	table := NewTable()
	counter := ast.NewCounter(1)
	scopeID := counter.Next()

	table.EnterScope(scopeID)
	lit := &ast.Literal{Meta: ast.NewMeta(counter, source.Span{}), Kind: ast.LitInt, Width: ast.PrimU8, Text: "3"}
	table.InsertVariable(&VariableSymbol{Name: "N", Kind: ast.DeclConst, Value: lit})
	table.InsertVariable(&VariableSymbol{Name: "tmp", Kind: ast.DeclMutable})
	table.EnterParent()

	fn := &ast.Function{Name: "main"}
	table.InsertFunction(Location{Program: "demo", Name: "main"}, fn)

	table.ResetButConsts()

	if table.LookupFunction(Location{Program: "demo", Name: "main"}) != nil {
		t.Fatalf("functions must not survive a reset")
	}
	scope := table.ScopeOf(scopeID)
	if scope == nil {
		t.Fatalf("scope holding a folded const must survive")
	}
	if sym := scope.Local("N"); sym == nil || sym.Value != lit {
		t.Fatalf("folded const must survive a reset")
	}
	if scope.Local("tmp") != nil {
		t.Fatalf("mutable bindings must not survive a reset")
	}
}
