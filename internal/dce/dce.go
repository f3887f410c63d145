// Package dce eliminates code made dead by constant propagation: conditionals
// whose condition folded to a boolean literal are replaced by the taken
// branch, and const definitions whose value folded to a literal are dropped
// (their bindings live on in the symbol table across table rebuilds).
//
// Branches that remain after folding are recorded per function. In circuit
// functions every branch must fold away before emission; the fixed-point
// driver raises those spans once no pass makes further progress. Async
// function bodies run on-chain and keep their branches.
package dce

import (
	"lumen/internal/ast"
	"lumen/internal/source"
)

// Result reports what the pass did and which branches are still dynamic in
// circuit code.
type Result struct {
	Changed           bool
	RemainingBranches []source.Span
}

// Run eliminates dead branches and folded const definitions in place.
func Run(prog *ast.Program) Result {
	e := &eliminator{}
	for _, scope := range prog.Scopes {
		for _, fn := range scope.Functions {
			if fn.IsGeneric() || fn.Body == nil {
				continue
			}
			e.inCircuit = fn.Variant != ast.VariantAsyncFunction
			e.block(fn.Body)
		}
		if scope.Constructor != nil && scope.Constructor.Body != nil {
			e.inCircuit = false
			e.block(scope.Constructor.Body)
		}
	}
	return e.res
}

type eliminator struct {
	inCircuit bool
	res       Result
}

func (e *eliminator) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		out = append(out, e.statement(s)...)
	}
	b.Statements = out
}

func (e *eliminator) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Definition:
		if n.Kind == ast.DeclConst && len(n.Targets) == 1 && ast.IsLiteral(n.Value) {
			e.res.Changed = true
			return nil
		}
	case *ast.Block:
		e.block(n)
	case *ast.Conditional:
		return e.conditional(n)
	}
	return []ast.Statement{s}
}

func (e *eliminator) conditional(n *ast.Conditional) []ast.Statement {
	if lit, ok := n.Condition.(*ast.Literal); ok && lit.Kind == ast.LitBool {
		e.res.Changed = true
		if lit.BoolValue() {
			e.block(n.Then)
			return []ast.Statement{n.Then}
		}
		if n.Otherwise == nil {
			return nil
		}
		return e.statement(n.Otherwise)
	}

	e.block(n.Then)
	if n.Otherwise != nil {
		// The else arm is a block or a chained conditional; either way its
		// replacement is at most one statement.
		switch rest := e.statement(n.Otherwise); len(rest) {
		case 0:
			n.Otherwise = nil
		default:
			n.Otherwise = rest[0]
		}
	}
	if e.inCircuit {
		e.res.RemainingBranches = append(e.res.RemainingBranches, n.Condition.Span())
	}
	return []ast.Statement{n}
}
