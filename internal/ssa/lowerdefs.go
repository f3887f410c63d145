// Package ssa prepares circuit function bodies for emission: definition
// statements are lowered to assignments, debug logs are stripped, and every
// assignment target is renamed to a unique version so later passes can treat
// bodies as straight-line single-assignment code.
//
// Async function bodies are exempt: they run on-chain with real control flow
// and keep their statement forms.
package ssa

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/types"
)

// circuitFunctions yields the functions the SSA passes operate on.
func circuitFunctions(prog *ast.Program) []*ast.Function {
	var out []*ast.Function
	for _, scope := range prog.Scopes {
		for _, fn := range scope.Functions {
			if fn.Variant == ast.VariantAsyncFunction || fn.Body == nil {
				continue
			}
			out = append(out, fn)
		}
	}
	return out
}

// LowerDefinitions rewrites definition statements into assignments and drops
// debug logs. Single targets become a plain assignment; destructuring of a
// tuple literal becomes one assignment per component; destructuring of a
// tuple-producing call keeps the call whole behind a tuple place, which the
// renamer then versions member by member.
func LowerDefinitions(prog *ast.Program, tt *types.Table, counter *ast.Counter, r diag.Reporter) {
	l := &defLowerer{tt: tt, counter: counter}
	for _, fn := range circuitFunctions(prog) {
		l.block(fn.Body)
	}
}

type defLowerer struct {
	tt      *types.Table
	counter *ast.Counter
}

func (l *defLowerer) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		out = append(out, l.statement(s)...)
	}
	b.Statements = out
}

func (l *defLowerer) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Definition:
		return l.definition(n)
	case *ast.Console:
		if n.Kind == ast.ConsoleLog {
			return nil
		}
	case *ast.Block:
		l.block(n)
	case *ast.Conditional:
		// Branches are gone from circuit code by now; recurse defensively so
		// a stray one still lowers consistently.
		l.block(n.Then)
		if n.Otherwise != nil {
			l.statement(n.Otherwise)
		}
	}
	return []ast.Statement{s}
}

func (l *defLowerer) definition(n *ast.Definition) []ast.Statement {
	if len(n.Targets) == 1 {
		return []ast.Statement{&ast.Assign{
			Meta:  ast.NewMeta(l.counter, n.Span()),
			Place: n.Targets[0],
			Value: n.Value,
		}}
	}

	if lit, ok := n.Value.(*ast.TupleExpr); ok && len(lit.Elements) == len(n.Targets) {
		out := make([]ast.Statement, len(n.Targets))
		for i, target := range n.Targets {
			out[i] = &ast.Assign{
				Meta:  ast.NewMeta(l.counter, n.Span()),
				Place: target,
				Value: lit.Elements[i],
			}
		}
		return out
	}

	place := &ast.TupleExpr{Meta: ast.NewMeta(l.counter, n.Span())}
	elems := make([]types.Type, len(n.Targets))
	typed := true
	for i, target := range n.Targets {
		place.Elements = append(place.Elements, target)
		if elems[i] = l.tt.Get(target.ID()); elems[i] == nil {
			typed = false
		}
	}
	if typed {
		l.tt.Insert(place.ID(), types.Tuple{Elems: elems})
	}
	return []ast.Statement{&ast.Assign{
		Meta:  ast.NewMeta(l.counter, n.Span()),
		Place: place,
		Value: n.Value,
	}}
}
