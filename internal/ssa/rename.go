package ssa

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/types"
)

// Rename versions every assignment target in circuit bodies: each write to a
// name mints `name$N` and later reads resolve to the newest version. Reads
// with no preceding write (parameters, globals) keep their original name.
// Identifier nodes are renamed in place, so their type-table entries carry
// over untouched.
func Rename(prog *ast.Program, tt *types.Table, counter *ast.Counter, r diag.Reporter) {
	for _, fn := range circuitFunctions(prog) {
		rn := &renamer{
			tt:      tt,
			r:       r,
			current: make(map[string]string, len(fn.Params)),
			counts:  make(map[string]int),
		}
		rn.block(fn.Body)
	}
}

type renamer struct {
	tt      *types.Table
	r       diag.Reporter
	current map[string]string
	counts  map[string]int
}

func (rn *renamer) fresh(name string) string {
	rn.counts[name]++
	return fmt.Sprintf("%s$%d", name, rn.counts[name])
}

func (rn *renamer) block(b *ast.Block) {
	for _, s := range b.Statements {
		rn.statement(s)
	}
}

func (rn *renamer) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Assign:
		rn.expr(n.Value)
		rn.place(n.Place)
	case *ast.Block:
		rn.block(n)
	case *ast.Console:
		for _, a := range n.Args {
			rn.expr(a)
		}
	case *ast.Return:
		rn.expr(n.Value)
	case *ast.ExprStatement:
		rn.expr(n.Expr)
	default:
		diag.Errorf(rn.r, diag.InternalError, s.Span(),
			"%T cannot appear in single-assignment form", s)
	}
}

// place versions an assignment target. Tuple places version member by member,
// left to right.
func (rn *renamer) place(e ast.Expression) {
	switch n := e.(type) {
	case *ast.Identifier:
		fresh := rn.fresh(n.Name)
		rn.current[n.Name] = fresh
		n.Name = fresh
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			rn.place(el)
		}
	default:
		diag.Errorf(rn.r, diag.InternalError, e.Span(),
			"%T cannot be an assignment place in single-assignment form", e)
	}
}

func (rn *renamer) expr(e ast.Expression) {
	switch n := e.(type) {
	case nil:
	case *ast.Identifier:
		if cur, ok := rn.current[n.Name]; ok {
			n.Name = cur
		}
	case *ast.Binary:
		rn.expr(n.Left)
		rn.expr(n.Right)
	case *ast.Unary:
		rn.expr(n.Operand)
	case *ast.Ternary:
		rn.expr(n.Condition)
		rn.expr(n.IfTrue)
		rn.expr(n.IfFalse)
	case *ast.Cast:
		rn.expr(n.Value)
	case *ast.Call:
		for _, a := range n.Args {
			rn.expr(a)
		}
	case *ast.AssociatedCall:
		// The first operand of a mapping/storage operation names the
		// declaration, not a local; it is never versioned.
		args := n.Args
		if n.Fn.TakesDeclaration() && len(args) > 0 {
			args = args[1:]
		}
		for _, a := range args {
			rn.expr(a)
		}
	case *ast.Await:
		rn.expr(n.Future)
	case *ast.CompositeInit:
		for i := range n.Members {
			rn.expr(n.Members[i].Value)
		}
	case *ast.MemberAccess:
		rn.expr(n.Inner)
	case *ast.ArrayInit:
		for _, el := range n.Elements {
			rn.expr(el)
		}
	case *ast.Repeat:
		rn.expr(n.Value)
		rn.expr(n.Count)
	case *ast.ArrayAccess:
		rn.expr(n.Array)
		rn.expr(n.Index)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			rn.expr(el)
		}
	case *ast.TupleAccess:
		rn.expr(n.Tuple)
	}
}
