// Package lowering removes the two surface conveniences the emitter has no
// instruction for. Storage declarations become backing mappings keyed at
// `true` (array-typed storage also gets a length mapping), with storage reads
// and writes rewritten to mapping operations. Option types become tagged
// structs with `is_some` and `value` members, with the constructors rewritten
// to composite initializers.
//
// Both rewrites run once, after the fixed point; the driver rebuilds the side
// tables afterwards so the new declarations are collected and checked.
package lowering

import (
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/types"
)

// Run lowers every program scope in place and reports whether anything
// changed.
func Run(prog *ast.Program, tt *types.Table, counter *ast.Counter, r diag.Reporter) bool {
	changed := false
	for _, scope := range prog.Scopes {
		l := &lowerer{
			prog:     prog,
			scope:    scope,
			tt:       tt,
			counter:  counter,
			r:        r,
			storages: make(map[string]*loweredStorage),
		}
		l.run()
		changed = changed || l.changed
	}
	return changed
}

type loweredStorage struct {
	decl        *ast.Storage
	contentName string
	lenName     string // set only for array-typed storage
	length      uint32
}

type lowerer struct {
	prog    *ast.Program
	scope   *ast.ProgramScope
	tt      *types.Table
	counter *ast.Counter
	r       diag.Reporter
	changed bool

	storages map[string]*loweredStorage
}

func (l *lowerer) run() {
	l.rewriteAnnotations()
	l.lowerStorages()
	for _, fn := range l.scope.Functions {
		if fn.Body != nil {
			l.block(fn.Body)
		}
	}
	if l.scope.Constructor != nil && l.scope.Constructor.Body != nil {
		l.block(l.scope.Constructor.Body)
	}
}

// lowerStorages replaces each storage declaration with its backing mappings.
func (l *lowerer) lowerStorages() {
	if len(l.scope.Storages) == 0 {
		return
	}
	for _, st := range l.scope.Storages {
		ls := &loweredStorage{decl: st, contentName: st.Name + "__content"}
		l.scope.Mappings = append(l.scope.Mappings, &ast.Mapping{
			Meta:  ast.NewMeta(l.counter, st.Span()),
			Name:  ls.contentName,
			Key:   ast.PrimitiveType{Kind: ast.PrimBool},
			Value: st.Type,
		})
		if arr, ok := st.Type.(ast.ArrayType); ok {
			if length, ok := types.LiteralLength(arr.Length); ok {
				ls.lenName = st.Name + "__len"
				ls.length = length
				l.scope.Mappings = append(l.scope.Mappings, &ast.Mapping{
					Meta:  ast.NewMeta(l.counter, st.Span()),
					Name:  ls.lenName,
					Key:   ast.PrimitiveType{Kind: ast.PrimBool},
					Value: ast.PrimitiveType{Kind: ast.PrimU32},
				})
			}
		}
		l.storages[st.Name] = ls
	}
	l.scope.Storages = nil
	l.changed = true
}

func (l *lowerer) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		out = append(out, l.statement(s)...)
	}
	b.Statements = out
}

func (l *lowerer) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Definition:
		n.Value = l.expr(n.Value)
	case *ast.Assign:
		n.Value = l.expr(n.Value)
	case *ast.Block:
		l.block(n)
	case *ast.Conditional:
		n.Condition = l.expr(n.Condition)
		l.block(n.Then)
		if n.Otherwise != nil {
			l.statement(n.Otherwise)
		}
	case *ast.Console:
		for i, a := range n.Args {
			n.Args[i] = l.expr(a)
		}
	case *ast.Iteration:
		n.Start = l.expr(n.Start)
		n.Stop = l.expr(n.Stop)
		l.block(n.Body)
	case *ast.Return:
		if n.Value != nil {
			n.Value = l.expr(n.Value)
		}
	case *ast.ExprStatement:
		if write, ok := n.Expr.(*ast.AssociatedCall); ok && write.Fn == ast.CoreStorageWrite {
			return l.storageWrite(n, write)
		}
		n.Expr = l.expr(n.Expr)
	}
	return []ast.Statement{s}
}

// storageWrite rewrites `Storage::write(x, v)` into a set on the content
// mapping, plus a length set for array storage.
func (l *lowerer) storageWrite(stmt *ast.ExprStatement, write *ast.AssociatedCall) []ast.Statement {
	ls := l.storageOf(write)
	if ls == nil || len(write.Args) != 2 {
		return []ast.Statement{stmt}
	}
	write.Fn = ast.CoreMappingSet
	write.Args = []ast.Expression{
		l.declRef(ls.contentName, write.Span()),
		l.trueKey(write.Span()),
		l.expr(write.Args[1]),
	}
	l.changed = true
	out := []ast.Statement{stmt}
	if ls.lenName != "" {
		lenSet := &ast.AssociatedCall{
			Meta: ast.NewMeta(l.counter, write.Span()),
			Fn:   ast.CoreMappingSet,
			Args: []ast.Expression{
				l.declRef(ls.lenName, write.Span()),
				l.trueKey(write.Span()),
				l.u32Literal(ls.length, write.Span()),
			},
		}
		l.tt.Insert(lenSet.ID(), types.Unit{})
		out = append(out, &ast.ExprStatement{
			Meta: ast.NewMeta(l.counter, write.Span()),
			Expr: lenSet,
		})
	}
	return out
}

func (l *lowerer) expr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Binary:
		n.Left = l.expr(n.Left)
		n.Right = l.expr(n.Right)
	case *ast.Unary:
		n.Operand = l.expr(n.Operand)
	case *ast.Ternary:
		n.Condition = l.expr(n.Condition)
		n.IfTrue = l.expr(n.IfTrue)
		n.IfFalse = l.expr(n.IfFalse)
	case *ast.Cast:
		n.Value = l.expr(n.Value)
		n.To = l.typ(n.To)
	case *ast.Call:
		for i, a := range n.Args {
			n.Args[i] = l.expr(a)
		}
	case *ast.AssociatedCall:
		return l.associated(n)
	case *ast.Await:
		n.Future = l.expr(n.Future)
	case *ast.CompositeInit:
		for i := range n.Members {
			n.Members[i].Value = l.expr(n.Members[i].Value)
		}
	case *ast.MemberAccess:
		n.Inner = l.expr(n.Inner)
	case *ast.ArrayInit:
		for i, el := range n.Elements {
			n.Elements[i] = l.expr(el)
		}
	case *ast.Repeat:
		n.Value = l.expr(n.Value)
		n.Count = l.expr(n.Count)
	case *ast.ArrayAccess:
		n.Array = l.expr(n.Array)
		n.Index = l.expr(n.Index)
	case *ast.TupleExpr:
		for i, el := range n.Elements {
			n.Elements[i] = l.expr(el)
		}
	case *ast.TupleAccess:
		n.Tuple = l.expr(n.Tuple)
	}
	return e
}

func (l *lowerer) associated(n *ast.AssociatedCall) ast.Expression {
	switch n.Fn {
	case ast.CoreStorageRead:
		if ls := l.storageOf(n); ls != nil {
			n.Fn = ast.CoreMappingGet
			n.Args = []ast.Expression{
				l.declRef(ls.contentName, n.Span()),
				l.trueKey(n.Span()),
			}
			l.changed = true
		}
		return n
	case ast.CoreStorageWrite:
		// A write outside statement position still lowers, without length
		// maintenance; the checker has already typed it as unit.
		if ls := l.storageOf(n); ls != nil && len(n.Args) == 2 {
			n.Fn = ast.CoreMappingSet
			n.Args = []ast.Expression{
				l.declRef(ls.contentName, n.Span()),
				l.trueKey(n.Span()),
				l.expr(n.Args[1]),
			}
			l.changed = true
		}
		return n
	case ast.CoreOptionSome, ast.CoreOptionNone:
		return l.option(n)
	}
	args := n.Args
	if n.Fn.TakesDeclaration() && len(args) > 0 {
		args = args[1:]
	}
	for i, a := range args {
		args[i] = l.expr(a)
	}
	n.Of = l.typ(n.Of)
	return n
}

func (l *lowerer) storageOf(n *ast.AssociatedCall) *loweredStorage {
	if len(n.Args) == 0 {
		return nil
	}
	ident, ok := n.Args[0].(*ast.Identifier)
	if !ok {
		return nil
	}
	return l.storages[ident.Name]
}

func (l *lowerer) declRef(name string, sp source.Span) ast.Expression {
	return &ast.Identifier{Meta: ast.NewMeta(l.counter, sp), Name: name}
}

func (l *lowerer) trueKey(sp source.Span) ast.Expression {
	return l.boolLiteral(true, sp)
}

func (l *lowerer) u32Literal(v uint32, sp source.Span) ast.Expression {
	lit := &ast.Literal{
		Meta:  ast.NewMeta(l.counter, sp),
		Kind:  ast.LitInt,
		Width: ast.PrimU32,
		Text:  strconv.FormatUint(uint64(v), 10),
	}
	l.tt.Insert(lit.ID(), types.Primitive{Kind: ast.PrimU32})
	return lit
}
