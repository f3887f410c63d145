// Package flatten destructures aggregate values in function bodies. Tuple
// variables are split into per-component scalars, tuple accesses are resolved
// to the component they name, tuple accesses into futures become positional
// array accesses, and ternaries over aggregates are pushed down to one ternary
// per scalar leaf with the condition hoisted and evaluated once.
package flatten

import (
	"fmt"
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/types"
)

// Run flattens every function body in place. Circuit bodies are in
// single-assignment form by now; async bodies keep their statement forms but
// still get ternary and future-access flattening.
func Run(prog *ast.Program, tt *types.Table, counter *ast.Counter, r diag.Reporter) {
	for _, scope := range prog.Scopes {
		for _, fn := range scope.Functions {
			if fn.IsGeneric() || fn.Body == nil {
				continue
			}
			newFlattener(prog, scope, tt, counter, r, fn.Variant != ast.VariantAsyncFunction).block(fn.Body)
		}
		if scope.Constructor != nil && scope.Constructor.Body != nil {
			newFlattener(prog, scope, tt, counter, r, false).block(scope.Constructor.Body)
		}
	}
}

type flattener struct {
	prog    *ast.Program
	scope   *ast.ProgramScope
	tt      *types.Table
	counter *ast.Counter
	r       diag.Reporter
	circuit bool

	// components maps a tuple variable to the scalar identifiers it was
	// split into.
	components map[string][]*ast.Identifier
	prelude    []ast.Statement
	tmps       int
}

func newFlattener(prog *ast.Program, scope *ast.ProgramScope, tt *types.Table, counter *ast.Counter, r diag.Reporter, circuit bool) *flattener {
	return &flattener{
		prog:       prog,
		scope:      scope,
		tt:         tt,
		counter:    counter,
		r:          r,
		circuit:    circuit,
		components: make(map[string][]*ast.Identifier),
	}
}

func (f *flattener) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		f.prelude = nil
		repl := f.statement(s)
		out = append(out, f.prelude...)
		out = append(out, repl...)
	}
	b.Statements = out
}

func (f *flattener) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Assign:
		return f.assign(n)
	case *ast.Definition:
		n.Value = f.expr(n.Value)
	case *ast.Block:
		f.block(n)
	case *ast.Conditional:
		n.Condition = f.expr(n.Condition)
		f.block(n.Then)
		if n.Otherwise != nil {
			f.statement(n.Otherwise)
		}
	case *ast.Console:
		for i, a := range n.Args {
			n.Args[i] = f.expr(a)
		}
	case *ast.Return:
		if n.Value != nil {
			n.Value = f.expr(n.Value)
			n.Value = f.widenTupleReturn(n.Value)
		}
	case *ast.ExprStatement:
		n.Expr = f.expr(n.Expr)
	case *ast.Iteration:
		f.block(n.Body)
	}
	return []ast.Statement{s}
}

func (f *flattener) assign(n *ast.Assign) []ast.Statement {
	n.Value = f.expr(n.Value)
	if !f.circuit {
		return []ast.Statement{n}
	}

	place, ok := n.Place.(*ast.Identifier)
	if !ok {
		return []ast.Statement{n}
	}
	tuple, ok := f.tt.Get(place.ID()).(types.Tuple)
	if !ok {
		return []ast.Statement{n}
	}

	// `x = (a, b)` splits into one scalar assignment per component; anything
	// else tuple-valued (a call, a future) keeps the value whole behind a
	// tuple place naming fresh components.
	if lit, ok := n.Value.(*ast.TupleExpr); ok && len(lit.Elements) == len(tuple.Elems) {
		out := make([]ast.Statement, len(tuple.Elems))
		comps := make([]*ast.Identifier, len(tuple.Elems))
		for i := range tuple.Elems {
			comps[i] = f.component(place, i, tuple.Elems[i])
			out[i] = &ast.Assign{
				Meta:  ast.NewMeta(f.counter, n.Span()),
				Place: comps[i],
				Value: lit.Elements[i],
			}
		}
		f.components[place.Name] = comps
		return out
	}

	comps := make([]*ast.Identifier, len(tuple.Elems))
	fresh := &ast.TupleExpr{Meta: ast.NewMeta(f.counter, place.Span())}
	for i := range tuple.Elems {
		comps[i] = f.component(place, i, tuple.Elems[i])
		fresh.Elements = append(fresh.Elements, comps[i])
	}
	f.tt.Insert(fresh.ID(), tuple)
	f.components[place.Name] = comps
	n.Place = fresh
	return []ast.Statement{n}
}

// component mints the scalar identifier standing for one element of a split
// tuple variable.
func (f *flattener) component(base *ast.Identifier, i int, t types.Type) *ast.Identifier {
	ident := &ast.Identifier{
		Meta: ast.NewMeta(f.counter, base.Span()),
		Name: fmt.Sprintf("%s$__%d", base.Name, i),
	}
	if t != nil {
		f.tt.Insert(ident.ID(), t)
	}
	return ident
}

// widenTupleReturn rewrites `return x` on a split tuple variable into an
// explicit tuple of its components, so call sites can be split in turn.
func (f *flattener) widenTupleReturn(e ast.Expression) ast.Expression {
	ident, ok := e.(*ast.Identifier)
	if !ok {
		return e
	}
	comps, ok := f.components[ident.Name]
	if !ok {
		return e
	}
	out := &ast.TupleExpr{Meta: ast.NewMeta(f.counter, e.Span())}
	for _, c := range comps {
		out.Elements = append(out.Elements, f.cloneExpr(c))
	}
	if t := f.tt.Get(ident.ID()); t != nil {
		f.tt.Insert(out.ID(), t)
	}
	return out
}

func (f *flattener) expr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Binary:
		n.Left = f.expr(n.Left)
		n.Right = f.expr(n.Right)
	case *ast.Unary:
		n.Operand = f.expr(n.Operand)
	case *ast.Ternary:
		n.Condition = f.expr(n.Condition)
		n.IfTrue = f.expr(n.IfTrue)
		n.IfFalse = f.expr(n.IfFalse)
		if t := f.tt.Get(n.ID()); t != nil && types.IsAggregate(t) {
			return f.aggregateTernary(n, t)
		}
	case *ast.Cast:
		n.Value = f.expr(n.Value)
	case *ast.Call:
		for i, a := range n.Args {
			n.Args[i] = f.expr(a)
		}
	case *ast.AssociatedCall:
		for i, a := range n.Args {
			if i == 0 && n.Fn.TakesDeclaration() {
				continue
			}
			n.Args[i] = f.expr(a)
		}
	case *ast.Await:
		n.Future = f.expr(n.Future)
	case *ast.CompositeInit:
		for i := range n.Members {
			n.Members[i].Value = f.expr(n.Members[i].Value)
		}
	case *ast.MemberAccess:
		n.Inner = f.expr(n.Inner)
	case *ast.ArrayInit:
		for i, el := range n.Elements {
			n.Elements[i] = f.expr(el)
		}
	case *ast.Repeat:
		n.Value = f.expr(n.Value)
		n.Count = f.expr(n.Count)
	case *ast.ArrayAccess:
		n.Array = f.expr(n.Array)
		n.Index = f.expr(n.Index)
	case *ast.TupleExpr:
		for i, el := range n.Elements {
			n.Elements[i] = f.expr(el)
		}
	case *ast.TupleAccess:
		return f.tupleAccess(n)
	}
	return e
}

func (f *flattener) tupleAccess(n *ast.TupleAccess) ast.Expression {
	n.Tuple = f.expr(n.Tuple)

	// Futures are opaque: positional access survives as an array access on
	// the future value.
	if _, ok := f.tt.Get(n.Tuple.ID()).(types.Future); ok {
		index := &ast.Literal{
			Meta:  ast.NewMeta(f.counter, n.Span()),
			Kind:  ast.LitInt,
			Width: ast.PrimU32,
			Text:  strconv.FormatUint(uint64(n.Index), 10),
		}
		f.tt.Insert(index.ID(), types.Primitive{Kind: ast.PrimU32})
		access := &ast.ArrayAccess{
			Meta:  ast.NewMeta(f.counter, n.Span()),
			Array: n.Tuple,
			Index: index,
		}
		if t := f.tt.Get(n.ID()); t != nil {
			f.tt.Insert(access.ID(), t)
		}
		return access
	}

	if lit, ok := n.Tuple.(*ast.TupleExpr); ok && int(n.Index) < len(lit.Elements) {
		return lit.Elements[n.Index]
	}
	if ident, ok := n.Tuple.(*ast.Identifier); ok {
		if comps, ok := f.components[ident.Name]; ok && int(n.Index) < len(comps) {
			return f.cloneExpr(comps[n.Index])
		}
	}
	return n
}

// aggregateTernary pushes a ternary over an array, tuple or composite down to
// its scalar leaves. The condition and both branches are hoisted into
// temporaries first so each is evaluated exactly once.
func (f *flattener) aggregateTernary(n *ast.Ternary, t types.Type) ast.Expression {
	cond := f.hoist(n.Condition, types.Primitive{Kind: ast.PrimBool})
	ifTrue := f.hoist(n.IfTrue, t)
	ifFalse := f.hoist(n.IfFalse, t)
	return f.leafTernary(n, cond, ifTrue, ifFalse, t)
}

// hoist binds an expression to a fresh temporary unless it is already trivial
// to re-reference.
func (f *flattener) hoist(e ast.Expression, t types.Type) ast.Expression {
	switch e.(type) {
	case *ast.Identifier, *ast.Literal:
		return e
	}
	f.tmps++
	name := fmt.Sprintf("t$__%d", f.tmps)
	place := &ast.Identifier{Meta: ast.NewMeta(f.counter, e.Span()), Name: name}
	if t != nil {
		f.tt.Insert(place.ID(), t)
	}
	f.prelude = append(f.prelude, &ast.Assign{
		Meta:  ast.NewMeta(f.counter, e.Span()),
		Place: place,
		Value: e,
	})
	ref := &ast.Identifier{Meta: ast.NewMeta(f.counter, e.Span()), Name: name}
	if t != nil {
		f.tt.Insert(ref.ID(), t)
	}
	return ref
}

func (f *flattener) leafTernary(at *ast.Ternary, cond, ifTrue, ifFalse ast.Expression, t types.Type) ast.Expression {
	switch agg := t.(type) {
	case types.Array:
		out := &ast.ArrayInit{Meta: ast.NewMeta(f.counter, at.Span())}
		for i := uint32(0); i < agg.Length; i++ {
			elemTrue := f.project(ifTrue, int(i), "", agg.Elem)
			elemFalse := f.project(ifFalse, int(i), "", agg.Elem)
			out.Elements = append(out.Elements, f.leafTernary(at, cond, elemTrue, elemFalse, agg.Elem))
		}
		f.tt.Insert(out.ID(), t)
		return out
	case types.Tuple:
		out := &ast.TupleExpr{Meta: ast.NewMeta(f.counter, at.Span())}
		for i, elem := range agg.Elems {
			elemTrue := f.projectTuple(ifTrue, i, elem)
			elemFalse := f.projectTuple(ifFalse, i, elem)
			out.Elements = append(out.Elements, f.leafTernary(at, cond, elemTrue, elemFalse, elem))
		}
		f.tt.Insert(out.ID(), t)
		return out
	case types.Composite:
		st := f.structOf(agg)
		if st == nil {
			diag.Errorf(f.r, diag.InternalError, at.Span(),
				"composite %s has no declaration during flattening", agg)
			return at
		}
		out := &ast.CompositeInit{Meta: ast.NewMeta(f.counter, at.Span()), Name: st.Name}
		for _, m := range st.Members {
			memberT := types.FromSyntax(m.Type, agg.Program)
			memberTrue := f.project(ifTrue, -1, m.Name, memberT)
			memberFalse := f.project(ifFalse, -1, m.Name, memberT)
			out.Members = append(out.Members, ast.CompositeMember{
				Name:  m.Name,
				Value: f.leafTernary(at, cond, memberTrue, memberFalse, memberT),
			})
		}
		f.tt.Insert(out.ID(), t)
		return out
	}

	leaf := &ast.Ternary{
		Meta:      ast.NewMeta(f.counter, at.Span()),
		Condition: f.cloneExpr(cond),
		IfTrue:    ifTrue,
		IfFalse:   ifFalse,
	}
	if t != nil {
		f.tt.Insert(leaf.ID(), t)
	}
	return leaf
}

// project extracts one element (index >= 0) or member (name != "") from a
// hoisted branch value, shortcutting through literal initializers.
func (f *flattener) project(base ast.Expression, index int, member string, t types.Type) ast.Expression {
	if member != "" {
		if init, ok := base.(*ast.CompositeInit); ok {
			for i := range init.Members {
				if init.Members[i].Name == member {
					return init.Members[i].Value
				}
			}
		}
		out := &ast.MemberAccess{
			Meta:   ast.NewMeta(f.counter, base.Span()),
			Inner:  f.cloneExpr(base),
			Member: member,
		}
		if t != nil {
			f.tt.Insert(out.ID(), t)
		}
		return out
	}

	if init, ok := base.(*ast.ArrayInit); ok && index < len(init.Elements) {
		return init.Elements[index]
	}
	idx := &ast.Literal{
		Meta:  ast.NewMeta(f.counter, base.Span()),
		Kind:  ast.LitInt,
		Width: ast.PrimU32,
		Text:  strconv.Itoa(index),
	}
	f.tt.Insert(idx.ID(), types.Primitive{Kind: ast.PrimU32})
	out := &ast.ArrayAccess{
		Meta:  ast.NewMeta(f.counter, base.Span()),
		Array: f.cloneExpr(base),
		Index: idx,
	}
	if t != nil {
		f.tt.Insert(out.ID(), t)
	}
	return out
}

func (f *flattener) projectTuple(base ast.Expression, index int, t types.Type) ast.Expression {
	if lit, ok := base.(*ast.TupleExpr); ok && index < len(lit.Elements) {
		return lit.Elements[index]
	}
	if ident, ok := base.(*ast.Identifier); ok {
		if comps, ok := f.components[ident.Name]; ok && index < len(comps) {
			return f.cloneExpr(comps[index])
		}
	}
	out := &ast.TupleAccess{
		Meta:  ast.NewMeta(f.counter, base.Span()),
		Tuple: f.cloneExpr(base),
		Index: uint32(index),
	}
	if t != nil {
		f.tt.Insert(out.ID(), t)
	}
	return out
}

func (f *flattener) structOf(t types.Composite) *ast.Struct {
	scope := f.prog.Scope(t.Program)
	if scope == nil {
		scope = f.scope
	}
	return scope.Struct(t.Name)
}

// cloneExpr deep-copies an expression, mirroring type-table entries onto the
// fresh nodes.
func (f *flattener) cloneExpr(e ast.Expression) ast.Expression {
	cl := ast.NewCloner(f.counter)
	out := cl.Expression(e)
	for old, fresh := range cl.Remap {
		f.tt.Copy(old, fresh)
	}
	return out
}
