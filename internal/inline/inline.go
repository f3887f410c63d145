// Package inline splices helper function bodies into their call sites. Only
// plain functions are inlined: transitions are entry points, async functions
// run on-chain, and both survive as declarations. Helpers are processed
// callee-first, so by the time a caller is rewritten its callees are already
// call-free; fully inlined helpers are then dropped from the program.
//
// Recursive helpers cannot be expressed as circuits and are reported.
package inline

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/types"
)

// Run inlines every helper call in place.
func Run(prog *ast.Program, tt *types.Table, counter *ast.Counter, r diag.Reporter) {
	for _, scope := range prog.Scopes {
		in := &inliner{
			scope:     scope,
			tt:        tt,
			counter:   counter,
			r:         r,
			recursive: make(map[string]bool),
		}
		in.run()
	}
}

type inliner struct {
	scope     *ast.ProgramScope
	tt        *types.Table
	counter   *ast.Counter
	r         diag.Reporter
	recursive map[string]bool
	instance  int
	prelude   []ast.Statement
}

func (in *inliner) run() {
	in.findRecursion()
	for _, fn := range in.postOrder() {
		if !in.recursive[fn.Name] {
			in.body(fn)
		}
	}
	for _, fn := range in.scope.Functions {
		switch fn.Variant {
		case ast.VariantTransition, ast.VariantAsyncTransition:
			in.body(fn)
		}
	}
	if in.scope.Constructor != nil {
		in.body(in.scope.Constructor)
	}

	// Async function bodies keep their calls; a helper they reference must
	// survive even when every circuit call site was expanded.
	used := make(map[string]bool)
	for _, fn := range in.scope.Functions {
		if fn.Variant == ast.VariantAsyncFunction {
			for _, callee := range in.callees(fn) {
				used[callee.Name] = true
			}
		}
	}
	kept := in.scope.Functions[:0]
	for _, fn := range in.scope.Functions {
		if fn.Variant == ast.VariantFunction && !fn.IsGeneric() &&
			!in.recursive[fn.Name] && !used[fn.Name] {
			continue
		}
		kept = append(kept, fn)
	}
	in.scope.Functions = kept
}

// helpers returns the plain functions of the scope.
func (in *inliner) helpers() []*ast.Function {
	var out []*ast.Function
	for _, fn := range in.scope.Functions {
		if fn.Variant == ast.VariantFunction && !fn.IsGeneric() && fn.Body != nil {
			out = append(out, fn)
		}
	}
	return out
}

// callees lists the helper functions a body calls directly.
func (in *inliner) callees(fn *ast.Function) []*ast.Function {
	seen := make(map[string]bool)
	var out []*ast.Function
	var scanExpr func(ast.Expression)
	scanExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case nil:
		case *ast.Call:
			for _, a := range n.Args {
				scanExpr(a)
			}
			if n.Program != "" && n.Program != in.scope.Name {
				return
			}
			target := in.scope.Function(n.Function)
			if target != nil && target.Variant == ast.VariantFunction && !seen[target.Name] {
				seen[target.Name] = true
				out = append(out, target)
			}
		case *ast.Binary:
			scanExpr(n.Left)
			scanExpr(n.Right)
		case *ast.Unary:
			scanExpr(n.Operand)
		case *ast.Ternary:
			scanExpr(n.Condition)
			scanExpr(n.IfTrue)
			scanExpr(n.IfFalse)
		case *ast.Cast:
			scanExpr(n.Value)
		case *ast.AssociatedCall:
			for _, a := range n.Args {
				scanExpr(a)
			}
		case *ast.Await:
			scanExpr(n.Future)
		case *ast.CompositeInit:
			for i := range n.Members {
				scanExpr(n.Members[i].Value)
			}
		case *ast.MemberAccess:
			scanExpr(n.Inner)
		case *ast.ArrayInit:
			for _, el := range n.Elements {
				scanExpr(el)
			}
		case *ast.Repeat:
			scanExpr(n.Value)
			scanExpr(n.Count)
		case *ast.ArrayAccess:
			scanExpr(n.Array)
			scanExpr(n.Index)
		case *ast.TupleExpr:
			for _, el := range n.Elements {
				scanExpr(el)
			}
		case *ast.TupleAccess:
			scanExpr(n.Tuple)
		}
	}
	var scanStmt func(ast.Statement)
	scanStmt = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.Definition:
			scanExpr(n.Value)
		case *ast.Assign:
			scanExpr(n.Value)
		case *ast.Block:
			for _, inner := range n.Statements {
				scanStmt(inner)
			}
		case *ast.Conditional:
			scanExpr(n.Condition)
			scanStmt(n.Then)
			if n.Otherwise != nil {
				scanStmt(n.Otherwise)
			}
		case *ast.Console:
			for _, a := range n.Args {
				scanExpr(a)
			}
		case *ast.Iteration:
			scanStmt(n.Body)
		case *ast.Return:
			scanExpr(n.Value)
		case *ast.ExprStatement:
			scanExpr(n.Expr)
		}
	}
	if fn.Body != nil {
		for _, s := range fn.Body.Statements {
			scanStmt(s)
		}
	}
	return out
}

// findRecursion marks every helper on a call cycle and reports it once.
func (in *inliner) findRecursion() {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	var visit func(fn *ast.Function)
	visit = func(fn *ast.Function) {
		color[fn.Name] = gray
		for _, callee := range in.callees(fn) {
			switch color[callee.Name] {
			case white:
				visit(callee)
			case gray:
				if !in.recursive[callee.Name] {
					in.recursive[callee.Name] = true
					diag.Errorf(in.r, diag.LowerRecursiveCall, callee.Span(),
						"function '%s' is recursive and cannot be inlined into a circuit", callee.Name)
				}
			}
		}
		color[fn.Name] = black
	}
	for _, fn := range in.helpers() {
		if color[fn.Name] == white {
			visit(fn)
		}
	}
}

// postOrder yields helpers callee-first.
func (in *inliner) postOrder() []*ast.Function {
	visited := make(map[string]bool)
	var order []*ast.Function
	var visit func(fn *ast.Function)
	visit = func(fn *ast.Function) {
		visited[fn.Name] = true
		for _, callee := range in.callees(fn) {
			if !visited[callee.Name] {
				visit(callee)
			}
		}
		order = append(order, fn)
	}
	for _, fn := range in.helpers() {
		if !visited[fn.Name] {
			visit(fn)
		}
	}
	return order
}

func (in *inliner) body(fn *ast.Function) {
	if fn.Body == nil {
		return
	}
	in.block(fn.Body)
}

func (in *inliner) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		in.prelude = nil
		repl := in.statement(s)
		out = append(out, in.prelude...)
		out = append(out, repl...)
	}
	b.Statements = out
}

func (in *inliner) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Assign:
		n.Value = in.expr(n.Value)
		return in.splitTupleAssign(n)
	case *ast.Definition:
		n.Value = in.expr(n.Value)
	case *ast.Block:
		in.block(n)
	case *ast.Conditional:
		n.Condition = in.expr(n.Condition)
		in.block(n.Then)
		if n.Otherwise != nil {
			in.statement(n.Otherwise)
		}
	case *ast.Console:
		for i, a := range n.Args {
			n.Args[i] = in.expr(a)
		}
	case *ast.Return:
		if n.Value != nil {
			n.Value = in.expr(n.Value)
		}
	case *ast.ExprStatement:
		n.Expr = in.expr(n.Expr)
		if n.Expr == nil {
			// A unit-returning helper spliced away entirely.
			return nil
		}
	case *ast.Iteration:
		in.block(n.Body)
	}
	return []ast.Statement{s}
}

// splitTupleAssign breaks `(a, b) = (e0, e1)` into scalar assignments; the
// tuple literal typically appears when a tuple-returning helper was just
// spliced in.
func (in *inliner) splitTupleAssign(n *ast.Assign) []ast.Statement {
	place, ok := n.Place.(*ast.TupleExpr)
	if !ok {
		return []ast.Statement{n}
	}
	lit, ok := n.Value.(*ast.TupleExpr)
	if !ok || len(lit.Elements) != len(place.Elements) {
		return []ast.Statement{n}
	}
	out := make([]ast.Statement, len(place.Elements))
	for i := range place.Elements {
		out[i] = &ast.Assign{
			Meta:  ast.NewMeta(in.counter, n.Span()),
			Place: place.Elements[i],
			Value: lit.Elements[i],
		}
	}
	return out
}

func (in *inliner) expr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Binary:
		n.Left = in.expr(n.Left)
		n.Right = in.expr(n.Right)
	case *ast.Unary:
		n.Operand = in.expr(n.Operand)
	case *ast.Ternary:
		n.Condition = in.expr(n.Condition)
		n.IfTrue = in.expr(n.IfTrue)
		n.IfFalse = in.expr(n.IfFalse)
	case *ast.Cast:
		n.Value = in.expr(n.Value)
	case *ast.Call:
		for i, a := range n.Args {
			n.Args[i] = in.expr(a)
		}
		if in.inlinable(n) {
			return in.inlineCall(n)
		}
	case *ast.AssociatedCall:
		for i, a := range n.Args {
			if i == 0 && n.Fn.TakesDeclaration() {
				continue
			}
			n.Args[i] = in.expr(a)
		}
	case *ast.Await:
		n.Future = in.expr(n.Future)
	case *ast.CompositeInit:
		for i := range n.Members {
			n.Members[i].Value = in.expr(n.Members[i].Value)
		}
	case *ast.MemberAccess:
		n.Inner = in.expr(n.Inner)
	case *ast.ArrayInit:
		for i, el := range n.Elements {
			n.Elements[i] = in.expr(el)
		}
	case *ast.Repeat:
		n.Value = in.expr(n.Value)
		n.Count = in.expr(n.Count)
	case *ast.ArrayAccess:
		n.Array = in.expr(n.Array)
		n.Index = in.expr(n.Index)
	case *ast.TupleExpr:
		for i, el := range n.Elements {
			n.Elements[i] = in.expr(el)
		}
	case *ast.TupleAccess:
		n.Tuple = in.expr(n.Tuple)
	}
	return e
}

func (in *inliner) inlinable(n *ast.Call) bool {
	if n.Program != "" && n.Program != in.scope.Name {
		return false
	}
	target := in.scope.Function(n.Function)
	return target != nil && target.Variant == ast.VariantFunction &&
		target.Body != nil && !target.IsGeneric() && !in.recursive[target.Name]
}

// inlineCall splices the callee body into the prelude and returns the
// expression standing for the call's value (nil for unit helpers).
func (in *inliner) inlineCall(call *ast.Call) ast.Expression {
	callee := in.scope.Function(call.Function)
	in.instance++

	subst := make(map[string]ast.Expression, len(callee.Params))
	for i, p := range callee.Params {
		if i >= len(call.Args) {
			break
		}
		arg := call.Args[i]
		switch arg.(type) {
		case *ast.Identifier, *ast.Literal:
			subst[p.Name] = arg
		default:
			// Bind the argument once so substitution cannot re-evaluate it.
			name := fmt.Sprintf("%s$i%d", p.Name, in.instance)
			argT := in.tt.Get(arg.ID())
			place := &ast.Identifier{Meta: ast.NewMeta(in.counter, arg.Span()), Name: name}
			ref := &ast.Identifier{Meta: ast.NewMeta(in.counter, arg.Span()), Name: name}
			if argT != nil {
				in.tt.Insert(place.ID(), argT)
				in.tt.Insert(ref.ID(), argT)
			}
			in.prelude = append(in.prelude, &ast.Assign{
				Meta:  ast.NewMeta(in.counter, arg.Span()),
				Place: place,
				Value: arg,
			})
			subst[p.Name] = ref
		}
	}

	cl := ast.NewCloner(in.counter).WithSubst(subst)
	body := cl.Block(callee.Body)
	for old, fresh := range cl.Remap {
		in.tt.Copy(old, fresh)
	}
	in.freshenLocals(body)

	stmts := body.Statements
	var result ast.Expression
	if len(stmts) > 0 {
		if ret, ok := stmts[len(stmts)-1].(*ast.Return); ok {
			result = ret.Value
			stmts = stmts[:len(stmts)-1]
		}
	}
	in.prelude = append(in.prelude, stmts...)
	return result
}

// freshenLocals suffixes every name the spliced body assigns, so two
// expansions of the same helper never collide in the caller's namespace.
func (in *inliner) freshenLocals(body *ast.Block) {
	locals := make(map[string]string)
	var collectPlace func(e ast.Expression)
	collectPlace = func(e ast.Expression) {
		switch n := e.(type) {
		case *ast.Identifier:
			if _, ok := locals[n.Name]; !ok {
				locals[n.Name] = fmt.Sprintf("%s$i%d", n.Name, in.instance)
			}
		case *ast.TupleExpr:
			for _, el := range n.Elements {
				collectPlace(el)
			}
		}
	}
	var collect func(s ast.Statement)
	collect = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.Assign:
			collectPlace(n.Place)
		case *ast.Block:
			for _, inner := range n.Statements {
				collect(inner)
			}
		}
	}
	for _, s := range body.Statements {
		collect(s)
	}

	var renameExpr func(e ast.Expression)
	renameExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case nil:
		case *ast.Identifier:
			if fresh, ok := locals[n.Name]; ok {
				n.Name = fresh
			}
		case *ast.Binary:
			renameExpr(n.Left)
			renameExpr(n.Right)
		case *ast.Unary:
			renameExpr(n.Operand)
		case *ast.Ternary:
			renameExpr(n.Condition)
			renameExpr(n.IfTrue)
			renameExpr(n.IfFalse)
		case *ast.Cast:
			renameExpr(n.Value)
		case *ast.Call:
			for _, a := range n.Args {
				renameExpr(a)
			}
		case *ast.AssociatedCall:
			args := n.Args
			if n.Fn.TakesDeclaration() && len(args) > 0 {
				args = args[1:]
			}
			for _, a := range args {
				renameExpr(a)
			}
		case *ast.Await:
			renameExpr(n.Future)
		case *ast.CompositeInit:
			for i := range n.Members {
				renameExpr(n.Members[i].Value)
			}
		case *ast.MemberAccess:
			renameExpr(n.Inner)
		case *ast.ArrayInit:
			for _, el := range n.Elements {
				renameExpr(el)
			}
		case *ast.Repeat:
			renameExpr(n.Value)
			renameExpr(n.Count)
		case *ast.ArrayAccess:
			renameExpr(n.Array)
			renameExpr(n.Index)
		case *ast.TupleExpr:
			for _, el := range n.Elements {
				renameExpr(el)
			}
		case *ast.TupleAccess:
			renameExpr(n.Tuple)
		}
	}
	var rename func(s ast.Statement)
	rename = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.Assign:
			renameExpr(n.Place)
			renameExpr(n.Value)
		case *ast.Block:
			for _, inner := range n.Statements {
				rename(inner)
			}
		case *ast.Console:
			for _, a := range n.Args {
				renameExpr(a)
			}
		case *ast.Return:
			renameExpr(n.Value)
		case *ast.ExprStatement:
			renameExpr(n.Expr)
		}
	}
	for _, s := range body.Statements {
		rename(s)
	}
}
