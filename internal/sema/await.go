package sema

import (
	"sort"
	"strings"

	"lumen/internal/ast"
	"lumen/internal/diag"
)

// maxAwaitStates caps the per-path state fan-out of the await analysis; the
// cap only matters for pathologically branchy finalize bodies.
const maxAwaitStates = 64

// analyzeAwaits enforces the await discipline on an async function: every
// future input must be consumed by an await exactly once on every
// control-flow path. Paths with duplicates are diagnosed as they are found;
// the violation is fatal only when no path awaits the full set exactly once.
func (c *Checker) analyzeAwaits(fn *ast.Function) {
	futures := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		if _, ok := p.Type.(ast.FutureType); ok {
			futures = append(futures, p.Name)
		}
	}
	if len(futures) == 0 {
		return
	}

	a := &awaitAnalysis{checker: c, futures: futures}
	states := a.block(fn.Body, []awaitCounts{{}})

	for _, st := range states {
		if a.satisfied(st) {
			return
		}
	}
	missing := a.unawaited(states)
	diag.Errorf(c.r, diag.TypeAwaitMissing, fn.Span(),
		"async function '%s' has no path awaiting every future exactly once (unawaited: %s)",
		fn.Name, strings.Join(missing, ", "))
}

type awaitCounts map[string]int

func (m awaitCounts) clone() awaitCounts {
	out := make(awaitCounts, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type awaitAnalysis struct {
	checker *Checker
	futures []string
}

func (a *awaitAnalysis) isFuture(name string) bool {
	for _, f := range a.futures {
		if f == name {
			return true
		}
	}
	return false
}

func (a *awaitAnalysis) satisfied(st awaitCounts) bool {
	for _, f := range a.futures {
		if st[f] != 1 {
			return false
		}
	}
	return true
}

func (a *awaitAnalysis) unawaited(states []awaitCounts) []string {
	missing := make(map[string]bool)
	for _, f := range a.futures {
		for _, st := range states {
			if st[f] == 0 {
				missing[f] = true
			}
		}
	}
	out := make([]string, 0, len(missing))
	for f := range missing {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (a *awaitAnalysis) block(b *ast.Block, states []awaitCounts) []awaitCounts {
	if b == nil {
		return states
	}
	return a.statements(b.Statements, states)
}

func (a *awaitAnalysis) statements(list []ast.Statement, states []awaitCounts) []awaitCounts {
	for _, s := range list {
		states = a.statement(s, states)
	}
	return states
}

func (a *awaitAnalysis) statement(s ast.Statement, states []awaitCounts) []awaitCounts {
	switch n := s.(type) {
	case *ast.Conditional:
		thenStates := a.block(n.Then, cloneAll(states))
		var elseStates []awaitCounts
		if n.Otherwise != nil {
			elseStates = a.statement(n.Otherwise, cloneAll(states))
		} else {
			elseStates = states
		}
		merged := append(thenStates, elseStates...)
		if len(merged) > maxAwaitStates {
			merged = merged[:maxAwaitStates]
		}
		return merged
	case *ast.Block:
		return a.block(n, states)
	case *ast.Iteration:
		// Bounded loops are unrolled before this analysis can matter; a
		// still-rolled loop body is scanned once.
		return a.block(n.Body, states)
	case *ast.Definition:
		return a.expr(n.Value, states)
	case *ast.Assign:
		return a.expr(n.Value, states)
	case *ast.Console:
		for _, arg := range n.Args {
			states = a.expr(arg, states)
		}
		return states
	case *ast.Return:
		return a.expr(n.Value, states)
	case *ast.ExprStatement:
		return a.expr(n.Expr, states)
	}
	return states
}

// expr records awaits of future parameters. Awaits only ever appear on plain
// identifiers by this stage; anything deeper is scanned conservatively.
func (a *awaitAnalysis) expr(e ast.Expression, states []awaitCounts) []awaitCounts {
	switch n := e.(type) {
	case nil:
		return states
	case *ast.Await:
		if ident, ok := n.Future.(*ast.Identifier); ok && a.isFuture(ident.Name) {
			for _, st := range states {
				st[ident.Name]++
				if st[ident.Name] == 2 {
					diag.Warningf(a.checker.r, diag.TypeAwaitDuplicate, n.Span(),
						"future '%s' may be awaited more than once on this path", ident.Name)
				}
			}
		}
		return states
	case *ast.Binary:
		return a.expr(n.Right, a.expr(n.Left, states))
	case *ast.Unary:
		return a.expr(n.Operand, states)
	case *ast.Ternary:
		states = a.expr(n.Condition, states)
		states = a.expr(n.IfTrue, states)
		return a.expr(n.IfFalse, states)
	case *ast.Cast:
		return a.expr(n.Value, states)
	case *ast.Call:
		for _, arg := range n.Args {
			states = a.expr(arg, states)
		}
		return states
	case *ast.AssociatedCall:
		for _, arg := range n.Args {
			states = a.expr(arg, states)
		}
		return states
	case *ast.CompositeInit:
		for _, m := range n.Members {
			states = a.expr(m.Value, states)
		}
		return states
	case *ast.MemberAccess:
		return a.expr(n.Inner, states)
	case *ast.ArrayInit:
		for _, el := range n.Elements {
			states = a.expr(el, states)
		}
		return states
	case *ast.Repeat:
		return a.expr(n.Count, a.expr(n.Value, states))
	case *ast.ArrayAccess:
		return a.expr(n.Index, a.expr(n.Array, states))
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			states = a.expr(el, states)
		}
		return states
	case *ast.TupleAccess:
		return a.expr(n.Tuple, states)
	}
	return states
}

func cloneAll(states []awaitCounts) []awaitCounts {
	out := make([]awaitCounts, len(states))
	for i, st := range states {
		out[i] = st.clone()
	}
	return out
}

// checkFinalizerShape flags a multi-future async transition whose finalizer
// itself takes a future argument: the emitter cannot order the nested
// resolution deterministically.
func (c *Checker) checkFinalizerShape(fn *ast.Function) {
	if fn.Finalizer == "" || fn.Body == nil {
		return
	}
	finalizer := c.scope.Function(fn.Finalizer)
	if finalizer == nil {
		return
	}
	takesFuture := false
	for _, p := range finalizer.Params {
		if _, ok := p.Type.(ast.FutureType); ok {
			takesFuture = true
			break
		}
	}
	if !takesFuture {
		return
	}
	if countFutureCalls(c, fn.Body) > 1 {
		diag.Errorf(c.r, diag.TypeFinalizerTakesFuture, fn.Span(),
			"async transition '%s' produces multiple futures but finalizer '%s' takes a future argument",
			fn.Name, fn.Finalizer)
	}
}

func countFutureCalls(c *Checker, b *ast.Block) int {
	count := 0
	var scanStmt func(ast.Statement)
	var scanExpr func(ast.Expression)
	scanExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case nil:
		case *ast.Call:
			program := n.Program
			if program == "" {
				program = c.scope.Name
			}
			if target := c.prog.Scope(program); target != nil {
				if fn := target.Function(n.Function); fn != nil && fn.Variant.IsAsync() {
					count++
				}
			}
			for _, a := range n.Args {
				scanExpr(a)
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
			for _, m := range n.Members {
				scanExpr(m.Value)
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
	for _, s := range b.Statements {
		scanStmt(s)
	}
	return count
}
