// Package unroll rewrites bounded iteration statements into straight-line
// code: one copy of the loop body per index, with the iteration variable bound
// to the index literal inside each copy. Loops whose bounds have not folded to
// literals yet are left in place and their spans recorded; the fixed-point
// driver retries them after the next constant-propagation round.
package unroll

import (
	"math/big"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/value"
)

// Result reports what the pass did and which loop bounds remain symbolic.
type Result struct {
	Changed          bool
	UnresolvedBounds []source.Span
}

// Run unrolls every loop with literal bounds, mutating the tree in place.
func Run(prog *ast.Program, counter *ast.Counter, r diag.Reporter) Result {
	u := &unroller{counter: counter, r: r}
	for _, scope := range prog.Scopes {
		for _, fn := range scope.Functions {
			if fn.IsGeneric() || fn.Body == nil {
				continue
			}
			u.block(fn.Body)
		}
		if scope.Constructor != nil && scope.Constructor.Body != nil {
			u.block(scope.Constructor.Body)
		}
	}
	return u.res
}

type unroller struct {
	counter *ast.Counter
	r       diag.Reporter
	res     Result
}

func (u *unroller) block(b *ast.Block) {
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		out = append(out, u.statement(s)...)
	}
	b.Statements = out
}

// statement returns the replacement list for a statement: the statement
// itself for everything but an unrollable loop.
func (u *unroller) statement(s ast.Statement) []ast.Statement {
	switch n := s.(type) {
	case *ast.Iteration:
		return u.iteration(n)
	case *ast.Block:
		u.block(n)
	case *ast.Conditional:
		u.block(n.Then)
		if n.Otherwise != nil {
			// The else arm is a block or a chained conditional; neither can
			// expand into multiple statements.
			u.statement(n.Otherwise)
		}
	}
	return []ast.Statement{s}
}

func (u *unroller) iteration(n *ast.Iteration) []ast.Statement {
	start, startOK := literalInt(n.Start)
	stop, stopOK := literalInt(n.Stop)
	if !startOK || !stopOK {
		u.res.UnresolvedBounds = append(u.res.UnresolvedBounds, n.Span())
		// Nested loops may still have literal bounds; make what progress we
		// can inside the rolled body.
		u.block(n.Body)
		return []ast.Statement{n}
	}

	width := ast.PrimU32
	if prim, ok := n.VarType.(ast.PrimitiveType); ok && prim.Kind.IsInteger() {
		width = prim.Kind
	}

	var out []ast.Statement
	one := big.NewInt(1)
	for i := new(big.Int).Set(start.Int); ; i.Add(i, one) {
		cmp := i.Cmp(stop.Int)
		if cmp > 0 || (cmp == 0 && !n.Inclusive) {
			break
		}
		index := value.NewInt(width, i)
		lit := index.ToLiteral(u.counter, n.Variable.Span())
		cl := ast.NewCloner(u.counter).WithSubst(map[string]ast.Expression{
			n.Variable.Name: lit,
		})
		body := cl.Block(n.Body)
		u.block(body)
		out = append(out, body)
	}
	if len(out) == 0 {
		diag.Warningf(u.r, diag.LowerLoopRangeEmpty, n.Span(),
			"loop over %s..%s never executes", start, stop)
	}
	u.res.Changed = true
	return out
}

func literalInt(e ast.Expression) (value.Value, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return value.Value{}, false
	}
	v, err := value.FromLiteral(lit)
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}
