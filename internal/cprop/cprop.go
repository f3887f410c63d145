// Package cprop implements constant propagation: folding of unary, binary,
// cast, ternary and foldable core-function expressions whose operands are
// literals or already-folded constants, and registration of folded const
// bindings in the symbol table.
//
// Expressions that fail to reduce are not errors here. Their spans are
// recorded in the Result; the fixed-point driver raises them only if they
// are still unresolved once the pipeline converges, since a later unrolling
// or monomorphization round may make them evaluable.
package cprop

import (
	"errors"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/types"
	"lumen/internal/value"
)

// Result reports what the pass did and what it could not yet reduce.
type Result struct {
	Changed           bool
	UnresolvedConsts  []source.Span
	UnresolvedLengths []source.Span
	UnresolvedIndices []source.Span
	UnresolvedRepeats []source.Span
}

// Run folds constants across the whole program, mutating the tree in place.
func Run(prog *ast.Program, syms *symbols.Table, tt *types.Table, counter *ast.Counter, r diag.Reporter) Result {
	p := &propagator{syms: syms, tt: tt, counter: counter, r: r}
	for _, scope := range prog.Scopes {
		p.scope = scope
		syms.EnterScope(scope.ID())
		p.programConsts(scope)
		for _, st := range scope.Structs {
			if !st.IsGeneric() {
				p.structTypes(st)
			}
		}
		for _, fn := range scope.Functions {
			p.function(fn)
		}
		if scope.Constructor != nil {
			p.function(scope.Constructor)
		}
		syms.EnterParent()
	}
	return p.res
}

type propagator struct {
	syms    *symbols.Table
	tt      *types.Table
	counter *ast.Counter
	r       diag.Reporter
	scope   *ast.ProgramScope
	res     Result
}

func (p *propagator) programConsts(scope *ast.ProgramScope) {
	for _, decl := range scope.Consts {
		decl.Value = p.expr(decl.Value)
		decl.Type = p.typ(decl.Type)
		lit, ok := decl.Value.(*ast.Literal)
		if !ok {
			p.res.UnresolvedConsts = append(p.res.UnresolvedConsts, decl.Span())
			continue
		}
		p.register(decl.Name, lit)
	}
}

// register binds a folded constant in the current scope, creating the symbol
// when collection has not yet seen the enclosing block this round.
func (p *propagator) register(name string, lit *ast.Literal) {
	scope := p.syms.Current()
	sym := scope.Local(name)
	if sym == nil {
		sym = &symbols.VariableSymbol{Name: name, Kind: ast.DeclConst, Span: lit.Span()}
		scope.Insert(sym)
	}
	if sym.Value == nil {
		sym.Value = lit
		p.res.Changed = true
	}
}

func (p *propagator) structTypes(st *ast.Struct) {
	for _, m := range st.Members {
		m.Type = p.typ(m.Type)
	}
}

func (p *propagator) function(fn *ast.Function) {
	if fn.IsGeneric() || fn.Body == nil {
		return
	}
	for _, param := range fn.Params {
		param.Type = p.typ(param.Type)
	}
	fn.Output = p.typ(fn.Output)
	p.block(fn.Body)
}

func (p *propagator) block(b *ast.Block) {
	p.syms.EnterScope(b.ID())
	for _, s := range b.Statements {
		p.statement(s)
	}
	p.syms.EnterParent()
}

func (p *propagator) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Definition:
		n.Value = p.expr(n.Value)
		n.Type = p.typ(n.Type)
		if n.Kind == ast.DeclConst && len(n.Targets) == 1 {
			if lit, ok := n.Value.(*ast.Literal); ok {
				p.register(n.Targets[0].Name, lit)
			} else {
				p.res.UnresolvedConsts = append(p.res.UnresolvedConsts, n.Span())
			}
		}
	case *ast.Assign:
		n.Value = p.expr(n.Value)
	case *ast.Block:
		p.block(n)
	case *ast.Conditional:
		n.Condition = p.expr(n.Condition)
		p.block(n.Then)
		if n.Otherwise != nil {
			p.statement(n.Otherwise)
		}
	case *ast.Console:
		for i, a := range n.Args {
			n.Args[i] = p.expr(a)
		}
	case *ast.Iteration:
		n.Start = p.expr(n.Start)
		n.Stop = p.expr(n.Stop)
		n.VarType = p.typ(n.VarType)
		p.block(n.Body)
	case *ast.Return:
		if n.Value != nil {
			n.Value = p.expr(n.Value)
		}
	case *ast.ExprStatement:
		n.Expr = p.expr(n.Expr)
	}
}

// expr folds an expression bottom-up, returning the (possibly replaced) node.
func (p *propagator) expr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Literal:
		return n
	case *ast.Identifier:
		if sym := p.syms.LookupVariable(n.Name); sym.IsFoldedConst() {
			return p.replaceWithLiteral(n, sym.Value)
		}
		return n
	case *ast.Binary:
		n.Left = p.expr(n.Left)
		n.Right = p.expr(n.Right)
		return p.foldBinary(n)
	case *ast.Unary:
		n.Operand = p.expr(n.Operand)
		return p.foldUnary(n)
	case *ast.Ternary:
		n.Condition = p.expr(n.Condition)
		n.IfTrue = p.expr(n.IfTrue)
		n.IfFalse = p.expr(n.IfFalse)
		// Only the condition needs to be constant.
		if lit, ok := n.Condition.(*ast.Literal); ok && lit.Kind == ast.LitBool {
			p.res.Changed = true
			if lit.BoolValue() {
				return n.IfTrue
			}
			return n.IfFalse
		}
		return n
	case *ast.Cast:
		n.Value = p.expr(n.Value)
		n.To = p.typ(n.To)
		return p.foldCast(n)
	case *ast.Call:
		for i, a := range n.ConstArgs {
			n.ConstArgs[i] = p.expr(a)
		}
		for i, a := range n.Args {
			n.Args[i] = p.expr(a)
		}
		return n
	case *ast.AssociatedCall:
		return p.foldAssociated(n)
	case *ast.Await:
		n.Future = p.expr(n.Future)
		return n
	case *ast.CompositeInit:
		for i, a := range n.ConstArgs {
			n.ConstArgs[i] = p.expr(a)
		}
		for i := range n.Members {
			n.Members[i].Value = p.expr(n.Members[i].Value)
		}
		return n
	case *ast.MemberAccess:
		n.Inner = p.expr(n.Inner)
		return n
	case *ast.ArrayInit:
		for i, el := range n.Elements {
			n.Elements[i] = p.expr(el)
		}
		return n
	case *ast.Repeat:
		n.Value = p.expr(n.Value)
		n.Count = p.expr(n.Count)
		if !ast.IsLiteral(n.Count) {
			p.res.UnresolvedRepeats = append(p.res.UnresolvedRepeats, n.Count.Span())
		}
		return n
	case *ast.ArrayAccess:
		n.Array = p.expr(n.Array)
		n.Index = p.expr(n.Index)
		if !ast.IsLiteral(n.Index) {
			p.res.UnresolvedIndices = append(p.res.UnresolvedIndices, n.Index.Span())
		}
		return n
	case *ast.TupleExpr:
		for i, el := range n.Elements {
			n.Elements[i] = p.expr(el)
		}
		return n
	case *ast.TupleAccess:
		n.Tuple = p.expr(n.Tuple)
		return n
	}
	return e
}

// typ folds the const expressions embedded in a type annotation.
func (p *propagator) typ(t ast.Type) ast.Type {
	switch n := t.(type) {
	case ast.NamedType:
		for i, a := range n.ConstArgs {
			n.ConstArgs[i] = p.expr(a)
		}
		return n
	case ast.ArrayType:
		n.Elem = p.typ(n.Elem)
		n.Length = p.expr(n.Length)
		if !ast.IsLiteral(n.Length) {
			p.res.UnresolvedLengths = append(p.res.UnresolvedLengths, n.Length.Span())
		}
		return n
	case ast.TupleType:
		for i, e := range n.Elems {
			n.Elems[i] = p.typ(e)
		}
		return n
	case ast.OptionType:
		n.Inner = p.typ(n.Inner)
		return n
	}
	return t
}

func (p *propagator) replaceWithLiteral(old ast.Expression, lit *ast.Literal) ast.Expression {
	fresh := &ast.Literal{
		Meta:  ast.NewMeta(p.counter, old.Span()),
		Kind:  lit.Kind,
		Width: lit.Width,
		Text:  lit.Text,
	}
	p.insertLiteralType(fresh)
	p.res.Changed = true
	return fresh
}

func (p *propagator) emitValue(old ast.Expression, v value.Value) ast.Expression {
	lit := v.ToLiteral(p.counter, old.Span())
	p.insertLiteralType(lit)
	p.res.Changed = true
	return lit
}

// insertLiteralType records the literal's type so consumers created in this
// round can query it before the next full type-checking pass.
func (p *propagator) insertLiteralType(lit *ast.Literal) {
	switch lit.Kind {
	case ast.LitBool:
		p.tt.Insert(lit.ID(), types.Primitive{Kind: ast.PrimBool})
	case ast.LitInt:
		p.tt.Insert(lit.ID(), types.Primitive{Kind: lit.Width})
	case ast.LitField:
		p.tt.Insert(lit.ID(), types.Primitive{Kind: ast.PrimField})
	case ast.LitAddress:
		p.tt.Insert(lit.ID(), types.Primitive{Kind: ast.PrimAddress})
	}
}

func (p *propagator) foldBinary(n *ast.Binary) ast.Expression {
	left, lok := n.Left.(*ast.Literal)
	right, rok := n.Right.(*ast.Literal)
	if !lok || !rok {
		return n
	}
	a, errA := value.FromLiteral(left)
	b, errB := value.FromLiteral(right)
	if errA != nil || errB != nil {
		return n
	}
	out, err := value.Binary(n.Op, a, b)
	if err != nil {
		p.foldError(err, n.Span())
		return n
	}
	return p.emitValue(n, out)
}

func (p *propagator) foldUnary(n *ast.Unary) ast.Expression {
	lit, ok := n.Operand.(*ast.Literal)
	if !ok {
		return n
	}
	a, err := value.FromLiteral(lit)
	if err != nil {
		return n
	}
	out, err := value.Unary(n.Op, a)
	if err != nil {
		p.foldError(err, n.Span())
		return n
	}
	return p.emitValue(n, out)
}

func (p *propagator) foldCast(n *ast.Cast) ast.Expression {
	lit, ok := n.Value.(*ast.Literal)
	if !ok {
		return n
	}
	prim, ok := n.To.(ast.PrimitiveType)
	if !ok {
		return n
	}
	a, err := value.FromLiteral(lit)
	if err != nil {
		return n
	}
	out, err := value.Cast(a, prim.Kind)
	if err != nil {
		p.foldError(err, n.Span())
		return n
	}
	return p.emitValue(n, out)
}

// foldAssociated folds the foldable core functions; mapping operations,
// randomness and cheat codes never fold.
func (p *propagator) foldAssociated(n *ast.AssociatedCall) ast.Expression {
	for i, a := range n.Args {
		if i == 0 && n.Fn.TakesDeclaration() {
			// The first operand names the declaration, not a constant.
			continue
		}
		n.Args[i] = p.expr(a)
	}
	if !n.Fn.Foldable() || len(n.Args) != 1 {
		return n
	}
	lit, ok := n.Args[0].(*ast.Literal)
	if !ok {
		return n
	}
	a, err := value.FromLiteral(lit)
	if err != nil {
		return n
	}
	out, err := value.FieldInverse(a)
	if err != nil {
		return n
	}
	return p.emitValue(n, out)
}

func (p *propagator) foldError(err error, sp source.Span) {
	switch {
	case errors.Is(err, value.ErrOverflow):
		diag.Errorf(p.r, diag.LowerFoldOverflow, sp, "operation overflows its type")
	case errors.Is(err, value.ErrDivByZero):
		diag.Errorf(p.r, diag.LowerFoldDivByZero, sp, "division by zero")
	}
	// ErrOperand means the combination is simply not foldable.
}
