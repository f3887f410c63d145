// Package mono implements monomorphization of const-generic structs and
// functions. Every use site whose const arguments have folded to literals is
// rewritten to name a concrete specialization (`Pair::[2u8]`), and the
// specialization itself is synthesized on first use by cloning the generic
// declaration with its const parameters substituted. Use sites whose
// arguments are still symbolic are recorded for the fixed-point driver.
package mono

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/value"
)

// maxSpecializations bounds the specializations minted in a single run so a
// self-referential generic cannot spin the worklist forever.
const maxSpecializations = 1024

// Result reports what the pass did and which use sites remain symbolic.
type Result struct {
	Changed         bool
	UnresolvedSites []source.Span
}

// Run specializes every resolvable generic use site, mutating the tree in
// place. Specializations are memoized through the tree itself: a second use
// of the same mangled name reuses the declaration minted for the first.
func Run(prog *ast.Program, counter *ast.Counter, r diag.Reporter) Result {
	m := &specializer{counter: counter, r: r}
	for _, scope := range prog.Scopes {
		m.scope = scope
		for _, st := range scope.Structs {
			if !st.IsGeneric() {
				m.structDecl(st)
			}
		}
		for _, decl := range scope.Consts {
			decl.Type = m.typ(decl.Type)
			m.expr(decl.Value)
		}
		for _, mp := range scope.Mappings {
			mp.Key = m.typ(mp.Key)
			mp.Value = m.typ(mp.Value)
		}
		for _, st := range scope.Storages {
			st.Type = m.typ(st.Type)
		}
		worklist := make([]*ast.Function, 0, len(scope.Functions)+1)
		for _, fn := range scope.Functions {
			if !fn.IsGeneric() {
				worklist = append(worklist, fn)
			}
		}
		if scope.Constructor != nil {
			worklist = append(worklist, scope.Constructor)
		}
		for len(worklist) > 0 {
			fn := worklist[0]
			worklist = worklist[1:]
			m.pending = &worklist
			m.function(fn)
		}
		m.pending = nil
	}
	return m.res
}

type specializer struct {
	counter *ast.Counter
	r       diag.Reporter
	scope   *ast.ProgramScope
	pending *[]*ast.Function
	minted  int
	res     Result
}

func (m *specializer) structDecl(st *ast.Struct) {
	for _, member := range st.Members {
		member.Type = m.typ(member.Type)
	}
}

func (m *specializer) function(fn *ast.Function) {
	for _, p := range fn.Params {
		p.Type = m.typ(p.Type)
	}
	fn.Output = m.typ(fn.Output)
	if fn.Body != nil {
		m.block(fn.Body)
	}
}

func (m *specializer) block(b *ast.Block) {
	for _, s := range b.Statements {
		m.statement(s)
	}
}

func (m *specializer) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Definition:
		n.Type = m.typ(n.Type)
		m.expr(n.Value)
	case *ast.Assign:
		m.expr(n.Place)
		m.expr(n.Value)
	case *ast.Block:
		m.block(n)
	case *ast.Conditional:
		m.expr(n.Condition)
		m.block(n.Then)
		if n.Otherwise != nil {
			m.statement(n.Otherwise)
		}
	case *ast.Console:
		for _, a := range n.Args {
			m.expr(a)
		}
	case *ast.Iteration:
		n.VarType = m.typ(n.VarType)
		m.expr(n.Start)
		m.expr(n.Stop)
		m.block(n.Body)
	case *ast.Return:
		m.expr(n.Value)
	case *ast.ExprStatement:
		m.expr(n.Expr)
	}
}

func (m *specializer) expr(e ast.Expression) {
	switch n := e.(type) {
	case nil:
	case *ast.Binary:
		m.expr(n.Left)
		m.expr(n.Right)
	case *ast.Unary:
		m.expr(n.Operand)
	case *ast.Ternary:
		m.expr(n.Condition)
		m.expr(n.IfTrue)
		m.expr(n.IfFalse)
	case *ast.Cast:
		m.expr(n.Value)
		n.To = m.typ(n.To)
	case *ast.Call:
		m.call(n)
	case *ast.AssociatedCall:
		n.Of = m.typ(n.Of)
		for _, a := range n.Args {
			m.expr(a)
		}
	case *ast.Await:
		m.expr(n.Future)
	case *ast.CompositeInit:
		m.compositeInit(n)
	case *ast.MemberAccess:
		m.expr(n.Inner)
	case *ast.ArrayInit:
		for _, el := range n.Elements {
			m.expr(el)
		}
	case *ast.Repeat:
		m.expr(n.Value)
		m.expr(n.Count)
	case *ast.ArrayAccess:
		m.expr(n.Array)
		m.expr(n.Index)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			m.expr(el)
		}
	case *ast.TupleAccess:
		m.expr(n.Tuple)
	}
}

func (m *specializer) call(n *ast.Call) {
	for _, a := range n.Args {
		m.expr(a)
	}
	if len(n.ConstArgs) == 0 {
		return
	}
	target := m.scope
	if n.Program != "" && n.Program != m.scope.Name {
		// Cross-program calls only reach transitions, which carry no const
		// parameters; leave resolution to report the error.
		return
	}
	generic := target.Function(n.Function)
	if generic == nil || !generic.IsGeneric() {
		return
	}
	vals, ok := literalValues(n.ConstArgs)
	if !ok || len(vals) != len(generic.ConstParams) {
		m.res.UnresolvedSites = append(m.res.UnresolvedSites, n.Span())
		return
	}
	mangled := value.MangleName(n.Function, vals)
	m.ensureFunction(generic, mangled, n.ConstArgs)
	n.Function = mangled
	n.ConstArgs = nil
	m.res.Changed = true
}

func (m *specializer) compositeInit(n *ast.CompositeInit) {
	for i := range n.Members {
		m.expr(n.Members[i].Value)
	}
	if len(n.ConstArgs) == 0 {
		return
	}
	generic := m.scope.Struct(n.Name)
	if generic == nil || !generic.IsGeneric() {
		return
	}
	vals, ok := literalValues(n.ConstArgs)
	if !ok || len(vals) != len(generic.ConstParams) {
		m.res.UnresolvedSites = append(m.res.UnresolvedSites, n.Span())
		return
	}
	mangled := value.MangleName(n.Name, vals)
	m.ensureStruct(generic, mangled, n.ConstArgs)
	n.Name = mangled
	n.ConstArgs = nil
	m.res.Changed = true
}

// typ rewrites generic named types inside an annotation, specializing the
// referenced struct when the const arguments are literal.
func (m *specializer) typ(t ast.Type) ast.Type {
	switch n := t.(type) {
	case ast.NamedType:
		if len(n.ConstArgs) == 0 {
			return n
		}
		if n.Program != "" && n.Program != m.scope.Name {
			return n
		}
		generic := m.scope.Struct(n.Name)
		if generic == nil || !generic.IsGeneric() {
			return n
		}
		vals, ok := literalValues(n.ConstArgs)
		if !ok || len(vals) != len(generic.ConstParams) {
			if site := firstSpan(n.ConstArgs); !site.Empty() {
				m.res.UnresolvedSites = append(m.res.UnresolvedSites, site)
			}
			return n
		}
		mangled := value.MangleName(n.Name, vals)
		m.ensureStruct(generic, mangled, n.ConstArgs)
		m.res.Changed = true
		return ast.NamedType{Program: n.Program, Name: mangled}
	case ast.ArrayType:
		n.Elem = m.typ(n.Elem)
		return n
	case ast.TupleType:
		for i, e := range n.Elems {
			n.Elems[i] = m.typ(e)
		}
		return n
	case ast.OptionType:
		n.Inner = m.typ(n.Inner)
		return n
	}
	return t
}

// ensureFunction mints the specialization when the scope does not already
// carry it, and queues its body for further specialization.
func (m *specializer) ensureFunction(generic *ast.Function, mangled string, args []ast.Expression) {
	if m.scope.Function(mangled) != nil {
		return
	}
	if !m.budget(generic.Span()) {
		return
	}
	cl := ast.NewCloner(m.counter).WithSubst(constSubst(generic.ConstParams, args))
	spec := cl.Function(generic)
	spec.Name = mangled
	spec.ConstParams = nil
	m.scope.Functions = append(m.scope.Functions, spec)
	if m.pending != nil {
		*m.pending = append(*m.pending, spec)
	}
}

func (m *specializer) ensureStruct(generic *ast.Struct, mangled string, args []ast.Expression) {
	if m.scope.Struct(mangled) != nil {
		return
	}
	if !m.budget(generic.Span()) {
		return
	}
	cl := ast.NewCloner(m.counter).WithSubst(constSubst(generic.ConstParams, args))
	spec := cl.Struct(generic)
	spec.Name = mangled
	spec.ConstParams = nil
	m.scope.Structs = append(m.scope.Structs, spec)
	m.structDecl(spec)
}

func (m *specializer) budget(sp source.Span) bool {
	m.minted++
	if m.minted == maxSpecializations+1 {
		diag.Errorf(m.r, diag.InternalError, sp,
			"specialization limit of %d exceeded; a generic likely references itself with fresh arguments",
			maxSpecializations)
	}
	return m.minted <= maxSpecializations
}

func constSubst(params []*ast.ConstParam, args []ast.Expression) map[string]ast.Expression {
	subst := make(map[string]ast.Expression, len(params))
	for i, p := range params {
		subst[p.Name] = args[i]
	}
	return subst
}

func literalValues(exprs []ast.Expression) ([]value.Value, bool) {
	vals := make([]value.Value, len(exprs))
	for i, e := range exprs {
		lit, ok := e.(*ast.Literal)
		if !ok {
			return nil, false
		}
		v, err := value.FromLiteral(lit)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func firstSpan(exprs []ast.Expression) source.Span {
	for _, e := range exprs {
		if !ast.IsLiteral(e) {
			return e.Span()
		}
	}
	return source.Span{}
}
