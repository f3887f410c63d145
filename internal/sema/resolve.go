package sema

import (
	"strings"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
)

// ResolvePaths verifies that every named type, call target and finalizer
// reference resolves against the freshly collected symbol table. It validates
// reachability only; types are checked later.
func ResolvePaths(prog *ast.Program, syms *symbols.Table, r diag.Reporter) {
	res := &resolver{prog: prog, syms: syms, r: r}
	for _, scope := range prog.Scopes {
		res.scope = scope
		res.programScope(scope)
	}
}

type resolver struct {
	prog  *ast.Program
	syms  *symbols.Table
	r     diag.Reporter
	scope *ast.ProgramScope
}

func (res *resolver) programScope(scope *ast.ProgramScope) {
	for _, st := range scope.Structs {
		for _, m := range st.Members {
			res.typ(m.Type, m.Loc)
		}
	}
	for _, mp := range scope.Mappings {
		res.typ(mp.Key, mp.Span())
		res.typ(mp.Value, mp.Span())
	}
	for _, st := range scope.Storages {
		res.typ(st.Type, st.Span())
	}
	for _, c := range scope.Consts {
		res.typ(c.Type, c.Span())
		res.expr(c.Value)
	}
	for _, fn := range scope.Functions {
		res.function(fn)
	}
	if scope.Constructor != nil {
		res.function(scope.Constructor)
	}
}

func (res *resolver) function(fn *ast.Function) {
	for _, p := range fn.Params {
		res.typ(p.Type, p.Loc)
	}
	res.typ(fn.Output, fn.Span())
	if fn.Variant == ast.VariantAsyncTransition && fn.Finalizer != "" {
		target := res.scope.Function(fn.Finalizer)
		if target == nil || target.Variant != ast.VariantAsyncFunction {
			diag.Errorf(res.r, diag.ResolveUnknownFunction, fn.Span(),
				"async transition '%s' names unknown finalizer '%s'", fn.Name, fn.Finalizer)
		}
	}
	if fn.Body != nil {
		res.block(fn.Body)
	}
}

func (res *resolver) block(b *ast.Block) {
	for _, s := range b.Statements {
		res.stmt(s)
	}
}

func (res *resolver) stmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Definition:
		res.typ(n.Type, n.Span())
		res.expr(n.Value)
	case *ast.Assign:
		res.expr(n.Place)
		res.expr(n.Value)
	case *ast.Block:
		res.block(n)
	case *ast.Conditional:
		res.expr(n.Condition)
		res.block(n.Then)
		if n.Otherwise != nil {
			res.stmt(n.Otherwise)
		}
	case *ast.Console:
		for _, a := range n.Args {
			res.expr(a)
		}
	case *ast.Iteration:
		res.typ(n.VarType, n.Span())
		res.expr(n.Start)
		res.expr(n.Stop)
		res.block(n.Body)
	case *ast.Return:
		res.expr(n.Value)
	case *ast.ExprStatement:
		res.expr(n.Expr)
	}
}

func (res *resolver) expr(e ast.Expression) {
	switch n := e.(type) {
	case nil, *ast.Literal, *ast.Identifier:
	case *ast.Binary:
		res.expr(n.Left)
		res.expr(n.Right)
	case *ast.Unary:
		res.expr(n.Operand)
	case *ast.Ternary:
		res.expr(n.Condition)
		res.expr(n.IfTrue)
		res.expr(n.IfFalse)
	case *ast.Cast:
		res.expr(n.Value)
		res.typ(n.To, n.Span())
	case *ast.Call:
		res.call(n)
	case *ast.AssociatedCall:
		res.typ(n.Of, n.Span())
		for _, a := range n.Args {
			res.expr(a)
		}
	case *ast.Await:
		res.expr(n.Future)
	case *ast.CompositeInit:
		res.compositeName(n.Name, n.Span())
		for _, a := range n.ConstArgs {
			res.expr(a)
		}
		for _, m := range n.Members {
			res.expr(m.Value)
		}
	case *ast.MemberAccess:
		res.expr(n.Inner)
	case *ast.ArrayInit:
		for _, el := range n.Elements {
			res.expr(el)
		}
	case *ast.Repeat:
		res.expr(n.Value)
		res.expr(n.Count)
	case *ast.ArrayAccess:
		res.expr(n.Array)
		res.expr(n.Index)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			res.expr(el)
		}
	case *ast.TupleAccess:
		res.expr(n.Tuple)
	}
}

func (res *resolver) call(n *ast.Call) {
	program := n.Program
	if program == "" {
		program = res.scope.Name
	} else if res.prog.Scope(program) == nil {
		diag.Errorf(res.r, diag.ResolveUnknownProgram, n.Span(),
			"unknown program '%s'", program)
		return
	}
	loc := symbols.Location{Program: program, Name: n.Function}
	if res.syms.LookupFunction(loc) == nil {
		diag.Errorf(res.r, diag.ResolveUnknownFunction, n.Span(),
			"unknown function '%s' in program '%s'", n.Function, program)
	}
	for _, a := range n.ConstArgs {
		res.expr(a)
	}
	for _, a := range n.Args {
		res.expr(a)
	}
}

func (res *resolver) compositeName(name string, sp source.Span) {
	// Specialized names reference their generic base until monomorphization
	// has synthesized the concrete definition.
	base := name
	if i := strings.Index(base, "::["); i >= 0 {
		if res.syms.LookupStruct(res.scope.Name, base) != nil {
			return
		}
		base = base[:i]
	}
	if res.syms.LookupStruct(res.scope.Name, base) == nil {
		diag.Errorf(res.r, diag.ResolveUnknownStruct, sp,
			"unknown struct '%s' in program '%s'", base, res.scope.Name)
	}
}

func (res *resolver) typ(t ast.Type, sp source.Span) {
	switch n := t.(type) {
	case nil:
	case ast.NamedType:
		if n.Program != "" && res.prog.Scope(n.Program) == nil {
			diag.Errorf(res.r, diag.ResolveUnknownProgram, sp, "unknown program '%s'", n.Program)
			return
		}
		program := n.Program
		if program == "" {
			program = res.scope.Name
		}
		base := n.Name
		if i := strings.Index(base, "::["); i >= 0 {
			if res.syms.LookupStruct(program, base) != nil {
				return
			}
			base = base[:i]
		}
		if res.syms.LookupStruct(program, base) == nil {
			diag.Errorf(res.r, diag.ResolveUnknownType, sp,
				"unknown type '%s' in program '%s'", n.Name, program)
		}
		for _, a := range n.ConstArgs {
			res.expr(a)
		}
	case ast.ArrayType:
		res.typ(n.Elem, sp)
		res.expr(n.Length)
	case ast.TupleType:
		for _, e := range n.Elems {
			res.typ(e, sp)
		}
	case ast.OptionType:
		res.typ(n.Inner, sp)
	}
}
