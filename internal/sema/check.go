package sema

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

// Checker walks the whole program bidirectionally, writing every resolved
// expression type into the type table. Generic (const-parameterized) structs
// and functions are skipped; they are checked once monomorphization has
// produced their concrete copies.
type Checker struct {
	prog  *ast.Program
	syms  *symbols.Table
	tt    *types.Table
	r     diag.Reporter
	scope *ast.ProgramScope
	fn    *ast.Function
	out   types.Type
}

// Check type-checks the program. Diagnostics accumulate through r; the caller
// decides at its checkpoint whether to abort.
func Check(prog *ast.Program, syms *symbols.Table, tt *types.Table, r diag.Reporter) {
	c := &Checker{prog: prog, syms: syms, tt: tt, r: r}
	for _, scope := range prog.Scopes {
		c.scope = scope
		c.syms.EnterScope(scope.ID())
		c.checkConsts(scope)
		for _, fn := range scope.Functions {
			c.checkFunction(fn)
		}
		if scope.Constructor != nil {
			c.checkFunction(scope.Constructor)
		}
		c.syms.EnterParent()
	}
}

func (c *Checker) checkConsts(scope *ast.ProgramScope) {
	for _, decl := range scope.Consts {
		declared := c.resolveType(decl.Type)
		if sym := c.syms.Current().Local(decl.Name); sym != nil && declared != nil {
			sym.Type = declared
		}
		got := c.infer(decl.Value)
		c.expect(declared, got, decl.Value)
	}
}

func (c *Checker) checkFunction(fn *ast.Function) {
	if fn.IsGeneric() || fn.Body == nil {
		return
	}
	c.fn = fn
	c.out = c.resolveType(fn.Output)

	c.syms.EnterScope(fn.Body.ID())
	for _, p := range fn.Params {
		sym := &symbols.VariableSymbol{
			Name: p.Name,
			Kind: ast.DeclMutable,
			Type: c.resolveType(p.Type),
			Span: p.Loc,
		}
		if prev, ok := c.syms.InsertVariable(sym); !ok && !prev.IsFoldedConst() {
			diag.Errorf(c.r, diag.CollectDuplicateSymbol, p.Loc,
				"parameter '%s' already declared", p.Name)
		}
	}
	c.statements(fn.Body.Statements)
	c.syms.EnterParent()

	if fn.Variant == ast.VariantAsyncFunction {
		c.analyzeAwaits(fn)
	}
	if fn.Variant == ast.VariantAsyncTransition {
		c.checkFinalizerShape(fn)
	}
	c.fn = nil
	c.out = nil
}

func (c *Checker) checkBlock(b *ast.Block) {
	c.syms.EnterScope(b.ID())
	c.statements(b.Statements)
	c.syms.EnterParent()
}

func (c *Checker) statements(list []ast.Statement) {
	for _, s := range list {
		c.statement(s)
	}
}

func (c *Checker) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Definition:
		c.checkDefinition(n)
	case *ast.Assign:
		c.checkAssign(n)
	case *ast.Block:
		c.checkBlock(n)
	case *ast.Conditional:
		cond := c.infer(n.Condition)
		if cond != nil && !types.IsBool(cond) {
			diag.Errorf(c.r, diag.TypeConditionNotBool, n.Condition.Span(),
				"branch condition must be bool, found %s", cond)
		}
		c.checkBlock(n.Then)
		if n.Otherwise != nil {
			c.statement(n.Otherwise)
		}
	case *ast.Console:
		c.checkConsole(n)
	case *ast.Iteration:
		c.checkIteration(n)
	case *ast.Return:
		var got types.Type = types.Unit{}
		if n.Value != nil {
			got = c.infer(n.Value)
		}
		if c.out != nil && got != nil && !types.Equal(c.out, got) {
			diag.Errorf(c.r, diag.TypeReturnMismatch, n.Span(),
				"returned %s, function outputs %s", got, c.out)
		}
	case *ast.ExprStatement:
		c.infer(n.Expr)
	}
}

func (c *Checker) checkDefinition(n *ast.Definition) {
	declared := c.resolveType(n.Type)
	got := c.infer(n.Value)
	c.expect(declared, got, n.Value)
	bound := declared
	if bound == nil {
		bound = got
	}

	if len(n.Targets) == 1 {
		c.declare(n.Targets[0], n.Kind, bound)
		return
	}
	// Tuple destructuring: bind each target to the matching element.
	tuple, ok := bound.(types.Tuple)
	if bound != nil && (!ok || len(tuple.Elems) != len(n.Targets)) {
		diag.Errorf(c.r, diag.TypeNotATuple, n.Value.Span(),
			"expected a %d-element tuple, found %s", len(n.Targets), bound)
		bound = nil
	}
	for i, target := range n.Targets {
		var elem types.Type
		if bound != nil {
			elem = tuple.Elems[i]
		}
		c.declare(target, n.Kind, elem)
	}
}

func (c *Checker) declare(target *ast.Identifier, kind ast.DeclKind, ty types.Type) {
	sym := &symbols.VariableSymbol{Name: target.Name, Kind: kind, Type: ty, Span: target.Span()}
	if prev, ok := c.syms.InsertVariable(sym); !ok {
		if prev.IsFoldedConst() {
			prev.Type = ty
		} else {
			diag.Errorf(c.r, diag.CollectDuplicateSymbol, target.Span(),
				"variable '%s' already declared in this scope", target.Name)
		}
	}
	if ty != nil {
		c.tt.Insert(target.ID(), ty)
	}
}

func (c *Checker) checkAssign(n *ast.Assign) {
	got := c.infer(n.Value)
	ident, ok := n.Place.(*ast.Identifier)
	if !ok {
		diag.Errorf(c.r, diag.TypeMismatch, n.Place.Span(),
			"assignment target must be a variable")
		return
	}
	sym := c.syms.LookupVariable(ident.Name)
	if sym == nil {
		diag.Errorf(c.r, diag.TypeUnknownVariable, ident.Span(),
			"unknown variable '%s'", ident.Name)
		return
	}
	if sym.Kind == ast.DeclConst {
		diag.Errorf(c.r, diag.TypeAssignToConst, ident.Span(),
			"cannot assign to constant '%s'", ident.Name)
	}
	if sym.Type == nil {
		sym.Type = got
	} else if got != nil && !types.Equal(sym.Type, got) {
		diag.Errorf(c.r, diag.TypeMismatch, n.Value.Span(),
			"cannot assign %s to '%s' of type %s", got, ident.Name, sym.Type)
	}
	if sym.Type != nil {
		c.tt.Insert(ident.ID(), sym.Type)
	}
}

func (c *Checker) checkConsole(n *ast.Console) {
	switch n.Kind {
	case ast.ConsoleAssert:
		if len(n.Args) == 1 {
			got := c.infer(n.Args[0])
			if got != nil && !types.IsBool(got) {
				diag.Errorf(c.r, diag.TypeConditionNotBool, n.Args[0].Span(),
					"assert takes a bool, found %s", got)
			}
		}
	case ast.ConsoleAssertEq, ast.ConsoleAssertNeq:
		if len(n.Args) == 2 {
			a := c.infer(n.Args[0])
			b := c.infer(n.Args[1])
			if a != nil && b != nil && !types.Equal(a, b) {
				diag.Errorf(c.r, diag.TypeMismatch, n.Span(),
					"%s operands differ: %s vs %s", n.Kind, a, b)
			}
		}
	case ast.ConsoleLog:
		for _, a := range n.Args {
			c.infer(a)
		}
	}
}

func (c *Checker) checkIteration(n *ast.Iteration) {
	declared := c.resolveType(n.VarType)
	if declared != nil && !types.IsInteger(declared) {
		diag.Errorf(c.r, diag.TypeMismatch, n.Variable.Span(),
			"loop variable must be a sized integer, found %s", declared)
	}
	start := c.infer(n.Start)
	stop := c.infer(n.Stop)
	c.expect(declared, start, n.Start)
	c.expect(declared, stop, n.Stop)

	c.syms.EnterScope(n.Body.ID())
	c.declare(n.Variable, ast.DeclConst, declared)
	c.statements(n.Body.Statements)
	c.syms.EnterParent()
}

// expect reports a mismatch when both sides are known.
func (c *Checker) expect(want, got types.Type, at ast.Expression) {
	if want == nil || got == nil || at == nil {
		return
	}
	if !types.Equal(want, got) {
		diag.Errorf(c.r, diag.TypeMismatch, at.Span(),
			"expected %s, found %s", want, got)
	}
}
