package sema

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/symbols"
	"lumen/internal/types"
	"lumen/internal/value"
)

// infer resolves the type of an expression, records it in the type table and
// returns it. A nil result means the type is not yet known (it depends on a
// const expression a later fixed-point round may still reduce); nil types
// suppress downstream mismatch diagnostics rather than cascading.
func (c *Checker) infer(e ast.Expression) types.Type {
	if e == nil {
		return nil
	}
	ty := c.inferRaw(e)
	if ty != nil {
		c.tt.Insert(e.ID(), ty)
	}
	return ty
}

func (c *Checker) inferRaw(e ast.Expression) types.Type {
	switch n := e.(type) {
	case *ast.Literal:
		return c.literal(n)
	case *ast.Identifier:
		sym := c.syms.LookupVariable(n.Name)
		if sym == nil {
			diag.Errorf(c.r, diag.TypeUnknownVariable, n.Span(),
				"unknown variable '%s'", n.Name)
			return nil
		}
		return sym.Type
	case *ast.Binary:
		return c.binary(n)
	case *ast.Unary:
		return c.unary(n)
	case *ast.Ternary:
		cond := c.infer(n.Condition)
		if cond != nil && !types.IsBool(cond) {
			diag.Errorf(c.r, diag.TypeConditionNotBool, n.Condition.Span(),
				"ternary condition must be bool, found %s", cond)
		}
		a := c.infer(n.IfTrue)
		b := c.infer(n.IfFalse)
		if a != nil && b != nil && !types.Equal(a, b) {
			diag.Errorf(c.r, diag.TypeMismatch, n.Span(),
				"ternary branches differ: %s vs %s", a, b)
			return nil
		}
		if a != nil {
			return a
		}
		return b
	case *ast.Cast:
		return c.cast(n)
	case *ast.Call:
		return c.call(n)
	case *ast.AssociatedCall:
		return c.associated(n)
	case *ast.Await:
		got := c.infer(n.Future)
		if got != nil {
			if _, ok := got.(types.Future); !ok {
				diag.Errorf(c.r, diag.TypeAwaitNotFuture, n.Future.Span(),
					"await takes a Future, found %s", got)
			}
		}
		return types.Unit{}
	case *ast.CompositeInit:
		return c.compositeInit(n)
	case *ast.MemberAccess:
		return c.memberAccess(n)
	case *ast.ArrayInit:
		return c.arrayInit(n)
	case *ast.Repeat:
		elem := c.infer(n.Value)
		length, ok := literalLength(n.Count)
		if elem == nil || !ok {
			return nil
		}
		return types.Array{Elem: elem, Length: length}
	case *ast.ArrayAccess:
		return c.arrayAccess(n)
	case *ast.TupleExpr:
		elems := make([]types.Type, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = c.infer(el)
			if elems[i] == nil {
				return nil
			}
		}
		return types.Tuple{Elems: elems}
	case *ast.TupleAccess:
		return c.tupleAccess(n)
	}
	return nil
}

func (c *Checker) literal(n *ast.Literal) types.Type {
	v, err := value.FromLiteral(n)
	if err != nil {
		diag.Errorf(c.r, diag.TypeLiteralOutOfRange, n.Span(),
			"invalid %s literal '%s': %v", n.Kind, n.Text, err)
		return nil
	}
	switch v.Kind {
	case value.KindBool:
		return types.Primitive{Kind: ast.PrimBool}
	case value.KindInt:
		return types.Primitive{Kind: n.Width}
	case value.KindField:
		return types.Primitive{Kind: ast.PrimField}
	case value.KindAddress:
		return types.Primitive{Kind: ast.PrimAddress}
	}
	return nil
}

func (c *Checker) binary(n *ast.Binary) types.Type {
	left := c.infer(n.Left)
	right := c.infer(n.Right)
	if left == nil || right == nil {
		return nil
	}
	bad := func() types.Type {
		diag.Errorf(c.r, diag.TypeInvalidBinaryOps, n.Span(),
			"operator %s cannot combine %s and %s", n.Op, left, right)
		return nil
	}
	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		if !types.IsBool(left) || !types.IsBool(right) {
			return bad()
		}
		return left
	case ast.OpEq, ast.OpNeq:
		if !types.Equal(left, right) {
			return bad()
		}
		return types.Primitive{Kind: ast.PrimBool}
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !types.Equal(left, right) || !(types.IsInteger(left) || types.IsField(left)) {
			return bad()
		}
		return types.Primitive{Kind: ast.PrimBool}
	case ast.OpShl, ast.OpShr, ast.OpPow:
		// Right operand is a magnitude and may be narrower.
		if !types.IsInteger(left) || !types.IsInteger(right) {
			return bad()
		}
		return left
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor:
		if !types.Equal(left, right) || !(types.IsInteger(left) || types.IsBool(left)) {
			return bad()
		}
		return left
	default: // arithmetic
		if !types.Equal(left, right) || !(types.IsInteger(left) || types.IsField(left)) {
			return bad()
		}
		return left
	}
}

func (c *Checker) unary(n *ast.Unary) types.Type {
	got := c.infer(n.Operand)
	if got == nil {
		return nil
	}
	ok := false
	switch n.Op {
	case ast.OpNot:
		ok = types.IsBool(got)
	case ast.OpNeg:
		if p, isPrim := got.(types.Primitive); isPrim {
			ok = p.Kind == ast.PrimField || (p.Kind.IsInteger() && p.Kind.Signed())
		}
	case ast.OpBitNot:
		ok = types.IsInteger(got)
	}
	if !ok {
		diag.Errorf(c.r, diag.TypeInvalidUnaryOp, n.Span(),
			"operator %s cannot apply to %s", n.Op, got)
		return nil
	}
	return got
}

func (c *Checker) cast(n *ast.Cast) types.Type {
	got := c.infer(n.Value)
	to := c.resolveType(n.To)
	if got == nil || to == nil {
		return to
	}
	fromPrim, fromOK := got.(types.Primitive)
	toPrim, toOK := to.(types.Primitive)
	if !fromOK || !toOK || fromPrim.Kind == ast.PrimAddress || toPrim.Kind == ast.PrimAddress {
		diag.Errorf(c.r, diag.TypeInvalidCast, n.Span(),
			"cannot cast %s to %s", got, to)
		return nil
	}
	return to
}

func (c *Checker) call(n *ast.Call) types.Type {
	program := n.Program
	if program == "" {
		program = c.scope.Name
	}
	sym := c.syms.LookupFunction(symbols.Location{Program: program, Name: n.Function})
	if sym == nil {
		// Path resolution already reported the missing target.
		return nil
	}
	fn := sym.Fn

	if len(n.ConstArgs) != len(fn.ConstParams) {
		diag.Errorf(c.r, diag.TypeConstArityMismatch, n.Span(),
			"function '%s' takes %d const arguments, found %d",
			fn.Name, len(fn.ConstParams), len(n.ConstArgs))
		return nil
	}
	for _, a := range n.ConstArgs {
		c.infer(a)
	}
	if len(n.Args) != len(fn.Params) {
		diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(),
			"function '%s' takes %d arguments, found %d", fn.Name, len(fn.Params), len(n.Args))
		return nil
	}

	// For generic callees, signature types may mention const parameters;
	// substitute literal const arguments before resolving.
	var subst map[string]ast.Expression
	if fn.IsGeneric() {
		if _, ok := literalValues(n.ConstArgs); !ok {
			// Monomorphization will queue this site; its type is pending.
			for _, a := range n.Args {
				c.infer(a)
			}
			return nil
		}
		subst = make(map[string]ast.Expression, len(fn.ConstParams))
		for i, p := range fn.ConstParams {
			subst[p.Name] = n.ConstArgs[i]
		}
	}

	for i, a := range n.Args {
		got := c.infer(a)
		want := c.resolveSignatureType(fn.Params[i].Type, subst)
		if want != nil && got != nil && !types.Equal(want, got) {
			diag.Errorf(c.r, diag.TypeMismatch, a.Span(),
				"argument %d of '%s': expected %s, found %s", i+1, fn.Name, want, got)
		}
	}

	if fn.Variant == ast.VariantAsyncFunction {
		return types.Future{}
	}
	return c.resolveSignatureType(fn.Output, subst)
}

// resolveSignatureType resolves a callee annotation, substituting const
// parameters with the call's literal const arguments when present.
func (c *Checker) resolveSignatureType(t ast.Type, subst map[string]ast.Expression) types.Type {
	if t == nil {
		return types.Unit{}
	}
	if subst != nil {
		// Cloning with a throwaway counter keeps the original annotation
		// intact; the clone exists only to be resolved.
		cl := ast.NewCloner(ast.NewCounter(1)).WithSubst(subst)
		t = cl.Type(t)
	}
	return c.resolveType(t)
}

func (c *Checker) compositeInit(n *ast.CompositeInit) types.Type {
	st := c.syms.LookupStruct(c.scope.Name, n.Name)
	if st == nil {
		return nil
	}
	if len(n.ConstArgs) != len(st.ConstParams) {
		diag.Errorf(c.r, diag.TypeConstArityMismatch, n.Span(),
			"struct '%s' takes %d const arguments, found %d",
			st.Name, len(st.ConstParams), len(n.ConstArgs))
		return nil
	}

	var subst map[string]ast.Expression
	name := st.Name
	if st.IsGeneric() {
		vals, ok := literalValues(n.ConstArgs)
		if !ok {
			for _, m := range n.Members {
				c.infer(m.Value)
			}
			return nil
		}
		name = value.MangleName(st.Name, vals)
		subst = make(map[string]ast.Expression, len(st.ConstParams))
		for i, p := range st.ConstParams {
			subst[p.Name] = n.ConstArgs[i]
		}
	}

	seen := make(map[string]bool, len(n.Members))
	for _, m := range n.Members {
		got := c.infer(m.Value)
		idx := st.FieldIndex(m.Name)
		if idx < 0 {
			diag.Errorf(c.r, diag.TypeUnknownMember, m.Value.Span(),
				"struct '%s' has no member '%s'", st.Name, m.Name)
			continue
		}
		seen[m.Name] = true
		want := c.resolveSignatureType(st.Members[idx].Type, subst)
		if want != nil && got != nil && !types.Equal(want, got) {
			diag.Errorf(c.r, diag.TypeMismatch, m.Value.Span(),
				"member '%s' of '%s': expected %s, found %s", m.Name, st.Name, want, got)
		}
	}
	for _, m := range st.Members {
		if !seen[m.Name] {
			diag.Errorf(c.r, diag.TypeMissingMember, n.Span(),
				"initializer of '%s' is missing member '%s'", st.Name, m.Name)
		}
	}
	return types.Composite{Program: c.scope.Name, Name: name}
}

func (c *Checker) memberAccess(n *ast.MemberAccess) types.Type {
	inner := c.infer(n.Inner)
	if inner == nil {
		return nil
	}
	comp, ok := inner.(types.Composite)
	if !ok {
		diag.Errorf(c.r, diag.TypeNotAComposite, n.Inner.Span(),
			"member access on non-composite %s", inner)
		return nil
	}
	st := c.syms.LookupStruct(comp.Program, comp.Name)
	if st == nil {
		return nil
	}
	idx := st.FieldIndex(n.Member)
	if idx < 0 {
		diag.Errorf(c.r, diag.TypeUnknownMember, n.Span(),
			"struct '%s' has no member '%s'", comp.Name, n.Member)
		return nil
	}
	return c.resolveType(st.Members[idx].Type)
}

func (c *Checker) arrayInit(n *ast.ArrayInit) types.Type {
	var elem types.Type
	for _, el := range n.Elements {
		got := c.infer(el)
		if got == nil {
			return nil
		}
		if elem == nil {
			elem = got
		} else if !types.Equal(elem, got) {
			diag.Errorf(c.r, diag.TypeMismatch, el.Span(),
				"array elements differ: %s vs %s", elem, got)
			return nil
		}
	}
	if elem == nil {
		return nil
	}
	length, err := safeLen(len(n.Elements))
	if err != nil {
		return nil
	}
	return types.Array{Elem: elem, Length: length}
}

func (c *Checker) arrayAccess(n *ast.ArrayAccess) types.Type {
	arr := c.infer(n.Array)
	idx := c.infer(n.Index)
	if idx != nil && !types.IsInteger(idx) {
		diag.Errorf(c.r, diag.TypeMismatch, n.Index.Span(),
			"array index must be an integer, found %s", idx)
	}
	if arr == nil {
		return nil
	}
	at, ok := arr.(types.Array)
	if !ok {
		// Future values are indexed by the flattening pass; treat them as
		// opaque here.
		if _, isFuture := arr.(types.Future); isFuture {
			return nil
		}
		diag.Errorf(c.r, diag.TypeNotAnArray, n.Array.Span(),
			"indexing non-array %s", arr)
		return nil
	}
	if lit, isLit := n.Index.(*ast.Literal); isLit {
		if v, err := value.FromLiteral(lit); err == nil {
			if u, ok := v.AsUint64(); ok && u >= uint64(at.Length) {
				diag.Errorf(c.r, diag.TypeMismatch, n.Index.Span(),
					"index %d out of bounds for %s", u, at)
			}
		}
	}
	return at.Elem
}

func (c *Checker) tupleAccess(n *ast.TupleAccess) types.Type {
	got := c.infer(n.Tuple)
	if got == nil {
		return nil
	}
	switch t := got.(type) {
	case types.Tuple:
		if int(n.Index) >= len(t.Elems) {
			diag.Errorf(c.r, diag.TypeTupleIndexOutOfRange, n.Span(),
				"tuple index %d out of range for %s", n.Index, t)
			return nil
		}
		return t.Elems[n.Index]
	case types.Future:
		// Future components are opaque until flattening rewrites the access.
		return nil
	}
	diag.Errorf(c.r, diag.TypeNotATuple, n.Tuple.Span(),
		"tuple access on non-tuple %s", got)
	return nil
}
