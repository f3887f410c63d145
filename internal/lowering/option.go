package lowering

import (
	"fmt"
	"strings"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/types"
)

// zeroAddress is the placeholder an absent option carries in its address
// leaves; it never reaches a signature check.
var zeroAddress = "aleo1" + strings.Repeat("q", 58)

// rewriteAnnotations lowers option types in every declaration of the scope.
// Annotations inside bodies (definitions, casts, core-call subjects) are
// rewritten during the body walk.
func (l *lowerer) rewriteAnnotations() {
	for _, decl := range l.scope.Consts {
		decl.Type = l.typ(decl.Type)
	}
	for _, st := range l.scope.Structs {
		for _, m := range st.Members {
			m.Type = l.typ(m.Type)
		}
	}
	for _, mp := range l.scope.Mappings {
		mp.Key = l.typ(mp.Key)
		mp.Value = l.typ(mp.Value)
	}
	for _, st := range l.scope.Storages {
		st.Type = l.typ(st.Type)
	}
	fns := l.scope.Functions
	if l.scope.Constructor != nil {
		fns = append(fns[:len(fns):len(fns)], l.scope.Constructor)
	}
	for _, fn := range fns {
		for _, p := range fn.Params {
			p.Type = l.typ(p.Type)
		}
		fn.Output = l.typ(fn.Output)
		if fn.Body != nil {
			l.annotateBlock(fn.Body)
		}
	}
}

func (l *lowerer) annotateBlock(b *ast.Block) {
	for _, s := range b.Statements {
		switch n := s.(type) {
		case *ast.Definition:
			n.Type = l.typ(n.Type)
		case *ast.Block:
			l.annotateBlock(n)
		case *ast.Conditional:
			l.annotateBlock(n.Then)
			if inner, ok := n.Otherwise.(*ast.Block); ok {
				l.annotateBlock(inner)
			}
		case *ast.Iteration:
			n.VarType = l.typ(n.VarType)
			l.annotateBlock(n.Body)
		}
	}
}

// typ rewrites option annotations to their backing struct.
func (l *lowerer) typ(t ast.Type) ast.Type {
	switch n := t.(type) {
	case ast.OptionType:
		inner := types.FromSyntax(l.typ(n.Inner), l.scope.Name)
		if inner == nil {
			return n
		}
		name := l.ensureOption(inner)
		l.changed = true
		return ast.NamedType{Name: name}
	case ast.ArrayType:
		n.Elem = l.typ(n.Elem)
		return n
	case ast.TupleType:
		for i, e := range n.Elems {
			n.Elems[i] = l.typ(e)
		}
		return n
	}
	return t
}

// option rewrites the two constructors into composite initializers over the
// backing struct.
func (l *lowerer) option(n *ast.AssociatedCall) ast.Expression {
	var inner types.Type
	if opt, ok := l.tt.Get(n.ID()).(types.Option); ok {
		inner = opt.Inner
	} else if n.Of != nil {
		inner = types.FromSyntax(l.typ(n.Of), l.scope.Name)
	} else if len(n.Args) == 1 {
		inner = l.tt.Get(n.Args[0].ID())
	}
	if inner == nil {
		diag.Errorf(l.r, diag.InternalError, n.Span(),
			"%s has no resolved element type during option lowering", n.Fn)
		return n
	}
	name := l.ensureOption(inner)

	var isSome bool
	var val ast.Expression
	if n.Fn == ast.CoreOptionSome && len(n.Args) == 1 {
		isSome = true
		val = l.expr(n.Args[0])
	} else {
		val = l.zeroExpr(inner, n.Span())
	}

	init := &ast.CompositeInit{
		Meta: ast.NewMeta(l.counter, n.Span()),
		Name: name,
		Members: []ast.CompositeMember{
			{Name: "is_some", Value: l.boolLiteral(isSome, n.Span())},
			{Name: "value", Value: val},
		},
	}
	l.tt.Insert(init.ID(), types.Composite{Program: l.scope.Name, Name: name})
	l.changed = true
	return init
}

// ensureOption mints the backing struct for Option over inner, memoized
// through the scope's declaration list.
func (l *lowerer) ensureOption(inner types.Type) string {
	name := "Option__" + mangleType(inner)
	if l.scope.Struct(name) != nil {
		return name
	}
	l.scope.Structs = append(l.scope.Structs, &ast.Struct{
		Meta: ast.NewMeta(l.counter, source.Span{}),
		Name: name,
		Members: []*ast.Member{
			{Name: "is_some", Type: ast.PrimitiveType{Kind: ast.PrimBool}},
			{Name: "value", Type: l.toSyntax(inner, source.Span{})},
		},
	})
	return name
}

// mangleType renders a semantic type into a declaration-name suffix.
func mangleType(t types.Type) string {
	switch n := t.(type) {
	case types.Primitive:
		return n.Kind.String()
	case types.Composite:
		return n.Name
	case types.Array:
		return fmt.Sprintf("[%s; %d]", mangleType(n.Elem), n.Length)
	case types.Tuple:
		parts := make([]string, len(n.Elems))
		for i, e := range n.Elems {
			parts[i] = mangleType(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case types.Option:
		return "Option__" + mangleType(n.Inner)
	case types.Future:
		return "future"
	case types.Unit:
		return "()"
	}
	return "?"
}

// toSyntax renders a concrete semantic type back into an annotation.
func (l *lowerer) toSyntax(t types.Type, sp source.Span) ast.Type {
	switch n := t.(type) {
	case types.Primitive:
		return ast.PrimitiveType{Kind: n.Kind}
	case types.Composite:
		program := n.Program
		if program == l.scope.Name {
			program = ""
		}
		return ast.NamedType{Program: program, Name: n.Name}
	case types.Array:
		return ast.ArrayType{
			Elem:   l.toSyntax(n.Elem, sp),
			Length: l.u32Literal(n.Length, sp),
		}
	case types.Tuple:
		elems := make([]ast.Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = l.toSyntax(e, sp)
		}
		return ast.TupleType{Elems: elems}
	case types.Option:
		return ast.NamedType{Name: l.ensureOption(n.Inner)}
	case types.Future:
		return ast.FutureType{}
	case types.Unit:
		return ast.UnitType{}
	}
	return nil
}

// zeroExpr builds the canonical zero value of a concrete type.
func (l *lowerer) zeroExpr(t types.Type, sp source.Span) ast.Expression {
	switch n := t.(type) {
	case types.Primitive:
		return l.zeroPrimitive(n.Kind, sp)
	case types.Array:
		out := &ast.Repeat{
			Meta:  ast.NewMeta(l.counter, sp),
			Value: l.zeroExpr(n.Elem, sp),
			Count: l.u32Literal(n.Length, sp),
		}
		l.tt.Insert(out.ID(), t)
		return out
	case types.Tuple:
		out := &ast.TupleExpr{Meta: ast.NewMeta(l.counter, sp)}
		for _, e := range n.Elems {
			out.Elements = append(out.Elements, l.zeroExpr(e, sp))
		}
		l.tt.Insert(out.ID(), t)
		return out
	case types.Composite:
		return l.zeroComposite(n, sp)
	case types.Option:
		name := l.ensureOption(n.Inner)
		init := &ast.CompositeInit{
			Meta: ast.NewMeta(l.counter, sp),
			Name: name,
			Members: []ast.CompositeMember{
				{Name: "is_some", Value: l.boolLiteral(false, sp)},
				{Name: "value", Value: l.zeroExpr(n.Inner, sp)},
			},
		}
		l.tt.Insert(init.ID(), types.Composite{Program: l.scope.Name, Name: name})
		return init
	}
	diag.Errorf(l.r, diag.InternalError, sp, "type %s has no zero value", t)
	return l.boolLiteral(false, sp)
}

func (l *lowerer) zeroPrimitive(kind ast.PrimKind, sp source.Span) ast.Expression {
	lit := &ast.Literal{Meta: ast.NewMeta(l.counter, sp)}
	switch {
	case kind == ast.PrimBool:
		lit.Kind = ast.LitBool
		lit.Text = "false"
	case kind == ast.PrimField:
		lit.Kind = ast.LitField
		lit.Text = "0"
	case kind == ast.PrimAddress:
		lit.Kind = ast.LitAddress
		lit.Text = zeroAddress
	default:
		lit.Kind = ast.LitInt
		lit.Width = kind
		lit.Text = "0"
	}
	l.tt.Insert(lit.ID(), types.Primitive{Kind: kind})
	return lit
}

func (l *lowerer) zeroComposite(t types.Composite, sp source.Span) ast.Expression {
	scope := l.prog.Scope(t.Program)
	if scope == nil {
		scope = l.scope
	}
	st := scope.Struct(t.Name)
	if st == nil {
		diag.Errorf(l.r, diag.InternalError, sp,
			"composite %s has no declaration during option lowering", t)
		return l.boolLiteral(false, sp)
	}
	init := &ast.CompositeInit{Meta: ast.NewMeta(l.counter, sp), Name: t.Name}
	for _, m := range st.Members {
		memberT := types.FromSyntax(m.Type, t.Program)
		if memberT == nil {
			diag.Errorf(l.r, diag.InternalError, m.Loc,
				"member %s.%s is unresolved during option lowering", t.Name, m.Name)
			continue
		}
		init.Members = append(init.Members, ast.CompositeMember{
			Name:  m.Name,
			Value: l.zeroExpr(memberT, sp),
		})
	}
	l.tt.Insert(init.ID(), t)
	return init
}

func (l *lowerer) boolLiteral(v bool, sp source.Span) ast.Expression {
	lit := &ast.Literal{Meta: ast.NewMeta(l.counter, sp), Kind: ast.LitBool, Text: "false"}
	if v {
		lit.Text = "true"
	}
	l.tt.Insert(lit.ID(), types.Primitive{Kind: ast.PrimBool})
	return lit
}
