package ast

// Cloner deep-copies subtrees, minting a fresh node ID for every copied node
// and recording the old-to-new mapping so callers can mirror side-table
// entries. When Subst is set, identifier reads whose name is bound in it are
// replaced by a fresh copy of the bound expression; unrolling and
// monomorphization use this to bind iteration variables and const parameters.
type Cloner struct {
	Counter *Counter
	Remap   map[NodeID]NodeID
	Subst   map[string]Expression
}

// NewCloner builds a cloner minting from c.
func NewCloner(c *Counter) *Cloner {
	return &Cloner{Counter: c, Remap: make(map[NodeID]NodeID)}
}

// WithSubst returns the same cloner with an identifier substitution map.
func (c *Cloner) WithSubst(subst map[string]Expression) *Cloner {
	c.Subst = subst
	return c
}

func (c *Cloner) meta(old Meta) Meta {
	fresh := NewMeta(c.Counter, old.Loc)
	if c.Remap != nil {
		c.Remap[old.Node] = fresh.Node
	}
	return fresh
}

// Expression deep-copies an expression.
func (c *Cloner) Expression(e Expression) Expression {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Literal:
		out := *n
		out.Meta = c.meta(n.Meta)
		return &out
	case *Identifier:
		if c.Subst != nil {
			if repl, ok := c.Subst[n.Name]; ok {
				sub := c.Expression(repl)
				if c.Remap != nil {
					c.Remap[n.Node] = sub.ID()
				}
				return sub
			}
		}
		out := *n
		out.Meta = c.meta(n.Meta)
		return &out
	case *Binary:
		return &Binary{Meta: c.meta(n.Meta), Op: n.Op, Left: c.Expression(n.Left), Right: c.Expression(n.Right)}
	case *Unary:
		return &Unary{Meta: c.meta(n.Meta), Op: n.Op, Operand: c.Expression(n.Operand)}
	case *Ternary:
		return &Ternary{
			Meta:      c.meta(n.Meta),
			Condition: c.Expression(n.Condition),
			IfTrue:    c.Expression(n.IfTrue),
			IfFalse:   c.Expression(n.IfFalse),
		}
	case *Cast:
		return &Cast{Meta: c.meta(n.Meta), Value: c.Expression(n.Value), To: c.Type(n.To)}
	case *Call:
		return &Call{
			Meta:      c.meta(n.Meta),
			Program:   n.Program,
			Function:  n.Function,
			ConstArgs: c.expressions(n.ConstArgs),
			Args:      c.expressions(n.Args),
		}
	case *AssociatedCall:
		return &AssociatedCall{Meta: c.meta(n.Meta), Fn: n.Fn, Of: c.Type(n.Of), Args: c.expressions(n.Args)}
	case *Await:
		return &Await{Meta: c.meta(n.Meta), Future: c.Expression(n.Future)}
	case *CompositeInit:
		members := make([]CompositeMember, len(n.Members))
		for i, m := range n.Members {
			members[i] = CompositeMember{Name: m.Name, Value: c.Expression(m.Value)}
		}
		return &CompositeInit{
			Meta:      c.meta(n.Meta),
			Name:      n.Name,
			ConstArgs: c.expressions(n.ConstArgs),
			Members:   members,
		}
	case *MemberAccess:
		return &MemberAccess{Meta: c.meta(n.Meta), Inner: c.Expression(n.Inner), Member: n.Member}
	case *ArrayInit:
		return &ArrayInit{Meta: c.meta(n.Meta), Elements: c.expressions(n.Elements)}
	case *Repeat:
		return &Repeat{Meta: c.meta(n.Meta), Value: c.Expression(n.Value), Count: c.Expression(n.Count)}
	case *ArrayAccess:
		return &ArrayAccess{Meta: c.meta(n.Meta), Array: c.Expression(n.Array), Index: c.Expression(n.Index)}
	case *TupleExpr:
		return &TupleExpr{Meta: c.meta(n.Meta), Elements: c.expressions(n.Elements)}
	case *TupleAccess:
		return &TupleAccess{Meta: c.meta(n.Meta), Tuple: c.Expression(n.Tuple), Index: n.Index}
	}
	return e
}

func (c *Cloner) expressions(in []Expression) []Expression {
	if in == nil {
		return nil
	}
	out := make([]Expression, len(in))
	for i, e := range in {
		out[i] = c.Expression(e)
	}
	return out
}

// Statement deep-copies a statement.
func (c *Cloner) Statement(s Statement) Statement {
	if s == nil {
		return nil
	}
	switch n := s.(type) {
	case *Definition:
		targets := make([]*Identifier, len(n.Targets))
		for i, t := range n.Targets {
			targets[i] = &Identifier{Meta: c.meta(t.Meta), Name: t.Name}
		}
		return &Definition{
			Meta:    c.meta(n.Meta),
			Kind:    n.Kind,
			Targets: targets,
			Type:    c.Type(n.Type),
			Value:   c.Expression(n.Value),
		}
	case *Assign:
		return &Assign{Meta: c.meta(n.Meta), Place: c.Expression(n.Place), Value: c.Expression(n.Value)}
	case *Block:
		return c.Block(n)
	case *Conditional:
		return &Conditional{
			Meta:      c.meta(n.Meta),
			Condition: c.Expression(n.Condition),
			Then:      c.Block(n.Then),
			Otherwise: c.Statement(n.Otherwise),
		}
	case *Console:
		return &Console{Meta: c.meta(n.Meta), Kind: n.Kind, Format: n.Format, Args: c.expressions(n.Args)}
	case *Iteration:
		return &Iteration{
			Meta:      c.meta(n.Meta),
			Variable:  &Identifier{Meta: c.meta(n.Variable.Meta), Name: n.Variable.Name},
			VarType:   c.Type(n.VarType),
			Start:     c.Expression(n.Start),
			Stop:      c.Expression(n.Stop),
			Inclusive: n.Inclusive,
			Body:      c.Block(n.Body),
		}
	case *Return:
		return &Return{Meta: c.meta(n.Meta), Value: c.Expression(n.Value)}
	case *ExprStatement:
		return &ExprStatement{Meta: c.meta(n.Meta), Expr: c.Expression(n.Expr)}
	}
	return s
}

// Block deep-copies a block, giving it a fresh node ID so symbol-table scopes
// never alias across copies.
func (c *Cloner) Block(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Meta: c.meta(b.Meta), Statements: make([]Statement, len(b.Statements))}
	for i, s := range b.Statements {
		out.Statements[i] = c.Statement(s)
	}
	return out
}

// Type deep-copies a syntactic type, cloning the const expressions inside it.
func (c *Cloner) Type(t Type) Type {
	switch n := t.(type) {
	case nil:
		return nil
	case PrimitiveType, FutureType, UnitType:
		return n
	case NamedType:
		return NamedType{Program: n.Program, Name: n.Name, ConstArgs: c.expressions(n.ConstArgs)}
	case ArrayType:
		return ArrayType{Elem: c.Type(n.Elem), Length: c.Expression(n.Length)}
	case TupleType:
		elems := make([]Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = c.Type(e)
		}
		return TupleType{Elems: elems}
	case OptionType:
		return OptionType{Inner: c.Type(n.Inner)}
	}
	return t
}

// Function deep-copies a function declaration.
func (c *Cloner) Function(f *Function) *Function {
	if f == nil {
		return nil
	}
	params := make([]*Param, len(f.Params))
	for i, p := range f.Params {
		params[i] = &Param{Name: p.Name, Type: c.Type(p.Type), Loc: p.Loc}
	}
	constParams := make([]*ConstParam, len(f.ConstParams))
	for i, p := range f.ConstParams {
		constParams[i] = &ConstParam{Name: p.Name, Type: c.Type(p.Type), Loc: p.Loc}
	}
	return &Function{
		Meta:        c.meta(f.Meta),
		Variant:     f.Variant,
		Name:        f.Name,
		ConstParams: constParams,
		Params:      params,
		Output:      c.Type(f.Output),
		Body:        c.Block(f.Body),
		Finalizer:   f.Finalizer,
	}
}

// Struct deep-copies a composite declaration.
func (c *Cloner) Struct(s *Struct) *Struct {
	if s == nil {
		return nil
	}
	members := make([]*Member, len(s.Members))
	for i, m := range s.Members {
		members[i] = &Member{Name: m.Name, Type: c.Type(m.Type), Loc: m.Loc}
	}
	constParams := make([]*ConstParam, len(s.ConstParams))
	for i, p := range s.ConstParams {
		constParams[i] = &ConstParam{Name: p.Name, Type: c.Type(p.Type), Loc: p.Loc}
	}
	return &Struct{
		Meta:        c.meta(s.Meta),
		Name:        s.Name,
		ConstParams: constParams,
		Members:     members,
		IsRecord:    s.IsRecord,
	}
}
