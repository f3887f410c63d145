package binfile

import (
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"lumen/internal/ast"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

// EncodeTree writes a frontend tree artifact.
func EncodeTree(w io.Writer, prog *ast.Program, counter *ast.Counter) error {
	file := &wireFile{
		Magic:    MagicTree,
		Version:  SchemaVersion,
		NextNode: uint64(counter.Peek()),
		Programs: encodePrograms(prog),
	}
	return msgpack.NewEncoder(w).Encode(file)
}

// EncodeLowered writes a lowered artifact: the tree plus the type table and a
// symbol summary, both sorted for deterministic output.
func EncodeLowered(w io.Writer, prog *ast.Program, counter *ast.Counter, tt *types.Table, syms *symbols.Table) error {
	file := &wireFile{
		Magic:    MagicLowered,
		Version:  SchemaVersion,
		NextNode: uint64(counter.Peek()),
		Programs: encodePrograms(prog),
		Types:    encodeTypeTable(tt),
		Symbols:  encodeSymbols(prog, syms),
	}
	return msgpack.NewEncoder(w).Encode(file)
}

func encodePrograms(prog *ast.Program) []*wireProgram {
	out := make([]*wireProgram, len(prog.Scopes))
	for i, scope := range prog.Scopes {
		wp := &wireProgram{
			Node:    uint64(scope.ID()),
			Span:    scope.Span(),
			Name:    scope.Name,
			Network: scope.Network,
		}
		for _, decl := range scope.Consts {
			wp.Consts = append(wp.Consts, &wireConst{
				Node:  uint64(decl.ID()),
				Span:  decl.Span(),
				Name:  decl.Name,
				Type:  encodeType(decl.Type),
				Value: encodeExpr(decl.Value),
			})
		}
		for _, st := range scope.Structs {
			wp.Structs = append(wp.Structs, encodeStruct(st))
		}
		for _, mp := range scope.Mappings {
			wp.Mappings = append(wp.Mappings, &wireMapping{
				Node:  uint64(mp.ID()),
				Span:  mp.Span(),
				Name:  mp.Name,
				Key:   encodeType(mp.Key),
				Value: encodeType(mp.Value),
			})
		}
		for _, st := range scope.Storages {
			wp.Storages = append(wp.Storages, &wireStorage{
				Node: uint64(st.ID()),
				Span: st.Span(),
				Name: st.Name,
				Type: encodeType(st.Type),
			})
		}
		for _, fn := range scope.Functions {
			wp.Functions = append(wp.Functions, encodeFunction(fn))
		}
		if scope.Constructor != nil {
			wp.Constructor = encodeFunction(scope.Constructor)
		}
		out[i] = wp
	}
	return out
}

func encodeStruct(st *ast.Struct) *wireStruct {
	out := &wireStruct{
		Node:        uint64(st.ID()),
		Span:        st.Span(),
		Name:        st.Name,
		IsRecord:    st.IsRecord,
		ConstParams: encodeConstParams(st.ConstParams),
	}
	for _, m := range st.Members {
		out.Members = append(out.Members, wireParam{Name: m.Name, Type: encodeType(m.Type), Span: m.Loc})
	}
	return out
}

func encodeFunction(fn *ast.Function) *wireFunction {
	out := &wireFunction{
		Node:        uint64(fn.ID()),
		Span:        fn.Span(),
		Variant:     uint8(fn.Variant),
		Name:        fn.Name,
		Finalizer:   fn.Finalizer,
		ConstParams: encodeConstParams(fn.ConstParams),
		Output:      encodeType(fn.Output),
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, wireParam{Name: p.Name, Type: encodeType(p.Type), Span: p.Loc})
	}
	if fn.Body != nil {
		out.Body = encodeStmt(fn.Body)
	}
	return out
}

func encodeConstParams(params []*ast.ConstParam) []wireParam {
	out := make([]wireParam, 0, len(params))
	for _, p := range params {
		out = append(out, wireParam{Name: p.Name, Type: encodeType(p.Type), Span: p.Loc})
	}
	return out
}

func encodeType(t ast.Type) *wireType {
	switch n := t.(type) {
	case nil:
		return nil
	case ast.PrimitiveType:
		return &wireType{Kind: typePrim, Prim: uint8(n.Kind)}
	case ast.NamedType:
		return &wireType{Kind: typeNamed, Program: n.Program, Name: n.Name, ConstArgs: encodeExprs(n.ConstArgs)}
	case ast.ArrayType:
		return &wireType{Kind: typeArray, Elem: encodeType(n.Elem), Length: encodeExpr(n.Length)}
	case ast.TupleType:
		out := &wireType{Kind: typeTuple}
		for _, e := range n.Elems {
			out.Elems = append(out.Elems, encodeType(e))
		}
		return out
	case ast.FutureType:
		return &wireType{Kind: typeFuture}
	case ast.OptionType:
		return &wireType{Kind: typeOption, Elem: encodeType(n.Inner)}
	case ast.UnitType:
		return &wireType{Kind: typeUnit}
	}
	return nil
}

func encodeExprs(in []ast.Expression) []*wireExpr {
	if in == nil {
		return nil
	}
	out := make([]*wireExpr, len(in))
	for i, e := range in {
		out[i] = encodeExpr(e)
	}
	return out
}

func encodeExpr(e ast.Expression) *wireExpr {
	if e == nil {
		return nil
	}
	out := &wireExpr{Node: uint64(e.ID()), Span: e.Span()}
	switch n := e.(type) {
	case *ast.Literal:
		out.Kind = exprLiteral
		out.Op = uint8(n.Kind)
		out.Width = uint8(n.Width)
		out.Text = n.Text
	case *ast.Identifier:
		out.Kind = exprIdent
		out.Text = n.Name
	case *ast.Binary:
		out.Kind = exprBinary
		out.Op = uint8(n.Op)
		out.Args = []*wireExpr{encodeExpr(n.Left), encodeExpr(n.Right)}
	case *ast.Unary:
		out.Kind = exprUnary
		out.Op = uint8(n.Op)
		out.Args = []*wireExpr{encodeExpr(n.Operand)}
	case *ast.Ternary:
		out.Kind = exprTernary
		out.Args = []*wireExpr{encodeExpr(n.Condition), encodeExpr(n.IfTrue), encodeExpr(n.IfFalse)}
	case *ast.Cast:
		out.Kind = exprCast
		out.Type = encodeType(n.To)
		out.Args = []*wireExpr{encodeExpr(n.Value)}
	case *ast.Call:
		out.Kind = exprCall
		out.Program = n.Program
		out.Text = n.Function
		out.ConstArgs = encodeExprs(n.ConstArgs)
		out.Args = encodeExprs(n.Args)
	case *ast.AssociatedCall:
		out.Kind = exprAssociated
		out.Op = uint8(n.Fn)
		out.Type = encodeType(n.Of)
		out.Args = encodeExprs(n.Args)
	case *ast.Await:
		out.Kind = exprAwait
		out.Args = []*wireExpr{encodeExpr(n.Future)}
	case *ast.CompositeInit:
		out.Kind = exprComposite
		out.Text = n.Name
		out.ConstArgs = encodeExprs(n.ConstArgs)
		for _, m := range n.Members {
			out.Names = append(out.Names, m.Name)
			out.Args = append(out.Args, encodeExpr(m.Value))
		}
	case *ast.MemberAccess:
		out.Kind = exprMemberAccess
		out.Text = n.Member
		out.Args = []*wireExpr{encodeExpr(n.Inner)}
	case *ast.ArrayInit:
		out.Kind = exprArrayInit
		out.Args = encodeExprs(n.Elements)
	case *ast.Repeat:
		out.Kind = exprRepeat
		out.Args = []*wireExpr{encodeExpr(n.Value), encodeExpr(n.Count)}
	case *ast.ArrayAccess:
		out.Kind = exprArrayAccess
		out.Args = []*wireExpr{encodeExpr(n.Array), encodeExpr(n.Index)}
	case *ast.TupleExpr:
		out.Kind = exprTuple
		out.Args = encodeExprs(n.Elements)
	case *ast.TupleAccess:
		out.Kind = exprTupleAccess
		out.Index = n.Index
		out.Args = []*wireExpr{encodeExpr(n.Tuple)}
	}
	return out
}

func encodeStmt(s ast.Statement) *wireStmt {
	if s == nil {
		return nil
	}
	out := &wireStmt{Node: uint64(s.ID()), Span: s.Span()}
	switch n := s.(type) {
	case *ast.Definition:
		out.Kind = stmtDefinition
		out.Decl = uint8(n.Kind)
		out.Type = encodeType(n.Type)
		for _, t := range n.Targets {
			out.Targets = append(out.Targets, encodeExpr(t))
		}
		out.Exprs = []*wireExpr{encodeExpr(n.Value)}
	case *ast.Assign:
		out.Kind = stmtAssign
		out.Exprs = []*wireExpr{encodeExpr(n.Place), encodeExpr(n.Value)}
	case *ast.Block:
		out.Kind = stmtBlock
		for _, inner := range n.Statements {
			out.Stmts = append(out.Stmts, encodeStmt(inner))
		}
	case *ast.Conditional:
		out.Kind = stmtConditional
		out.Exprs = []*wireExpr{encodeExpr(n.Condition)}
		out.Then = encodeStmt(n.Then)
		if n.Otherwise != nil {
			out.Else = encodeStmt(n.Otherwise)
		}
	case *ast.Console:
		out.Kind = stmtConsole
		out.Decl = uint8(n.Kind)
		out.Text = n.Format
		out.Exprs = encodeExprs(n.Args)
	case *ast.Iteration:
		out.Kind = stmtIteration
		out.Flag = n.Inclusive
		out.Type = encodeType(n.VarType)
		out.Targets = []*wireExpr{encodeExpr(n.Variable)}
		out.Exprs = []*wireExpr{encodeExpr(n.Start), encodeExpr(n.Stop)}
		out.Body = encodeStmt(n.Body)
	case *ast.Return:
		out.Kind = stmtReturn
		if n.Value != nil {
			out.Exprs = []*wireExpr{encodeExpr(n.Value)}
		}
	case *ast.ExprStatement:
		out.Kind = stmtExpr
		out.Exprs = []*wireExpr{encodeExpr(n.Expr)}
	}
	return out
}

func encodeTypeTable(tt *types.Table) []wireTypeEntry {
	if tt == nil {
		return nil
	}
	out := make([]wireTypeEntry, 0, tt.Len())
	tt.Range(func(id ast.NodeID, ty types.Type) bool {
		out = append(out, wireTypeEntry{Node: uint64(id), Type: encodeSemType(ty)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })
	return out
}

func encodeSemType(t types.Type) *wireSemType {
	switch n := t.(type) {
	case nil:
		return nil
	case types.Primitive:
		return &wireSemType{Kind: semPrim, Prim: uint8(n.Kind)}
	case types.Composite:
		return &wireSemType{Kind: semComposite, Program: n.Program, Name: n.Name}
	case types.Array:
		return &wireSemType{Kind: semArray, Length: n.Length, Elem: encodeSemType(n.Elem)}
	case types.Tuple:
		out := &wireSemType{Kind: semTuple}
		for _, e := range n.Elems {
			out.Elems = append(out.Elems, encodeSemType(e))
		}
		return out
	case types.Mapping:
		return &wireSemType{Kind: semMapping, Elem: encodeSemType(n.Key), Value: encodeSemType(n.Value)}
	case types.Future:
		return &wireSemType{Kind: semFuture}
	case types.Option:
		return &wireSemType{Kind: semOption, Elem: encodeSemType(n.Inner)}
	case types.Unit:
		return &wireSemType{Kind: semUnit}
	}
	return nil
}

// encodeSymbols summarizes the final declaration set, one line per function,
// composite and mapping.
func encodeSymbols(prog *ast.Program, syms *symbols.Table) []wireSymbol {
	var out []wireSymbol
	for _, scope := range prog.Scopes {
		for _, fn := range scope.Functions {
			out = append(out, wireSymbol{Kind: "function", Program: scope.Name, Name: fn.Name})
		}
		if scope.Constructor != nil {
			out = append(out, wireSymbol{Kind: "function", Program: scope.Name, Name: scope.Constructor.Name})
		}
		for _, st := range scope.Structs {
			out = append(out, wireSymbol{Kind: "struct", Program: scope.Name, Name: st.Name})
		}
		for _, mp := range scope.Mappings {
			out = append(out, wireSymbol{Kind: "mapping", Program: scope.Name, Name: mp.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Name < b.Name
	})
	return out
}
