package binfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/types"
)

var (
	// ErrMagic reports a file that is not a recognized artifact.
	ErrMagic = errors.New("binfile: unrecognized artifact magic")
	// ErrVersion reports an artifact written by a different schema.
	ErrVersion = errors.New("binfile: unsupported schema version")
)

// DecodeTree reads a frontend tree artifact, reconstructing the original node
// identities and a counter resumed past them.
func DecodeTree(r io.Reader) (*ast.Program, *ast.Counter, error) {
	file, err := decodeFile(r, MagicTree)
	if err != nil {
		return nil, nil, err
	}
	prog, err := decodePrograms(file.Programs)
	if err != nil {
		return nil, nil, err
	}
	return prog, ast.NewCounter(file.NextNode), nil
}

// DecodeLowered reads a lowered artifact: the tree, the counter and the type
// table. The symbol summary is advisory output and is not decoded back.
func DecodeLowered(r io.Reader) (*ast.Program, *ast.Counter, *types.Table, error) {
	file, err := decodeFile(r, MagicLowered)
	if err != nil {
		return nil, nil, nil, err
	}
	prog, err := decodePrograms(file.Programs)
	if err != nil {
		return nil, nil, nil, err
	}
	tt := types.NewTable()
	for _, entry := range file.Types {
		ty, err := decodeSemType(entry.Type)
		if err != nil {
			return nil, nil, nil, err
		}
		tt.Insert(ast.NodeID(entry.Node), ty)
	}
	return prog, ast.NewCounter(file.NextNode), tt, nil
}

func decodeFile(r io.Reader, magic string) (*wireFile, error) {
	var file wireFile
	if err := msgpack.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("binfile: decode: %w", err)
	}
	if file.Magic != magic {
		return nil, fmt.Errorf("%w: %q", ErrMagic, file.Magic)
	}
	if file.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, file.Version)
	}
	return &file, nil
}

func decodePrograms(in []*wireProgram) (*ast.Program, error) {
	prog := &ast.Program{Scopes: make([]*ast.ProgramScope, 0, len(in))}
	for _, wp := range in {
		scope := &ast.ProgramScope{
			Meta:    meta(wp.Node, wp.Span),
			Name:    wp.Name,
			Network: wp.Network,
		}
		for _, wc := range wp.Consts {
			ty, err := decodeType(wc.Type)
			if err != nil {
				return nil, err
			}
			val, err := decodeExpr(wc.Value)
			if err != nil {
				return nil, err
			}
			scope.Consts = append(scope.Consts, &ast.ConstDecl{
				Meta:  meta(wc.Node, wc.Span),
				Name:  wc.Name,
				Type:  ty,
				Value: val,
			})
		}
		for _, ws := range wp.Structs {
			st, err := decodeStruct(ws)
			if err != nil {
				return nil, err
			}
			scope.Structs = append(scope.Structs, st)
		}
		for _, wm := range wp.Mappings {
			key, err := decodeType(wm.Key)
			if err != nil {
				return nil, err
			}
			val, err := decodeType(wm.Value)
			if err != nil {
				return nil, err
			}
			scope.Mappings = append(scope.Mappings, &ast.Mapping{
				Meta:  meta(wm.Node, wm.Span),
				Name:  wm.Name,
				Key:   key,
				Value: val,
			})
		}
		for _, ws := range wp.Storages {
			ty, err := decodeType(ws.Type)
			if err != nil {
				return nil, err
			}
			scope.Storages = append(scope.Storages, &ast.Storage{
				Meta: meta(ws.Node, ws.Span),
				Name: ws.Name,
				Type: ty,
			})
		}
		for _, wf := range wp.Functions {
			fn, err := decodeFunction(wf)
			if err != nil {
				return nil, err
			}
			scope.Functions = append(scope.Functions, fn)
		}
		if wp.Constructor != nil {
			fn, err := decodeFunction(wp.Constructor)
			if err != nil {
				return nil, err
			}
			scope.Constructor = fn
		}
		prog.Scopes = append(prog.Scopes, scope)
	}
	return prog, nil
}

func decodeStruct(w *wireStruct) (*ast.Struct, error) {
	cparams, err := decodeConstParams(w.ConstParams)
	if err != nil {
		return nil, err
	}
	out := &ast.Struct{
		Meta:        meta(w.Node, w.Span),
		Name:        w.Name,
		IsRecord:    w.IsRecord,
		ConstParams: cparams,
	}
	for _, m := range w.Members {
		ty, err := decodeType(m.Type)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, &ast.Member{Name: m.Name, Type: ty, Loc: m.Span})
	}
	return out, nil
}

func decodeFunction(w *wireFunction) (*ast.Function, error) {
	cparams, err := decodeConstParams(w.ConstParams)
	if err != nil {
		return nil, err
	}
	output, err := decodeType(w.Output)
	if err != nil {
		return nil, err
	}
	out := &ast.Function{
		Meta:        meta(w.Node, w.Span),
		Variant:     ast.FunctionVariant(w.Variant),
		Name:        w.Name,
		Finalizer:   w.Finalizer,
		ConstParams: cparams,
		Output:      output,
	}
	for _, p := range w.Params {
		ty, err := decodeType(p.Type)
		if err != nil {
			return nil, err
		}
		out.Params = append(out.Params, &ast.Param{Name: p.Name, Type: ty, Loc: p.Span})
	}
	if w.Body != nil {
		body, err := decodeStmt(w.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*ast.Block)
		if !ok {
			return nil, fmt.Errorf("binfile: function %s body is not a block", w.Name)
		}
		out.Body = block
	}
	return out, nil
}

func decodeConstParams(in []wireParam) ([]*ast.ConstParam, error) {
	out := make([]*ast.ConstParam, 0, len(in))
	for _, p := range in {
		ty, err := decodeType(p.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.ConstParam{Name: p.Name, Type: ty, Loc: p.Span})
	}
	return out, nil
}

func decodeType(w *wireType) (ast.Type, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Kind {
	case typePrim:
		return ast.PrimitiveType{Kind: ast.PrimKind(w.Prim)}, nil
	case typeNamed:
		args, err := decodeExprs(w.ConstArgs)
		if err != nil {
			return nil, err
		}
		return ast.NamedType{Program: w.Program, Name: w.Name, ConstArgs: args}, nil
	case typeArray:
		elem, err := decodeType(w.Elem)
		if err != nil {
			return nil, err
		}
		length, err := decodeExpr(w.Length)
		if err != nil {
			return nil, err
		}
		return ast.ArrayType{Elem: elem, Length: length}, nil
	case typeTuple:
		elems := make([]ast.Type, 0, len(w.Elems))
		for _, e := range w.Elems {
			elem, err := decodeType(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return ast.TupleType{Elems: elems}, nil
	case typeFuture:
		return ast.FutureType{}, nil
	case typeOption:
		inner, err := decodeType(w.Elem)
		if err != nil {
			return nil, err
		}
		return ast.OptionType{Inner: inner}, nil
	case typeUnit:
		return ast.UnitType{}, nil
	}
	return nil, fmt.Errorf("binfile: unknown type kind %d", w.Kind)
}

func decodeExprs(in []*wireExpr) ([]ast.Expression, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]ast.Expression, len(in))
	for i, w := range in {
		e, err := decodeExpr(w)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeExpr(w *wireExpr) (ast.Expression, error) {
	if w == nil {
		return nil, nil
	}
	m := meta(w.Node, w.Span)
	args, err := decodeExprs(w.Args)
	if err != nil {
		return nil, err
	}
	arg := func(i int) ast.Expression {
		if i < len(args) {
			return args[i]
		}
		return nil
	}
	switch w.Kind {
	case exprLiteral:
		return &ast.Literal{Meta: m, Kind: ast.LitKind(w.Op), Width: ast.PrimKind(w.Width), Text: w.Text}, nil
	case exprIdent:
		return &ast.Identifier{Meta: m, Name: w.Text}, nil
	case exprBinary:
		return &ast.Binary{Meta: m, Op: ast.BinaryOp(w.Op), Left: arg(0), Right: arg(1)}, nil
	case exprUnary:
		return &ast.Unary{Meta: m, Op: ast.UnaryOp(w.Op), Operand: arg(0)}, nil
	case exprTernary:
		return &ast.Ternary{Meta: m, Condition: arg(0), IfTrue: arg(1), IfFalse: arg(2)}, nil
	case exprCast:
		to, err := decodeType(w.Type)
		if err != nil {
			return nil, err
		}
		return &ast.Cast{Meta: m, Value: arg(0), To: to}, nil
	case exprCall:
		cargs, err := decodeExprs(w.ConstArgs)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Meta: m, Program: w.Program, Function: w.Text, ConstArgs: cargs, Args: args}, nil
	case exprAssociated:
		of, err := decodeType(w.Type)
		if err != nil {
			return nil, err
		}
		return &ast.AssociatedCall{Meta: m, Fn: ast.CoreFn(w.Op), Of: of, Args: args}, nil
	case exprAwait:
		return &ast.Await{Meta: m, Future: arg(0)}, nil
	case exprComposite:
		if len(w.Names) != len(args) {
			return nil, fmt.Errorf("binfile: composite %s has %d names for %d values", w.Text, len(w.Names), len(args))
		}
		cargs, err := decodeExprs(w.ConstArgs)
		if err != nil {
			return nil, err
		}
		out := &ast.CompositeInit{Meta: m, Name: w.Text, ConstArgs: cargs}
		for i, name := range w.Names {
			out.Members = append(out.Members, ast.CompositeMember{Name: name, Value: args[i]})
		}
		return out, nil
	case exprMemberAccess:
		return &ast.MemberAccess{Meta: m, Inner: arg(0), Member: w.Text}, nil
	case exprArrayInit:
		return &ast.ArrayInit{Meta: m, Elements: args}, nil
	case exprRepeat:
		return &ast.Repeat{Meta: m, Value: arg(0), Count: arg(1)}, nil
	case exprArrayAccess:
		return &ast.ArrayAccess{Meta: m, Array: arg(0), Index: arg(1)}, nil
	case exprTuple:
		return &ast.TupleExpr{Meta: m, Elements: args}, nil
	case exprTupleAccess:
		return &ast.TupleAccess{Meta: m, Tuple: arg(0), Index: w.Index}, nil
	}
	return nil, fmt.Errorf("binfile: unknown expression kind %d", w.Kind)
}

func decodeStmt(w *wireStmt) (ast.Statement, error) {
	if w == nil {
		return nil, nil
	}
	m := meta(w.Node, w.Span)
	exprs, err := decodeExprs(w.Exprs)
	if err != nil {
		return nil, err
	}
	expr := func(i int) ast.Expression {
		if i < len(exprs) {
			return exprs[i]
		}
		return nil
	}
	switch w.Kind {
	case stmtDefinition:
		ty, err := decodeType(w.Type)
		if err != nil {
			return nil, err
		}
		targets, err := decodeIdents(w.Targets)
		if err != nil {
			return nil, err
		}
		return &ast.Definition{Meta: m, Kind: ast.DeclKind(w.Decl), Targets: targets, Type: ty, Value: expr(0)}, nil
	case stmtAssign:
		return &ast.Assign{Meta: m, Place: expr(0), Value: expr(1)}, nil
	case stmtBlock:
		out := &ast.Block{Meta: m}
		for _, ws := range w.Stmts {
			s, err := decodeStmt(ws)
			if err != nil {
				return nil, err
			}
			out.Statements = append(out.Statements, s)
		}
		return out, nil
	case stmtConditional:
		then, err := decodeStmt(w.Then)
		if err != nil {
			return nil, err
		}
		block, ok := then.(*ast.Block)
		if !ok {
			return nil, fmt.Errorf("binfile: conditional consequent is not a block")
		}
		otherwise, err := decodeStmt(w.Else)
		if err != nil {
			return nil, err
		}
		return &ast.Conditional{Meta: m, Condition: expr(0), Then: block, Otherwise: otherwise}, nil
	case stmtConsole:
		return &ast.Console{Meta: m, Kind: ast.ConsoleKind(w.Decl), Format: w.Text, Args: exprs}, nil
	case stmtIteration:
		ty, err := decodeType(w.Type)
		if err != nil {
			return nil, err
		}
		targets, err := decodeIdents(w.Targets)
		if err != nil {
			return nil, err
		}
		if len(targets) != 1 {
			return nil, fmt.Errorf("binfile: iteration has %d variables", len(targets))
		}
		body, err := decodeStmt(w.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*ast.Block)
		if !ok {
			return nil, fmt.Errorf("binfile: iteration body is not a block")
		}
		return &ast.Iteration{
			Meta:      m,
			Variable:  targets[0],
			VarType:   ty,
			Start:     expr(0),
			Stop:      expr(1),
			Inclusive: w.Flag,
			Body:      block,
		}, nil
	case stmtReturn:
		return &ast.Return{Meta: m, Value: expr(0)}, nil
	case stmtExpr:
		return &ast.ExprStatement{Meta: m, Expr: expr(0)}, nil
	}
	return nil, fmt.Errorf("binfile: unknown statement kind %d", w.Kind)
}

func decodeIdents(in []*wireExpr) ([]*ast.Identifier, error) {
	out := make([]*ast.Identifier, 0, len(in))
	for _, w := range in {
		e, err := decodeExpr(w)
		if err != nil {
			return nil, err
		}
		ident, ok := e.(*ast.Identifier)
		if !ok {
			return nil, fmt.Errorf("binfile: binding target is %T, not an identifier", e)
		}
		out = append(out, ident)
	}
	return out, nil
}

func decodeSemType(w *wireSemType) (types.Type, error) {
	if w == nil {
		return nil, fmt.Errorf("binfile: missing type entry payload")
	}
	switch w.Kind {
	case semPrim:
		return types.Primitive{Kind: ast.PrimKind(w.Prim)}, nil
	case semComposite:
		return types.Composite{Program: w.Program, Name: w.Name}, nil
	case semArray:
		elem, err := decodeSemType(w.Elem)
		if err != nil {
			return nil, err
		}
		return types.Array{Elem: elem, Length: w.Length}, nil
	case semTuple:
		elems := make([]types.Type, 0, len(w.Elems))
		for _, e := range w.Elems {
			elem, err := decodeSemType(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return types.Tuple{Elems: elems}, nil
	case semMapping:
		key, err := decodeSemType(w.Elem)
		if err != nil {
			return nil, err
		}
		val, err := decodeSemType(w.Value)
		if err != nil {
			return nil, err
		}
		return types.Mapping{Key: key, Value: val}, nil
	case semFuture:
		return types.Future{}, nil
	case semOption:
		inner, err := decodeSemType(w.Elem)
		if err != nil {
			return nil, err
		}
		return types.Option{Inner: inner}, nil
	case semUnit:
		return types.Unit{}, nil
	}
	return nil, fmt.Errorf("binfile: unknown semantic type kind %d", w.Kind)
}

func meta(node uint64, sp source.Span) ast.Meta {
	return ast.Meta{Node: ast.NodeID(node), Loc: sp}
}
