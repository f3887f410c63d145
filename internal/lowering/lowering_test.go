package lowering

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

func storage(b *testkit.B, name string, ty ast.Type) *ast.Storage {
	return &ast.Storage{Meta: ast.NewMeta(b.C, source.Span{}), Name: name, Type: ty}
}

func TestStorageDeclarationLowersToMappings(t *testing.T) {
	b := testkit.New()
	prog := b.Program("demo", b.Transition("main", b.Block()))
	scope := prog.Scopes[0]
	scope.Storages = []*ast.Storage{
		storage(b, "total", ast.PrimitiveType{Kind: ast.PrimU64}),
		storage(b, "xs", ast.ArrayType{Elem: ast.PrimitiveType{Kind: ast.PrimU32}, Length: b.U32(4)}),
	}

	if !Run(prog, types.NewTable(), b.C, diag.NopReporter{}) {
		t.Fatalf("lowering a storage declaration must report a change")
	}
	if len(scope.Storages) != 0 {
		t.Fatalf("storage declarations must be consumed")
	}
	content := scope.MappingByName("total__content")
	if content == nil {
		t.Fatalf("content mapping missing")
	}
	if key, ok := content.Key.(ast.PrimitiveType); !ok || key.Kind != ast.PrimBool {
		t.Fatalf("content mapping must be keyed by bool, got %v", content.Key)
	}
	if scope.MappingByName("total__len") != nil {
		t.Fatalf("scalar storage must not get a length mapping")
	}
	if scope.MappingByName("xs__content") == nil || scope.MappingByName("xs__len") == nil {
		t.Fatalf("array storage must get content and length mappings")
	}
}

func TestStorageWriteMaintainsLength(t *testing.T) {
	b := testkit.New()
	write := &ast.AssociatedCall{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Fn:   ast.CoreStorageWrite,
		Args: []ast.Expression{b.Ident("xs"), b.Ident("v")},
	}
	body := b.Block(&ast.ExprStatement{Meta: ast.NewMeta(b.C, source.Span{}), Expr: write})
	prog := b.Program("demo", b.Transition("main", body))
	prog.Scopes[0].Storages = []*ast.Storage{
		storage(b, "xs", ast.ArrayType{Elem: ast.PrimitiveType{Kind: ast.PrimU32}, Length: b.U32(4)}),
	}

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	if len(body.Statements) != 2 {
		t.Fatalf("array storage write must also set the length, got %d statements", len(body.Statements))
	}
	if write.Fn != ast.CoreMappingSet {
		t.Fatalf("write must become a mapping set, got %v", write.Fn)
	}
	if got := write.Args[0].(*ast.Identifier).Name; got != "xs__content" {
		t.Fatalf("write targets %q", got)
	}
	if key := write.Args[1].(*ast.Literal); key.Text != "true" {
		t.Fatalf("content key must be the true literal, got %q", key.Text)
	}
	lenSet := body.Statements[1].(*ast.ExprStatement).Expr.(*ast.AssociatedCall)
	if lenSet.Fn != ast.CoreMappingSet {
		t.Fatalf("length maintenance must be a mapping set")
	}
	if got := lenSet.Args[0].(*ast.Identifier).Name; got != "xs__len" {
		t.Fatalf("length set targets %q", got)
	}
	if lit := lenSet.Args[2].(*ast.Literal); lit.Text != "4" {
		t.Fatalf("length value rendered as %q", lit.Text)
	}
}

func TestStorageReadBecomesMappingGet(t *testing.T) {
	b := testkit.New()
	read := &ast.AssociatedCall{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Fn:   ast.CoreStorageRead,
		Args: []ast.Expression{b.Ident("total")},
	}
	use := b.Assign(b.Ident("v"), read)
	prog := b.Program("demo", b.Transition("main", b.Block(use)))
	prog.Scopes[0].Storages = []*ast.Storage{
		storage(b, "total", ast.PrimitiveType{Kind: ast.PrimU64}),
	}

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	if read.Fn != ast.CoreMappingGet {
		t.Fatalf("read must become a mapping get, got %v", read.Fn)
	}
	if got := read.Args[0].(*ast.Identifier).Name; got != "total__content" {
		t.Fatalf("read targets %q", got)
	}
	if key := read.Args[1].(*ast.Literal); key.Text != "true" {
		t.Fatalf("content key must be the true literal, got %q", key.Text)
	}
}

func TestOptionSomeBecomesTaggedInitializer(t *testing.T) {
	b := testkit.New()
	tt := types.NewTable()
	some := &ast.AssociatedCall{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Fn:   ast.CoreOptionSome,
		Args: []ast.Expression{b.U32(5)},
	}
	tt.Insert(some.ID(), types.Option{Inner: types.Primitive{Kind: ast.PrimU32}})
	use := b.Assign(b.Ident("o"), some)
	prog := b.Program("demo", b.Transition("main", b.Block(use)))

	Run(prog, tt, b.C, diag.NopReporter{})
	init, ok := use.Value.(*ast.CompositeInit)
	if !ok || init.Name != "Option__u32" {
		t.Fatalf("constructor must become an initializer, got %T", use.Value)
	}
	if tag := init.Members[0].Value.(*ast.Literal); init.Members[0].Name != "is_some" || tag.Text != "true" {
		t.Fatalf("present option must be tagged true")
	}
	if val := init.Members[1].Value.(*ast.Literal); init.Members[1].Name != "value" || val.Text != "5" {
		t.Fatalf("payload lost: %+v", init.Members[1])
	}
	backing := prog.Scopes[0].Struct("Option__u32")
	if backing == nil {
		t.Fatalf("backing struct not minted")
	}
	if backing.Members[0].Name != "is_some" || backing.Members[1].Name != "value" {
		t.Fatalf("backing struct shape: %+v", backing.Members)
	}
}

func TestOptionNoneCarriesZeroValue(t *testing.T) {
	b := testkit.New()
	none := &ast.AssociatedCall{
		Meta: ast.NewMeta(b.C, source.Span{}),
		Fn:   ast.CoreOptionNone,
		Of:   ast.PrimitiveType{Kind: ast.PrimU32},
	}
	use := b.Assign(b.Ident("o"), none)
	prog := b.Program("demo", b.Transition("main", b.Block(use)))

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	init, ok := use.Value.(*ast.CompositeInit)
	if !ok {
		t.Fatalf("constructor must become an initializer, got %T", use.Value)
	}
	if tag := init.Members[0].Value.(*ast.Literal); tag.Text != "false" {
		t.Fatalf("absent option must be tagged false")
	}
	zero := init.Members[1].Value.(*ast.Literal)
	if zero.Text != "0" || zero.Width != ast.PrimU32 {
		t.Fatalf("payload must be the zero value, got %q", zero.Text)
	}
}

func TestOptionAnnotationsShareBackingStruct(t *testing.T) {
	b := testkit.New()
	main := b.Transition("main", b.Block())
	main.Params = []*ast.Param{{Name: "a", Type: ast.OptionType{Inner: ast.PrimitiveType{Kind: ast.PrimU32}}}}
	main.Output = ast.OptionType{Inner: ast.PrimitiveType{Kind: ast.PrimU32}}
	prog := b.Program("demo", main)

	Run(prog, types.NewTable(), b.C, diag.NopReporter{})
	named, ok := main.Params[0].Type.(ast.NamedType)
	if !ok || named.Name != "Option__u32" {
		t.Fatalf("param annotation rewritten to %v", main.Params[0].Type)
	}
	if out, ok := main.Output.(ast.NamedType); !ok || out.Name != named.Name {
		t.Fatalf("output annotation rewritten to %v", main.Output)
	}
	if len(prog.Scopes[0].Structs) != 1 {
		t.Fatalf("equal option annotations must share one backing struct, got %d", len(prog.Scopes[0].Structs))
	}
}
