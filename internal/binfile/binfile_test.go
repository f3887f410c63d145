package binfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/testkit"
	"lumen/internal/types"
)

func treeFixture(b *testkit.B) (*ast.Program, *ast.Literal) {
	lit := b.U32(2)
	body := b.Block(
		b.Let("x", b.Bin(ast.OpAdd, b.U32(1), lit)),
		b.If(b.Bool(true), b.Block(
			b.Assign(b.Ident("x"), b.U32(3)),
		), nil),
		b.For("i", b.U32(0), b.U32(4), b.Block(
			b.Assign(b.Ident("x"), b.Bin(ast.OpAdd, b.Ident("x"), b.Ident("i"))),
		)),
		b.Return(b.Ident("x")),
	)
	main := b.Transition("main", body)
	main.Output = ast.PrimitiveType{Kind: ast.PrimU32}
	prog := b.Program("demo", main)
	prog.Scopes[0].Consts = []*ast.ConstDecl{{
		Meta:  ast.NewMeta(b.C, source.Span{}),
		Name:  "LIMIT",
		Type:  ast.PrimitiveType{Kind: ast.PrimU8},
		Value: b.U8(7),
	}}
	return prog, lit
}

func TestTreeRoundTripPreservesIdentity(t *testing.T) {
	b := testkit.New()
	prog, lit := treeFixture(b)

	var buf bytes.Buffer
	if err := EncodeTree(&buf, prog, b.C); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, counter, err := DecodeTree(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if counter.Peek() != b.C.Peek() {
		t.Fatalf("counter resumed at %d, want %d", counter.Peek(), b.C.Peek())
	}

	scope := got.Scopes[0]
	if scope.Name != "demo" || scope.Network != "testnet" {
		t.Fatalf("scope header lost: %q on %q", scope.Name, scope.Network)
	}
	if len(scope.Consts) != 1 || scope.Consts[0].Name != "LIMIT" {
		t.Fatalf("const declaration lost")
	}
	main := scope.Function("main")
	if main == nil || main.Variant != ast.VariantTransition {
		t.Fatalf("transition lost")
	}
	def, ok := main.Body.Statements[0].(*ast.Definition)
	if !ok || len(def.Targets) != 1 || def.Targets[0].Name != "x" {
		t.Fatalf("definition shape lost: %T", main.Body.Statements[0])
	}
	bin := def.Value.(*ast.Binary)
	right := bin.Right.(*ast.Literal)
	if right.ID() != lit.ID() {
		t.Fatalf("node identity lost: %d, want %d", right.ID(), lit.ID())
	}
	if right.Text != "2" || right.Width != ast.PrimU32 {
		t.Fatalf("literal payload lost: %q %v", right.Text, right.Width)
	}
	cond, ok := main.Body.Statements[1].(*ast.Conditional)
	if !ok || cond.Otherwise != nil {
		t.Fatalf("conditional shape lost")
	}
	iter, ok := main.Body.Statements[2].(*ast.Iteration)
	if !ok || iter.Variable.Name != "i" || iter.Inclusive {
		t.Fatalf("iteration shape lost")
	}
}

func TestLoweredRoundTripCarriesTypes(t *testing.T) {
	b := testkit.New()
	place := b.Ident("x")
	body := b.Block(b.Assign(place, b.U32(1)))
	prog := b.Program("demo", b.Transition("main", body))

	tt := types.NewTable()
	tt.Insert(place.ID(), types.Tuple{Elems: []types.Type{
		types.Primitive{Kind: ast.PrimU32},
		types.Array{Elem: types.Primitive{Kind: ast.PrimBool}, Length: 3},
	}})
	tt.Insert(body.ID(), types.Composite{Program: "demo", Name: "Point"})

	var buf bytes.Buffer
	if err := EncodeLowered(&buf, prog, b.C, tt, symbols.NewTable()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, tt2, err := DecodeLowered(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tt2.Len() != tt.Len() {
		t.Fatalf("type table size %d, want %d", tt2.Len(), tt.Len())
	}
	if !types.Equal(tt2.Get(place.ID()), tt.Get(place.ID())) {
		t.Fatalf("tuple entry lost: %v", tt2.Get(place.ID()))
	}
	if !types.Equal(tt2.Get(body.ID()), tt.Get(body.ID())) {
		t.Fatalf("composite entry lost: %v", tt2.Get(body.ID()))
	}
	assign := got.Scopes[0].Function("main").Body.Statements[0].(*ast.Assign)
	if assign.Place.(*ast.Identifier).ID() != place.ID() {
		t.Fatalf("lowered tree must keep node identity")
	}
}

func TestDecodeRejectsWrongArtifactKind(t *testing.T) {
	b := testkit.New()
	prog, _ := treeFixture(b)

	var buf bytes.Buffer
	if err := EncodeTree(&buf, prog, b.C); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, _, err := DecodeLowered(&buf); !errors.Is(err, ErrMagic) {
		t.Fatalf("tree artifact must not decode as lowered, got %v", err)
	}
}

func TestDecodeRejectsUnknownSchemaVersion(t *testing.T) {
	var buf bytes.Buffer
	file := wireFile{Magic: MagicTree, Version: SchemaVersion + 1}
	if err := msgpack.NewEncoder(&buf).Encode(&file); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := DecodeTree(&buf); !errors.Is(err, ErrVersion) {
		t.Fatalf("version mismatch must be reported, got %v", err)
	}
}
