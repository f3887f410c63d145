// Package binfile implements the binary artifact codec. The frontend hands
// the middle end a `.last` file (the typed-syntax tree plus the node counter
// high-water mark); the middle end emits a `.llow` file (the lowered tree,
// the type table, and a symbol summary). Both are msgpack-encoded and carry a
// magic string and schema version that are checked before any node decoding.
package binfile

import (
	"lumen/internal/source"
)

const (
	// SchemaVersion gates decoding: files written by a different schema are
	// rejected outright rather than misread.
	SchemaVersion uint32 = 1

	// MagicTree marks a frontend tree artifact (.last).
	MagicTree = "LAST"
	// MagicLowered marks a lowered artifact (.llow).
	MagicLowered = "LLOW"
)

// Expression kind discriminators.
const (
	exprLiteral uint8 = iota
	exprIdent
	exprBinary
	exprUnary
	exprTernary
	exprCast
	exprCall
	exprAssociated
	exprAwait
	exprComposite
	exprMemberAccess
	exprArrayInit
	exprRepeat
	exprArrayAccess
	exprTuple
	exprTupleAccess
)

// Statement kind discriminators.
const (
	stmtDefinition uint8 = iota
	stmtAssign
	stmtBlock
	stmtConditional
	stmtConsole
	stmtIteration
	stmtReturn
	stmtExpr
)

// Syntactic type kind discriminators.
const (
	typePrim uint8 = iota
	typeNamed
	typeArray
	typeTuple
	typeFuture
	typeOption
	typeUnit
)

// Semantic type kind discriminators.
const (
	semPrim uint8 = iota
	semComposite
	semArray
	semTuple
	semMapping
	semFuture
	semOption
	semUnit
)

type wireFile struct {
	Magic    string         `msgpack:"magic"`
	Version  uint32         `msgpack:"version"`
	NextNode uint64         `msgpack:"next_node"`
	Programs []*wireProgram `msgpack:"programs"`

	// Lowered artifacts only.
	Types   []wireTypeEntry `msgpack:"types,omitempty"`
	Symbols []wireSymbol    `msgpack:"symbols,omitempty"`
}

type wireProgram struct {
	Node        uint64          `msgpack:"id"`
	Span        source.Span     `msgpack:"sp"`
	Name        string          `msgpack:"name"`
	Network     string          `msgpack:"net"`
	Consts      []*wireConst    `msgpack:"consts,omitempty"`
	Structs     []*wireStruct   `msgpack:"structs,omitempty"`
	Mappings    []*wireMapping  `msgpack:"mappings,omitempty"`
	Storages    []*wireStorage  `msgpack:"storages,omitempty"`
	Functions   []*wireFunction `msgpack:"functions,omitempty"`
	Constructor *wireFunction   `msgpack:"constructor,omitempty"`
}

type wireConst struct {
	Node  uint64      `msgpack:"id"`
	Span  source.Span `msgpack:"sp"`
	Name  string      `msgpack:"name"`
	Type  *wireType   `msgpack:"ty,omitempty"`
	Value *wireExpr   `msgpack:"val"`
}

type wireStruct struct {
	Node        uint64      `msgpack:"id"`
	Span        source.Span `msgpack:"sp"`
	Name        string      `msgpack:"name"`
	IsRecord    bool        `msgpack:"record,omitempty"`
	ConstParams []wireParam `msgpack:"cparams,omitempty"`
	Members     []wireParam `msgpack:"members"`
}

type wireMapping struct {
	Node  uint64      `msgpack:"id"`
	Span  source.Span `msgpack:"sp"`
	Name  string      `msgpack:"name"`
	Key   *wireType   `msgpack:"key"`
	Value *wireType   `msgpack:"val"`
}

type wireStorage struct {
	Node uint64      `msgpack:"id"`
	Span source.Span `msgpack:"sp"`
	Name string      `msgpack:"name"`
	Type *wireType   `msgpack:"ty"`
}

type wireFunction struct {
	Node        uint64      `msgpack:"id"`
	Span        source.Span `msgpack:"sp"`
	Variant     uint8       `msgpack:"variant"`
	Name        string      `msgpack:"name"`
	Finalizer   string      `msgpack:"finalizer,omitempty"`
	ConstParams []wireParam `msgpack:"cparams,omitempty"`
	Params      []wireParam `msgpack:"params,omitempty"`
	Output      *wireType   `msgpack:"out,omitempty"`
	Body        *wireStmt   `msgpack:"body,omitempty"`
}

type wireParam struct {
	Name string      `msgpack:"name"`
	Type *wireType   `msgpack:"ty,omitempty"`
	Span source.Span `msgpack:"sp"`
}

type wireType struct {
	Kind      uint8       `msgpack:"k"`
	Prim      uint8       `msgpack:"p,omitempty"`
	Program   string      `msgpack:"pg,omitempty"`
	Name      string      `msgpack:"nm,omitempty"`
	ConstArgs []*wireExpr `msgpack:"ca,omitempty"`
	Elem      *wireType   `msgpack:"el,omitempty"` // array element, option inner
	Length    *wireExpr   `msgpack:"ln,omitempty"`
	Elems     []*wireType `msgpack:"es,omitempty"`
}

type wireExpr struct {
	Kind      uint8       `msgpack:"k"`
	Node      uint64      `msgpack:"id"`
	Span      source.Span `msgpack:"sp"`
	Op        uint8       `msgpack:"op,omitempty"` // operator, core fn, literal kind
	Width     uint8       `msgpack:"w,omitempty"`
	Text      string      `msgpack:"tx,omitempty"` // literal text, names
	Program   string      `msgpack:"pg,omitempty"`
	Index     uint32      `msgpack:"ix,omitempty"`
	Type      *wireType   `msgpack:"ty,omitempty"` // cast target, core-call subject
	Args      []*wireExpr `msgpack:"as,omitempty"`
	ConstArgs []*wireExpr `msgpack:"ca,omitempty"`
	Names     []string    `msgpack:"nms,omitempty"` // composite member names, parallel to Args
}

type wireStmt struct {
	Kind    uint8       `msgpack:"k"`
	Node    uint64      `msgpack:"id"`
	Span    source.Span `msgpack:"sp"`
	Decl    uint8       `msgpack:"d,omitempty"` // declaration or console kind
	Flag    bool        `msgpack:"f,omitempty"` // inclusive iteration
	Text    string      `msgpack:"tx,omitempty"`
	Targets []*wireExpr `msgpack:"tg,omitempty"`
	Type    *wireType   `msgpack:"ty,omitempty"`
	Exprs   []*wireExpr `msgpack:"es,omitempty"`
	Stmts   []*wireStmt `msgpack:"ss,omitempty"`
	Then    *wireStmt   `msgpack:"th,omitempty"`
	Else    *wireStmt   `msgpack:"el,omitempty"`
	Body    *wireStmt   `msgpack:"bd,omitempty"`
}

type wireTypeEntry struct {
	Node uint64       `msgpack:"id"`
	Type *wireSemType `msgpack:"ty"`
}

type wireSemType struct {
	Kind    uint8          `msgpack:"k"`
	Prim    uint8          `msgpack:"p,omitempty"`
	Program string         `msgpack:"pg,omitempty"`
	Name    string         `msgpack:"nm,omitempty"`
	Length  uint32         `msgpack:"ln,omitempty"`
	Elem    *wireSemType   `msgpack:"el,omitempty"` // array element, option inner, mapping key
	Value   *wireSemType   `msgpack:"vl,omitempty"` // mapping value
	Elems   []*wireSemType `msgpack:"es,omitempty"`
}

// wireSymbol is one line of the artifact's symbol summary.
type wireSymbol struct {
	Kind    string `msgpack:"kind"` // function, struct, mapping
	Program string `msgpack:"pg"`
	Name    string `msgpack:"name"`
}
