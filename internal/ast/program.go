package ast

import (
	"lumen/internal/source"
)

// Program is the whole compilation unit: an ordered collection of program
// scopes, one per on-chain program. The tree is owned by the compiler state
// and replaced wholesale by each pass's reconstruction.
type Program struct {
	Scopes []*ProgramScope
}

// Scope returns the program scope with the given name, or nil.
func (p *Program) Scope(name string) *ProgramScope {
	for _, s := range p.Scopes {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ProgramScope is one on-chain program: ordered composites, mappings, storage
// declarations, consts, functions and an optional constructor.
type ProgramScope struct {
	Meta
	Name        string
	Network     string
	Consts      []*ConstDecl
	Structs     []*Struct
	Mappings    []*Mapping
	Storages    []*Storage
	Functions   []*Function
	Constructor *Function
}

// Struct declares a composite, possibly parameterized by const generics.
type Struct struct {
	Meta
	Name        string
	ConstParams []*ConstParam
	Members     []*Member
	IsRecord    bool
}

// Member is one named field of a composite.
type Member struct {
	Name string
	Type Type
	Loc  source.Span
}

// FieldIndex returns the position of the named member, or -1.
func (s *Struct) FieldIndex(name string) int {
	for i, m := range s.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// ConstParam is one const-generic parameter of a struct or function.
type ConstParam struct {
	Name string
	Type Type
	Loc  source.Span
}

// Mapping declares an on-chain key-value mapping.
type Mapping struct {
	Meta
	Name  string
	Key   Type
	Value Type
}

// Storage declares a single-slot on-chain storage variable; lowered to one or
// two backing mappings before SSA.
type Storage struct {
	Meta
	Name string
	Type Type
}

// ConstDecl is a program-scope constant.
type ConstDecl struct {
	Meta
	Name  string
	Type  Type
	Value Expression
}

// FunctionVariant distinguishes function flavors.
type FunctionVariant uint8

const (
	// VariantFunction is an off-chain helper, eligible for inlining.
	VariantFunction FunctionVariant = iota
	// VariantTransition is a circuit entry point.
	VariantTransition
	// VariantAsyncTransition is a transition that schedules on-chain work.
	VariantAsyncTransition
	// VariantAsyncFunction is the on-chain body attached to an async
	// transition; the only place real branches survive to emission.
	VariantAsyncFunction
	// VariantConstructor runs once at deployment.
	VariantConstructor
)

func (v FunctionVariant) String() string {
	switch v {
	case VariantFunction:
		return "function"
	case VariantTransition:
		return "transition"
	case VariantAsyncTransition:
		return "async transition"
	case VariantAsyncFunction:
		return "async function"
	case VariantConstructor:
		return "constructor"
	}
	return "?"
}

// IsAsync reports whether the variant participates in the async protocol.
func (v FunctionVariant) IsAsync() bool {
	return v == VariantAsyncTransition || v == VariantAsyncFunction
}

// Param is one function input.
type Param struct {
	Name string
	Type Type
	Loc  source.Span
}

// Function declares a function of any variant. Finalizer names the async
// function an async transition resolves to, when present.
type Function struct {
	Meta
	Variant     FunctionVariant
	Name        string
	ConstParams []*ConstParam
	Params      []*Param
	Output      Type // UnitType for no output
	Body        *Block
	Finalizer   string
}

// IsGeneric reports whether the function still has const parameters.
func (f *Function) IsGeneric() bool { return len(f.ConstParams) > 0 }

// IsGeneric reports whether the struct still has const parameters.
func (s *Struct) IsGeneric() bool { return len(s.ConstParams) > 0 }

// Function returns the function with the given name, or nil.
func (s *ProgramScope) Function(name string) *Function {
	for _, f := range s.Functions {
		if f.Name == name {
			return f
		}
	}
	if s.Constructor != nil && s.Constructor.Name == name {
		return s.Constructor
	}
	return nil
}

// Struct returns the composite with the given name, or nil.
func (s *ProgramScope) Struct(name string) *Struct {
	for _, st := range s.Structs {
		if st.Name == name {
			return st
		}
	}
	return nil
}

// Mapping returns the mapping with the given name, or nil.
func (s *ProgramScope) MappingByName(name string) *Mapping {
	for _, m := range s.Mappings {
		if m.Name == name {
			return m
		}
	}
	return nil
}
