package sema

import (
	"fortio.org/safecast"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/types"
)

func safeLen(n int) (uint32, error) {
	return safecast.Conv[uint32](n)
}

// associated types a VM core-function call. Mapping and storage operations
// take the declaration name as their first argument.
func (c *Checker) associated(n *ast.AssociatedCall) types.Type {
	switch n.Fn {
	case ast.CoreMappingGet, ast.CoreMappingGetOrUse, ast.CoreMappingSet,
		ast.CoreMappingRemove, ast.CoreMappingContains:
		return c.mappingOp(n)
	case ast.CoreStorageRead, ast.CoreStorageWrite:
		return c.storageOp(n)
	case ast.CoreOptionSome:
		if len(n.Args) != 1 {
			diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(), "%s takes 1 argument", n.Fn)
			return nil
		}
		inner := c.infer(n.Args[0])
		if inner == nil {
			return nil
		}
		return types.Option{Inner: inner}
	case ast.CoreOptionNone:
		inner := c.resolveType(n.Of)
		if inner == nil {
			return nil
		}
		return types.Option{Inner: inner}
	case ast.CoreFieldInv:
		if len(n.Args) != 1 {
			diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(), "%s takes 1 argument", n.Fn)
			return nil
		}
		got := c.infer(n.Args[0])
		if got != nil && !types.IsField(got) {
			diag.Errorf(c.r, diag.TypeMismatch, n.Args[0].Span(),
				"%s takes a field, found %s", n.Fn, got)
		}
		return types.Primitive{Kind: ast.PrimField}
	case ast.CoreRandChaCha:
		return c.resolveType(n.Of)
	case ast.CoreCheatCode:
		for _, a := range n.Args {
			c.infer(a)
		}
		return types.Unit{}
	}
	return nil
}

func (c *Checker) mappingOp(n *ast.AssociatedCall) types.Type {
	decl := c.namedDecl(n)
	if decl == nil {
		return nil
	}
	mp := c.syms.LookupMapping(c.scope.Name, decl.Name)
	if mp == nil {
		diag.Errorf(c.r, diag.ResolveUnknownMapping, decl.Span(),
			"unknown mapping '%s' in program '%s'", decl.Name, c.scope.Name)
		return nil
	}
	keyT := c.resolveType(mp.Key)
	valT := c.resolveType(mp.Value)

	wantArgs := map[ast.CoreFn]int{
		ast.CoreMappingGet:      2,
		ast.CoreMappingGetOrUse: 3,
		ast.CoreMappingSet:      3,
		ast.CoreMappingRemove:   2,
		ast.CoreMappingContains: 2,
	}[n.Fn]
	if len(n.Args) != wantArgs {
		diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(),
			"%s takes %d arguments, found %d", n.Fn, wantArgs, len(n.Args))
		return nil
	}
	key := c.infer(n.Args[1])
	c.expect(keyT, key, n.Args[1])
	if n.Fn == ast.CoreMappingGetOrUse || n.Fn == ast.CoreMappingSet {
		v := c.infer(n.Args[2])
		c.expect(valT, v, n.Args[2])
	}

	switch n.Fn {
	case ast.CoreMappingGet, ast.CoreMappingGetOrUse:
		return valT
	case ast.CoreMappingContains:
		return types.Primitive{Kind: ast.PrimBool}
	default:
		return types.Unit{}
	}
}

func (c *Checker) storageOp(n *ast.AssociatedCall) types.Type {
	decl := c.namedDecl(n)
	if decl == nil {
		return nil
	}
	st := c.syms.LookupStorage(c.scope.Name, decl.Name)
	if st == nil {
		// Storage lowering rewrites these into mapping operations; after it
		// runs, the declaration is a mapping instead.
		if c.syms.LookupMapping(c.scope.Name, decl.Name) != nil {
			return nil
		}
		diag.Errorf(c.r, diag.ResolveUnknownMapping, decl.Span(),
			"unknown storage '%s' in program '%s'", decl.Name, c.scope.Name)
		return nil
	}
	ty := c.resolveType(st.Type)
	if n.Fn == ast.CoreStorageWrite {
		if len(n.Args) != 2 {
			diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(), "%s takes 2 arguments", n.Fn)
			return nil
		}
		got := c.infer(n.Args[1])
		c.expect(ty, got, n.Args[1])
		return types.Unit{}
	}
	if len(n.Args) != 1 {
		diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(), "%s takes 1 argument", n.Fn)
		return nil
	}
	return ty
}

// namedDecl extracts the declaration-name identifier every mapping/storage
// operation carries first.
func (c *Checker) namedDecl(n *ast.AssociatedCall) *ast.Identifier {
	if len(n.Args) == 0 {
		diag.Errorf(c.r, diag.TypeArityMismatch, n.Span(),
			"%s is missing its declaration operand", n.Fn)
		return nil
	}
	ident, ok := n.Args[0].(*ast.Identifier)
	if !ok {
		diag.Errorf(c.r, diag.TypeMismatch, n.Args[0].Span(),
			"%s takes a declaration name first", n.Fn)
		return nil
	}
	return ident
}
