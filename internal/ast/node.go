package ast

import (
	"lumen/internal/source"
)

// Node is implemented by every statement and expression in the tree.
type Node interface {
	ID() NodeID
	Span() source.Span
}

// Meta carries the identity and source span every node embeds.
type Meta struct {
	Node NodeID
	Loc  source.Span
}

func (m Meta) ID() NodeID        { return m.Node }
func (m Meta) Span() source.Span { return m.Loc }

// NewMeta mints a fresh node identity at the given span.
func NewMeta(c *Counter, sp source.Span) Meta {
	return Meta{Node: c.Next(), Loc: sp}
}
