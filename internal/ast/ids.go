package ast

// NodeID is the process-wide identity of a single tree node. Every statement
// and expression minted by the frontend or by any rewrite pass carries one;
// side tables (types, symbols, renames) key off it rather than off structural
// position.
type NodeID uint64

// NoNodeID marks the absence of a node reference.
const NoNodeID NodeID = 0

// IsValid reports whether the ID refers to a minted node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Counter mints monotonically increasing node IDs. The frontend hands the
// pipeline a counter already advanced past every parsed node.
type Counter struct {
	next uint64
}

// NewCounter resumes minting from next. A zero next still yields valid IDs.
func NewCounter(next uint64) *Counter {
	if next == 0 {
		next = 1
	}
	return &Counter{next: next}
}

// Next mints a fresh node ID.
func (c *Counter) Next() NodeID {
	id := NodeID(c.next)
	c.next++
	return id
}

// Peek returns the value the next minted ID will have, used when snapshotting
// compiler state into an artifact.
func (c *Counter) Peek() uint64 { return c.next }
