package value

import (
	"strings"
)

// MangleName encodes a generic definition name specialized by literal const
// arguments, e.g. `Pair::[2u8]`. The encoding is canonical: equal argument
// lists always produce equal names, which monomorphization relies on for
// memoization.
func MangleName(base string, args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Mangle()
	}
	return base + "::[" + strings.Join(parts, ", ") + "]"
}
