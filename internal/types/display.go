package types

import (
	"fmt"
	"strings"

	"github.com/funvibe/semant/internal/db"
)

// sourceOf reads a node's `source` fact, falling back to its node id when
// absent (e.g. synthesized nodes that were never given source text).
func sourceOf(d *db.DB, n db.NodeId) string {
	if s, ok := db.Get[db.Text](d, n, "source"); ok {
		return string(s)
	}
	return fmt.Sprintf("<%d>", n)
}

// Display renders t in the compact surface syntax from spec §6: `Name P1
// P2`, `T1 T2 -> U`, `(E1 ; E2)`, `()`, unknowns as `_`.
func Display(d *db.DB, t Ty) string {
	switch v := t.(type) {
	case Unknown, Of:
		return "_"
	case Parameter:
		return sourceOf(d, v.Node)
	case Named:
		name := sourceOf(d, v.Name)
		if len(v.Order) == 0 {
			return name
		}
		parts := make([]string, len(v.Order))
		for i, k := range v.Order {
			parts[i] = Display(d, v.Parameters[k])
		}
		return name + " " + strings.Join(parts, " ")
	case Function:
		parts := make([]string, len(v.Inputs))
		for i, in := range v.Inputs {
			parts[i] = Display(d, in)
		}
		if len(parts) == 0 {
			return "-> " + Display(d, v.Output)
		}
		return strings.Join(parts, " ") + " -> " + Display(d, v.Output)
	case Tuple:
		if len(v.Elements) == 0 {
			return "()"
		}
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = Display(d, e)
		}
		return "(" + strings.Join(parts, " ; ") + ")"
	default:
		return "?"
	}
}
