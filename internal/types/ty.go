// Package types is the pure-data type model described in spec §3 and §4.3:
// Ty, Substitutions, Constraint, Instantiation, Bound, plus the traversal
// helpers the solver needs. Nothing here mutates a db.DB; this package only
// knows how to describe types, not how to resolve them.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/semant/internal/db"
)

// Ty is one of the variants listed in spec §3. It is a plain sum type: a Go
// interface implemented by a small closed set of structs, matched with type
// switches rather than virtual dispatch (per spec §9 "Polymorphism over
// expression kinds").
type Ty interface {
	isTy()
	String() string
}

// Unknown is the inference result for a node that never received any
// constraint. It carries the node it describes purely for display.
type Unknown struct{ Node db.NodeId }

func (Unknown) isTy()          {}
func (Unknown) String() string { return "_" }

// Of is a placeholder meaning "the type of node n"; resolved via union-find
// by the solver. No Of(n) should survive in a typed node's final type.
type Of struct{ Node db.NodeId }

func (Of) isTy()          {}
func (Of) String() string { return "_" }

// Parameter is a bound, rigid type parameter tied to the defining node.
// String falls back to the node id since it has no DB from which to read
// the node's `source` fact; callers that can reach the DB should prefer
// Display (see display.go).
type Parameter struct{ Node db.NodeId }

func (Parameter) isTy() {}
func (p Parameter) String() string {
	return fmt.Sprintf("t%d", p.Node)
}

// Named is a nominal type with named parameter slots, e.g. `Map K V`.
// Parameters is an ordered map (NodeId -> Ty); Order records insertion
// order since Go maps have none.
type Named struct {
	Name       db.NodeId
	Parameters map[db.NodeId]Ty
	Order      []db.NodeId
}

func (Named) isTy() {}
func (n Named) String() string {
	parts := make([]string, 0, len(n.Order))
	for _, k := range n.Order {
		parts = append(parts, n.Parameters[k].String())
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Named(%d)", n.Name)
	}
	return fmt.Sprintf("Named(%d) %s", n.Name, strings.Join(parts, " "))
}

// Function is `inputs -> output`.
type Function struct {
	Inputs []Ty
	Output Ty
}

func (Function) isTy() {}
func (f Function) String() string {
	parts := make([]string, 0, len(f.Inputs)+1)
	for _, in := range f.Inputs {
		parts = append(parts, in.String())
	}
	return fmt.Sprintf("%s -> %s", strings.Join(parts, " "), f.Output.String())
}

// Tuple is a fixed-size product; Unit is Tuple{} (no elements).
type Tuple struct{ Elements []Ty }

func (Tuple) isTy() {}
func (t Tuple) String() string {
	if len(t.Elements) == 0 {
		return "()"
	}
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ; ") + ")"
}

// UnitTy is the canonical empty tuple.
func UnitTy() Ty { return Tuple{} }

// Traverse visits ty and every descendant, outer node first: a Named's
// parameters (in Order), a Function's inputs then output, a Tuple's
// elements (spec §4.3).
func Traverse(t Ty, f func(Ty)) {
	f(t)
	switch v := t.(type) {
	case Named:
		for _, k := range v.Order {
			Traverse(v.Parameters[k], f)
		}
	case Function:
		for _, in := range v.Inputs {
			Traverse(in, f)
		}
		Traverse(v.Output, f)
	case Tuple:
		for _, e := range v.Elements {
			Traverse(e, f)
		}
	}
}

// TraverseMut visits and may replace ty and every descendant, outer node
// first, rebuilding composite nodes bottom-up from the mutated children.
func TraverseMut(t Ty, f func(Ty) Ty) Ty {
	t = f(t)
	switch v := t.(type) {
	case Named:
		newParams := make(map[db.NodeId]Ty, len(v.Parameters))
		for _, k := range v.Order {
			newParams[k] = TraverseMut(v.Parameters[k], f)
		}
		return Named{Name: v.Name, Parameters: newParams, Order: v.Order}
	case Function:
		newIn := make([]Ty, len(v.Inputs))
		for i, in := range v.Inputs {
			newIn[i] = TraverseMut(in, f)
		}
		return Function{Inputs: newIn, Output: TraverseMut(v.Output, f)}
	case Tuple:
		newElems := make([]Ty, len(v.Elements))
		for i, e := range v.Elements {
			newElems[i] = TraverseMut(e, f)
		}
		return Tuple{Elements: newElems}
	default:
		return t
	}
}

// IsIncomplete reports whether any descendant of t is an Of(_) placeholder.
func IsIncomplete(t Ty) bool {
	incomplete := false
	Traverse(t, func(v Ty) {
		if _, ok := v.(Of); ok {
			incomplete = true
		}
	})
	return incomplete
}

// Equal is structural equality, used by db.Fact.Equal on Extension-wrapped
// types and by tests.
func Equal(a, b Ty) bool {
	switch av := a.(type) {
	case Unknown:
		bv, ok := b.(Unknown)
		return ok && av.Node == bv.Node
	case Of:
		bv, ok := b.(Of)
		return ok && av.Node == bv.Node
	case Parameter:
		bv, ok := b.(Parameter)
		return ok && av.Node == bv.Node
	case Named:
		bv, ok := b.(Named)
		if !ok || av.Name != bv.Name || len(av.Order) != len(bv.Order) {
			return false
		}
		for i, k := range av.Order {
			if bv.Order[i] != k || !Equal(av.Parameters[k], bv.Parameters[k]) {
				return false
			}
		}
		return true
	case Function:
		bv, ok := b.(Function)
		if !ok || len(av.Inputs) != len(bv.Inputs) {
			return false
		}
		for i := range av.Inputs {
			if !Equal(av.Inputs[i], bv.Inputs[i]) {
				return false
			}
		}
		return Equal(av.Output, bv.Output)
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SortedNamedOrder is a helper for constructing a deterministic Named.Order
// slice from a set of keys, for callers that build Named types from maps
// where no natural insertion order exists yet. Nothing in this module
// calls it at present.
func SortedNamedOrder(m map[db.NodeId]Ty) []db.NodeId {
	order := make([]db.NodeId, 0, len(m))
	for k := range m {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}
