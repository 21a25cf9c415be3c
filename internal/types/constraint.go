package types

import "github.com/funvibe/semant/internal/db"

// Substitutions is an ordered map NodeId(parameter) -> Ty. The empty map is
// the "replace-all" sentinel: it instructs instantiation to allocate a
// fresh copy for every parameter it encounters rather than substituting
// from an explicit entry (spec §3, §4.4).
type Substitutions struct {
	entries map[db.NodeId]Ty
	order   []db.NodeId
}

// ReplaceAll returns the empty, "clone every parameter" substitution.
func ReplaceAll() Substitutions { return Substitutions{} }

// NewSubstitutions builds an explicit substitution map from the given
// parameter->Ty pairs, preserving call order.
func NewSubstitutions(pairs ...struct {
	Param db.NodeId
	Type  Ty
}) Substitutions {
	s := Substitutions{entries: make(map[db.NodeId]Ty, len(pairs))}
	for _, p := range pairs {
		s.Set(p.Param, p.Type)
	}
	return s
}

// Set installs or overwrites a parameter's substitution, tracking insertion
// order for deterministic iteration.
func (s *Substitutions) Set(param db.NodeId, t Ty) {
	if s.entries == nil {
		s.entries = make(map[db.NodeId]Ty)
	}
	if _, exists := s.entries[param]; !exists {
		s.order = append(s.order, param)
	}
	s.entries[param] = t
}

// Get returns the substitution for param, if any.
func (s Substitutions) Get(param db.NodeId) (Ty, bool) {
	t, ok := s.entries[param]
	return t, ok
}

// IsReplaceAll reports whether this is the empty sentinel map.
func (s Substitutions) IsReplaceAll() bool { return len(s.entries) == 0 }

// Order returns the parameters in insertion order.
func (s Substitutions) Order() []db.NodeId {
	out := make([]db.NodeId, len(s.order))
	copy(out, s.order)
	return out
}

// Constraint is a unit of work for the solver (spec §3).
type Constraint interface {
	isConstraint()
}

// TyConstraint equates a node's type with t.
type TyConstraint struct {
	Node db.NodeId
	Type Ty
}

func (TyConstraint) isConstraint() {}

// Instantiation applies Substitutions to a definition's constraints so that
// parametric symbols become concrete, or freshly cloned under the
// replace-all sentinel (spec §3, §4.4).
type Instantiation struct {
	Source        db.NodeId // the use-site that triggered this instantiation
	Node          db.NodeId // the node whose type is being instantiated
	Definition    db.NodeId
	Substitutions Substitutions
}

func (Instantiation) isConstraint() {}

// InstantiationConstraint wraps an Instantiation as a top-level/definition
// queue entry.
type InstantiationConstraint struct{ Instantiation Instantiation }

func (InstantiationConstraint) isConstraint() {}

// Bound is a trait-instance obligation at a use site (spec §3, §4.4).
type Bound struct{ Instantiation Instantiation }

func (Bound) isConstraint() {}

// LazyConstraint is a closure producing a Constraint given the use-site
// node, used by definitions to re-instantiate their own constraints at
// every reference (spec §4.2 "Two constraint queues").
type LazyConstraint func(useSite db.NodeId) Constraint
