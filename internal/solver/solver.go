// Package solver implements the constraint solver of spec §4.4: it
// consumes constraints, unifies node types via union-find, performs generic
// instantiation, and resolves trait bounds by trial unification, writing
// resolved types and diagnostic markers back onto the fact database.
package solver

import (
	"fmt"

	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// InstanceProvider resolves a trait's declared instances. The visitor hands
// the solver a concrete implementation backed by its own trait-to-instances
// table; no `instance` facts are written to or read from the fact database.
type InstanceProvider interface {
	// Instances returns, for the given trait node, every instance node and
	// the substitutions under which that instance realizes the trait.
	Instances(trait db.NodeId) []InstanceCandidate
}

// InstanceCandidate is one declared instance of a trait.
type InstanceCandidate struct {
	Instance      db.NodeId
	Substitutions types.Substitutions
}

// Environment supplies the solver with everything it cannot derive from
// the constraint queue alone: a definition's lazy constraints (for
// instantiation) and a trait's declared instances (for bound resolution).
type Environment interface {
	InstanceProvider
	DefinitionProvider
}

// Solver holds all solver state (spec §4.4 "State").
type Solver struct {
	d         *db.DB
	uf        *unionFind
	keys      *keyTable
	groups    map[GroupKey]types.Ty
	others    map[db.NodeId][]types.Ty
	queue     []types.Constraint
	typed     map[db.NodeId]bool // nodes that must end up with a `type` fact
	provider  InstanceProvider
	defs      DefinitionProvider
	progress  bool
	errorFlag bool
}

// New returns a solver that writes results into d and resolves
// instantiations/trait bounds using env.
func New(d *db.DB, env Environment) *Solver {
	return &Solver{
		d:        d,
		uf:       newUnionFind(),
		keys:     newKeyTable(),
		groups:   make(map[GroupKey]types.Ty),
		others:   make(map[db.NodeId][]types.Ty),
		typed:    make(map[db.NodeId]bool),
		provider: env,
		defs:     env,
	}
}

// InsertTypedNodes marks nodes as requiring a final `type` fact even if no
// constraint ever mentions them directly (spec §4.4 "fillWithUnknown").
func (s *Solver) InsertTypedNodes(nodes []db.NodeId) {
	for _, n := range nodes {
		s.typed[n] = true
	}
}

// Enqueue adds constraints to the work queue.
func (s *Solver) Enqueue(cs ...types.Constraint) {
	s.queue = append(s.queue, cs...)
}

// clone makes a fully independent copy of the solver, used by bound
// resolution to trial-unify each candidate instance without mutating
// shared state (spec §4.4 step 4, §5 "the clone is fully independent").
func (s *Solver) clone() *Solver {
	groups := make(map[GroupKey]types.Ty, len(s.groups))
	for k, v := range s.groups {
		groups[k] = v
	}
	others := make(map[db.NodeId][]types.Ty, len(s.others))
	for k, v := range s.others {
		cp := make([]types.Ty, len(v))
		copy(cp, v)
		others[k] = cp
	}
	typed := make(map[db.NodeId]bool, len(s.typed))
	for k, v := range s.typed {
		typed[k] = v
	}
	queue := make([]types.Constraint, len(s.queue))
	copy(queue, s.queue)

	return &Solver{
		d:        s.d,
		uf:       s.uf.clone(),
		keys:     s.keys.clone(),
		groups:   groups,
		others:   others,
		typed:    typed,
		queue:    queue,
		provider: s.provider,
		defs:     s.defs,
	}
}

// keyFor returns (creating if necessary) the group key for node n.
func (s *Solver) keyFor(n db.NodeId) GroupKey {
	if k, ok := s.keys.keys[n]; ok {
		return k
	}
	k := s.uf.newKey(n)
	s.keys.keys[n] = k
	return k
}

func (s *Solver) tryKeyFor(n db.NodeId) (GroupKey, bool) {
	k, ok := s.keys.keys[n]
	return k, ok
}

// representativeNode returns one node standing in for root's group (its
// lowest NodeId); applyTy uses it as the Of(...) for a group that has no
// bound type yet.
func (s *Solver) representativeNode(root GroupKey) db.NodeId {
	nodes := s.uf.nodesOf(root)
	if len(nodes) == 0 {
		panic("solver: group key has no member nodes")
	}
	min := nodes[0]
	for _, n := range nodes[1:] {
		if n < min {
			min = n
		}
	}
	return min
}

// Run drains the queue, repeating passes until none makes progress (spec
// §4.4 "Main loop"). It panics if a constraint remains afterward, per the
// stated invariant.
func (s *Solver) Run() {
	for {
		progress := false
		if s.runTys() {
			progress = true
		}
		if s.runInstantiations() {
			progress = true
		}
		if s.runBounds() {
			progress = true
		}
		if s.fillWithUnknown() {
			progress = true
		}
		if !progress {
			break
		}
	}
	if len(s.queue) != 0 {
		panic(fmt.Sprintf("solver: %d constraint(s) left unresolved after run", len(s.queue)))
	}
}

// fillWithUnknown assigns Ty::Unknown(n) to any typed node that never
// entered a group (spec §4.4 step 4).
func (s *Solver) fillWithUnknown() bool {
	progress := false
	for n := range s.typed {
		if _, ok := s.tryKeyFor(n); ok {
			continue
		}
		key := s.keyFor(n)
		s.groups[key] = types.Unknown{Node: n}
		progress = true
	}
	return progress
}

// runTys drains all Ty(n, t) constraints, stably reordered so that Of(_)
// constraints are applied first, then incomplete types, then complete
// types (spec §4.4 "runTys ordering").
func (s *Solver) runTys() bool {
	var ofConstraints, incomplete, complete []types.TyConstraint
	var rest []types.Constraint
	for _, c := range s.queue {
		if tc, ok := c.(types.TyConstraint); ok {
			if _, isOf := tc.Type.(types.Of); isOf {
				ofConstraints = append(ofConstraints, tc)
			} else if types.IsIncomplete(tc.Type) {
				incomplete = append(incomplete, tc)
			} else {
				complete = append(complete, tc)
			}
			continue
		}
		rest = append(rest, c)
	}
	s.queue = rest

	if len(ofConstraints) == 0 && len(incomplete) == 0 && len(complete) == 0 {
		return false
	}

	ordered := make([]types.TyConstraint, 0, len(ofConstraints)+len(incomplete)+len(complete))
	ordered = append(ordered, ofConstraints...)
	ordered = append(ordered, incomplete...)
	ordered = append(ordered, complete...)

	for _, tc := range ordered {
		left := types.Of{Node: tc.Node}
		if err := s.unifyTys(left, tc.Type); err != nil {
			s.errorFlag = true
			s.others[tc.Node] = append(s.others[tc.Node], tc.Type)
		}
	}
	return true
}
