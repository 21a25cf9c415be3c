package solver

import (
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// runBounds drains Bound constraints, trying each of the trait's declared
// instances against a cloned solver and accepting the unique survivor
// (spec §4.4 "Bound resolution (runBounds)").
func (s *Solver) runBounds() bool {
	var bounds []types.Bound
	var rest []types.Constraint
	for _, c := range s.queue {
		if b, ok := c.(types.Bound); ok {
			bounds = append(bounds, b)
			continue
		}
		rest = append(rest, c)
	}
	s.queue = rest

	if len(bounds) == 0 {
		return false
	}

	for _, b := range bounds {
		s.resolveBound(b)
	}
	return true
}

func (s *Solver) resolveBound(b types.Bound) {
	inst := b.Instantiation
	tmp := s.d.CloneNode(inst.Node)

	// (1) The bound's own substitutions apply to the trait's signature at tmp.
	s.applyInstantiation(pendingInstantiation{
		node:          tmp,
		substitutions: inst.Substitutions,
		constraints:   []types.Constraint{types.TyConstraint{Node: tmp, Type: types.Of{Node: inst.Definition}}},
	})
	s.runQueueToIdle()

	if s.provider == nil {
		s.d.Fact(tmp, "unresolvedTrait", db.NodeRef(inst.Definition))
		return
	}

	var candidates []*Solver
	var candidateInstance []db.NodeId
	for _, ic := range s.provider.Instances(inst.Definition) {
		candidate := s.clone()
		candidate.errorFlag = false

		candidate.applyInstantiation(pendingInstantiation{
			node:          tmp,
			substitutions: ic.Substitutions,
			constraints:   []types.Constraint{types.TyConstraint{Node: tmp, Type: types.Of{Node: ic.Instance}}},
		})
		candidate.runQueueToIdle()

		if !candidate.errorFlag {
			candidates = append(candidates, candidate)
			candidateInstance = append(candidateInstance, ic.Instance)
		}
	}

	if len(candidates) != 1 {
		s.d.Fact(tmp, "unresolvedTrait", db.NodeRef(inst.Definition))
		return
	}

	*s = *candidates[0]
	s.progress = true
	s.d.Fact(tmp, "resolvedTrait", db.NodeRef(inst.Definition))
	s.d.Fact(tmp, "resolvedTrait", db.NodeRef(candidateInstance[0]))
}

// runQueueToIdle drains runTys/runInstantiations/runBounds (recursively
// resolving nested bounds) until no pass makes progress, without touching
// fillWithUnknown — used internally while a single Bound constraint is
// mid-resolution (spec §4.4 step 2: "Recursive bounds may be generated and
// solved when this sub-solver runs").
func (s *Solver) runQueueToIdle() {
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
		if !progress {
			break
		}
	}
}
