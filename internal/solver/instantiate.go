package solver

import (
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// DefinitionProvider resolves a definition's own lazy constraints at each
// use site (spec §4.2 "Two constraint queues", §4.4 "Instantiation").
type DefinitionProvider interface {
	// LazyConstraints returns the constraint templates attached to
	// definition, to be realized against useSite.
	LazyConstraints(definition db.NodeId) []types.LazyConstraint
}

// pendingInstantiation is the solver's working copy of an Instantiation:
// already-realized inner constraints (from the definition's lazy list, or
// supplied inline by bound resolution) still waiting on substitution.
type pendingInstantiation struct {
	node          db.NodeId
	substitutions types.Substitutions
	constraints   []types.Constraint
}

// runInstantiations drains InstantiationConstraint entries from the queue
// (spec §4.4 "Instantiation (runInstantiations)").
func (s *Solver) runInstantiations() bool {
	var pending []pendingInstantiation
	var rest []types.Constraint
	for _, c := range s.queue {
		switch v := c.(type) {
		case instantiationRequest:
			pending = append(pending, s.realize(v))
		case types.InstantiationConstraint:
			pending = append(pending, s.realize(instantiationRequest{
				node:          v.Instantiation.Node,
				definition:    v.Instantiation.Definition,
				substitutions: v.Instantiation.Substitutions,
			}))
		default:
			rest = append(rest, c)
		}
	}
	s.queue = rest

	if len(pending) == 0 {
		return false
	}

	progress := false
	for _, p := range pending {
		before := len(s.queue)
		s.applyInstantiation(p)
		// Putting every constraint of p back as still not ready is not
		// progress; anything else consumed or produced work.
		if len(s.queue) != before+1 {
			progress = true
		} else if req, ok := s.queue[before].(instantiationRequest); !ok || len(req.inline) != len(p.constraints) {
			progress = true
		}
	}
	return progress
}

// instantiationRequest is the concrete queue item for an Instantiation
// constraint; it carries either a definition to realize via DefinitionProvider
// or an inline constraint list (the not-yet-ready constraints that
// applyInstantiation puts back on the queue, which have no definition node).
// The embedded types.Constraint is always nil; it only lends the struct the
// unexported marker method so it can sit on the constraint queue.
type instantiationRequest struct {
	types.Constraint
	node          db.NodeId
	definition    db.NodeId
	substitutions types.Substitutions
	inline        []types.Constraint
}

func (s *Solver) realize(req instantiationRequest) pendingInstantiation {
	constraints := req.inline
	if req.definition != 0 && s.defs != nil {
		for _, lazy := range s.defs.LazyConstraints(req.definition) {
			constraints = append(constraints, lazy(req.node))
		}
	}
	return pendingInstantiation{
		node:          req.node,
		substitutions: req.substitutions,
		constraints:   constraints,
	}
}

// applyInstantiation substitutes every Parameter appearing in p's
// constraints and pushes the results back onto the queue, deferring any
// constraint whose types still mention an un-covered Of(m) (spec §4.4). A
// Bound constraint carried along with the signature (from a `where`
// clause) has its own substitution map walked through the same
// replacement, so a trait bound on an implicit parameter follows that
// parameter's fresh clone at this particular use site rather than the
// defining node shared by every use (spec §4.2 "where clauses").
func (s *Solver) applyInstantiation(p pendingInstantiation) {
	var ready, notReady []types.Constraint
	subs := p.substitutions

	for _, c := range p.constraints {
		tc, ok := c.(types.TyConstraint)
		if !ok {
			ready = append(ready, c)
			continue
		}
		probe := s.tryApplyTy(tc.Type, s.uf.clone(), s.keys.clone(), nil)
		if s.mentionsUncoveredOf(probe, subs) {
			notReady = append(notReady, tc)
			continue
		}
		ready = append(ready, tc)
	}

	if len(notReady) > 0 {
		s.queue = append(s.queue, instantiationRequest{
			node:          p.node,
			substitutions: subs,
			inline:        notReady,
		})
	}

	for _, c := range ready {
		switch v := c.(type) {
		case types.TyConstraint:
			newTy := s.substituteParameters(v.Type, &subs)
			s.queue = append(s.queue, types.TyConstraint{Node: v.Node, Type: newTy})
		case types.Bound:
			newMap := types.Substitutions{}
			for _, k := range v.Instantiation.Substitutions.Order() {
				val, _ := v.Instantiation.Substitutions.Get(k)
				newMap.Set(k, s.substituteParameters(val, &subs))
			}
			v.Instantiation.Substitutions = newMap
			s.queue = append(s.queue, v)
		default:
			s.queue = append(s.queue, c)
		}
	}
}

func (s *Solver) mentionsUncoveredOf(t types.Ty, subs types.Substitutions) bool {
	mentions := false
	types.Traverse(t, func(v types.Ty) {
		of, ok := v.(types.Of)
		if !ok {
			return
		}
		if subs.IsReplaceAll() {
			return
		}
		if _, covered := subs.Get(of.Node); !covered {
			mentions = true
		}
	})
	return mentions
}

// substituteParameters replaces every Parameter(p) in t: with
// subs[p] if present, or — under the replace-all sentinel — with a fresh
// clone of p recorded into subs so later constraints in the same
// instantiation reuse the same clone (spec §4.4).
func (s *Solver) substituteParameters(t types.Ty, subs *types.Substitutions) types.Ty {
	return types.TraverseMut(t, func(v types.Ty) types.Ty {
		param, ok := v.(types.Parameter)
		if !ok {
			return v
		}
		if sub, ok := subs.Get(param.Node); ok {
			return sub
		}
		clone := s.d.CloneNode(param.Node)
		fresh := types.Of{Node: clone}
		subs.Set(param.Node, fresh)
		return fresh
	})
}
