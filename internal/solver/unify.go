package solver

import (
	"fmt"

	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// errMismatch is returned internally by unifyTys when two types cannot be
// reconciled; callers record the offending type into others and set the
// error flag rather than propagating it (spec §7 "the solver never stops
// on a mismatch").
var errMismatch = fmt.Errorf("type mismatch")

// applyTy deeply resolves every Of(n) in t to its group's bound type, or to
// Of(representative) if the group has no bound type yet (spec §4.4
// "applyTy"). visited guards against a node's bound type mentioning its own
// group, mirroring the cycle-check pattern used throughout this codebase
// for recursive substitution.
func (s *Solver) applyTy(t types.Ty, visited map[GroupKey]bool) types.Ty {
	return types.TraverseMut(t, func(v types.Ty) types.Ty {
		of, ok := v.(types.Of)
		if !ok {
			return v
		}
		key := s.keyFor(of.Node)
		root := s.uf.find(key)
		if visited[root] {
			return types.Of{Node: s.representativeNode(root)}
		}
		bound, ok := s.groups[root]
		if !ok {
			return types.Of{Node: s.representativeNode(root)}
		}
		nv := make(map[GroupKey]bool, len(visited)+1)
		for k := range visited {
			nv[k] = true
		}
		nv[root] = true
		return s.applyTy(bound, nv)
	})
}

// tryApplyTy is the read-only variant used during trial unification
// (bound resolution): it resolves against a cloned union-find table so
// introspection never mutates solver state shared with other candidates
// (spec §4.4 "tryApplyTy").
func (s *Solver) tryApplyTy(t types.Ty, uf *unionFind, keys *keyTable, visited map[GroupKey]bool) types.Ty {
	return types.TraverseMut(t, func(v types.Ty) types.Ty {
		of, ok := v.(types.Of)
		if !ok {
			return v
		}
		key, ok := keys.keys[of.Node]
		if !ok {
			return v
		}
		root := uf.find(key)
		if visited[root] {
			nodes := uf.nodesOf(root)
			return types.Of{Node: nodes[0]}
		}
		bound, ok := s.groups[root]
		if !ok {
			nodes := uf.nodesOf(root)
			return types.Of{Node: nodes[0]}
		}
		nv := make(map[GroupKey]bool, len(visited)+1)
		for k := range visited {
			nv[k] = true
		}
		nv[root] = true
		return s.tryApplyTy(bound, uf, keys, nv)
	})
}

// unifyTys attempts to make left and right equal, mutating solver state
// (group bindings, union-find merges) along the way (spec §4.4 "Unification
// (unifyTys)").
func (s *Solver) unifyTys(left, right types.Ty) error {
	left = s.applyTy(left, nil)
	right = s.applyTy(right, nil)

	switch lv := left.(type) {
	case types.Parameter:
		rv, ok := right.(types.Parameter)
		if !ok || rv.Node != lv.Node {
			return s.mismatch(left, right)
		}
		return nil

	case types.Of:
		if rv, ok := right.(types.Of); ok {
			s.unifyNodes(lv.Node, rv.Node)
			return nil
		}
		return s.bindOf(lv.Node, right)
	}

	if rv, ok := right.(types.Of); ok {
		return s.bindOf(rv.Node, left)
	}

	switch lv := left.(type) {
	case types.Named:
		rv, ok := right.(types.Named)
		if !ok || rv.Name != lv.Name || len(rv.Order) != len(lv.Order) {
			return s.mismatch(left, right)
		}
		for i, k := range lv.Order {
			if rv.Order[i] != k {
				return s.mismatch(left, right)
			}
			if err := s.unifyTys(lv.Parameters[k], rv.Parameters[k]); err != nil {
				return err
			}
		}
		return nil

	case types.Function:
		rv, ok := right.(types.Function)
		if !ok || len(rv.Inputs) != len(lv.Inputs) {
			return s.mismatch(left, right)
		}
		for i := range lv.Inputs {
			if err := s.unifyTys(lv.Inputs[i], rv.Inputs[i]); err != nil {
				return err
			}
		}
		return s.unifyTys(lv.Output, rv.Output)

	case types.Tuple:
		rv, ok := right.(types.Tuple)
		if !ok || len(rv.Elements) != len(lv.Elements) {
			return s.mismatch(left, right)
		}
		for i := range lv.Elements {
			if err := s.unifyTys(lv.Elements[i], rv.Elements[i]); err != nil {
				return err
			}
		}
		return nil

	case types.Unknown:
		if rv, ok := right.(types.Unknown); ok && rv.Node == lv.Node {
			return nil
		}
		return s.mismatch(left, right)
	}

	return s.mismatch(left, right)
}

func (s *Solver) mismatch(left, right types.Ty) error {
	return errMismatch
}

// bindOf binds node's group to t, or — if the group already holds a bound
// type — recursively unifies the two so a genuine mismatch still surfaces
// as a type-mismatch error rather than silently overwriting (this resolves
// an apparent tension in spec §4.4's one-line summary using the documented
// behavior of the original reference solver and spec §7/§8 Scenario F,
// which require two *conflicting* Ty facts on one node to both survive
// rather than panic; see DESIGN.md).
func (s *Solver) bindOf(node db.NodeId, t types.Ty) error {
	key := s.keyFor(node)
	root := s.uf.find(key)

	existing, had := s.groups[root]
	s.groups[root] = t
	s.progress = true

	if had {
		if err := s.unifyTys(t, existing); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) unifyNodes(a, b db.NodeId) {
	ka, kb := s.keyFor(a), s.keyFor(b)
	ra, rb := s.uf.find(ka), s.uf.find(kb)
	if ra == rb {
		return
	}

	tyA, hadA := s.groups[ra]
	tyB, hadB := s.groups[rb]

	root := s.uf.union(ra, rb)
	s.progress = true

	switch {
	case hadA && hadB:
		delete(s.groups, ra)
		delete(s.groups, rb)
		s.groups[root] = tyA
		if err := s.unifyTys(tyA, tyB); err != nil {
			s.errorFlag = true
		}
	case hadA:
		delete(s.groups, ra)
		s.groups[root] = tyA
	case hadB:
		delete(s.groups, rb)
		s.groups[root] = tyB
	}
}
