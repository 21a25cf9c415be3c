package solver

import (
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// Finish exports every typed node's resolved type(s) as `type` facts,
// plus `incompleteType`/`unknownType` markers (spec §4.4 "finish"). It
// calls Run first, so callers need not call Run themselves.
func (s *Solver) Finish() {
	s.Run()

	byNode := make(map[db.NodeId][]types.Ty)

	for root, ty := range s.groups {
		resolved := s.applyTy(ty, nil)
		for _, n := range s.uf.nodesOf(root) {
			byNode[n] = append(byNode[n], resolved)
		}
	}

	for n, others := range s.others {
		byNode[n] = append(byNode[n], others...)
	}

	for n := range s.typed {
		if _, ok := byNode[n]; !ok {
			byNode[n] = []types.Ty{types.Unknown{Node: n}}
		}
	}

	for n, tys := range byNode {
		allIncomplete := true
		allUnknown := true
		for _, t := range tys {
			if !types.IsIncomplete(t) {
				allIncomplete = false
			}
			if _, ok := t.(types.Unknown); !ok {
				allUnknown = false
			}
			s.d.Fact(n, "type", types.TyValue(t))
		}
		if allIncomplete {
			s.d.Fact(n, "incompleteType", db.Unit{})
		}
		if allUnknown {
			s.d.Fact(n, "unknownType", db.Unit{})
		}
	}
}
