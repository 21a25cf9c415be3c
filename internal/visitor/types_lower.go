package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// lowerType allocates a node for t, resolves any names it mentions, emits
// the node's own Ty constraint (so the node's resolved type is reported
// like any other), and returns the raw Ty value too: callers that need to
// capture a signature's shape for generic instantiation (constant/trait
// definitions) use the returned Ty directly rather than an Of(node)
// indirection, since substitution walks Parameter nodes structurally and
// does not see through Of (spec §4.2 "Type references", §4.4).
func (v *Visitor) lowerType(t ast.TypeExpr) (db.NodeId, types.Ty) {
	switch n := t.(type) {
	case *ast.PlaceholderType:
		node := v.newNode(n.Range)
		v.markTyped(node)
		return node, types.Unknown{Node: node}

	case *ast.UnitType:
		node := v.newNode(n.Range)
		ty := types.UnitTy()
		v.emitTy(node, ty)
		return node, ty

	case *ast.NamedType:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, n.Name, typeFilter)
		if !ok {
			v.markTyped(node)
			v.d.Fact(node, "unresolvedNamedType", db.Text(n.Name))
			return node, types.Unknown{Node: node}
		}
		ty := types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}}
		v.emitTy(node, ty)
		return node, ty

	case *ast.ParameterizedType:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, n.Name, typeFilter)
		if !ok {
			for _, p := range n.Params {
				v.lowerType(p)
			}
			v.markTyped(node)
			v.d.Fact(node, "unresolvedNamedType", db.Text(n.Name))
			return node, types.Unknown{Node: node}
		}
		params := make(map[db.NodeId]types.Ty, len(n.Params))
		order := make([]db.NodeId, 0, len(n.Params))
		for i, p := range n.Params {
			_, argTy := v.lowerType(p)
			if i >= len(def.Params) {
				break
			}
			slot := def.Params[i]
			params[slot] = argTy
			order = append(order, slot)
		}
		ty := types.Named{Name: def.Node, Parameters: params, Order: order}
		v.emitTy(node, ty)
		return node, ty

	case *ast.BlockType:
		node := v.newNode(n.Range)
		v.hide(node)
		_, resultTy := v.lowerType(n.Result)
		v.emitTy(node, resultTy)
		return node, resultTy

	case *ast.FunctionType:
		node := v.newNode(n.Range)
		inputs := make([]types.Ty, len(n.Inputs))
		for i, in := range n.Inputs {
			_, inTy := v.lowerType(in)
			inputs[i] = inTy
		}
		_, outTy := v.lowerType(n.Output)
		ty := types.Function{Inputs: inputs, Output: outTy}
		v.emitTy(node, ty)
		return node, ty

	case *ast.ParameterType:
		node := v.newNode(n.Range)
		if def, ok := v.scopes.resolveTypeParameter(n.Name); ok {
			v.d.Fact(node, "resolvesTo", db.NodeRef(def.Node))
			ty := types.Parameter{Node: def.Node}
			v.emitTy(node, ty)
			return node, ty
		}
		// Implicit introduction: first mention of this name in a signature
		// introduces a fresh type parameter (spec §4.2 "implicitTypeParameters").
		v.hide(node)
		param := &Definition{Kind: KindTypeParameter, Node: node}
		v.defineName(n.Name, param)
		if v.defCtx != nil {
			v.defCtx.Params = append(v.defCtx.Params, node)
		}
		ty := types.Parameter{Node: node}
		v.emitTy(node, ty)
		return node, ty

	case *ast.TupleType:
		node := v.newNode(n.Range)
		elems := make([]types.Ty, len(n.Elements))
		for i, e := range n.Elements {
			_, elTy := v.lowerType(e)
			elems[i] = elTy
		}
		ty := types.Tuple{Elements: elems}
		v.emitTy(node, ty)
		return node, ty

	default:
		node := v.newNode(t.Range())
		v.markTyped(node)
		return node, types.Unknown{Node: node}
	}
}

// resolveTypeParameter wraps scopes.resolve with a type-parameter filter so
// types_lower.go can probe for an existing type parameter without
// triggering resolveName's unresolvedName bookkeeping.
func (s *scopeStack) resolveTypeParameter(name string) (*Definition, bool) {
	def, _, ok := s.resolve(name, typeParameterFilter)
	return def, ok
}
