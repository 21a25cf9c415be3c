package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// lowerPattern allocates a node for p, introducing any variable bindings it
// contains into the current (innermost) scope, and emits the constraints
// describing its shape (spec §4.2 "Patterns").
func (v *Visitor) lowerPattern(p ast.Pattern) db.NodeId {
	switch n := p.(type) {
	case *ast.UnitPattern:
		node := v.newNode(n.Range)
		v.emitTy(node, types.UnitTy())
		return node

	case *ast.WildcardPattern:
		node := v.newNode(n.Range)
		v.hide(node)
		return node

	case *ast.VariablePattern:
		node := v.newNode(n.Range)
		v.defineName(n.Name, &Definition{Kind: KindVariable, Node: node})
		v.markTyped(node)
		return node

	case *ast.NumberPattern:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, "Number", typeFilter)
		if ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
			v.d.Fact(node, "missingNumberType", db.Unit{})
		}
		return node

	case *ast.TextPattern:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, "Text", typeFilter)
		if ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
			v.d.Fact(node, "missingTextType", db.Unit{})
		}
		return node

	case *ast.DestructurePattern:
		node := v.newNode(n.Range)
		var def *Definition
		var ok bool
		if n.TypeName != "" {
			def, ok = v.resolveName(node, n.TypeName, typeFilter)
		}
		for _, field := range n.Fields {
			v.lowerPattern(field.Pattern)
		}
		if ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		}
		v.markTyped(node)
		return node

	case *ast.SetPattern:
		node := v.newNode(n.Range)
		v.hide(node)
		// Target must already resolve to a mutable variable binding; the
		// nested value pattern shares its type (spec §4.2, `set` patterns).
		use := v.newNode(n.Target.Range)
		v.hide(use)
		if def, ok := v.resolveName(use, n.Target.Name, variableOrConstantFilter); ok {
			v.emitTy(node, types.Of{Node: def.Node})
		}
		inner := v.lowerPattern(n.Value)
		v.emitTy(inner, types.Of{Node: node})
		return node

	case *ast.VariantPattern:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, n.Name, variableOrConstantFilter)
		for _, e := range n.Elements {
			v.lowerPattern(e)
		}
		if ok {
			v.emitTy(node, types.Of{Node: def.Node})
		}
		v.markTyped(node)
		return node

	case *ast.OrPattern:
		node := v.newNode(n.Range)
		v.hide(node)
		for _, alt := range n.Alternatives {
			altNode := v.lowerPattern(alt)
			v.emitTy(altNode, types.Of{Node: node})
		}
		v.markTyped(node)
		return node

	case *ast.TuplePattern:
		node := v.newNode(n.Range)
		elems := make([]types.Ty, len(n.Elements))
		for i, e := range n.Elements {
			elems[i] = types.Of{Node: v.lowerPattern(e)}
		}
		v.emitTy(node, types.Tuple{Elements: elems})
		return node

	case *ast.AnnotatePattern:
		node := v.newNode(n.Range)
		v.hide(node)
		typeNode, _ := v.lowerType(n.Type)
		inner := v.lowerPattern(n.Pattern)
		v.emitTy(node, types.Of{Node: typeNode})
		v.emitTy(inner, types.Of{Node: typeNode})
		return node

	default:
		return v.newNode(p.Range())
	}
}
