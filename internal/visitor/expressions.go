package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// lowerExpr allocates a node for e, lowers its children, and emits the
// constraints relating its type to theirs (spec §4.2 "Expressions").
func (v *Visitor) lowerExpr(e ast.Expr) db.NodeId {
	switch n := e.(type) {
	case *ast.Placeholder:
		node := v.newNode(n.Range)
		v.markTyped(node)
		return node

	case *ast.UnitExpr:
		node := v.newNode(n.Range)
		v.emitTy(node, types.UnitTy())
		return node

	case *ast.Variable:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, n.Name, variableOrConstantFilter)
		if !ok {
			v.markTyped(node)
			return node
		}
		v.resolveUse(node, def)
		return node

	case *ast.TraitNameExpr:
		node := v.newNode(n.Range)
		def, ok := v.resolveName(node, n.Name, traitFilter)
		if !ok {
			v.markTyped(node)
			v.d.Fact(node, "unresolvedTraitName", db.Text(n.Name))
			return node
		}
		v.instantiateUse(node, def)
		return node

	case *ast.NumberLiteral:
		node := v.newNode(n.Range)
		if def, ok := v.resolveName(node, "Number", typeFilter); ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
			v.d.Fact(node, "missingNumberType", db.Unit{})
		}
		return node

	case *ast.TextLiteral:
		node := v.newNode(n.Range)
		if def, ok := v.resolveName(node, "Text", typeFilter); ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
			v.d.Fact(node, "missingTextType", db.Unit{})
		}
		return node

	case *ast.FormattedTextExpr:
		node := v.newNode(n.Range)
		for _, sub := range n.Exprs {
			v.lowerExpr(sub)
		}
		if def, ok := v.resolveName(node, "Text", typeFilter); ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
			v.d.Fact(node, "missingTextType", db.Unit{})
		}
		return node

	case *ast.StructureExpr:
		node := v.newNode(n.Range)
		var def *Definition
		var ok bool
		if n.TypeName != "" {
			def, ok = v.resolveName(node, n.TypeName, typeFilter)
		}
		for _, field := range n.Fields {
			v.lowerExpr(field.Value)
		}
		if ok {
			v.emitTy(node, types.Named{Name: def.Node, Parameters: map[db.NodeId]types.Ty{}})
		} else {
			v.markTyped(node)
		}
		return node

	case *ast.CollectionExpr:
		// No collection type is declared by the ambient stack; elements are
		// lowered for name resolution and left structurally untyped (spec §4.2,
		// "structural passthrough" for constructs outside the core calculus).
		node := v.newNode(n.Range)
		for _, el := range n.Elements {
			v.lowerExpr(el)
		}
		v.markTyped(node)
		return node

	case *ast.BlockExpr:
		node := v.newNode(n.Range)
		v.scopes.push()
		var last db.NodeId
		var hasLast bool
		for _, stmt := range n.Statements {
			if es, ok := stmt.(*ast.ExpressionStatement); ok {
				last = v.lowerExpr(es.Expr)
				hasLast = true
				continue
			}
			v.lowerStatement(stmt)
			hasLast = false
		}
		v.scopes.pop()
		if hasLast {
			v.emitTy(node, types.Of{Node: last})
		} else {
			v.emitTy(node, types.UnitTy())
		}
		return node

	case *ast.CallExpr:
		return v.lowerCall(n.Range, n.Function, n.Args)

	case *ast.ApplyExpr:
		return v.lowerCall(n.Range, n.Function, []ast.Expr{n.Arg})

	case *ast.AnnotateExpr:
		node := v.newNode(n.Range)
		v.hide(node)
		typeNode, _ := v.lowerType(n.Type)
		valueNode := v.lowerExpr(n.Value)
		v.emitTy(node, types.Of{Node: typeNode})
		v.emitTy(valueNode, types.Of{Node: typeNode})
		return node

	case *ast.AsExpr:
		// `as` forwards the declared type without constraining the source
		// expression against it (spec §4.2, open question: treated as an
		// unchecked reinterpretation rather than a checked annotation).
		node := v.newNode(n.Range)
		typeNode, _ := v.lowerType(n.Type)
		v.lowerExpr(n.Value)
		v.emitTy(node, types.Of{Node: typeNode})
		return node

	case *ast.TupleExpr:
		node := v.newNode(n.Range)
		elems := make([]types.Ty, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = types.Of{Node: v.lowerExpr(el)}
		}
		v.emitTy(node, types.Tuple{Elements: elems})
		return node

	case *ast.FunctionExpr:
		node := v.newNode(n.Range)
		v.scopes.push()
		inputs := make([]types.Ty, len(n.Inputs))
		for i, in := range n.Inputs {
			inNode := v.lowerPattern(in)
			inputs[i] = types.Of{Node: inNode}
		}
		bodyNode := v.lowerExpr(n.Body)
		v.scopes.pop()
		v.emitTy(node, types.Function{Inputs: inputs, Output: types.Of{Node: bodyNode}})
		return node

	case *ast.WhenExpr:
		node := v.newNode(n.Range)
		subjectNode := v.lowerExpr(n.Subject)
		for _, arm := range n.Arms {
			v.scopes.push()
			patNode := v.lowerPattern(arm.Pattern)
			v.emitTy(patNode, types.Of{Node: subjectNode})
			if arm.Guard != nil {
				v.lowerExpr(arm.Guard)
			}
			bodyNode := v.lowerExpr(arm.Body)
			v.emitTy(bodyNode, types.Of{Node: node})
			v.scopes.pop()
		}
		v.markTyped(node)
		return node

	case *ast.IsExpr:
		// A standalone pattern test; no boolean type is declared by the
		// ambient stack, so its own type is left as structural passthrough
		// (spec §4.2 open question on `is`).
		node := v.newNode(n.Range)
		subjectNode := v.lowerExpr(n.Value)
		v.scopes.push()
		patNode := v.lowerPattern(n.Pattern)
		v.emitTy(patNode, types.Of{Node: subjectNode})
		v.scopes.pop()
		v.markTyped(node)
		return node

	case *ast.DoExpr:
		node := v.newNode(n.Range)
		v.hide(node)
		bodyNode := v.lowerExpr(n.Body)
		v.emitTy(node, types.Of{Node: bodyNode})
		return node

	case *ast.IntrinsicExpr:
		// Intrinsics are opaque to the type model; arguments are still
		// lowered for name resolution (spec §4.2 open question on `intrinsic`).
		node := v.newNode(n.Range)
		for _, arg := range n.Args {
			v.lowerExpr(arg)
		}
		v.markTyped(node)
		return node

	case *ast.BinaryExpr:
		return v.lowerBinary(n)

	default:
		node := v.newNode(e.Range())
		v.markTyped(node)
		return node
	}
}

// lowerCall handles `function arg1 arg2 ...`: `f x` lowers to
// `Ty(f, Function{[Of(x)], Of(call)})` on the function's own node, so a
// zero-arg call `f ()` and a one-arg call `f x` share the same shape with
// Args possibly empty (meaning the call's argument is the unit value).
//
// Special case (spec §4.2 "Function call"): a one-argument call `f x`
// where `x` is a plain variable bound to a constant carrying the `unit`
// attribute is relowered as `x f` first — the bound constant stands for a
// measurement unit and the original argument is the value it applies to
// (`3 meters` parses as a call of `3` on `meters`, and flips to the
// ordinary call `meters 3`). The flip is purely syntactic and happens
// before any constraint is emitted, so the rest of lowering never sees it.
func (v *Visitor) lowerCall(r ast.Range, fn ast.Expr, args []ast.Expr) db.NodeId {
	fn, args = v.unitFlip(fn, args)

	node := v.newNode(r)
	fnNode := v.lowerExpr(fn)

	argNodes := make([]db.NodeId, len(args))
	for i, a := range args {
		argNodes[i] = v.lowerExpr(a)
	}

	if len(argNodes) == 0 {
		// `f ()`: a call has at least one argument, substituting the unit
		// value when the surface syntax supplied none.
		unit := v.newNode(r)
		v.hide(unit)
		v.emitTy(unit, types.UnitTy())
		argNodes = []db.NodeId{unit}
	}

	inputs := make([]types.Ty, len(argNodes))
	for i, a := range argNodes {
		inputs[i] = types.Of{Node: a}
	}
	v.emitTy(fnNode, types.Function{Inputs: inputs, Output: types.Of{Node: node}})
	v.markTyped(node)
	return node
}

// lowerBinary desugars a binary operator into a call against the operator's
// name in scope, so `x + y` is typed exactly like `(+) x y` (spec §4.2 open
// question: binary operators resolve through the same name-resolution path
// as any other reference rather than having built-in types).
func (v *Visitor) lowerBinary(n *ast.BinaryExpr) db.NodeId {
	node := v.newNode(n.Range)
	opUse := v.newNode(n.Range)
	v.hide(opUse)

	def, _, ok := v.scopes.resolve(n.Operator, func(d *Definition) (string, bool) {
		switch d.Kind {
		case KindVariable, KindConstant, KindTrait:
			return "operator", true
		}
		return "", false
	})
	leftNode := v.lowerExpr(n.Left)
	rightNode := v.lowerExpr(n.Right)

	if !ok {
		v.d.Fact(opUse, "unresolvedName", db.Text(n.Operator))
		v.markTyped(node)
		return node
	}
	v.d.Fact(opUse, "resolvesTo", db.NodeRef(def.Node))
	v.resolveUse(opUse, def)

	v.emitTy(opUse, types.Function{
		Inputs: []types.Ty{types.Of{Node: leftNode}, types.Of{Node: rightNode}},
		Output: types.Of{Node: node},
	})
	v.markTyped(node)
	return node
}

// unitFlip implements spec §4.2's "unit" special case: a one-argument call
// whose sole argument is a plain variable bound to a constant carrying the
// `[unit]` attribute has its function and argument swapped before
// lowering. Any other shape (zero or multiple arguments, an argument that
// isn't a bare variable, a variable that doesn't resolve to such a
// constant) is returned unchanged.
func (v *Visitor) unitFlip(fn ast.Expr, args []ast.Expr) (ast.Expr, []ast.Expr) {
	if len(args) != 1 {
		return fn, args
	}
	va, ok := args[0].(*ast.Variable)
	if !ok {
		return fn, args
	}
	def, _, ok := v.scopes.resolve(va.Name, variableOrConstantFilter)
	if !ok || def.Kind != KindConstant || !hasAttribute(def, "unit") {
		return fn, args
	}
	return args[0], []ast.Expr{fn}
}

// hasAttribute reports whether def carries a `[name]` or `[name: value]`
// attribute (spec §6 "Attribute syntax").
func hasAttribute(def *Definition, name string) bool {
	for _, a := range def.Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}

// resolveUse handles a reference to a name that may be a Variable or a
// Constant/Trait (spec §4.2 "Expressions": "if it is a Variable, emit
// Ty(n, Of(defNode)); if it is a Constant, emit Instantiation{...}"). A
// Variable's own node never carries implicit type parameters to
// instantiate — it was bound once, in one scope, by the pattern that
// introduced it — so unifying directly against it is correct and, unlike
// instantiateUse, doesn't require any def.Lazy constraints (which
// KindVariable Definitions never have).
func (v *Visitor) resolveUse(use db.NodeId, def *Definition) {
	if def.Kind == KindVariable {
		v.markTyped(use)
		v.emitTy(use, types.Of{Node: def.Node})
		return
	}
	v.instantiateUse(use, def)
}

// instantiateUse queues an Instantiation constraint for a use of def rather
// than a bare Ty constraint, so that each reference to a polymorphic
// definition gets its own fresh copy of any implicit type parameters (spec
// §4.2, §4.4 "Instantiation"). For a Constant still awaiting its body
// (forward declaration), use binds against the signature node, matching the
// def's own Node field, which bindConstantBody flips once the body arrives.
func (v *Visitor) instantiateUse(use db.NodeId, def *Definition) {
	v.markTyped(use)
	inst := types.Instantiation{
		Source:        use,
		Node:          use,
		Definition:    def.Node,
		Substitutions: types.ReplaceAll(),
	}
	v.emit(types.InstantiationConstraint{Instantiation: inst})
}
