package visitor

import (
	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// lowerStatement dispatches one top-level or block statement (spec §4.2).
func (v *Visitor) lowerStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.EmptyStatement:
		return

	case *ast.ExpressionStatement:
		v.lowerExpr(s.Expr)

	case *ast.ConstantDeclaration:
		v.lowerConstantDeclaration(s)

	case *ast.TypeDeclaration:
		v.lowerTypeDeclaration(s)

	case *ast.TraitDeclaration:
		v.lowerTraitDeclaration(s)

	case *ast.InstanceDeclaration:
		v.lowerInstanceDeclaration(s)

	case *ast.Assignment:
		v.lowerAssignment(s)
	}
}

// lowerConstantDeclaration handles both a bare forward declaration
// (`name :: Type`) and a combined signature+body form (spec §4.2
// "Constant definitions"). The constant's own node is the Definition's
// identity throughout: references before the body arrives resolve to it as
// a forward declaration; once a body is attached (here or by a later
// Assignment), bindConstantBody flips Definition.Node to the body node.
func (v *Visitor) lowerConstantDeclaration(decl *ast.ConstantDeclaration) {
	sigNode := v.newNode(decl.Range)
	def := &Definition{Kind: KindConstant, Node: sigNode, Doc: decl.Doc, Attributes: decl.Attributes}
	v.defineName(decl.Name, def)

	v.scopes.push()
	v.withDefinition(def, func() {
		var sigTy types.Ty = types.Of{Node: sigNode}
		if decl.Type != nil {
			typeNode, ty := v.lowerType(decl.Type)
			v.emitTy(sigNode, types.Of{Node: typeNode})
			sigTy = ty
		} else {
			v.markTyped(sigNode)
		}
		for _, w := range decl.Where {
			v.lowerBoundClause(w, def)
		}
		def.Lazy = append(def.Lazy, func(use db.NodeId) types.Constraint {
			return types.TyConstraint{Node: use, Type: sigTy}
		})
	})
	v.scopes.pop()

	if decl.Body != nil {
		v.bindConstantBody(def, decl.Body)
	}
}

// bindConstantBody lowers body in a fresh scope and rewires def to point to
// it, flipping the definition from forward-declared to resolved (spec §4.2
// "peekName", "forward reference and later definition").
func (v *Visitor) bindConstantBody(def *Definition, body ast.Expr) {
	v.scopes.push()
	bodyNode := v.lowerExpr(body)
	v.scopes.pop()

	sigNode := def.Node
	v.emitTy(bodyNode, types.Of{Node: sigNode})
	v.emitTy(sigNode, types.Of{Node: bodyNode})

	def.Resolved = true
	def.Node = bodyNode

	// A use site lowered after this point captures the current def.Node
	// (bodyNode) as its Instantiation.Definition, so the lazy constraints
	// attached under the old sigNode key must also be reachable under
	// bodyNode. A use site lowered before this point (a forward reference)
	// already baked in sigNode, so that key stays live too.
	v.defs[bodyNode] = def
}

// lowerTypeDeclaration handles `type Name P1 P2 :- Body` (spec §4.2 "Type
// definitions"). The definition's own node is never itself typed: it is an
// identity referenced from Named.Name at use sites, not a value.
func (v *Visitor) lowerTypeDeclaration(decl *ast.TypeDeclaration) {
	node := v.newNode(decl.Range)
	def := &Definition{Kind: KindType, Node: node, Doc: decl.Doc, Attributes: decl.Attributes}
	v.defineName(decl.Name, def)

	v.scopes.push()
	v.withDefinition(def, func() {
		v.lowerTypeParams(decl.Params, def)
		if decl.Body != nil {
			v.lowerType(decl.Body)
		}
	})
	v.scopes.pop()
}

// lowerTraitDeclaration handles `trait Name P1 P2 :: Signature where ...`
// (spec §4.2 "Trait definitions").
func (v *Visitor) lowerTraitDeclaration(decl *ast.TraitDeclaration) {
	node := v.newNode(decl.Range)
	def := &Definition{Kind: KindTrait, Node: node, Doc: decl.Doc, Attributes: decl.Attributes}
	v.defineName(decl.Name, def)

	v.scopes.push()
	v.withDefinition(def, func() {
		v.lowerTypeParams(decl.Params, def)
		var sigTy types.Ty = types.Unknown{Node: node}
		if decl.Signature != nil {
			_, sigTy = v.lowerType(decl.Signature)
		}
		for _, w := range decl.Where {
			v.lowerBoundClause(w, def)
		}
		def.Lazy = append(def.Lazy, func(use db.NodeId) types.Constraint {
			return types.TyConstraint{Node: use, Type: sigTy}
		})
	})
	v.scopes.pop()
}

// lowerTypeParams introduces def's formal type parameters into the current
// scope and records them, in declaration order, on def.Params.
func (v *Visitor) lowerTypeParams(params []ast.TypeParamDecl, def *Definition) {
	for _, p := range params {
		paramNode := v.newNode(p.Range)
		v.hide(paramNode)
		v.defineName(p.Name, &Definition{Kind: KindTypeParameter, Node: paramNode})
		def.Params = append(def.Params, paramNode)
		v.emitTy(paramNode, types.Parameter{Node: paramNode})
	}
}

// lowerInstanceDeclaration handles `instance Trait P1 P2 where ... :- Value`
// (spec §4.2 "Instance definitions", §4.4 "Bound resolution"). The
// instance's value is constrained to the trait's signature, instantiated
// under the substitution this instance supplies for each of the trait's
// formal parameters; the trait gains this value node as a candidate for
// runBounds to trial-unify against.
func (v *Visitor) lowerInstanceDeclaration(decl *ast.InstanceDeclaration) {
	node := v.newNode(decl.Range)

	traitNode := v.newNode(decl.TraitRange)
	v.hide(traitNode)
	traitDef, ok := v.resolveName(traitNode, decl.TraitName, traitFilter)
	if !ok {
		v.markTyped(node)
		v.d.Fact(node, "unresolvedTraitName", db.Text(decl.TraitName))
		return
	}
	v.d.Fact(node, "trait", db.NodeRef(traitDef.Node))

	v.scopes.push()
	subs := types.Substitutions{}
	for i, p := range decl.Params {
		_, ty := v.lowerType(p)
		if i < len(traitDef.Params) {
			subs.Set(traitDef.Params[i], ty)
		}
	}
	for _, w := range decl.Where {
		// `where` clauses on an instance bound its own free type variables
		// (introduced implicitly while lowering decl.Params above); no
		// Definition is being built here, so bounds attach directly to the
		// top-level queue via a throwaway Definition used only to collect
		// the lazy list before flushing it (mirrors lowerBoundClause's
		// contract without requiring a named Definition).
		tmp := &Definition{}
		v.lowerBoundClause(w, tmp)
		for _, lazy := range tmp.Lazy {
			v.emit(lazy(node))
		}
	}
	valueNode := v.lowerExpr(decl.Value)
	v.scopes.pop()

	v.markTyped(valueNode)
	v.emit(types.InstantiationConstraint{Instantiation: types.Instantiation{
		Source:        node,
		Node:          valueNode,
		Definition:    traitDef.Node,
		Substitutions: subs,
	}})

	v.traits[traitDef.Node] = append(v.traits[traitDef.Node], instanceEntry{
		node:          valueNode,
		substitutions: subs,
	})
	v.emitTy(node, types.Of{Node: valueNode})
}

// lowerBoundClause lowers one `where` constraint clause, attaching a lazy
// Bound constraint to def for BoundClause, or only recording a descriptive
// node for InferClause/DefaultClause (spec §4.2 "where clauses"; defaulting
// behavior for under-constrained parameters is outside the core solver
// described in spec §4.4, which lists only Ty/Instantiation/Bound).
func (v *Visitor) lowerBoundClause(c ast.ConstraintClause, def *Definition) {
	switch w := c.(type) {
	case *ast.BoundClause:
		node := v.newNode(w.Range)
		v.hide(node)
		paramDef, pok := v.scopes.resolveTypeParameter(w.ParamName)
		traitDef, tok := v.resolveName(node, w.TraitName, traitFilter)
		if !tok {
			v.d.Fact(node, "unresolvedTraitInBound", db.Text(w.TraitName))
		}
		if !pok || !tok || len(traitDef.Params) == 0 {
			return
		}
		subs := types.Substitutions{}
		subs.Set(traitDef.Params[0], types.Parameter{Node: paramDef.Node})
		for i, a := range w.Args {
			_, ty := v.lowerType(a)
			if i+1 < len(traitDef.Params) {
				subs.Set(traitDef.Params[i+1], ty)
			}
		}
		def.Lazy = append(def.Lazy, func(use db.NodeId) types.Constraint {
			return types.Bound{Instantiation: types.Instantiation{
				Source:        use,
				Node:          use,
				Definition:    traitDef.Node,
				Substitutions: subs,
			}}
		})

	case *ast.InferClause:
		node := v.newNode(w.Range)
		v.hide(node)

	case *ast.DefaultClause:
		node := v.newNode(w.Range)
		v.hide(node)
		v.lowerType(w.Type)
	}
}

// lowerAssignment handles `pattern :- value`. When the target is a bare
// variable naming a still-forward-declared constant, it rewires that
// constant's body instead of introducing a new binding (spec §4.2).
func (v *Visitor) lowerAssignment(a *ast.Assignment) {
	if vp, ok := a.Target.(*ast.VariablePattern); ok {
		if def, _, ok := v.scopes.resolve(vp.Name, forwardConstantFilter); ok {
			v.bindConstantBody(def, a.Value)
			return
		}
	}
	patNode := v.lowerPattern(a.Target)
	valNode := v.lowerExpr(a.Value)
	v.emitTy(patNode, types.Of{Node: valNode})
}

func forwardConstantFilter(d *Definition) (string, bool) {
	if d.Kind == KindConstant && !d.Resolved {
		return "forward", true
	}
	return "", false
}
