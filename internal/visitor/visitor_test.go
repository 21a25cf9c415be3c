package visitor

import (
	"testing"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/solver"
	"github.com/funvibe/semant/internal/types"
)

func newTestVisitor() (*Visitor, *db.DB) {
	d := db.New()
	spanOf := func(r ast.Range) (db.Span, string) { return db.Span{}, "" }
	return New(d, spanOf), d
}

func hasTyConstraint(cs []types.Constraint, node db.NodeId, want types.Ty) bool {
	for _, c := range cs {
		tc, ok := c.(types.TyConstraint)
		if ok && tc.Node == node && types.Equal(tc.Type, want) {
			return true
		}
	}
	return false
}

func hasInstantiationFor(cs []types.Constraint, node db.NodeId) bool {
	for _, c := range cs {
		ic, ok := c.(types.InstantiationConstraint)
		if ok && ic.Instantiation.Node == node {
			return true
		}
	}
	return false
}

// TestVariableReferenceBindsDirectly is the regression test for the
// "a plain Variable reference unconditionally instantiates" bug: a
// KindVariable Definition never carries any def.Lazy entries, so
// instantiating it produces nothing and the reference silently resolves
// to Unknown. A reference must instead unify directly against the
// binding's own node.
func TestVariableReferenceBindsDirectly(t *testing.T) {
	v, _ := newTestVisitor()
	paramNode := v.newNode(ast.Range{})
	v.defineName("x", &Definition{Kind: KindVariable, Node: paramNode})

	useNode := v.lowerExpr(&ast.Variable{Name: "x"})

	top := v.TopLevelConstraints()
	if hasInstantiationFor(top, useNode) {
		t.Fatalf("a Variable reference must not go through instantiation, got %#v", top)
	}
	if !hasTyConstraint(top, useNode, types.Of{Node: paramNode}) {
		t.Fatalf("expected Ty(%d, Of(%d)) among top-level constraints, got %#v", useNode, paramNode, top)
	}
}

// TestConstantReferenceStillInstantiates guards the other direction of the
// same fix: a KindConstant/KindTrait reference must still go through
// instantiateUse, since that is what gives each use site its own fresh
// copy of the definition's implicit type parameters.
func TestConstantReferenceStillInstantiates(t *testing.T) {
	v, _ := newTestVisitor()
	sigNode := v.newNode(ast.Range{})
	def := &Definition{Kind: KindConstant, Node: sigNode}
	v.defineName("one", def)

	useNode := v.lowerExpr(&ast.Variable{Name: "one"})

	if !hasInstantiationFor(v.TopLevelConstraints(), useNode) {
		t.Fatalf("expected a Constant reference to instantiate, got %#v", v.TopLevelConstraints())
	}
}

// TestUnitFlipSwapsFunctionAndArgument is the regression test for the
// missing unit-call special case: `f x` must relower to `x f` when x is a
// plain variable bound to a constant carrying the `unit` attribute.
func TestUnitFlipSwapsFunctionAndArgument(t *testing.T) {
	v, _ := newTestVisitor()
	unitNode := v.newNode(ast.Range{})
	v.defineName("meters", &Definition{
		Kind:       KindConstant,
		Node:       unitNode,
		Attributes: []ast.Attribute{{Name: "unit"}},
	})

	fn := &ast.NumberLiteral{Text: "3"}
	args := []ast.Expr{&ast.Variable{Name: "meters"}}

	newFn, newArgs := v.unitFlip(fn, args)

	flippedVar, ok := newFn.(*ast.Variable)
	if !ok || flippedVar.Name != "meters" {
		t.Fatalf("expected the unit constant to become the function, got %#v", newFn)
	}
	if len(newArgs) != 1 || newArgs[0] != fn {
		t.Fatalf("expected the original function to become the sole argument, got %#v", newArgs)
	}
}

// TestUnitFlipLeavesOrdinaryCallUnchanged confirms the special case does
// not fire for calls whose argument isn't a bare variable bound to a
// unit-attributed constant.
func TestUnitFlipLeavesOrdinaryCallUnchanged(t *testing.T) {
	v, _ := newTestVisitor()
	plainNode := v.newNode(ast.Range{})
	v.defineName("double", &Definition{Kind: KindConstant, Node: plainNode})

	fn := &ast.Variable{Name: "f"}
	args := []ast.Expr{&ast.Variable{Name: "double"}}

	newFn, newArgs := v.unitFlip(fn, args)

	if newFn != ast.Expr(fn) {
		t.Errorf("expected fn unchanged for a non-unit constant argument, got %#v", newFn)
	}
	if len(newArgs) != 1 || newArgs[0] != args[0] {
		t.Errorf("expected args unchanged for a non-unit constant argument, got %#v", newArgs)
	}

	// A two-argument call must never flip, regardless of what its
	// arguments resolve to.
	multiArgs := []ast.Expr{&ast.Variable{Name: "double"}, &ast.NumberLiteral{Text: "1"}}
	newFn2, newArgs2 := v.unitFlip(fn, multiArgs)
	if len(newArgs2) != 2 || newFn2 != ast.Expr(fn) {
		t.Errorf("expected a two-argument call to pass through unchanged, got fn=%#v args=%#v", newFn2, newArgs2)
	}
}

// TestGenericConstantLazyConstraintsReachableAfterBodyBound is the
// regression test for a second bug found while writing this coverage:
// bindConstantBody flips def.Node from the signature node to the body
// node, but v.defs (keyed by node id) was only ever populated once, under
// the old key, so a use site lowered after the body arrived captured a
// Definition node whose lazy constraints were unreachable.
func TestGenericConstantLazyConstraintsReachableAfterBodyBound(t *testing.T) {
	v, _ := newTestVisitor()
	decl := &ast.ConstantDeclaration{
		Name: "id",
		Type: &ast.FunctionType{
			Inputs: []ast.TypeExpr{&ast.ParameterType{Name: "a"}},
			Output: &ast.ParameterType{Name: "a"},
		},
		Body: &ast.FunctionExpr{
			Inputs: []ast.Pattern{&ast.VariablePattern{Name: "x"}},
			Body:   &ast.Variable{Name: "x"},
		},
	}
	v.lowerStatement(decl)

	def, _, ok := v.scopes.resolve("id", variableOrConstantFilter)
	if !ok {
		t.Fatal("expected id to resolve after lowering its declaration")
	}

	env := v.Environment()
	if lazy := env.LazyConstraints(def.Node); len(lazy) == 0 {
		t.Fatalf("expected def.Node (the post-bindConstantBody body node) to still reach its lazy constraints, got none")
	}
}

// TestGenericIdentityFreshInstantiationPerCallSite exercises both fixes
// together end to end through the solver: a generic identity constant
// (spec §8 Scenario C) referenced at two call sites with different
// concrete argument types must resolve each call to its own distinct
// type, not both collapsing to Unknown.
func TestGenericIdentityFreshInstantiationPerCallSite(t *testing.T) {
	v, d := newTestVisitor()

	idDecl := &ast.ConstantDeclaration{
		Name: "id",
		Type: &ast.FunctionType{
			Inputs: []ast.TypeExpr{&ast.ParameterType{Name: "a"}},
			Output: &ast.ParameterType{Name: "a"},
		},
		Body: &ast.FunctionExpr{
			Inputs: []ast.Pattern{&ast.VariablePattern{Name: "x"}},
			Body:   &ast.Variable{Name: "x"},
		},
	}
	v.lowerStatement(idDecl)
	v.lowerStatement(&ast.TypeDeclaration{Name: "Number"})
	v.lowerStatement(&ast.TypeDeclaration{Name: "Text"})

	call1 := v.lowerExpr(&ast.CallExpr{
		Function: &ast.Variable{Name: "id"},
		Args:     []ast.Expr{&ast.NumberLiteral{Text: "1"}},
	})
	call2 := v.lowerExpr(&ast.CallExpr{
		Function: &ast.Variable{Name: "id"},
		Args:     []ast.Expr{&ast.TextLiteral{Value: "hi"}},
	})

	s := solver.New(d, v.Environment())
	s.InsertTypedNodes(v.TypedNodes())
	s.Enqueue(v.TopLevelConstraints()...)
	s.Finish()

	ty1, ok1 := firstType(d, call1)
	ty2, ok2 := firstType(d, call2)
	if !ok1 || !ok2 {
		t.Fatalf("expected both call sites to carry a resolved type fact")
	}
	if _, unknown := ty1.(types.Unknown); unknown {
		t.Errorf("id 1 resolved to Unknown")
	}
	if _, unknown := ty2.(types.Unknown); unknown {
		t.Errorf("id \"hi\" resolved to Unknown")
	}
	if types.Equal(ty1, ty2) {
		t.Errorf("expected the two call sites to resolve to distinct types, both got %#v", ty1)
	}
}

func firstType(d *db.DB, n db.NodeId) (types.Ty, bool) {
	facts := d.IterByName(n, "type")
	if len(facts) == 0 {
		return nil, false
	}
	return types.AsTy(facts[0].Value)
}
