package pipeline

import (
	"testing"

	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// findNodeBySource returns the node whose `source` fact exactly matches
// text, used to locate a specific expression's node from the full source
// string without threading node ids out of Run.
func findNodeBySource(d *db.DB, text string) (db.NodeId, bool) {
	for _, n := range d.Nodes() {
		if s, ok := db.Get[db.Text](d, n, "source"); ok && string(s) == text {
			return n, true
		}
	}
	return 0, false
}

func firstTypeFact(d *db.DB, n db.NodeId) (types.Ty, bool) {
	facts := d.IterByName(n, "type")
	if len(facts) == 0 {
		return nil, false
	}
	return types.AsTy(facts[0].Value)
}

func countTraitFacts(d *db.DB) (resolved, unresolved int) {
	for _, n := range d.Nodes() {
		resolved += len(d.IterByName(n, "resolvedTrait"))
		unresolved += len(d.IterByName(n, "unresolvedTrait"))
	}
	return
}

// scenarioA: a number literal with no Number type in scope (spec §8
// Scenario A) should carry missingNumberType and no concrete `type` fact.
func TestScenarioA_NumberLiteralNoNumberType(t *testing.T) {
	res, err := Run("scenario_a.sm", "3.14")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Fatal("expected non-empty RunID")
	}

	var found bool
	for _, n := range res.DB.Nodes() {
		if facts := res.DB.IterByName(n, "missingNumberType"); len(facts) > 0 {
			found = true
			for _, f := range res.DB.IterByName(n, "type") {
				if ty, ok := types.AsTy(f.Value); !ok {
					t.Errorf("node %d: type fact does not hold a type: %v", n, f.Value)
				} else if _, unknown := ty.(types.Unknown); !unknown {
					t.Errorf("node %d: expected only an Unknown type alongside missingNumberType, got %v", n, ty)
				}
			}
		}
	}
	if !found {
		t.Fatal("expected some node to carry missingNumberType")
	}
}

// scenarioB: a number literal with Number declared in scope (spec §8
// Scenario B) carries exactly one type(Number) fact.
func TestScenarioB_NumberLiteralWithNumberType(t *testing.T) {
	res, err := Run("scenario_b.sm", "type Number;\n3.14")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var found bool
	for _, n := range res.DB.Nodes() {
		tys := res.DB.IterByName(n, "type")
		if len(tys) == 0 {
			continue
		}
		if len(res.DB.IterByName(n, "missingNumberType")) > 0 {
			continue
		}
		found = true
		if len(tys) != 1 {
			t.Errorf("node %d: expected exactly one type fact, got %d", n, len(tys))
		}
	}
	if !found {
		t.Fatal("expected the number literal to carry a type fact")
	}
}

func TestRun_ConstantDeclarationIsTyped(t *testing.T) {
	src := "type Number;\nx :: Number :- 1"
	res, err := Run("const.sm", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var typedNodes int
	for _, n := range res.DB.Nodes() {
		if len(res.DB.IterByName(n, "type")) > 0 {
			typedNodes++
		}
	}
	if typedNodes == 0 {
		t.Fatal("expected at least one typed node")
	}
}

// TestScenarioC_GenericIdentityFreshInstantiationPerCallSite is spec §8
// Scenario C: a generic identity constant (`id : x -> x`) instantiates a
// fresh copy of its implicit type parameter at each call site, so two
// calls against different concrete argument types resolve to two
// different types instead of both silently collapsing to Unknown.
func TestScenarioC_GenericIdentityFreshInstantiationPerCallSite(t *testing.T) {
	src := "type Number;\ntype Text;\nid :: a -> a :- x -> x;\nid 3.14;\nid \"hi\""
	res, err := Run("scenario_c.sm", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	call1, ok1 := findNodeBySource(res.DB, "id 3.14")
	call2, ok2 := findNodeBySource(res.DB, `id "hi"`)
	if !ok1 || !ok2 {
		t.Fatalf("expected to find both call expressions by source text")
	}

	ty1, tok1 := firstTypeFact(res.DB, call1)
	ty2, tok2 := firstTypeFact(res.DB, call2)
	if !tok1 || !tok2 {
		t.Fatalf("expected both calls to carry a resolved type fact, got call1=%v call2=%v", tok1, tok2)
	}
	if _, unknown := ty1.(types.Unknown); unknown {
		t.Errorf("`id 3.14` resolved to Unknown: its parameter reference inside the body never unified with its binding")
	}
	if _, unknown := ty2.(types.Unknown); unknown {
		t.Errorf(`"id \"hi\"" resolved to Unknown: its parameter reference inside the body never unified with its binding`)
	}
	if types.Equal(ty1, ty2) {
		t.Errorf("expected distinct instantiations for the two call sites, got the same type %#v for both", ty1)
	}
}

// TestScenarioD_SingleInstanceTraitResolves is spec §8 Scenario D: a
// generic constant bounded by a trait with exactly one matching instance
// resolves that bound, recording a resolvedTrait fact and no
// unresolvedTrait fact.
func TestScenarioD_SingleInstanceTraitResolves(t *testing.T) {
	src := "type Text;\ntype Number;\n" +
		"trait show a :: a -> Text;\n" +
		"instance show Number :- 1;\n" +
		"describe :: b -> Text where b : show;\n" +
		"describe 3.14"
	res, err := Run("scenario_d.sm", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	resolved, unresolved := countTraitFacts(res.DB)
	if resolved == 0 {
		t.Fatalf("expected a resolvedTrait fact with exactly one matching instance")
	}
	if unresolved != 0 {
		t.Errorf("expected no unresolvedTrait fact with exactly one matching instance, got %d", unresolved)
	}
}

// TestScenarioE_AmbiguousInstancesLeaveTraitUnresolved is spec §8 Scenario
// E: the same bound with two candidate instances cannot pick a unique
// winner, so it records unresolvedTrait and no resolvedTrait.
func TestScenarioE_AmbiguousInstancesLeaveTraitUnresolved(t *testing.T) {
	src := "type Text;\ntype Number;\n" +
		"trait show a :: a -> Text;\n" +
		"instance show Number :- 1;\n" +
		"instance show Text :- \"hi\";\n" +
		"describe :: b -> Text where b : show;\n" +
		"describe 3.14"
	res, err := Run("scenario_e.sm", src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	resolved, unresolved := countTraitFacts(res.DB)
	if unresolved == 0 {
		t.Fatalf("expected an unresolvedTrait fact with two ambiguous instances")
	}
	if resolved != 0 {
		t.Errorf("expected no resolvedTrait fact with two ambiguous instances, got %d", resolved)
	}
}
