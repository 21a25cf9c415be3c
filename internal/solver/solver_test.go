package solver

import (
	"testing"

	"github.com/funvibe/semant/internal/db"
	"github.com/funvibe/semant/internal/types"
)

// fakeEnv is a minimal Environment for solver tests that never need
// lazy constraints or trait instances.
type fakeEnv struct {
	instances map[db.NodeId][]InstanceCandidate
}

func (e fakeEnv) LazyConstraints(db.NodeId) []types.LazyConstraint { return nil }
func (e fakeEnv) Instances(trait db.NodeId) []InstanceCandidate    { return e.instances[trait] }

func numberTy(d *db.DB) (db.NodeId, types.Ty) {
	name := d.NewNode()
	d.Fact(name, "source", db.Text("Number"))
	return name, types.Named{Name: name, Parameters: map[db.NodeId]types.Ty{}}
}

// TestIdempotenceOfUnification is spec §8.1: processing the same Ty
// constraint twice yields the same groups and the same others.
func TestIdempotenceOfUnification(t *testing.T) {
	d := db.New()
	n := d.NewNode()
	_, numTy := numberTy(d)

	s1 := New(d, fakeEnv{})
	s1.InsertTypedNodes([]db.NodeId{n})
	s1.Enqueue(types.TyConstraint{Node: n, Type: numTy})
	s1.Run()

	s2 := New(d, fakeEnv{})
	s2.InsertTypedNodes([]db.NodeId{n})
	s2.Enqueue(types.TyConstraint{Node: n, Type: numTy}, types.TyConstraint{Node: n, Type: numTy})
	s2.Run()

	if len(s1.groups) != len(s2.groups) {
		t.Errorf("expected equal group counts, got %d vs %d", len(s1.groups), len(s2.groups))
	}
	if len(s1.others[n]) != len(s2.others[n]) {
		t.Errorf("expected equal others, got %v vs %v", s1.others[n], s2.others[n])
	}
}

// TestGroupMonotonicity is spec §8.3: group count never increases during a
// run, and a node's membership in a group, once established, never shrinks.
func TestGroupMonotonicity(t *testing.T) {
	d := db.New()
	a, b, c := d.NewNode(), d.NewNode(), d.NewNode()
	s := New(d, fakeEnv{})
	s.InsertTypedNodes([]db.NodeId{a, b, c})

	s.Enqueue(types.TyConstraint{Node: a, Type: types.Of{Node: b}})
	s.Run()
	afterFirst := s.uf.groupCount()

	s.Enqueue(types.TyConstraint{Node: b, Type: types.Of{Node: c}})
	s.Run()
	afterSecond := s.uf.groupCount()
	if afterSecond > afterFirst {
		t.Errorf("group count increased on a later run: %d -> %d", afterFirst, afterSecond)
	}

	ka := s.keyFor(a)
	kb := s.keyFor(b)
	if s.uf.find(ka) != s.uf.find(kb) {
		t.Error("expected a and b to stay in the same group after the second run")
	}
	// The first run's fillWithUnknown gave c its own group bound to
	// Unknown(c), so Ty(b, Of(c)) binds the a/b group to that type rather
	// than merging the two groups.
	ta, tb, tc := s.applyTy(types.Of{Node: a}, nil), s.applyTy(types.Of{Node: b}, nil), s.applyTy(types.Of{Node: c}, nil)
	if !types.Equal(ta, tb) || !types.Equal(tb, tc) {
		t.Errorf("expected a, b, c to resolve to the same type, got %v, %v, %v", ta, tb, tc)
	}
}

// TestInstantiationSubstitutesEveryParameter is spec §8.4: after
// runInstantiations is idle, no applied constraint from an instantiation
// still contains Parameter(p) for any p present as a key in that
// instantiation's substitutions, under an explicit (non-replace-all) map.
func TestInstantiationSubstitutesEveryParameter(t *testing.T) {
	d := db.New()
	paramNode := d.NewNode()
	concreteName, concreteTy := numberTy(d)
	_ = concreteName

	s := New(d, fakeEnv{})
	subs := types.Substitutions{}
	subs.Set(paramNode, concreteTy)

	result := s.substituteParameters(types.Function{
		Inputs: []types.Ty{types.Parameter{Node: paramNode}},
		Output: types.Parameter{Node: paramNode},
	}, &subs)

	if mentionsParam(result, paramNode) {
		t.Errorf("expected every Parameter(%d) to be substituted, got %v", paramNode, result)
	}
}

// TestInstantiationClonesUnderReplaceAll checks the implicit path: with no
// explicit substitution, each Parameter occurrence is replaced by a fresh
// Of(clone), and the clone is recorded into subs so a later occurrence of
// the same parameter in the same instantiation reuses it (spec §4.4
// "record the clone as substitutions[p] = Of(clone)").
func TestInstantiationClonesUnderReplaceAll(t *testing.T) {
	d := db.New()
	paramNode := d.NewNode()
	s := New(d, fakeEnv{})
	subs := types.ReplaceAll()

	result := s.substituteParameters(types.Tuple{
		Elements: []types.Ty{types.Parameter{Node: paramNode}, types.Parameter{Node: paramNode}},
	}, &subs)

	if mentionsParam(result, paramNode) {
		t.Errorf("expected the parameter to be cloned away, got %v", result)
	}
	tup, ok := result.(types.Tuple)
	if !ok || len(tup.Elements) != 2 {
		t.Fatalf("expected a 2-element tuple, got %v", result)
	}
	if !types.Equal(tup.Elements[0], tup.Elements[1]) {
		t.Errorf("expected both occurrences to resolve to the same clone, got %v and %v", tup.Elements[0], tup.Elements[1])
	}
}

func mentionsParam(t types.Ty, node db.NodeId) bool {
	found := false
	types.Traverse(t, func(v types.Ty) {
		if p, ok := v.(types.Parameter); ok && p.Node == node {
			found = true
		}
	})
	return found
}

// TestCompletenessOfFinalTyping is spec §8.6: every typed node has at
// least one `type` fact after Finish.
func TestCompletenessOfFinalTyping(t *testing.T) {
	d := db.New()
	untouched := d.NewNode()
	_, numTy := numberTy(d)
	typedAndConstrained := d.NewNode()

	s := New(d, fakeEnv{})
	s.InsertTypedNodes([]db.NodeId{untouched, typedAndConstrained})
	s.Enqueue(types.TyConstraint{Node: typedAndConstrained, Type: numTy})
	s.Finish()

	if len(d.IterByName(untouched, "type")) == 0 {
		t.Error("expected an untouched typed node to still receive a type fact (Unknown)")
	}
	if len(d.IterByName(untouched, "unknownType")) == 0 {
		t.Error("expected unknownType marker on the untouched node")
	}
	if len(d.IterByName(typedAndConstrained, "type")) == 0 {
		t.Error("expected a type fact on the constrained node")
	}
}

// TestBoundDeterminism is spec §8.5: running equivalent bound resolutions
// twice yields identical resolvedTrait/unresolvedTrait facts.
func TestBoundDeterminism(t *testing.T) {
	runOnce := func() (resolved, unresolved int) {
		d := db.New()
		trait := d.NewNode()
		instance := d.NewNode()
		param := d.NewNode()
		use := d.NewNode()

		env := fakeEnv{instances: map[db.NodeId][]InstanceCandidate{
			trait: {{Instance: instance, Substitutions: types.ReplaceAll()}},
		}}
		s := New(d, env)
		s.InsertTypedNodes([]db.NodeId{use})
		subs := types.Substitutions{}
		subs.Set(param, types.Of{Node: instance})
		s.Enqueue(types.Bound{Instantiation: types.Instantiation{
			Node:          use,
			Definition:    trait,
			Substitutions: subs,
		}})
		s.Finish()

		for _, n := range d.Nodes() {
			resolved += len(d.IterByName(n, "resolvedTrait"))
			unresolved += len(d.IterByName(n, "unresolvedTrait"))
		}
		return
	}

	r1, u1 := runOnce()
	r2, u2 := runOnce()
	if r1 != r2 || u1 != u2 {
		t.Errorf("expected deterministic bound resolution, got (%d,%d) vs (%d,%d)", r1, u1, r2, u2)
	}
}

// TestMismatchRecordedNotPanicked exercises spec §7's "structural mismatches
// are stored on others" failure semantics (also spec §8 Scenario F: two
// conflicting Ty facts on one node both survive).
func TestMismatchRecordedNotPanicked(t *testing.T) {
	d := db.New()
	n := d.NewNode()
	_, numTy := numberTy(d)
	textName := d.NewNode()
	d.Fact(textName, "source", db.Text("Text"))
	textTy := types.Named{Name: textName, Parameters: map[db.NodeId]types.Ty{}}

	s := New(d, fakeEnv{})
	s.InsertTypedNodes([]db.NodeId{n})
	s.Enqueue(types.TyConstraint{Node: n, Type: numTy}, types.TyConstraint{Node: n, Type: textTy})
	s.Finish()

	tys := d.IterByName(n, "type")
	if len(tys) < 2 {
		t.Fatalf("expected at least 2 conflicting type facts, got %d", len(tys))
	}
}
