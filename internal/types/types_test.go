package types

import (
	"testing"

	"github.com/funvibe/semant/internal/db"
)

// TestTraverseMutIdentity is the type-model traversal closure property of
// spec §8.2: traverseMut(identity) equals the input on every Ty value.
func TestTraverseMutIdentity(t *testing.T) {
	cases := []Ty{
		Unknown{Node: 1},
		Of{Node: 2},
		Parameter{Node: 3},
		Named{Name: 4, Parameters: map[db.NodeId]Ty{5: Parameter{Node: 5}}, Order: []db.NodeId{5}},
		Function{Inputs: []Ty{Parameter{Node: 6}}, Output: Named{Name: 7, Parameters: map[db.NodeId]Ty{}}},
		Tuple{Elements: []Ty{Parameter{Node: 8}, Parameter{Node: 9}}},
		UnitTy(),
	}
	for _, tc := range cases {
		got := TraverseMut(tc, func(t Ty) Ty { return t })
		if !Equal(got, tc) {
			t.Errorf("TraverseMut(identity) changed %v into %v", tc, got)
		}
	}
}

func TestIsIncomplete(t *testing.T) {
	if IsIncomplete(Parameter{Node: 1}) {
		t.Error("a bare Parameter is not incomplete")
	}
	if !IsIncomplete(Of{Node: 1}) {
		t.Error("Of is incomplete")
	}
	nested := Function{Inputs: []Ty{Of{Node: 1}}, Output: UnitTy()}
	if !IsIncomplete(nested) {
		t.Error("a Function whose input is Of should be incomplete")
	}
	complete := Function{Inputs: []Ty{Parameter{Node: 1}}, Output: UnitTy()}
	if IsIncomplete(complete) {
		t.Error("a fully concrete Function should not be incomplete")
	}
}

func TestEqual(t *testing.T) {
	a := Named{Name: 1, Parameters: map[db.NodeId]Ty{2: Parameter{Node: 2}}, Order: []db.NodeId{2}}
	b := Named{Name: 1, Parameters: map[db.NodeId]Ty{2: Parameter{Node: 2}}, Order: []db.NodeId{2}}
	c := Named{Name: 1, Parameters: map[db.NodeId]Ty{3: Parameter{Node: 3}}, Order: []db.NodeId{3}}
	if !Equal(a, b) {
		t.Error("expected structurally identical Named types to be equal")
	}
	if Equal(a, c) {
		t.Error("expected Named types with different parameters to differ")
	}
	if Equal(Unknown{Node: 1}, Of{Node: 1}) {
		t.Error("different Ty variants must never compare equal")
	}
}

func TestTraverseVisitsOuterFirst(t *testing.T) {
	ty := Function{Inputs: []Ty{Parameter{Node: 1}}, Output: Parameter{Node: 2}}
	var visited []Ty
	Traverse(ty, func(t Ty) { visited = append(visited, t) })
	if len(visited) != 3 {
		t.Fatalf("expected 3 visits (function, input, output), got %d", len(visited))
	}
	if _, ok := visited[0].(Function); !ok {
		t.Errorf("expected the outer Function to be visited first, got %T", visited[0])
	}
}

func TestSubstitutionsReplaceAllSentinel(t *testing.T) {
	s := ReplaceAll()
	if !s.IsReplaceAll() {
		t.Error("ReplaceAll() must report IsReplaceAll() true")
	}
	s.Set(1, Parameter{Node: 1})
	if s.IsReplaceAll() {
		t.Error("a substitution with an entry must not report IsReplaceAll()")
	}
	if _, ok := s.Get(2); ok {
		t.Error("Get on a missing param should report false")
	}
}

func TestSubstitutionsOrderIsInsertionOrder(t *testing.T) {
	var s Substitutions
	s.Set(3, Parameter{Node: 3})
	s.Set(1, Parameter{Node: 1})
	s.Set(2, Parameter{Node: 2})
	order := s.Order()
	want := []db.NodeId{3, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestDisplay(t *testing.T) {
	d := db.New()
	name := d.NewNode()
	d.Fact(name, "source", db.Text("Number"))
	ty := Named{Name: name, Parameters: map[db.NodeId]Ty{}}
	if got := Display(d, ty); got != "Number" {
		t.Errorf("Display(Named) = %q, want %q", got, "Number")
	}
	if got := Display(d, Unknown{Node: 1}); got != "_" {
		t.Errorf("Display(Unknown) = %q, want %q", got, "_")
	}
	if got := Display(d, UnitTy()); got != "()" {
		t.Errorf("Display(Unit) = %q, want %q", got, "()")
	}
}
