package db

import "testing"

func TestNewNodeAllocatesDistinctIds(t *testing.T) {
	d := New()
	a := d.NewNode()
	b := d.NewNode()
	if a == b {
		t.Fatalf("expected distinct node ids, got %d and %d", a, b)
	}
	if a == 0 || b == 0 {
		t.Fatalf("NewNode must never return the zero value, got %d, %d", a, b)
	}
}

func TestFactAndIter(t *testing.T) {
	d := New()
	n := d.NewNode()
	d.Fact(n, "hidden", Unit{})
	d.Fact(n, "source", Text("x"))

	facts := d.Iter(n)
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	if !d.IsHidden(n) {
		t.Error("expected node to be hidden")
	}
}

func TestIterByNameAndGet(t *testing.T) {
	d := New()
	n := d.NewNode()
	d.Fact(n, "source", Text("first"))
	d.Fact(n, "source", Text("second"))

	byName := d.IterByName(n, "source")
	if len(byName) != 2 {
		t.Fatalf("expected 2 facts named source, got %d", len(byName))
	}

	got, ok := Get[Text](d, n, "source")
	if !ok || got != "first" {
		t.Errorf("Get should return the first fact of the name, got %q, %v", got, ok)
	}
}

func TestAllOrdersByNodeThenInsertion(t *testing.T) {
	d := New()
	n2 := d.NewNode()
	n1 := d.NewNode()
	_ = n1
	d.Fact(n2, "instance", NodeRef(n2))
	third := d.NewNode()
	d.Fact(third, "instance", NodeRef(third))

	all := d.All("instance")
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Node >= all[1].Node {
		t.Errorf("expected All() sorted by NodeId ascending, got %v then %v", all[0].Node, all[1].Node)
	}
}

func TestNodesReturnsAllocationOrder(t *testing.T) {
	d := New()
	var want []NodeId
	for i := 0; i < 5; i++ {
		want = append(want, d.NewNode())
	}
	got := d.Nodes()
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Nodes()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCloneNodeCopiesFacts(t *testing.T) {
	d := New()
	n := d.NewNode()
	d.Fact(n, "span", SpanValue(Span{Path: "f", Start: 0, End: 1}))
	d.Fact(n, "source", Text("x"))

	clone := d.CloneNode(n)
	if clone == n {
		t.Fatal("expected clone to be a fresh node")
	}
	orig := d.Iter(n)
	cloned := d.Iter(clone)
	if len(orig) != len(cloned) {
		t.Fatalf("expected clone to carry the same fact count, got %d vs %d", len(cloned), len(orig))
	}
	for i := range orig {
		if !orig[i].Equal(cloned[i]) {
			t.Errorf("fact %d differs: %+v vs %+v", i, orig[i], cloned[i])
		}
	}
}

// TestFactAppendOnly is the append-only subset property of spec §8.7: the
// multiset of facts recorded before a later point is a subset of the
// multiset after.
func TestFactAppendOnly(t *testing.T) {
	d := New()
	n := d.NewNode()
	d.Fact(n, "source", Text("x"))
	before := append([]Fact(nil), d.Iter(n)...)

	d.Fact(n, "type", Text("Number"))
	after := d.Iter(n)

	for _, bf := range before {
		found := false
		for _, af := range after {
			if bf.Equal(af) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("fact %+v present before is missing after", bf)
		}
	}
	if len(after) <= len(before) {
		t.Errorf("expected after to have grown, before=%d after=%d", len(before), len(after))
	}
}

func TestFactEqual(t *testing.T) {
	a := Fact{Name: "source", Value: Text("x")}
	b := Fact{Name: "source", Value: Text("x")}
	c := Fact{Name: "source", Value: Text("y")}
	if !a.Equal(b) {
		t.Error("expected equal facts to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing facts to compare unequal")
	}
}
