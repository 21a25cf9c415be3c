// Package db implements the fact database described in spec §4.1: an
// in-memory, append-only, keyed store of facts about opaque node
// identifiers. Every other package in this module communicates through it.
package db

import "sort"

// NodeId is an opaque dense nonnegative integer, assigned monotonically by
// the DB. The zero value is never returned by NewNode.
type NodeId uint32

// Span is an immutable source range, created once when a node is allocated.
type Span struct {
	Path      string
	Start     int
	End       int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Fact is a (name, value) pair attached to a node. The same name may carry
// several facts on one node; ordering among same-name facts is insertion
// order (spec §4.1).
type Fact struct {
	Name  string
	Value Value
}

// IsHidden reports whether this fact is the `hidden` marker.
func (f Fact) IsHidden() bool { return f.Name == "hidden" }

// Equal reports structural equality by name and by the value variant's own
// equality, used by tests that check the append-only fact property (spec §8.7).
func (f Fact) Equal(other Fact) bool {
	return f.Name == other.Name && f.Value.Equal(other.Value)
}

// DB is the fact database. The zero value is not usable; use New.
type DB struct {
	nextID NodeId
	// facts[node] holds every fact ever recorded on that node, in insertion
	// order, regardless of name — this is the source of truth for Iter.
	facts map[NodeId][]Fact
	// byName[name][node] indexes facts of one name for All/IterByName/Get,
	// avoiding a linear scan of every node for a name-qualified lookup.
	byName map[string]map[NodeId][]Fact
	order  []NodeId // node allocation order, for stable enumeration
}

// New returns an empty fact database.
func New() *DB {
	return &DB{
		facts:  make(map[NodeId][]Fact),
		byName: make(map[string]map[NodeId][]Fact),
	}
}

// NewNode allocates a fresh node id.
func (d *DB) NewNode() NodeId {
	d.nextID++
	id := d.nextID
	d.facts[id] = nil
	d.order = append(d.order, id)
	return id
}

// Fact appends a fact to node n. O(1) amortized.
func (d *DB) Fact(n NodeId, name string, value Value) {
	f := Fact{Name: name, Value: value}
	d.facts[n] = append(d.facts[n], f)

	byNode, ok := d.byName[name]
	if !ok {
		byNode = make(map[NodeId][]Fact)
		d.byName[name] = byNode
	}
	byNode[n] = append(byNode[n], f)
}

// Iter returns every fact on node n, in insertion order.
func (d *DB) Iter(n NodeId) []Fact {
	return d.facts[n]
}

// IterByName returns every fact named name on node n, in insertion order.
func (d *DB) IterByName(n NodeId, name string) []Fact {
	return d.byName[name][n]
}

// Get returns the first fact of the given name on n as a T, or false if
// none exists or the stored value is not a T.
func Get[T Value](d *DB, n NodeId, name string) (T, bool) {
	var zero T
	for _, f := range d.byName[name][n] {
		if v, ok := f.Value.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// NodeFact pairs a node with one of its facts, returned by All.
type NodeFact struct {
	Node NodeId
	Fact Fact
}

// All returns every (node, fact) pair across the whole database for facts
// named name, ordered by NodeId then insertion order.
func (d *DB) All(name string) []NodeFact {
	byNode := d.byName[name]
	if len(byNode) == 0 {
		return nil
	}
	nodes := make([]NodeId, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var out []NodeFact
	for _, n := range nodes {
		for _, f := range byNode[n] {
			out = append(out, NodeFact{Node: n, Fact: f})
		}
	}
	return out
}

// Nodes returns every allocated node id, in allocation order.
func (d *DB) Nodes() []NodeId {
	out := make([]NodeId, len(d.order))
	copy(out, d.order)
	return out
}

// CloneNode allocates a new node and copies every existing fact on n to it,
// including span and source, so debug/report output on the clone still
// points back to the original span. Used by the solver to synthesize fresh
// parameters during instantiation and fresh temporaries during bound
// resolution (spec §4.1, §4.4).
func (d *DB) CloneNode(n NodeId) NodeId {
	clone := d.NewNode()
	for _, f := range d.facts[n] {
		d.Fact(clone, f.Name, f.Value)
	}
	return clone
}

// IsHidden reports whether any fact on n is named `hidden`.
func (d *DB) IsHidden(n NodeId) bool {
	for _, f := range d.facts[n] {
		if f.IsHidden() {
			return true
		}
	}
	return false
}
