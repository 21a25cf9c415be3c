package solver

import "github.com/funvibe/semant/internal/db"

// GroupKey identifies a union-find node representing an equivalence class
// of NodeIds believed to share a type (spec §3 "Group", §4.4).
type GroupKey uint32

// unionFind is a standard disjoint-set structure with a union-by-rank
// heuristic and payload merging: each root key carries the set of NodeIds
// that belong to its group (spec §9 "Union-find for groups").
type unionFind struct {
	parent  map[GroupKey]GroupKey
	rank    map[GroupKey]int
	payload map[GroupKey]map[db.NodeId]bool
	next    GroupKey
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent:  make(map[GroupKey]GroupKey),
		rank:    make(map[GroupKey]int),
		payload: make(map[GroupKey]map[db.NodeId]bool),
	}
}

func (u *unionFind) newKey(node db.NodeId) GroupKey {
	u.next++
	k := u.next
	u.parent[k] = k
	u.rank[k] = 0
	u.payload[k] = map[db.NodeId]bool{node: true}
	return k
}

// find returns the representative key for k, compressing the path.
func (u *unionFind) find(k GroupKey) GroupKey {
	for u.parent[k] != k {
		u.parent[k] = u.parent[u.parent[k]]
		k = u.parent[k]
	}
	return k
}

// union merges the groups containing a and b and returns the surviving
// representative. The losing side's node payload is folded into the
// survivor's (spec §4.4 "Group-key union").
func (u *unionFind) union(a, b GroupKey) GroupKey {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return ra
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	for n := range u.payload[rb] {
		u.payload[ra][n] = true
	}
	delete(u.payload, rb)
	return ra
}

func (u *unionFind) nodesOf(root GroupKey) []db.NodeId {
	members := u.payload[root]
	out := make([]db.NodeId, 0, len(members))
	for n := range members {
		out = append(out, n)
	}
	return out
}

// groupCount reports the number of distinct groups, for the group
// monotonicity testable property (spec §8.3).
func (u *unionFind) groupCount() int {
	return len(u.payload)
}

func (u *unionFind) clone() *unionFind {
	c := &unionFind{
		parent:  make(map[GroupKey]GroupKey, len(u.parent)),
		rank:    make(map[GroupKey]int, len(u.rank)),
		payload: make(map[GroupKey]map[db.NodeId]bool, len(u.payload)),
		next:    u.next,
	}
	for k, v := range u.parent {
		c.parent[k] = v
	}
	for k, v := range u.rank {
		c.rank[k] = v
	}
	for k, set := range u.payload {
		ns := make(map[db.NodeId]bool, len(set))
		for n := range set {
			ns[n] = true
		}
		c.payload[k] = ns
	}
	return c
}

// keyTable tracks the bidirectional NodeId <-> GroupKey mapping: each node
// that has entered the solver gets exactly one key (spec §4.4 "bidirectional
// maps NodeId ↔ GroupKey").
type keyTable struct {
	keys map[db.NodeId]GroupKey
}

func newKeyTable() *keyTable {
	return &keyTable{keys: make(map[db.NodeId]GroupKey)}
}

func (t *keyTable) clone() *keyTable {
	c := &keyTable{keys: make(map[db.NodeId]GroupKey, len(t.keys))}
	for k, v := range t.keys {
		c.keys[k] = v
	}
	return c
}
