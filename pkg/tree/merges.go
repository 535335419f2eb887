/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merges.go
Description: The merge relation between interchangeable nodes. A node with a non-empty
merge set is a recursion point: the sampler may expand any of its merge partners in its
place. Partition collapses the relation into equivalence classes for grammar export.
*/

package tree

// Merges is a symmetric relation between nodes. Iteration order is insertion order.
type Merges struct {
	partners map[Node][]Node
	keys     []Node
}

// NewMerges creates an empty relation.
func NewMerges() *Merges {
	return &Merges{partners: make(map[Node][]Node)}
}

// Add records that a and b are interchangeable. Self-merges and duplicates are ignored.
func (m *Merges) Add(a, b Node) {
	if a == b {
		return
	}
	m.link(a, b)
	m.link(b, a)
}

func (m *Merges) link(from, to Node) {
	existing, ok := m.partners[from]
	if !ok {
		m.keys = append(m.keys, from)
	}
	for _, n := range existing {
		if n == to {
			return
		}
	}
	m.partners[from] = append(existing, to)
}

// Get returns the merge partners of n, empty if n is not a recursion point.
func (m *Merges) Get(n Node) []Node {
	if m == nil {
		return nil
	}
	return m.partners[n]
}

// Keys returns every node with at least one partner.
func (m *Merges) Keys() []Node {
	if m == nil {
		return nil
	}
	return m.keys
}

// Len returns the number of recursion points.
func (m *Merges) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Partition maps every node of the tree rooted at root to the representative of its
// merge class. Unmerged nodes represent themselves; a class is represented by its
// first member in preorder.
func Partition(root Node, m *Merges) map[Node]Node {
	parent := make(map[Node]Node)
	var find func(Node) Node
	find = func(n Node) Node {
		p, ok := parent[n]
		if !ok || p == n {
			parent[n] = n
			return n
		}
		r := find(p)
		parent[n] = r
		return r
	}

	order := make(map[Node]int)
	descendants := Descendants(root)
	for i, n := range descendants {
		order[n] = i
		parent[n] = n
	}
	rank := func(n Node) int {
		if i, ok := order[n]; ok {
			return i
		}
		return len(order)
	}

	for _, a := range m.Keys() {
		for _, b := range m.Get(a) {
			ra, rb := find(a), find(b)
			if ra == rb {
				continue
			}
			if rank(rb) < rank(ra) {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	reps := make(map[Node]Node, len(descendants))
	for _, n := range descendants {
		reps[n] = find(n)
	}
	return reps
}
