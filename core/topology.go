package core

// Topology is the per-tick graph used for routing. It holds node ids and an
// undirected adjacency list; edges are unweighted.
//
// Topology is not safe for concurrent use. The controller rebuilds it at the
// start of every tick and queries it before the tick ends.
type Topology struct {
	nodes map[int]struct{}
	adj   map[int][]int
	links int
}

func NewTopology() *Topology {
	return &Topology{
		nodes: make(map[int]struct{}),
		adj:   make(map[int][]int),
	}
}

// Rebuild replaces the model state with the given snapshot. Links that name
// a node outside nodes are ignored. Neighbour order follows link order, which
// makes ShortestPaths deterministic for a given snapshot.
func (t *Topology) Rebuild(nodes []int, links []Link) {
	t.nodes = make(map[int]struct{}, len(nodes))
	t.adj = make(map[int][]int, len(nodes))
	t.links = 0
	for _, id := range nodes {
		t.nodes[id] = struct{}{}
	}
	for _, l := range links {
		if !t.HasNode(l.A) || !t.HasNode(l.B) || l.A == l.B {
			continue
		}
		t.adj[l.A] = append(t.adj[l.A], l.B)
		t.adj[l.B] = append(t.adj[l.B], l.A)
		t.links++
	}
}

// HasNode reports whether id is part of the current snapshot.
func (t *Topology) HasNode(id int) bool {
	_, ok := t.nodes[id]
	return ok
}

// NodeCount returns the number of nodes in the snapshot.
func (t *Topology) NodeCount() int { return len(t.nodes) }

// LinkCount returns the number of accepted links in the snapshot.
func (t *Topology) LinkCount() int { return t.links }

// Neighbors returns a copy of id's adjacency list.
func (t *Topology) Neighbors(id int) []int {
	n := t.adj[id]
	out := make([]int, len(n))
	copy(out, n)
	return out
}

// ShortestPaths runs a breadth-first search from source and returns, for
// every reachable node, the hop-minimal path starting at source and ending at
// that node. The source maps to the single-element path [source].
//
// Unreachable nodes are absent from the result. An unknown source yields an
// empty map; "no path" is an ordinary outcome, not an error.
func (t *Topology) ShortestPaths(source int) map[int][]int {
	paths := make(map[int][]int)
	if !t.HasNode(source) {
		return paths
	}

	parent := map[int]int{source: source}
	order := []int{source}
	for head := 0; head < len(order); head++ {
		cur := order[head]
		for _, next := range t.adj[cur] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			order = append(order, next)
		}
	}

	// order is BFS order, so every parent's path exists before its children.
	paths[source] = []int{source}
	for _, id := range order[1:] {
		prev := paths[parent[id]]
		path := make([]int, len(prev)+1)
		copy(path, prev)
		path[len(prev)] = id
		paths[id] = path
	}
	return paths
}

// PathTo returns the hop-minimal path from source to dest, or nil when dest
// is unreachable.
func (t *Topology) PathTo(source, dest int) []int {
	return t.ShortestPaths(source)[dest]
}

// SamePath reports whether two paths have the same length and ids.
func SamePath(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
