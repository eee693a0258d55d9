package model

import "sort"

// Graph is an undirected adjacency structure over variable labels, with a
// stable identifier per edge so an engine can name messages by edge index.
// Grounded on the teacher's cmd/dot.go adjacency-map idiom
// (map[int]AdjMap), generalized with edge ids and the triangulation /
// maximal-clique operations §4.2 requires.
type Graph struct {
	nodes map[int]bool
	adj   map[int]map[int]int // node -> neighbor -> edge id
	next  int
}

// NewGraph returns an empty graph seeded with the given nodes.
func NewGraph(nodes []int) *Graph {
	g := &Graph{
		nodes: make(map[int]bool, len(nodes)),
		adj:   make(map[int]map[int]int, len(nodes)),
	}
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

// AddNode ensures n is present, with no neighbors if new.
func (g *Graph) AddNode(n int) {
	if g.nodes[n] {
		return
	}
	g.nodes[n] = true
	g.adj[n] = make(map[int]int)
}

// AddEdge connects u and v, assigning a new edge id if the edge is not
// already present. Returns the edge id either way.
func (g *Graph) AddEdge(u, v int) int {
	g.AddNode(u)
	g.AddNode(v)
	if id, ok := g.adj[u][v]; ok {
		return id
	}
	id := g.next
	g.next++
	g.adj[u][v] = id
	g.adj[v][u] = id
	return id
}

// HasEdge reports whether u and v are connected.
func (g *Graph) HasEdge(u, v int) bool {
	_, ok := g.adj[u][v]
	return ok
}

// Neighbors returns v's neighbors in ascending order.
func (g *Graph) Neighbors(v int) []int {
	out := make([]int, 0, len(g.adj[v]))
	for n := range g.adj[v] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Nodes returns all node labels in ascending order.
func (g *Graph) Nodes() []int {
	out := make([]int, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int {
	return g.next
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	cp := &Graph{
		nodes: make(map[int]bool, len(g.nodes)),
		adj:   make(map[int]map[int]int, len(g.adj)),
		next:  g.next,
	}
	for n := range g.nodes {
		cp.nodes[n] = true
	}
	for n, nbrs := range g.adj {
		m := make(map[int]int, len(nbrs))
		for k, v := range nbrs {
			m[k] = v
		}
		cp.adj[n] = m
	}
	return cp
}

// laterNeighbors returns the neighbors of v that appear strictly after v in
// order (the "later neighbors" the glossary and §4.2/§4.4 refer to).
func laterNeighbors(g *Graph, order []int, posOf map[int]int, v int) []int {
	pv := posOf[v]
	out := make([]int, 0)
	for _, n := range g.Neighbors(v) {
		if posOf[n] > pv {
			out = append(out, n)
		}
	}
	return out
}

// Triangulate fills in edges so that, for each variable in order, all of its
// later neighbors become pairwise connected. It mutates g in place and
// returns the number of fill-in edges added. Per §4.2, "later neighbors" is
// read from the graph as it stands at the moment v is processed, so fill-in
// edges added while processing earlier variables are visible to later ones.
func (g *Graph) Triangulate(order []int) int {
	posOf := make(map[int]int, len(order))
	for i, v := range order {
		posOf[v] = i
	}

	added := 0
	for _, v := range order {
		later := laterNeighbors(g, order, posOf, v)
		for i := 0; i < len(later); i++ {
			for j := i + 1; j < len(later); j++ {
				if !g.HasEdge(later[i], later[j]) {
					g.AddEdge(later[i], later[j])
					added++
				}
			}
		}
	}
	return added
}

// MaximalCliques returns, for the graph as it stands (callers triangulate
// first if they want chordal cliques), the maximal cliques induced by
// {v} union later-neighbors(v) for each v in order: cliques strictly
// contained in another are dropped, and duplicates are merged.
func (g *Graph) MaximalCliques(order []int) [][]int {
	posOf := make(map[int]int, len(order))
	for i, v := range order {
		posOf[v] = i
	}

	candidates := make([][]int, 0, len(order))
	for _, v := range order {
		clique := append([]int{v}, laterNeighbors(g, order, posOf, v)...)
		sort.Ints(clique)
		candidates = append(candidates, clique)
	}

	return dedupeAndFilterMaximal(candidates)
}

func asSet(c []int) map[int]bool {
	s := make(map[int]bool, len(c))
	for _, x := range c {
		s[x] = true
	}
	return s
}

func subsetOf(a, b map[int]bool) bool {
	if len(a) > len(b) {
		return false
	}
	for x := range a {
		if !b[x] {
			return false
		}
	}
	return true
}

func dedupeAndFilterMaximal(candidates [][]int) [][]int {
	sets := make([]map[int]bool, len(candidates))
	for i, c := range candidates {
		sets[i] = asSet(c)
	}

	keep := make([]bool, len(candidates))
	for i := range candidates {
		keep[i] = true
	}

	for i := range candidates {
		if !keep[i] {
			continue
		}
		for j := range candidates {
			if i == j || !keep[j] {
				continue
			}
			// Equal sets: keep the lower index, drop the other.
			if len(sets[i]) == len(sets[j]) && subsetOf(sets[i], sets[j]) {
				if j > i {
					keep[j] = false
				}
				continue
			}
			if subsetOf(sets[i], sets[j]) {
				keep[i] = false
				break
			}
		}
	}

	out := make([][]int, 0, len(candidates))
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}
