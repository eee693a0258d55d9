package model

import (
	"math"
	"sort"

	"github.com/merlin-pgm/merlin/rand"
)

// OrderMethod selects an elimination-order heuristic.
type OrderMethod int

// Supported ordering methods (§4.3, Design Notes MER_ENUM).
const (
	MinFill OrderMethod = iota
	MinWidth
	WeightedMinFill
	Random
)

// PrimalGraph builds the undirected graph over variable labels where two
// variables are adjacent iff some factor's scope contains both.
func (m *GraphicalModel) PrimalGraph() *Graph {
	labels := make([]int, len(m.Vars))
	for i, v := range m.Vars {
		labels[i] = v.Label
	}
	g := NewGraph(labels)

	for _, f := range m.Funcs {
		vars := f.Scope.Vars()
		for i := 0; i < len(vars); i++ {
			for j := i + 1; j < len(vars); j++ {
				g.AddEdge(vars[i].Label, vars[j].Label)
			}
		}
	}
	return g
}

func (m *GraphicalModel) cardOf() map[int]int {
	c := make(map[int]int, len(m.Vars))
	for _, v := range m.Vars {
		c[v.Label] = v.Card
	}
	return c
}

// Order computes an elimination order over all of m's variables using the
// given heuristic. Ties are always broken toward the smaller label.
func (m *GraphicalModel) Order(method OrderMethod, gen *rand.Generator) ([]int, error) {
	if method == Random {
		return m.randomOrder(gen)
	}

	g := m.PrimalGraph()
	cards := m.cardOf()

	active := make(map[int]bool, len(m.Vars))
	for _, v := range m.Vars {
		active[v.Label] = true
	}

	order := make([]int, 0, len(m.Vars))
	for len(order) < len(m.Vars) {
		labels := make([]int, 0, len(active))
		for l, ok := range active {
			if ok {
				labels = append(labels, l)
			}
		}
		sort.Ints(labels)

		best := labels[0]
		bestScore := scoreVar(g, active, cards, best, method)
		for _, l := range labels[1:] {
			s := scoreVar(g, active, cards, l, method)
			if s < bestScore {
				bestScore = s
				best = l
			}
		}

		// Eliminate best: connect all pairs of its active neighbors.
		nbrs := activeNeighbors(g, active, best)
		for i := 0; i < len(nbrs); i++ {
			for j := i + 1; j < len(nbrs); j++ {
				g.AddEdge(nbrs[i], nbrs[j])
			}
		}

		active[best] = false
		order = append(order, best)
	}

	return order, nil
}

func (m *GraphicalModel) randomOrder(gen *rand.Generator) ([]int, error) {
	order := make([]int, len(m.Vars))
	for i, v := range m.Vars {
		order[i] = v.Label
	}
	// Fisher-Yates using the explicit RNG handle (Design Notes: global
	// mutable state -> explicit RNG handle).
	for i := len(order) - 1; i > 0; i-- {
		j := int(gen.Int63n(int64(i + 1)))
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func activeNeighbors(g *Graph, active map[int]bool, v int) []int {
	out := make([]int, 0)
	for _, n := range g.Neighbors(v) {
		if active[n] {
			out = append(out, n)
		}
	}
	return out
}

func scoreVar(g *Graph, active map[int]bool, cards map[int]int, v int, method OrderMethod) float64 {
	nbrs := activeNeighbors(g, active, v)

	switch method {
	case MinWidth:
		return float64(len(nbrs))
	case MinFill:
		return float64(fillInCount(g, nbrs))
	case WeightedMinFill:
		return weightedFillIn(g, cards, nbrs)
	default:
		return float64(len(nbrs))
	}
}

func fillInCount(g *Graph, nbrs []int) int {
	count := 0
	for i := 0; i < len(nbrs); i++ {
		for j := i + 1; j < len(nbrs); j++ {
			if !g.HasEdge(nbrs[i], nbrs[j]) {
				count++
			}
		}
	}
	return count
}

func weightedFillIn(g *Graph, cards map[int]int, nbrs []int) float64 {
	total := 0.0
	for i := 0; i < len(nbrs); i++ {
		for j := i + 1; j < len(nbrs); j++ {
			if !g.HasEdge(nbrs[i], nbrs[j]) {
				total += float64(cards[nbrs[i]]) * float64(cards[nbrs[j]])
			}
		}
	}
	return total
}

// InducedWidth is the maximum, over the graph triangulated along order, of
// |later-neighbors(v)|+1. Open Question (§9) resolved: measured over the
// triangulated graph, not the input graph - see DESIGN.md.
func (m *GraphicalModel) InducedWidth(order []int) int {
	g := m.PrimalGraph()
	g.Triangulate(order)

	posOf := make(map[int]int, len(order))
	for i, v := range order {
		posOf[v] = i
	}

	maxW := 0
	for _, v := range order {
		later := laterNeighbors(g, order, posOf, v)
		w := len(later) + 1
		if w > maxW {
			maxW = w
		}
	}
	return maxW
}

// PseudoTree returns, for each variable, the label of its parent in the
// pseudo-tree induced by order (over the triangulated graph): the
// latest-in-order earlier neighbor. A root variable maps to -1.
func (m *GraphicalModel) PseudoTree(order []int) map[int]int {
	g := m.PrimalGraph()
	g.Triangulate(order)

	posOf := make(map[int]int, len(order))
	for i, v := range order {
		posOf[v] = i
	}

	parent := make(map[int]int, len(order))
	for _, v := range order {
		pv := posOf[v]
		best := -1
		bestPos := -1
		for _, n := range g.Neighbors(v) {
			if np, ok := posOf[n]; ok && np < pv && np > bestPos {
				bestPos = np
				best = n
			}
		}
		parent[v] = best
	}
	return parent
}

// BestOrder tries each deterministic heuristic (MinFill, MinWidth,
// WeightedMinFill) and returns the one with the smallest induced width,
// breaking ties toward the first heuristic tried.
func (m *GraphicalModel) BestOrder() ([]int, OrderMethod) {
	methods := []OrderMethod{MinFill, WeightedMinFill, MinWidth}
	var bestOrder []int
	bestWidth := math.MaxInt32
	bestMethod := MinFill

	for _, meth := range methods {
		ord, _ := m.Order(meth, nil)
		w := m.InducedWidth(ord)
		if w < bestWidth {
			bestWidth = w
			bestOrder = ord
			bestMethod = meth
		}
	}
	return bestOrder, bestMethod
}
