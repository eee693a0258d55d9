package cluster

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/model"
)

// NewBucketTree builds the classic single-bucket-per-variable join tree
// BTE runs over: each variable in order anchors exactly one cluster, whose
// scope is the variable plus its later neighbors in the order-triangulated
// primal graph, and whose Originals are the model factors whose
// earliest-eliminated scope variable is this bucket.
func NewBucketTree(m *model.GraphicalModel, order []int) (*ClusterGraph, error) {
	g := m.PrimalGraph()
	g.Triangulate(order)
	posOf := posIndex(order)

	cg := newClusterGraph(order)

	for _, v := range order {
		scope, err := bucketScope(g, posOf, v, m)
		if err != nil {
			return nil, err
		}
		weight := model.NewWeight(1.0)
		c := cg.addCluster(scope, v, weight)
		cg.Anchored[v] = c.ID
	}

	if err := assignOriginals(cg, m, posOf); err != nil {
		return nil, err
	}
	cg.RefreshPotentials()

	for _, v := range order {
		later := laterInScope(g, posOf, v)
		if len(later) == 0 {
			continue
		}
		parent := minPosition(later, posOf)
		sepVars, err := varsByLabel(m, later)
		if err != nil {
			return nil, err
		}
		sep, err := model.NewVariableSet(sepVars...)
		if err != nil {
			return nil, err
		}
		cg.addEdge(cg.Anchored[v], cg.Anchored[parent], sep)
	}

	cg.finalizeRoots()
	return cg, nil
}

// NewMiniBucketGraph builds a mini-bucket join graph (WMB / IJGP / JGLP):
// each bucket's assigned factors are greedily partitioned into mini-buckets
// whose scope size never exceeds iBound, each mini-bucket becomes its own
// cluster, and every mini-bucket sends its message to every mini-bucket of
// the bucket owning its earliest later variable - producing a graph with
// cycles when a bucket was itself split, rather than a tree.
func NewMiniBucketGraph(m *model.GraphicalModel, order []int, iBound int) (*ClusterGraph, error) {
	if iBound < 1 {
		return nil, errors.Errorf("i-bound must be >= 1, got %d", iBound)
	}

	g := m.PrimalGraph()
	g.Triangulate(order)
	posOf := posIndex(order)

	cg := newClusterGraph(order)
	bucketClusters := make(map[int][]int) // anchor var -> cluster ids

	for _, v := range order {
		factors := factorsForBucket(m, v, posOf)
		groups := partitionMiniBuckets(factors, iBound)

		anchorVar, err := m.VarByLabel(v)
		if err != nil {
			return nil, err
		}

		if len(groups) == 0 {
			scope, err := model.NewVariableSet(anchorVar)
			if err != nil {
				return nil, err
			}
			c := cg.addCluster(scope, v, model.NewWeight(1.0))
			bucketClusters[v] = []int{c.ID}
			continue
		}

		for _, grp := range groups {
			scope := grp[0].Scope.Clone()
			for _, f := range grp[1:] {
				scope = scope.Union(f.Scope)
			}
			if !scope.Contains(v) {
				vs, err := model.NewVariableSet(anchorVar)
				if err != nil {
					return nil, err
				}
				scope = scope.Union(vs)
			}
			weight := model.NewWeight(1.0 / float64(len(groups)))
			c := cg.addCluster(scope, v, weight)
			c.Originals = append(c.Originals, grp...)
			bucketClusters[v] = append(bucketClusters[v], c.ID)
		}
	}

	for _, v := range order {
		for _, cid := range bucketClusters[v] {
			c := cg.Clusters[cid]
			later := laterInScope(g, posOf, v)
			scopedLater := intersectLabels(later, c.Scope.Labels())
			if len(scopedLater) == 0 {
				continue
			}
			parent := minPosition(scopedLater, posOf)
			sepVars, err := varsByLabel(m, scopedLater)
			if err != nil {
				return nil, err
			}
			sep, err := model.NewVariableSet(sepVars...)
			if err != nil {
				return nil, err
			}
			for _, pid := range bucketClusters[parent] {
				cg.addEdge(cid, pid, sep)
			}
		}
	}

	cg.RefreshPotentials()
	cg.finalizeRoots()
	return cg, nil
}

// NewCliqueTree builds the clique tree CTE runs over: the maximal cliques
// of the order-triangulated primal graph, connected by a maximum-weight
// spanning tree (edge weight = separator size) over the clique
// intersection graph, rooted at the clique containing the last-eliminated
// variable.
func NewCliqueTree(m *model.GraphicalModel, order []int) (*ClusterGraph, error) {
	if len(order) == 0 {
		return nil, errors.New("cannot build a clique tree over an empty order")
	}

	g := m.PrimalGraph()
	g.Triangulate(order)
	cliques := g.MaximalCliques(order)
	if len(cliques) == 0 {
		return nil, errors.New("triangulated graph produced no maximal cliques")
	}

	cg := newClusterGraph(order)
	for _, clique := range cliques {
		vars, err := varsByLabel(m, clique)
		if err != nil {
			return nil, err
		}
		scope, err := model.NewVariableSet(vars...)
		if err != nil {
			return nil, err
		}
		anchor := clique[0]
		cg.addCluster(scope, anchor, model.NewWeight(1.0))
	}

	type wedge struct {
		a, b, weight int
	}
	var wedges []wedge
	for i := 0; i < len(cg.Clusters); i++ {
		for j := i + 1; j < len(cg.Clusters); j++ {
			inter := cg.Clusters[i].Scope.Intersect(cg.Clusters[j].Scope)
			if inter.Size() > 0 {
				wedges = append(wedges, wedge{i, j, inter.Size()})
			}
		}
	}
	sort.Slice(wedges, func(i, j int) bool { return wedges[i].weight > wedges[j].weight })

	uf := newUnionFind(len(cg.Clusters))
	type treeEdge struct{ a, b int }
	var treeEdges []treeEdge
	for _, we := range wedges {
		if uf.find(we.a) != uf.find(we.b) {
			uf.union(we.a, we.b)
			treeEdges = append(treeEdges, treeEdge{we.a, we.b})
		}
	}

	adj := make(map[int][]int, len(cg.Clusters))
	for _, te := range treeEdges {
		adj[te.a] = append(adj[te.a], te.b)
		adj[te.b] = append(adj[te.b], te.a)
	}

	lastVar := order[len(order)-1]
	root := 0
	for i, c := range cg.Clusters {
		if c.Scope.Contains(lastVar) {
			root = i
			break
		}
	}

	parent := make(map[int]int, len(cg.Clusters))
	visited := make([]bool, len(cg.Clusters))
	visited[root] = true
	parent[root] = -1
	stack := []int{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range adj[cur] {
			if !visited[nb] {
				visited[nb] = true
				parent[nb] = cur
				stack = append(stack, nb)
			}
		}
	}

	assignToSmallestClique(m, cg)
	cg.RefreshPotentials()

	for child, par := range parent {
		if par < 0 {
			continue
		}
		sep := cg.Clusters[child].Scope.Intersect(cg.Clusters[par].Scope)
		cg.addEdge(child, par, sep)
	}

	cg.finalizeRoots()
	return cg, nil
}

func assignToSmallestClique(m *model.GraphicalModel, cg *ClusterGraph) {
	for _, f := range m.Funcs {
		best := -1
		bestSize := -1
		for _, c := range cg.Clusters {
			if f.Scope.Subset(c.Scope) {
				if bestSize < 0 || c.Scope.Size() < bestSize {
					bestSize = c.Scope.Size()
					best = c.ID
				}
			}
		}
		if best >= 0 {
			cg.Clusters[best].Originals = append(cg.Clusters[best].Originals, f)
		}
	}
}

// partitionMiniBuckets greedily merges factors into groups whose combined
// scope size never exceeds iBound, repeatedly merging the pair of groups
// with the smallest combined scope (score 1/(|scope_i|+|scope_j|), so
// highest score first).
func partitionMiniBuckets(factors []*model.Factor, iBound int) [][]*model.Factor {
	if len(factors) == 0 {
		return nil
	}

	type group struct {
		factors []*model.Factor
		scope   *model.VariableSet
	}
	groups := make([]*group, len(factors))
	for i, f := range factors {
		groups[i] = &group{factors: []*model.Factor{f}, scope: f.Scope.Clone()}
	}

	for {
		bestI, bestJ, bestSum := -1, -1, -1
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				merged := groups[i].scope.Union(groups[j].scope)
				if merged.Size() > iBound {
					continue
				}
				sum := groups[i].scope.Size() + groups[j].scope.Size()
				if bestSum < 0 || sum < bestSum {
					bestSum = sum
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		merged := &group{
			factors: append(groups[bestI].factors, groups[bestJ].factors...),
			scope:   groups[bestI].scope.Union(groups[bestJ].scope),
		}
		next := groups[:0]
		for k, grp := range groups {
			if k != bestI && k != bestJ {
				next = append(next, grp)
			}
		}
		groups = append(next, merged)
	}

	out := make([][]*model.Factor, len(groups))
	for i, grp := range groups {
		out[i] = grp.factors
	}
	return out
}

func factorsForBucket(m *model.GraphicalModel, v int, posOf map[int]int) []*model.Factor {
	var out []*model.Factor
	for _, f := range m.Funcs {
		if earliestLabel(f.Scope.Labels(), posOf) == v {
			out = append(out, f)
		}
	}
	return out
}

func assignOriginals(cg *ClusterGraph, m *model.GraphicalModel, posOf map[int]int) error {
	for _, f := range m.Funcs {
		v := earliestLabel(f.Scope.Labels(), posOf)
		cid, ok := cg.Anchored[v]
		if !ok {
			return errors.Errorf("no bucket anchored to variable %d", v)
		}
		cg.Clusters[cid].Originals = append(cg.Clusters[cid].Originals, f)
	}
	return nil
}

func earliestLabel(labels []int, posOf map[int]int) int {
	best := labels[0]
	for _, l := range labels[1:] {
		if posOf[l] < posOf[best] {
			best = l
		}
	}
	return best
}

func bucketScope(g *model.Graph, posOf map[int]int, v int, m *model.GraphicalModel) (*model.VariableSet, error) {
	anchor, err := m.VarByLabel(v)
	if err != nil {
		return nil, err
	}
	vars := []model.Variable{anchor}
	for _, n := range laterInScope(g, posOf, v) {
		nv, err := m.VarByLabel(n)
		if err != nil {
			return nil, err
		}
		vars = append(vars, nv)
	}
	return model.NewVariableSet(vars...)
}

func laterInScope(g *model.Graph, posOf map[int]int, v int) []int {
	var out []int
	for _, n := range g.Neighbors(v) {
		if posOf[n] > posOf[v] {
			out = append(out, n)
		}
	}
	return out
}

func intersectLabels(a, b []int) []int {
	set := make(map[int]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	var out []int
	for _, x := range a {
		if set[x] {
			out = append(out, x)
		}
	}
	return out
}

func minPosition(labels []int, posOf map[int]int) int {
	best := labels[0]
	for _, l := range labels[1:] {
		if posOf[l] < posOf[best] {
			best = l
		}
	}
	return best
}

func varsByLabel(m *model.GraphicalModel, labels []int) ([]model.Variable, error) {
	out := make([]model.Variable, len(labels))
	for i, l := range labels {
		v, err := m.VarByLabel(l)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func posIndex(order []int) map[int]int {
	posOf := make(map[int]int, len(order))
	for i, v := range order {
		posOf[v] = i
	}
	return posOf
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}
