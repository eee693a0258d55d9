// Package cluster builds the join/cluster graphs that BTE, CTE, WMB, IJGP
// and JGLP all run message passing over: a set of clusters, each owning a
// combined potential over a scope, connected by directed separator edges.
//
// Grounded on the bucket/mini-bucket/clique-tree construction shared by
// the engines this spec distills (a bucket tree is a join tree whose
// clusters are single elimination buckets; a clique tree widens the
// buckets to maximal cliques; a mini-bucket graph splits an oversized
// bucket into several narrower clusters under an i-bound, which is what
// turns the tree into a general join graph when those mini-buckets are
// reconnected to more than one parent).
package cluster

import "github.com/merlin-pgm/merlin/model"

// Cluster is one node of a ClusterGraph: a scope, the original model
// factors assigned to it, and the combined potential (the product of
// those factors) that engines read.
type Cluster struct {
	ID        int
	Scope     *model.VariableSet
	Anchor    int // the bucket/elimination variable this cluster is built around
	Originals []*model.Factor
	Potential *model.Factor
	Weight    model.Weight // SUM (finite: 1, or 1/k for one of k mini-buckets) or MAX (InfWeight) elimination semantics
}

// Edge is a directed separator edge: a message flows From -> To over
// Separator, the intersection of the two clusters' scopes (for a bucket
// or clique tree) or a narrower projection (for a mini-bucket graph).
type Edge struct {
	ID        int
	From, To  int
	Separator *model.VariableSet
	Message   *model.Factor // nil until an engine computes it
}

// ClusterGraph is the shared join-graph representation: clusters and
// separator edges as arena slices plus index maps, per the Design Notes'
// "pointer graphs -> arena + indices" guidance.
type ClusterGraph struct {
	Clusters []*Cluster
	Edges    []*Edge

	Order    []int       // the elimination order this graph was built from
	ByVar    map[int][]int // variable label -> ids of clusters whose scope contains it
	Anchored map[int]int   // variable label -> id of its bucket cluster (filled by NewBucketTree only)
	Incoming map[int][]int // cluster id -> ids of edges directed into it
	Outgoing map[int][]int // cluster id -> ids of edges directed out of it
	Roots    []int         // cluster ids with no outgoing edge
}

func newClusterGraph(order []int) *ClusterGraph {
	return &ClusterGraph{
		Order:    append([]int(nil), order...),
		ByVar:    make(map[int][]int),
		Anchored: make(map[int]int),
		Incoming: make(map[int][]int),
		Outgoing: make(map[int][]int),
	}
}

// addCluster appends a new cluster and indexes it by every variable in
// its scope, returning its id.
func (cg *ClusterGraph) addCluster(scope *model.VariableSet, anchor int, weight model.Weight) *Cluster {
	c := &Cluster{
		ID:     len(cg.Clusters),
		Scope:  scope,
		Anchor: anchor,
		Weight: weight,
	}
	cg.Clusters = append(cg.Clusters, c)
	for _, v := range scope.Vars() {
		cg.ByVar[v.Label] = append(cg.ByVar[v.Label], c.ID)
	}
	return c
}

// addEdge connects from -> to over separator, returning the edge id.
func (cg *ClusterGraph) addEdge(from, to int, separator *model.VariableSet) *Edge {
	e := &Edge{ID: len(cg.Edges), From: from, To: to, Separator: separator}
	cg.Edges = append(cg.Edges, e)
	cg.Outgoing[from] = append(cg.Outgoing[from], e.ID)
	cg.Incoming[to] = append(cg.Incoming[to], e.ID)
	return e
}

// finalizeRoots records every cluster with no outgoing edge as a root,
// called once construction is complete.
func (cg *ClusterGraph) finalizeRoots() {
	for _, c := range cg.Clusters {
		if len(cg.Outgoing[c.ID]) == 0 {
			cg.Roots = append(cg.Roots, c.ID)
		}
	}
}

// RefreshPotentials recombines each cluster's Potential as the plain
// product of its current Originals (a scalar 1 when it has none),
// whatever the cluster's Weight. Every builder calls it once the model's
// factors are assigned to clusters.
func (cg *ClusterGraph) RefreshPotentials() {
	for _, c := range cg.Clusters {
		if len(c.Originals) == 0 {
			c.Potential = model.NewScalarFactor(1.0)
			continue
		}
		acc := c.Originals[0].Clone()
		for _, f := range c.Originals[1:] {
			acc = model.Product(acc, f)
		}
		c.Potential = acc
	}
}

// ClusterOf returns the cluster anchored to label, if any.
func (cg *ClusterGraph) ClusterOf(label int) (*Cluster, bool) {
	id, ok := cg.Anchored[label]
	if !ok {
		return nil, false
	}
	return cg.Clusters[id], true
}
