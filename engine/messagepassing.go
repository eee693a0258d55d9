// Package engine implements the inference algorithms that run message
// passing over a cluster.ClusterGraph (BTE, CTE, WMB, IJGP, JGLP), plus
// loopy belief propagation's own bipartite factor graph, a thin Gibbs
// sampling seam, and joint-marginal re-elimination.
package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/cluster"
	"github.com/merlin-pgm/merlin/model"
)

// ElimOp selects the reduction message passing uses to eliminate a
// cluster's anchor variable: summation for PR/MAR, maximization for MAP.
type ElimOp int

// Supported elimination operators.
const (
	SumOp ElimOp = iota
	MaxOp
)

// MessagePassing runs generalized belief propagation over a cluster
// graph: an upward pass that computes one message per edge and
// accumulates logZ, and a downward/distribute pass that calibrates every
// cluster's belief so per-variable marginals can be read off directly.
// Grounded on the shared bucket/clique/mini-bucket message-passing loop
// every exact and approximate engine in this family runs, generalized
// here into one implementation all five use.
type MessagePassing struct {
	CG   *cluster.ClusterGraph
	Op   ElimOp
	Iter int // number of forward+backward sweeps; 1 is exact on a tree

	belief     map[int]*model.Factor // upward belief per cluster
	calibrated map[int]*model.Factor // post-distribute belief per cluster
	logZ       float64
	order      []int // leaves -> roots, cached for Decode
}

// NewMessagePassing wraps a cluster graph for the given elimination
// operator. Iter controls how many forward+backward sweeps Run performs;
// pass 1 for an exact tree (BTE, CTE) and more for IJGP/JGLP's iterative
// refinement over a general join graph.
func NewMessagePassing(cg *cluster.ClusterGraph, op ElimOp, iter int) *MessagePassing {
	if iter < 1 {
		iter = 1
	}
	return &MessagePassing{CG: cg, Op: op, Iter: iter}
}

// topoOrder returns a topological order of cluster ids consistent with
// the graph's directed separator edges (children before parents), valid
// because every cluster graph this package builds is acyclic along the
// elimination order.
func (mp *MessagePassing) topoOrder() ([]int, error) {
	cg := mp.CG
	remaining := make([]int, len(cg.Clusters))
	for _, c := range cg.Clusters {
		remaining[c.ID] = len(cg.Incoming[c.ID])
	}

	queue := make([]int, 0, len(cg.Clusters))
	for _, c := range cg.Clusters {
		if remaining[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}

	order := make([]int, 0, len(cg.Clusters))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, eid := range cg.Outgoing[v] {
			e := cg.Edges[eid]
			remaining[e.To]--
			if remaining[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	if len(order) != len(cg.Clusters) {
		return nil, errors.New("cluster graph is not acyclic")
	}
	return order, nil
}

func (mp *MessagePassing) eliminate(f *model.Factor, keep *model.VariableSet) *model.Factor {
	drop := f.Scope.Difference(keep)
	if mp.Op == MaxOp {
		return f.Max(drop)
	}
	return f.Sum(drop)
}

// eliminateWeighted projects f down to keep using c's elimination weight
// (1 for plain sum, +Inf for plain max, a mini-bucket's fractional share
// for WMB/IJGP/JGLP) via Factor.SumPower, so a mini-bucket graph's
// fractional weights are honored without a separate code path.
func (mp *MessagePassing) eliminateWeighted(c *cluster.Cluster, f *model.Factor, keep *model.VariableSet) *model.Factor {
	drop := f.Scope.Difference(keep)
	return f.SumPower(drop, c.Weight)
}

// upward runs one bottom-up sweep, (re)computing every edge's message and
// each cluster's upward belief, and accumulating logZ from the
// normalization constants absorbed along the way plus, for a sum pass,
// each root belief's remaining weighted sum.
func (mp *MessagePassing) upward(order []int) error {
	cg := mp.CG
	mp.belief = make(map[int]*model.Factor, len(cg.Clusters))

	for _, v := range order {
		c := cg.Clusters[v]
		belief := c.Potential
		for _, eid := range cg.Incoming[v] {
			belief = model.Product(belief, cg.Edges[eid].Message)
		}

		normed, mx := belief.NormalizeMax()
		if mx > 0 {
			mp.logZ += math.Log(mx)
		}
		mp.belief[v] = normed

		outs := cg.Outgoing[v]
		if len(outs) == 0 {
			if mp.Op != MaxOp {
				total := normed.SumPower(normed.Scope, c.Weight)
				if total.Values[0] > 0 {
					mp.logZ += math.Log(total.Values[0])
				}
			}
			continue
		}
		sep := cg.Edges[outs[0]].Separator
		var msg *model.Factor
		if mp.Op == MaxOp {
			msg = mp.eliminate(normed, sep)
		} else {
			msg = mp.eliminateWeighted(c, normed, sep)
		}
		for _, eid := range outs {
			cg.Edges[eid].Message = msg
		}
	}
	return nil
}

// downward distributes calibrated beliefs from roots back to every
// cluster, dividing out the message a cluster already sent up its
// separator edge so it isn't double-counted (the standard Shafer-Shenoy
// calibration step, generalized to a join graph: a cluster with more
// than one parent multiplies in every parent's downward contribution).
func (mp *MessagePassing) downward(order []int) error {
	cg := mp.CG
	mp.calibrated = make(map[int]*model.Factor, len(cg.Clusters))

	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		belief := mp.belief[v]

		for _, eid := range cg.Outgoing[v] {
			e := cg.Edges[eid]
			parentBelief, ok := mp.calibrated[e.To]
			if !ok {
				parentBelief = mp.belief[e.To]
			}
			var down *model.Factor
			if mp.Op == MaxOp {
				down = mp.eliminate(parentBelief, e.Separator)
			} else {
				down = mp.eliminateWeighted(cg.Clusters[v], parentBelief, e.Separator)
			}
			contrib, err := model.Quotient(down, e.Message)
			if err != nil {
				return errors.Wrapf(err, "calibrating cluster %d", v)
			}
			belief = model.Product(belief, contrib)
		}

		mp.calibrated[v] = belief
	}
	return nil
}

// Run performs Iter forward+backward sweeps and returns the accumulated
// log partition contribution. Calibrated beliefs are read afterward via
// Belief.
func (mp *MessagePassing) Run() (float64, error) {
	order, err := mp.topoOrder()
	if err != nil {
		return 0, err
	}

	mp.order = order
	mp.logZ = 0
	for i := 0; i < mp.Iter; i++ {
		if err := mp.upward(order); err != nil {
			return 0, err
		}
		if err := mp.downward(order); err != nil {
			return 0, err
		}
	}
	return mp.logZ, nil
}

// Decode produces a full MAP assignment (variable label -> value) by
// walking clusters root-to-leaf, conditioning each cluster's belief on
// the separator values already fixed by its ancestors and taking the
// argmax over what remains. Only meaningful when Op == MaxOp.
func (mp *MessagePassing) Decode(numVars int) (map[int]int, error) {
	if mp.order == nil {
		return nil, errors.New("Decode called before Run")
	}

	assign := make(map[int]int, numVars)
	ev := make([]int, numVars)
	for i := range ev {
		ev[i] = -1
	}

	for i := len(mp.order) - 1; i >= 0; i-- {
		v := mp.order[i]
		belief := mp.belief[v]

		cond, err := belief.ConditionVector(ev)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding cluster %d", v)
		}

		best := cond.Argmax()
		for label, val := range cond.AssignmentOf(best) {
			assign[label] = val
			ev[label] = val
		}
	}

	return assign, nil
}

// Belief returns the calibrated belief factor for a cluster id.
func (mp *MessagePassing) Belief(clusterID int) (*model.Factor, bool) {
	f, ok := mp.calibrated[clusterID]
	return f, ok
}

// MarginalOf returns the normalized marginal of a single variable label,
// read off the first cluster anchored to (or simply containing) it.
func (mp *MessagePassing) MarginalOf(label int) (*model.Factor, error) {
	ids := mp.CG.ByVar[label]
	if len(ids) == 0 {
		return nil, errors.Errorf("no cluster contains variable %d", label)
	}
	belief, ok := mp.Belief(ids[0])
	if !ok {
		return nil, errors.Errorf("cluster %d has no calibrated belief", ids[0])
	}
	v := findVar(belief.Scope, label)
	vs, err := model.NewVariableSet(v)
	if err != nil {
		return nil, err
	}
	marg := belief.Marginal(vs)
	out, err := marg.Normalize()
	if err != nil {
		return marg, nil // zero-sum: hand back the unnormalized (all-zero) factor, caller decides
	}
	return out, nil
}

func findVar(vs *model.VariableSet, label int) model.Variable {
	for _, v := range vs.Vars() {
		if v.Label == label {
			return v
		}
	}
	return model.Variable{}
}
