package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/buffer"
	"github.com/merlin-pgm/merlin/cluster"
	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// RunJGLP runs join-graph linear programming: IJGP's iterative sweeps,
// interleaved with a cost-shifting step that blends each split bucket's
// sibling mini-buckets toward their shared anchor-variable consensus
// (weighted by opts.Alpha). Moving mass toward consensus before the next
// sweep is what tightens the bound faster than plain IJGP.
func RunJGLP(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	p, err := prepare(m, ev, opts.Order, gen)
	if err != nil {
		return nil, err
	}
	if math.IsInf(p.logConst, -1) {
		return inconsistentEvidence("jglp", opts.Task), nil
	}

	cg, err := cluster.NewMiniBucketGraph(p.model, p.order, opts.IBound)
	if err != nil {
		return nil, errors.Wrap(err, "could not build mini-bucket graph")
	}

	op := SumOp
	if opts.Task == "MAP" || opts.Task == "MMAP" {
		op = MaxOp
	}

	stopIter := opts.StopIter
	if stopIter < 1 {
		stopIter = 1
	}

	history := buffer.NewCircularFloat(4)
	mp := NewMessagePassing(cg, op, 1)

	var logZ float64
	prevLogZ, havePrev := 0.0, false
	for i := 0; i < stopIter; i++ {
		logZ, err = mp.Run()
		if err != nil {
			return nil, errors.Wrap(err, "jglp message passing failed")
		}
		history.Add(logZ)

		if havePrev && math.Abs(logZ-prevLogZ) < opts.StopObj {
			break
		}
		prevLogZ, havePrev = logZ, true

		costShift(cg, opts.Alpha)
	}

	value := logZ + p.logConst
	r := &model.Result{Algorithm: "jglp", Task: opts.Task, Value: value, Status: true}

	if opts.Task == "MAR" {
		marg, err := marginalsFromMP(mp, p)
		if err != nil {
			return nil, err
		}
		r.Marginals = marg
	}

	if opts.Task == "MAP" || opts.Task == "MMAP" {
		assign, err := mp.Decode(len(p.model.Vars))
		if err != nil {
			return nil, err
		}
		sol := make([]int, len(m.Vars))
		for i := range sol {
			sol[i] = -1
		}
		for newLabel, val := range assign {
			sol[p.newToOld[newLabel]] = val
		}
		for label, val := range ev {
			if val >= 0 && label < len(sol) {
				sol[label] = val
			}
		}
		r.Solution = sol
	}

	return r, nil
}

// costShift reparametrizes each split bucket's sibling mini-buckets so
// every sibling's anchor-variable marginal moves alpha of the way toward
// the siblings' shared geometric-mean marginal, leaving the product of
// siblings (and therefore the overall bound) unchanged to first order
// while tightening how each sibling individually bounds its share.
func costShift(cg *cluster.ClusterGraph, alpha float64) {
	siblings := make(map[int][]int) // anchor var -> cluster ids
	for _, c := range cg.Clusters {
		siblings[c.Anchor] = append(siblings[c.Anchor], c.ID)
	}

	for anchor, ids := range siblings {
		if len(ids) < 2 {
			continue
		}

		var anchorVar model.Variable
		for _, v := range cg.Clusters[ids[0]].Scope.Vars() {
			if v.Label == anchor {
				anchorVar = v
				break
			}
		}
		anchorSet, err := model.NewVariableSet(anchorVar)
		if err != nil {
			continue
		}

		margs := make([]*model.Factor, len(ids))
		for i, id := range ids {
			margs[i] = cg.Clusters[id].Potential.MaxMarginal(anchorSet)
		}

		mean := margs[0].Pow(1.0 / float64(len(margs)))
		for _, mg := range margs[1:] {
			mean = model.Product(mean, mg.Pow(1.0/float64(len(margs))))
		}

		for i, id := range ids {
			ratio, err := model.Quotient(mean, margs[i])
			if err != nil {
				continue
			}
			shift := ratio.Pow(alpha)
			cg.Clusters[id].Potential = model.Product(cg.Clusters[id].Potential, shift)
		}
	}
}
