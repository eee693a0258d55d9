package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/cluster"
	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// RunWMB runs weighted mini-bucket elimination over a mini-bucket join
// graph built under opts.IBound: repeated forward+backward sweeps, with a
// moment-matching pass between sweeps (§4.5.2) that reparametrizes each
// split bucket's sibling mini-buckets to share their anchor variable's
// marginal, tightening the resulting bound on logZ for PR/MAR, or on the
// best score for MAP/MMAP, without moving it past the true value.
func RunWMB(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	p, err := prepare(m, ev, opts.Order, gen)
	if err != nil {
		return nil, err
	}
	if math.IsInf(p.logConst, -1) {
		return inconsistentEvidence("wmb", opts.Task), nil
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
	step := opts.Alpha
	if step <= 0 {
		step = 1.0
	}

	mp := NewMessagePassing(cg, op, 1)
	var logZ float64
	for i := 0; i < stopIter; i++ {
		logZ, err = mp.Run()
		if err != nil {
			return nil, errors.Wrap(err, "wmb message passing failed")
		}
		if i < stopIter-1 {
			momentMatch(cg, step/float64(i+1))
		}
	}
	value := logZ + p.logConst

	r := &model.Result{Algorithm: "wmb", Task: opts.Task, Value: value, Status: true}

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

// momentMatch reparametrizes every split bucket's sibling mini-buckets
// toward their shared anchor-variable consensus, per §4.5.2: a SUM bucket
// moves each sibling i's potential by (F/f_i)^(step*w_i), where F is the
// siblings' geometric-mean anchor marginal and w_i is the sibling's own
// elimination weight; a MAX bucket (InfWeight) uses the same geometric-
// mean update without the weight exponent, since "weight" there only
// encodes tie-breaking, not a fractional elimination share.
func momentMatch(cg *cluster.ClusterGraph, step float64) {
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
			c := cg.Clusters[id]
			if c.Weight.IsInf() {
				margs[i] = c.Potential.MaxMarginal(anchorSet)
			} else {
				margs[i] = c.Potential.Marginal(anchorSet)
			}
		}

		mean := margs[0].Pow(1.0 / float64(len(margs)))
		for _, mg := range margs[1:] {
			mean = model.Product(mean, mg.Pow(1.0/float64(len(margs))))
		}

		for i, id := range ids {
			c := cg.Clusters[id]
			ratio, err := model.Quotient(mean, margs[i])
			if err != nil {
				continue
			}
			exp := step
			if !c.Weight.IsInf() {
				exp = step * c.Weight.Value()
			}
			shift := ratio.Pow(exp)
			c.Potential = model.Product(c.Potential, shift)
		}
	}
}
