package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/cluster"
	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// RunBTE runs exact bucket-tree elimination: PR computes logZ, MAR adds
// every variable's marginal, MAP computes the best assignment's score
// and the assignment itself. MMAP (maximize over a query subset after
// summing the rest) needs a per-variable SUM/MAX cluster typing that
// plain bucket-tree elimination's single global operator cannot express
// and is not implemented here; use wmb/RunJointMarginal for that task.
func RunBTE(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	if opts.Task == "MMAP" {
		return nil, errors.New("bte does not support MMAP: use wmb")
	}

	p, err := prepare(m, ev, opts.Order, gen)
	if err != nil {
		return nil, err
	}
	if math.IsInf(p.logConst, -1) {
		return inconsistentEvidence("bte", opts.Task), nil
	}

	cg, err := cluster.NewBucketTree(p.model, p.order)
	if err != nil {
		return nil, errors.Wrap(err, "could not build bucket tree")
	}

	op := SumOp
	if opts.Task == "MAP" {
		op = MaxOp
	}

	mp := NewMessagePassing(cg, op, 1)
	logZ, err := mp.Run()
	if err != nil {
		return nil, errors.Wrap(err, "bte message passing failed")
	}
	value := logZ + p.logConst

	r := &model.Result{Algorithm: "bte", Task: opts.Task, Value: value, Status: true}

	switch opts.Task {
	case "MAR":
		marg, err := marginalsFromMP(mp, p)
		if err != nil {
			return nil, err
		}
		r.Marginals = marg
	case "MAP":
		assign, err := mp.Decode(len(p.model.Vars))
		if err != nil {
			return nil, err
		}
		sol := make([]int, len(m.Vars))
		for i := range sol {
			sol[i] = -1
		}
		for newLabel, val := range assign {
			old := p.newToOld[newLabel]
			sol[old] = val
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
