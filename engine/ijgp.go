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

// RunIJGP runs iterative join-graph propagation: repeated forward+backward
// sweeps over a mini-bucket join graph, tracking the running bound in a
// short CircularFloat history and stopping once it moves by less than
// opts.StopObj between sweeps, or opts.StopIter sweeps have run.
func RunIJGP(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	p, err := prepare(m, ev, opts.Order, gen)
	if err != nil {
		return nil, err
	}
	if math.IsInf(p.logConst, -1) {
		return inconsistentEvidence("ijgp", opts.Task), nil
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
			return nil, errors.Wrap(err, "ijgp message passing failed")
		}
		history.Add(logZ)

		if havePrev && math.Abs(logZ-prevLogZ) < opts.StopObj {
			break
		}
		prevLogZ, havePrev = logZ, true
	}

	value := logZ + p.logConst
	r := &model.Result{Algorithm: "ijgp", Task: opts.Task, Value: value, Status: true}

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
