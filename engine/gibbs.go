package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// RunGibbs runs a single-chain Gibbs sampler for MAR, resampling each
// variable in turn from its full conditional (the product of factors
// touching it, conditioned on the rest of the current assignment) and
// accumulating per-variable visit counts. For MAP it also reports each
// variable's most-visited value as the Solution. Deliberately the simplest
// engine in this package: no multi-chain pooling, burn-in schedule, or
// convergence diagnostic, matching how thin the teacher's own Gibbs
// sampler was kept.
func RunGibbs(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	m2, oldToNew, logConst, err := m.AssertEvidence(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not assert evidence")
	}
	if math.IsInf(logConst, -1) {
		return inconsistentEvidence("gibbs", opts.Task), nil
	}

	newToOld := make(map[int]int, len(oldToNew))
	for old, nw := range oldToNew {
		newToOld[nw] = old
	}

	if len(m2.Vars) == 0 {
		return &model.Result{Algorithm: "gibbs", Task: opts.Task, Status: true, Marginals: model.Marginals{}}, nil
	}

	state := make(map[int]int, len(m2.Vars))
	for _, v := range m2.Vars {
		state[v.Label] = int(gen.Int63n(int64(v.Card)))
	}

	counts := make(map[int][]int, len(m2.Vars))
	for _, v := range m2.Vars {
		counts[v.Label] = make([]int, v.Card)
	}

	samples := opts.SampleCount
	if samples < 1 {
		samples = 1
	}

	for s := 0; s < samples; s++ {
		for _, v := range m2.Vars {
			full, err := conditional(m2, v, state)
			if err != nil {
				return nil, err
			}
			draw, err := full.Sample(gen)
			if err != nil {
				return nil, err
			}
			state[v.Label] = draw
		}
		for _, v := range m2.Vars {
			counts[v.Label][state[v.Label]]++
		}
	}

	marg := make(model.Marginals, len(m2.Vars))
	for _, v := range m2.Vars {
		dist := make([]float64, v.Card)
		for i, c := range counts[v.Label] {
			dist[i] = float64(c) / float64(samples)
		}
		marg[newToOld[v.Label]] = dist
	}

	r := &model.Result{Algorithm: "gibbs", Task: opts.Task, Status: true, Marginals: marg}
	if opts.Task == "MAP" {
		sol := make([]int, len(m.Vars))
		for i := range sol {
			sol[i] = ev.Get(i)
		}
		for label, dist := range marg {
			best := 0
			for i, p := range dist {
				if p > dist[best] {
					best = i
				}
			}
			sol[label] = best
		}
		r.Solution = sol
	}
	return r, nil
}

// conditional returns the full conditional of v given state's values for
// every other variable: the product of every factor touching v,
// restricted to the current assignment of its other scope variables.
func conditional(m *model.GraphicalModel, v model.Variable, state map[int]int) (*model.Factor, error) {
	vs, err := model.NewVariableSet(v)
	if err != nil {
		return nil, err
	}

	var belief *model.Factor
	for _, fi := range m.WithVariable(v.Label) {
		f := m.Funcs[fi]
		ev := make([]int, len(m.Vars))
		for i := range ev {
			ev[i] = -1
		}
		for _, u := range f.Scope.Vars() {
			if u.Label != v.Label {
				ev[u.Label] = state[u.Label]
			}
		}
		cond, err := f.ConditionVector(ev)
		if err != nil {
			return nil, err
		}
		if belief == nil {
			belief = cond
		} else {
			belief = model.Product(belief, cond)
		}
	}

	if belief == nil {
		belief = model.NewFactor(vs)
		for i := range belief.Values {
			belief.Values[i] = 1.0
		}
	}

	return belief, nil
}
