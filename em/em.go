// Package em implements expectation-maximization parameter learning over
// a GraphicalModel's CPTs from a dataset of (possibly partial, possibly
// virtual-evidence) observations, grounded on the shared E-step/M-step
// loop every EM implementation in this family runs: infer expected
// sufficient statistics under the current parameters, then renormalize
// each family's counts, repeating until the log-likelihood stops moving.
package em

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/engine"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// Result holds the outcome of a Run: the refined model, the
// log-likelihood trajectory, and whether it converged before exhausting
// opts.Iter.
type Result struct {
	Model     *model.GraphicalModel
	LogLik    []float64
	Converged bool
}

// Run performs EM over m starting from its current CPTs (or a
// uniform/random re-initialization per opts.Init), for opts.Iter rounds
// or until the log-likelihood delta drops below opts.Threshold.
func Run(m *model.GraphicalModel, examples []model.Example, opts *config.Options, gen *rand.Generator) (*Result, error) {
	if len(examples) == 0 {
		return nil, errors.New("cannot run EM with an empty dataset")
	}

	cur := m.Clone()
	switch opts.Init {
	case config.InitUniform:
		cur.UniformBayes()
	case config.InitRandom:
		cur.RandomBayes(gen)
	}

	res := &Result{Model: cur}
	iters := opts.Iter
	if iters < 1 {
		iters = 1
	}

	prevLL := math.Inf(-1)
	for it := 0; it < iters; it++ {
		counts, ll, err := eStep(cur, examples, opts, gen)
		if err != nil {
			return nil, errors.Wrapf(err, "E-step failed on iteration %d", it)
		}
		res.LogLik = append(res.LogLik, ll)

		if err := mStep(cur, counts); err != nil {
			return nil, errors.Wrapf(err, "M-step failed on iteration %d", it)
		}

		if it > 0 && math.Abs(ll-prevLL) < opts.Threshold {
			res.Converged = true
			prevLL = ll
			break
		}
		prevLL = ll
	}

	res.Model = cur
	return res, nil
}

// eStep runs inference (per opts.Infer) on m augmented with each
// example's evidence (hard observations directly, virtual observations
// via an auxiliary indicator variable per invariant #8) and accumulates
// expected family counts weighted by each CPT's posterior.
func eStep(m *model.GraphicalModel, examples []model.Example, opts *config.Options, gen *rand.Generator) (map[int][]float64, float64, error) {
	counts := make(map[int][]float64, len(m.Funcs))
	for fi, f := range m.Funcs {
		counts[fi] = make([]float64, len(f.Values))
	}

	totalLL := 0.0

	for _, ex := range examples {
		aug := m
		ev := make(model.EvidenceVector, len(m.Vars))
		for i := range ev {
			ev[i] = -1
		}

		for label, obs := range ex {
			if label >= len(m.Vars) {
				continue
			}
			switch obs.Kind {
			case model.ObsHard:
				ev[label] = obs.Value
			case model.ObsVirtual:
				next, auxLabel, err := aug.AugmentWithIndicator(model.VirtualObservation{Label: label, Likelihood: obs.Likelihood})
				if err != nil {
					return nil, 0, err
				}
				aug = next
				ev = append(ev, -1)
				ev[auxLabel] = 0 // the indicator's observed value is always 0 ("hit")
			case model.ObsMissing:
				// left unobserved
			}
		}

		ll, err := infer(aug, ev, opts, gen)
		if err != nil {
			return nil, 0, err
		}
		totalLL += ll

		for fi, f := range m.Funcs {
			if err := addExpectedCounts(counts[fi], f, aug, ev, opts, gen); err != nil {
				return nil, 0, err
			}
		}
	}

	return counts, totalLL, nil
}

// infer runs opts.Infer's engine and returns the log partition value
// (used as the example's log-likelihood contribution).
func infer(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (float64, error) {
	task := &config.Options{
		Algorithm: opts.Infer,
		Task:      "MAR",
		Order:     opts.Order,
		IBound:    opts.IBound,
		StopIter:  opts.StopIter,
		StopObj:   opts.StopObj,
		Alpha:     opts.Alpha,
	}

	var r *model.Result
	var err error
	switch opts.Infer {
	case "cte":
		r, err = engine.RunCTE(m, ev, task, gen)
	case "wmb":
		r, err = engine.RunWMB(m, ev, task, gen)
	default:
		r, err = engine.RunBTE(m, ev, task, gen)
	}
	if err != nil {
		return 0, err
	}
	if !r.Status {
		return 0, errors.Errorf("E-step inference failed: %s", r.Message)
	}
	return r.Value, nil
}

// addExpectedCounts accumulates f's expected sufficient statistic as the
// exact joint marginal over f.Scope subject to ev (§4.6's Bayes-net
// variant, via engine.RunJointMarginal) rather than an approximation:
// every scope variable still unobserved after ev is handed to the
// joint-marginal engine as one query, and the result is scattered back
// into acc only at the indices consistent with ev's fixed variables.
func addExpectedCounts(acc []float64, f *model.Factor, aug *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) error {
	vars := f.Scope.Vars()

	var unobserved []int
	for _, v := range vars {
		if ev.Get(v.Label) < 0 {
			unobserved = append(unobserved, v.Label)
		}
	}

	var joint []float64
	var queryVars []model.Variable
	if len(unobserved) == 0 {
		joint = []float64{1.0}
	} else {
		r, err := engine.RunJointMarginal(aug, ev, unobserved, opts, gen)
		if err != nil {
			return err
		}
		if !r.Status {
			return errors.Errorf("joint marginal over family %v is inconsistent with evidence", unobserved)
		}
		joint = r.JointMarginal
		queryVars = make([]model.Variable, len(r.QueryScope))
		for i, label := range r.QueryScope {
			queryVars[i] = varByLabel(vars, label)
		}
	}

	assign := make(map[int]int, len(vars))
	for idx := range acc {
		rem := idx
		for i := 0; i < len(vars); i++ {
			card := vars[i].Card
			assign[vars[i].Label] = rem % card
			rem /= card
		}

		consistent := true
		for _, v := range vars {
			if o := ev.Get(v.Label); o >= 0 && assign[v.Label] != o {
				consistent = false
				break
			}
		}
		if !consistent {
			continue
		}

		p := joint[0]
		if len(queryVars) > 0 {
			qIdx, ok := jointIndexOf(queryVars, assign)
			if !ok {
				continue
			}
			p = joint[qIdx]
		}
		acc[idx] += p
	}
	return nil
}

// varByLabel returns the Variable named label within vars, which must
// contain it (queryVars is always derived from a factor's own scope).
func varByLabel(vars []model.Variable, label int) model.Variable {
	for _, v := range vars {
		if v.Label == label {
			return v
		}
	}
	return model.Variable{}
}

// jointIndexOf composes the linear index into a RunJointMarginal result
// (ascending by label, lowest label fastest-varying, matching every
// other Factor's table layout) for the values assign holds over
// queryVars.
func jointIndexOf(queryVars []model.Variable, assign map[int]int) (int, bool) {
	idx, stride := 0, 1
	for _, v := range queryVars {
		val, ok := assign[v.Label]
		if !ok {
			return 0, false
		}
		idx += val * stride
		stride *= v.Card
	}
	return idx, true
}

// mStep renormalizes each factor's CPT rows (per parent configuration)
// from its accumulated expected counts, refreshing f.Values in place.
func mStep(m *model.GraphicalModel, counts map[int][]float64) error {
	for fi, f := range m.Funcs {
		if err := mStepFactor(f, counts[fi]); err != nil {
			return errors.Wrapf(err, "factor %d", fi)
		}
	}
	return nil
}

// mStepFactor renormalizes one factor's rows. A row is every value that
// shares an assignment to every scope variable except ChildTag; rows are
// located by composing indices directly rather than assuming ChildTag is
// the fastest-varying (lowest-label) scope variable.
func mStepFactor(f *model.Factor, counts []float64) error {
	if f.ChildTag < 0 {
		copy(f.Values, normalizeWhole(counts))
		return nil
	}

	vars := f.Scope.Vars()
	childPos, ok := f.Scope.IndexOf(f.ChildTag)
	if !ok {
		return errors.Errorf("ChildTag %d not in scope", f.ChildTag)
	}
	childVar := vars[childPos]

	others := make([]model.Variable, 0, len(vars)-1)
	for i, v := range vars {
		if i != childPos {
			others = append(others, v)
		}
	}

	for _, combo := range cartesian(others) {
		idxs := make([]int, childVar.Card)
		row := make([]float64, childVar.Card)
		for val := 0; val < childVar.Card; val++ {
			assign := make(map[int]int, len(vars))
			for k, v := range combo {
				assign[k] = v
			}
			assign[childVar.Label] = val

			idx, err := f.IndexOf(assign)
			if err != nil {
				return err
			}
			idxs[val] = idx
			row[val] = counts[idx]
		}

		normed := normalizeWhole(row)
		for val, idx := range idxs {
			f.Values[idx] = normed[val]
		}
	}
	return nil
}

// cartesian enumerates every assignment (label -> value) over vars.
func cartesian(vars []model.Variable) []map[int]int {
	combos := []map[int]int{{}}
	for _, v := range vars {
		next := make([]map[int]int, 0, len(combos)*v.Card)
		for _, combo := range combos {
			for val := 0; val < v.Card; val++ {
				cp := make(map[int]int, len(combo)+1)
				for k, x := range combo {
					cp[k] = x
				}
				cp[v.Label] = val
				next = append(next, cp)
			}
		}
		combos = next
	}
	return combos
}

func normalizeWhole(c []float64) []float64 {
	total := 0.0
	for _, v := range c {
		total += v
	}
	out := make([]float64, len(c))
	if total <= 0 {
		u := 1.0 / float64(len(c))
		for i := range out {
			out[i] = u
		}
		return out
	}
	for i, v := range c {
		out[i] = v / total
	}
	return out
}
