package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// RunJointMarginal re-eliminates every variable not in queryScope by
// summation, in an order that leaves queryScope until last, producing the
// full joint table over queryScope rather than per-variable univariate
// marginals. Simpler than the cluster-graph engines since it only ever
// needs one elimination pass, not a calibrated join structure.
func RunJointMarginal(m *model.GraphicalModel, ev model.EvidenceVector, queryScope []int, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	m2, oldToNew, logConst, err := m.AssertEvidence(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not assert evidence")
	}
	if math.IsInf(logConst, -1) {
		return inconsistentEvidence("jointmarginal", "MMAP"), nil
	}

	newQuery := make([]int, len(queryScope))
	for i, old := range queryScope {
		nw, ok := oldToNew[old]
		if !ok {
			return nil, errors.Errorf("query variable %d was absorbed as evidence; cannot report its joint marginal", old)
		}
		newQuery[i] = nw
	}
	queried := make(map[int]bool, len(newQuery))
	for _, v := range newQuery {
		queried[v] = true
	}

	fullOrder, err := m2.Order(opts.Order, gen)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute elimination order")
	}

	var elimOrder []int
	for _, v := range fullOrder {
		if !queried[v] {
			elimOrder = append(elimOrder, v)
		}
	}

	factors := append([]*model.Factor(nil), m2.Funcs...)
	logZ := 0.0

	for _, v := range elimOrder {
		vr, err := m2.VarByLabel(v)
		if err != nil {
			return nil, err
		}
		vs, err := model.NewVariableSet(vr)
		if err != nil {
			return nil, err
		}

		var keep []*model.Factor
		var combined *model.Factor
		for _, f := range factors {
			if f.Scope.Contains(v) {
				if combined == nil {
					combined = f.Clone()
				} else {
					combined = model.Product(combined, f)
				}
			} else {
				keep = append(keep, f)
			}
		}
		if combined == nil {
			continue
		}

		summed := combined.Sum(vs)
		normed, mx := summed.NormalizeMax()
		if mx > 0 {
			logZ += math.Log(mx)
		}
		factors = append(keep, normed)
	}

	var joint *model.Factor
	for _, f := range factors {
		if joint == nil {
			joint = f.Clone()
		} else {
			joint = model.Product(joint, f)
		}
	}
	if joint == nil {
		joint = model.NewScalarFactor(1.0)
	}

	// MMAP's scalar is log(max_q Σ_rest P(q,rest)): the non-query
	// variables are already summed out above (elimOrder), so maximizing
	// the remaining joint table's unnormalized values and folding that
	// max back into logZ/logConst gives the marginal-MAP objective,
	// while normalizing the same table still reports the query's full
	// posterior for callers (e.g. em's E-step) that want the distribution
	// rather than its argmax.
	best := joint.Argmax()
	bestAssign := joint.AssignmentOf(best)
	mx := joint.Values[best]

	normed, err := joint.Normalize()
	if err != nil {
		return model.Failure("jointmarginal", "MMAP", "inconsistent evidence: joint marginal sums to zero"), nil
	}

	oldQueryOrdered := make([]int, len(normed.Scope.Vars()))
	for i, v := range normed.Scope.Vars() {
		oldQueryOrdered[i] = inverseLookup(oldToNew, v.Label)
	}

	sol := make([]int, len(m.Vars))
	for i := range sol {
		sol[i] = -1
	}
	for newLabel, val := range bestAssign {
		sol[inverseLookup(oldToNew, newLabel)] = val
	}
	for label, val := range ev {
		if val >= 0 && label < len(sol) {
			sol[label] = val
		}
	}

	value := logZ + logConst
	if mx > 0 {
		value += math.Log(mx)
	}

	r := &model.Result{
		Algorithm:     "jointmarginal",
		Task:          "MMAP",
		Value:         value,
		Status:        true,
		Solution:      sol,
		QueryScope:    oldQueryOrdered,
		JointMarginal: normed.Values,
	}
	return r, nil
}

func inverseLookup(oldToNew map[int]int, nw int) int {
	for old, n := range oldToNew {
		if n == nw {
			return old
		}
	}
	return nw
}
