package engine

import (
	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// prepared bundles the evidence-conditioned model a run operates on, the
// relabeling back to original variable labels, and the log-space
// constant AssertEvidence folded out of factors that became fully
// conditioned (scalar).
type prepared struct {
	model      *model.GraphicalModel
	newToOld   map[int]int
	logConst   float64
	order      []int
}

// prepare asserts evidence, computes an elimination order over the
// resulting (smaller) model, and records the relabeling needed to report
// marginals under the caller's original variable labels.
func prepare(m *model.GraphicalModel, ev model.EvidenceVector, method model.OrderMethod, gen *rand.Generator) (*prepared, error) {
	m2, oldToNew, logConst, err := m.AssertEvidence(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not assert evidence")
	}

	newToOld := make(map[int]int, len(oldToNew))
	for old, nw := range oldToNew {
		newToOld[nw] = old
	}

	var order []int
	if method == model.Random {
		order, err = m2.Order(method, gen)
	} else {
		order, err = m2.Order(method, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not compute elimination order")
	}

	return &prepared{model: m2, newToOld: newToOld, logConst: logConst, order: order}, nil
}

// marginalsFromMP reads every variable's marginal off a calibrated
// MessagePassing run and relabels it back to original variable labels.
func marginalsFromMP(mp *MessagePassing, p *prepared) (model.Marginals, error) {
	out := make(model.Marginals, len(p.model.Vars))
	for _, v := range p.model.Vars {
		f, err := mp.MarginalOf(v.Label)
		if err != nil {
			return nil, err
		}
		old := p.newToOld[v.Label]
		out[old] = f.Values
	}
	return out, nil
}

// inconsistentEvidence reports the §7 non-crash failure path: evidence
// forced a factor's normalizing constant to zero.
func inconsistentEvidence(algorithm, task string) *model.Result {
	return model.Failure(algorithm, task, "inconsistent evidence: evidence forces a structurally zero probability")
}
