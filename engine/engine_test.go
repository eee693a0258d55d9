package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/model"
)

func v(label, card int) model.Variable {
	return model.Variable{Label: label, Card: card}
}

func scope(labels ...int) *model.VariableSet {
	vars := make([]model.Variable, len(labels))
	for i, l := range labels {
		vars[i] = v(l, 2)
	}
	vs, _ := model.NewVariableSet(vars...)
	return vs
}

// chainModel builds a 4-variable binary Markov chain 0-1-2-3 whose exact
// PR (log partition) and MAR can be hand-checked. f12 is constant and f23
// ties its two diagonal entries, so the MAP assignment fixes x0=x1=1 but
// only requires x2=x3.
func chainModel(t *testing.T) *model.GraphicalModel {
	vars := []model.Variable{v(0, 2), v(1, 2), v(2, 2), v(3, 2)}

	f01, err := model.NewFactorFromValues(scope(0, 1), []float64{1, 2, 3, 4})
	assert.NoError(t, err)
	f12, err := model.NewFactorFromValues(scope(1, 2), []float64{1, 1, 1, 1})
	assert.NoError(t, err)
	f23, err := model.NewFactorFromValues(scope(2, 3), []float64{2, 1, 1, 2})
	assert.NoError(t, err)

	m, err := model.NewGraphicalModel(model.MARKOV, "chain", vars, []*model.Factor{f01, f12, f23})
	assert.NoError(t, err)
	return m
}

func noEvidence(n int) model.EvidenceVector {
	ev := make(model.EvidenceVector, n)
	for i := range ev {
		ev[i] = -1
	}
	return ev
}
