package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

func TestRunGibbsMarginalsApproximateExact(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MAR"
	opts.SampleCount = 4000
	gen, err := rand.NewGenerator(7)
	assert.NoError(err)

	r, err := RunGibbs(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.True(r.Status)

	// Exact P(x0=0)=0.4, P(x0=1)=0.6 (see lbp_test.go); a few thousand
	// single-chain samples should land within a generous tolerance.
	assert.InDelta(0.4, r.Marginals[0][0], 0.07)
	assert.InDelta(0.6, r.Marginals[0][1], 0.07)
}

func TestRunGibbsRelabelsBackToOriginalLabels(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MAR"
	opts.SampleCount = 500
	gen, err := rand.NewGenerator(7)
	assert.NoError(err)

	ev := noEvidence(4)
	ev[3] = 0
	r, err := RunGibbs(m, ev, opts, gen)
	assert.NoError(err)

	_, ok := r.Marginals[3]
	assert.False(ok)
	_, ok = r.Marginals[2]
	assert.True(ok)
}

func TestRunGibbsInconsistentEvidenceReturnsFailure(t *testing.T) {
	assert := assert.New(t)

	f, err := model.NewFactorFromValues(scope(0), []float64{0, 1})
	assert.NoError(err)
	m, err := model.NewGraphicalModel(model.MARKOV, "m", []model.Variable{v(0, 2)}, []*model.Factor{f})
	assert.NoError(err)

	opts := config.Default()
	opts.Task = "MAR"
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunGibbs(m, model.EvidenceVector{0}, opts, gen)
	assert.NoError(err)
	assert.False(r.Status)
}
