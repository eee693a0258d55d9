package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/rand"
)

func TestRunIJGPIsExactWhenIBoundCoversEveryBucket(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 10
	opts.StopIter = 5
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunIJGP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.True(r.Status)
	assert.InDelta(math.Log(60), r.Value, 1e-9)
}

func TestRunIJGPStopsEarlyOnConvergence(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 10
	opts.StopIter = 50
	opts.StopObj = 1e-3
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	// The mini-bucket join graph is a DAG, so logZ is unchanged after the
	// first sweep; the stopping rule should kick in well before StopIter
	// sweeps complete.
	r, err := RunIJGP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.InDelta(math.Log(60), r.Value, 1e-9)
}

func TestRunIJGPMARUnderNarrowIBoundStillSumsToOne(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MAR"
	opts.IBound = 1
	opts.StopIter = 5
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunIJGP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	for _, dist := range r.Marginals {
		total := 0.0
		for _, p := range dist {
			total += p
		}
		assert.InDelta(1.0, total, 1e-6)
	}
}
