package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/rand"
)

func TestRunJGLPIsExactWhenIBoundCoversEveryBucket(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 10
	opts.StopIter = 5
	opts.Alpha = 0.5
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunJGLP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.True(r.Status)
	assert.InDelta(math.Log(60), r.Value, 1e-9)
}

func TestRunJGLPNarrowIBoundRemainsAnUpperBound(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 1
	opts.StopIter = 5
	opts.Alpha = 0.5
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunJGLP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.GreaterOrEqual(r.Value, math.Log(60)-1e-9)
}

func TestRunJGLPMAPProducesAFullSolution(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MAP"
	opts.IBound = 10
	opts.StopIter = 3
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunJGLP(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	for _, val := range r.Solution {
		assert.GreaterOrEqual(val, 0)
	}
}
