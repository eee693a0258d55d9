package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/rand"
)

func TestRunJointMarginalOverFullScopeSumsToOne(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunJointMarginal(m, noEvidence(4), []int{0, 1, 2, 3}, opts, gen)
	assert.NoError(err)
	assert.True(r.Status)
	assert.Equal([]int{0, 1, 2, 3}, r.QueryScope)

	total := 0.0
	for _, p := range r.JointMarginal {
		total += p
	}
	assert.InDelta(1.0, total, 1e-9)
}

func TestRunJointMarginalOverSingleVariableMatchesMAR(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunJointMarginal(m, noEvidence(4), []int{0}, opts, gen)
	assert.NoError(err)
	assert.Equal([]int{0}, r.QueryScope)
	assert.InDeltaSlice([]float64{0.4, 0.6}, r.JointMarginal, 1e-6)
}

func TestRunJointMarginalRejectsQueryVariableAbsorbedAsEvidence(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	ev := noEvidence(4)
	ev[0] = 1
	_, err = RunJointMarginal(m, ev, []int{0}, opts, gen)
	assert.Error(err)
}

func TestRunJointMarginalMaximizesOverQueryForMMAP(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MMAP"
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	// Summing x1,x2 out of f01*f12*f23 leaves joint(x0,x3) unnormalized
	// at (12,18,12,18) for (x0,x3) in {0,1}x{0,1}; the unique optimum is
	// x0=1, ties on x3 broken to the lower value (x3=0).
	r, err := RunJointMarginal(m, noEvidence(4), []int{0, 3}, opts, gen)
	assert.NoError(err)
	assert.True(r.Status)
	assert.InDelta(math.Log(18), r.Value, 1e-9)
	assert.Equal(1, r.Solution[0])
	assert.Equal(0, r.Solution[3])
	assert.Equal(-1, r.Solution[1])
	assert.Equal(-1, r.Solution[2])

	total := 0.0
	for _, p := range r.JointMarginal {
		total += p
	}
	assert.InDelta(1.0, total, 1e-9)
}

func TestRunJointMarginalWithNoVariablesToEliminateMaximizesFullJoint(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	// Querying every variable leaves nothing to eliminate, so the result
	// is just the full joint table maximized over every variable: the
	// same optimum RunBTE's MAP finds, log(8) (x0=1,x1=1,f23 tied at 2).
	r, err := RunJointMarginal(m, noEvidence(4), []int{0, 1, 2, 3}, opts, gen)
	assert.NoError(err)
	assert.InDelta(math.Log(8), r.Value, 1e-9)
	assert.Equal(1, r.Solution[0])
	assert.Equal(1, r.Solution[1])
}
