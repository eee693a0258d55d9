package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

func TestRunWMBIsExactWhenIBoundCoversEveryBucket(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 10 // wide enough that no bucket ever splits
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunWMB(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.True(r.Status)
	assert.InDelta(math.Log(60), r.Value, 1e-9)
}

func TestRunWMBIsAnUpperBoundUnderNarrowIBound(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "PR"
	opts.IBound = 1 // forces splitting; WMB over-counts so the bound is >= exact logZ
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunWMB(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.GreaterOrEqual(r.Value, math.Log(60)-1e-9)
}

// cycleModel builds a 4-variable binary Ising-style loop 0-1-2-3-0: every
// pairwise factor shares the same attractive potential exp(x_i*x_j), so
// eliminating any one variable first fills in a chord and forces its
// bucket to hold two original factors, splitting under a narrow i-bound.
func cycleModel(t *testing.T) *model.GraphicalModel {
	vars := []model.Variable{v(0, 2), v(1, 2), v(2, 2), v(3, 2)}

	pair := func(a, b int) *model.Factor {
		f, err := model.NewFactorFromValues(scope(a, b), []float64{1, 1, 1, math.E})
		assert.NoError(t, err)
		return f
	}
	f01, f12, f23, f30 := pair(0, 1), pair(1, 2), pair(2, 3), pair(0, 3)

	m, err := model.NewGraphicalModel(model.MARKOV, "cycle", vars, []*model.Factor{f01, f12, f23, f30})
	assert.NoError(t, err)
	return m
}

func TestRunWMBMomentMatchingTightensBoundOnALoopyModel(t *testing.T) {
	assert := assert.New(t)
	m := cycleModel(t)

	bteOpts := config.Default()
	bteOpts.Task = "PR"
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)
	exact, err := RunBTE(m, noEvidence(4), bteOpts, gen)
	assert.NoError(err)

	single := config.Default()
	single.Task = "PR"
	single.IBound = 2 // narrow enough to split the bucket holding two cycle factors
	single.StopIter = 1
	r1, err := RunWMB(m, noEvidence(4), single, gen)
	assert.NoError(err)
	assert.True(r1.Status)
	assert.GreaterOrEqual(r1.Value, exact.Value-1e-9)

	matched := config.Default()
	matched.Task = "PR"
	matched.IBound = 2
	matched.StopIter = 8
	matched.Alpha = 0.5
	r2, err := RunWMB(m, noEvidence(4), matched, gen)
	assert.NoError(err)
	assert.True(r2.Status)

	// Moment matching only ever tightens (lowers) a SUM upper bound, and
	// never below the true logZ.
	assert.LessOrEqual(r2.Value, r1.Value+1e-9)
	assert.GreaterOrEqual(r2.Value, exact.Value-1e-9)
}

func TestRunWMBProducesAMAPSolution(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	opts := config.Default()
	opts.Task = "MAP"
	opts.IBound = 10
	gen, err := rand.NewGenerator(1)
	assert.NoError(err)

	r, err := RunWMB(m, noEvidence(4), opts, gen)
	assert.NoError(err)
	assert.Equal(4, len(r.Solution))
	for _, val := range r.Solution {
		assert.GreaterOrEqual(val, 0)
	}
}
