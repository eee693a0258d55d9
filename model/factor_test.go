package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/rand"
)

func scope(labels ...int) *VariableSet {
	vars := make([]Variable, len(labels))
	for i, l := range labels {
		vars[i] = v(l, 2)
	}
	vs, _ := NewVariableSet(vars...)
	return vs
}

func TestFactorIndexRoundTrip(t *testing.T) {
	assert := assert.New(t)

	vs := scope(0, 1, 2)
	f := NewFactor(vs)
	for i := range f.Values {
		f.Values[i] = float64(i)
	}

	for idx := 0; idx < len(f.Values); idx++ {
		assign := f.AssignmentOf(idx)
		got, err := f.IndexOf(assign)
		assert.NoError(err)
		assert.Equal(idx, got)
	}
}

func TestFactorProductQuotient(t *testing.T) {
	assert := assert.New(t)

	a, err := NewFactorFromValues(scope(0), []float64{0.2, 0.8})
	assert.NoError(err)
	b, err := NewFactorFromValues(scope(1), []float64{0.5, 0.5})
	assert.NoError(err)

	p := Product(a, b)
	assert.Equal([]int{0, 1}, p.Scope.Labels())
	assert.InDeltaSlice([]float64{0.1, 0.4, 0.1, 0.4}, p.Values, 1e-12)

	q, err := Quotient(p, b.Clone())
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.2, 0.8, 0.2, 0.8}, q.Values, 1e-12)

	zero, _ := NewFactorFromValues(scope(1), []float64{0, 0})
	_, err = Quotient(a, zero)
	assert.Error(err)
}

func TestFactorSumMax(t *testing.T) {
	assert := assert.New(t)

	vs := scope(0, 1)
	f, err := NewFactorFromValues(vs, []float64{1, 2, 3, 4})
	assert.NoError(err)

	summed := f.Sum(scope(0))
	assert.Equal([]int{1}, summed.Scope.Labels())
	assert.InDeltaSlice([]float64{3, 7}, summed.Values, 1e-12)

	maxed := f.Max(scope(1))
	assert.Equal([]int{0}, maxed.Scope.Labels())
	assert.InDeltaSlice([]float64{3, 4}, maxed.Values, 1e-12)
}

func TestFactorSumPowerDegeneratesToMaxAtInfWeight(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0, 1), []float64{1, 2, 3, 4})
	byMax := f.Max(scope(1))
	byPower := f.SumPower(scope(1), InfWeight())
	assert.InDeltaSlice(byMax.Values, byPower.Values, 1e-12)
}

func TestFactorSumPowerWeightOneIsSum(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0, 1), []float64{1, 2, 3, 4})
	bySum := f.Sum(scope(1))
	byPower := f.SumPower(scope(1), NewWeight(1.0))
	assert.InDeltaSlice(bySum.Values, byPower.Values, 1e-9)
}

func TestFactorNormalize(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0), []float64{2, 2})
	n, err := f.Normalize()
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.5, 0.5}, n.Values, 1e-12)

	zero, _ := NewFactorFromValues(scope(0), []float64{0, 0})
	_, err = zero.Normalize()
	assert.ErrorIs(err, ErrZeroSum)
}

func TestFactorCondition(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0, 1), []float64{1, 2, 3, 4})
	cond, err := f.Condition(v(0, 2), 1)
	assert.NoError(err)
	assert.Equal([]int{1}, cond.Scope.Labels())
	assert.InDeltaSlice([]float64{2, 4}, cond.Values, 1e-12)
}

func TestFactorConditionVector(t *testing.T) {
	assert := assert.New(t)

	f := NewFactor(scope(0, 1, 2))
	for i := range f.Values {
		f.Values[i] = float64(i + 1)
	}

	ev := []int{-1, 0, -1}
	cond, err := f.ConditionVector(ev)
	assert.NoError(err)
	assert.Equal([]int{0, 2}, cond.Scope.Labels())
}

func TestFactorArgmax(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0, 1), []float64{1, 5, 3, 2})
	assert.Equal(1, f.Argmax())
}

func TestFactorSample(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(7)
	assert.NoError(err)

	f, _ := NewFactorFromValues(scope(0), []float64{1, 0})
	for i := 0; i < 20; i++ {
		idx, err := f.Sample(gen)
		assert.NoError(err)
		assert.Equal(0, idx)
	}
}

func TestFactorDistance(t *testing.T) {
	assert := assert.New(t)

	a, _ := NewFactorFromValues(scope(0), []float64{1, 0})
	b, _ := NewFactorFromValues(scope(0), []float64{0, 1})

	d, err := a.Distance(b, L1)
	assert.NoError(err)
	assert.InDelta(2.0, d, 1e-12)

	_, err = a.Distance(b, DistanceKind(99))
	assert.Error(err)

	other, _ := NewFactorFromValues(scope(1), []float64{1, 0})
	_, err = a.Distance(other, L1)
	assert.Error(err)
}

func TestFactorSigmaConvergesToArgmax(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0, 1), []float64{1, 5, 3, 2})
	s := f.Sigma(50)
	assert.Equal(f.Argmax(), s.Argmax())
	total := 0.0
	for _, x := range s.Values {
		total += x
	}
	assert.InDelta(1.0, total, 1e-9)
}

func TestFactorNormalizeMax(t *testing.T) {
	assert := assert.New(t)

	f, _ := NewFactorFromValues(scope(0), []float64{2, 8})
	n, mx := f.NormalizeMax()
	assert.InDelta(8.0, mx, 1e-12)
	assert.InDeltaSlice([]float64{0.25, 1.0}, n.Values, 1e-12)
}

func TestFactorScalar(t *testing.T) {
	assert := assert.New(t)

	s := NewScalarFactor(3.5)
	assert.True(s.IsScalar())
	assert.Equal(1, len(s.Values))
	assert.False(math.IsNaN(s.Values[0]))
}
