package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSolutionFromBufferParsesMARFile(t *testing.T) {
	assert := assert.New(t)

	data := []byte("MAR\n2\n2 0.5 0.5\n2 0.1 0.9\n")
	sol, err := NewSolutionFromBuffer(data)
	assert.NoError(err)
	assert.Equal(2, len(sol.Marginals))
	assert.InDeltaSlice([]float64{0.5, 0.5}, sol.Marginals[0], 1e-12)
	assert.InDeltaSlice([]float64{0.1, 0.9}, sol.Marginals[1], 1e-12)
}

func TestNewSolutionFromBufferSkipsLeadingPRSection(t *testing.T) {
	assert := assert.New(t)

	data := []byte("PR\n-1.234567 7.5e-02\nMAR\n1\n2 0.3 0.7\n")
	sol, err := NewSolutionFromBuffer(data)
	assert.NoError(err)
	assert.Equal(1, len(sol.Marginals))
	assert.InDeltaSlice([]float64{0.3, 0.7}, sol.Marginals[0], 1e-12)
}

func TestNewSolutionFromBufferRejectsBadType(t *testing.T) {
	assert := assert.New(t)
	_, err := NewSolutionFromBuffer([]byte("XXX\n1\n2 0.5 0.5\n"))
	assert.Error(err)
}

func TestNewSolutionFromBufferRejectsOutOfRangeProbability(t *testing.T) {
	assert := assert.New(t)
	_, err := NewSolutionFromBuffer([]byte("MAR\n1\n2 1.5 -0.5\n"))
	assert.Error(err)
}

func TestSolutionErrorDelegatesToErrorSuite(t *testing.T) {
	assert := assert.New(t)

	sol := &Solution{Marginals: Marginals{0: {0.5, 0.5}}}
	es, err := sol.Error(Marginals{0: {0.5, 0.5}})
	assert.NoError(err)
	assert.InDelta(0.0, es.MeanMeanAbsError, 1e-12)
}
