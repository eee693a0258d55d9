package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorSuiteIdenticalDistributionsAreZero(t *testing.T) {
	assert := assert.New(t)

	a := Marginals{0: {0.5, 0.5}, 1: {0.2, 0.8}}
	b := Marginals{0: {0.5, 0.5}, 1: {0.2, 0.8}}

	es, err := NewErrorSuite(a, b)
	assert.NoError(err)
	assert.InDelta(0.0, es.MeanMeanAbsError, 1e-12)
	assert.InDelta(0.0, es.MeanMaxAbsError, 1e-12)
	assert.InDelta(0.0, es.MeanHellinger, 1e-12)
	assert.InDelta(0.0, es.MeanJSDiverge, 1e-12)
}

func TestNewErrorSuiteDetectsDivergence(t *testing.T) {
	assert := assert.New(t)

	a := Marginals{0: {1.0, 0.0}}
	b := Marginals{0: {0.0, 1.0}}

	es, err := NewErrorSuite(a, b)
	assert.NoError(err)
	assert.InDelta(1.0, es.MeanMaxAbsError, 1e-12)
	assert.Greater(es.MeanHellinger, 0.0)
	assert.Greater(es.MeanJSDiverge, 0.0)
}

func TestNewErrorSuiteRejectsLengthMismatch(t *testing.T) {
	assert := assert.New(t)

	a := Marginals{0: {0.5, 0.5}}
	b := Marginals{0: {0.3, 0.3, 0.4}}

	_, err := NewErrorSuite(a, b)
	assert.Error(err)
}

func TestNewErrorSuiteRejectsNoCommonVariables(t *testing.T) {
	assert := assert.New(t)

	a := Marginals{0: {0.5, 0.5}}
	b := Marginals{1: {0.5, 0.5}}

	_, err := NewErrorSuite(a, b)
	assert.Error(err)
}

func TestNewErrorSuiteOnlyScoresCommonLabels(t *testing.T) {
	assert := assert.New(t)

	a := Marginals{0: {0.5, 0.5}, 2: {1.0, 0.0}}
	b := Marginals{0: {0.5, 0.5}}

	es, err := NewErrorSuite(a, b)
	assert.NoError(err)
	assert.InDelta(0.0, es.MeanMeanAbsError, 1e-12)
}
