package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/model"
)

func TestDefaultIsInternallyConsistent(t *testing.T) {
	assert := assert.New(t)
	opts := Default()

	assert.Equal("bte", opts.Algorithm)
	assert.Equal("PR", opts.Task)
	assert.Equal(model.MinFill, opts.Order)
	assert.Equal(InitUniform, opts.Init)
	assert.Equal(ScheduleFlood, opts.Schedule)
	assert.Greater(opts.IBound, 0)
	assert.Greater(opts.SampleCount, 0)
}

func TestDefaultReturnsFreshInstance(t *testing.T) {
	assert := assert.New(t)

	a := Default()
	b := Default()
	a.Algorithm = "wmb"

	assert.Equal("bte", b.Algorithm)
}

func TestLBPScheduleValuesAreDistinct(t *testing.T) {
	assert := assert.New(t)
	assert.NotEqual(ScheduleFixed, ScheduleFlood)
	assert.NotEqual(ScheduleFlood, SchedulePriority)
}

func TestInitKindValuesAreDistinct(t *testing.T) {
	assert := assert.New(t)
	assert.NotEqual(InitUniform, InitRandom)
	assert.NotEqual(InitRandom, InitModel)
}
