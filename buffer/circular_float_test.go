package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularFloat(t *testing.T) {
	assert := assert.New(t)

	cf := NewCircularFloat(6)
	assert.Equal(6, cf.BufSize)
	assert.Equal(0, cf.Count)

	cf.Add(1)
	cf.Add(2)
	cf.Add(3)
	cf.Add(4)
	cf.Add(5)
	assert.Equal(6, cf.BufSize)
	assert.Equal(5, cf.Count)
	assert.Nil(cf.FirstHalf())
	assert.Nil(cf.SecondHalf())

	last, ok := cf.Last()
	assert.True(ok)
	assert.InDelta(5.0, last, 1e-12)

	cf.Add(6)
	assert.Equal(6, cf.Count)

	exp := 0.0
	for iter := cf.FirstHalf(); iter.Next(); {
		val := iter.Value()
		exp++
		assert.InDelta(exp, val, 1e-12)
	}
	for iter := cf.SecondHalf(); iter.Next(); {
		val := iter.Value()
		exp++
		assert.InDelta(exp, val, 1e-12)
	}

	// 1 2 3 4 5 6 add 8 add 8 => 8 8 3 4 5 6
	cf.Add(8)
	cf.Add(8)
	expVals := []float64{3, 4, 5, 6, 8, 8}
	idx := 0
	for iter := cf.FirstHalf(); iter.Next(); {
		val := iter.Value()
		assert.InDelta(expVals[idx], val, 1e-12)
		idx++
	}
	for iter := cf.SecondHalf(); iter.Next(); {
		val := iter.Value()
		assert.InDelta(expVals[idx], val, 1e-12)
		idx++
	}
}

func TestCircularFloatLastEmptyIsFalse(t *testing.T) {
	assert := assert.New(t)
	cf := NewCircularFloat(4)
	_, ok := cf.Last()
	assert.False(ok)
}

func TestCircularFloatOddSizeRoundsDown(t *testing.T) {
	assert := assert.New(t)
	cf := NewCircularFloat(5)
	assert.Equal(4, cf.BufSize)
}
