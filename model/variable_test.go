package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableCheck(t *testing.T) {
	assert := assert.New(t)

	good := []Variable{
		{Label: 0, Card: 1},
		{Label: 1, Card: 2},
		{Label: 100, Card: 7},
	}
	for _, v := range good {
		assert.NoError(v.Check())
	}

	bad := []Variable{
		{Label: -1, Card: 2},
		{Label: 0, Card: 0},
		{Label: 0, Card: -1},
	}
	for _, v := range bad {
		assert.Error(v.Check())
	}
}

func TestVariableName(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		label int
		name  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{26*26 + 26 - 1, "ZZ"},
		{26*26 + 26, "AAA"},
	}

	for _, c := range cases {
		v := Variable{Label: c.label, Card: 2}
		assert.Equal(c.name, v.Name())
	}
}

func TestNewVariable(t *testing.T) {
	assert := assert.New(t)

	v, err := NewVariable(3, 4)
	assert.NoError(err)
	assert.Equal(3, v.Label)
	assert.Equal(4, v.Card)

	_, err = NewVariable(3, 0)
	assert.Error(err)
}
