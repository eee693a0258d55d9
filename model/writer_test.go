package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteUAIPRResult(t *testing.T) {
	assert := assert.New(t)

	r := &Result{Algorithm: "bte", Task: "PR", Value: -1.5, Status: true}
	var buf bytes.Buffer
	err := WriteUAI(&buf, r, nil)
	assert.NoError(err)

	out := buf.String()
	assert.True(strings.HasPrefix(out, "PR\n"))
	assert.Contains(out, "STATUS\ntrue:ok\n")
}

func TestWriteUAIFailureResult(t *testing.T) {
	assert := assert.New(t)

	r := Failure("bte", "PR", "inconsistent evidence")
	var buf bytes.Buffer
	err := WriteUAI(&buf, r, nil)
	assert.NoError(err)
	assert.Contains(buf.String(), "STATUS\nfalse:inconsistent evidence\n")
}

func TestWriteUAIMARAppliesEvidencePointMass(t *testing.T) {
	assert := assert.New(t)

	r := &Result{
		Algorithm: "bte",
		Task:      "MAR",
		Status:    true,
		Marginals: Marginals{0: {0.5, 0.5}, 1: {0.3, 0.7}},
	}
	ev := EvidenceVector{1, -1}

	var buf bytes.Buffer
	err := WriteUAI(&buf, r, ev)
	assert.NoError(err)

	out := buf.String()
	assert.Contains(out, "2 0.000000 1.000000\n")
	assert.Contains(out, "2 0.300000 0.700000\n")
}

func TestWriteUAIMAPWritesSolutionLine(t *testing.T) {
	assert := assert.New(t)

	r := &Result{Algorithm: "bte", Task: "MAP", Status: true, Solution: []int{0, 1, 1}}
	var buf bytes.Buffer
	err := WriteUAI(&buf, r, nil)
	assert.NoError(err)
	assert.Contains(buf.String(), "MAP\n3 0 1 1\n")
}

func TestWriteJSONEncodesMarginalsWithEvidence(t *testing.T) {
	assert := assert.New(t)

	r := &Result{
		Algorithm: "cte",
		Task:      "MAR",
		Status:    true,
		Marginals: Marginals{0: {0.4, 0.6}},
	}
	ev := EvidenceVector{-1}

	var buf bytes.Buffer
	err := WriteJSON(&buf, r, ev)
	assert.NoError(err)
	assert.Contains(buf.String(), `"0": [`)
	assert.Contains(buf.String(), `"algorithm": "cte"`)
}

func TestWriteJSONEncodesJointMarginal(t *testing.T) {
	assert := assert.New(t)

	r := &Result{
		Algorithm:     "wmb",
		Task:          "MMAP",
		Status:        true,
		QueryScope:    []int{0, 1},
		JointMarginal: []float64{0.25, 0.25, 0.25, 0.25},
	}

	var buf bytes.Buffer
	err := WriteJSON(&buf, r, EvidenceVector{-1, -1})
	assert.NoError(err)
	assert.Contains(buf.String(), `"joint_marginal"`)
	assert.Contains(buf.String(), `"scope": [`)
}
