package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUAIReaderReadModelMarkovChain(t *testing.T) {
	assert := assert.New(t)

	data := []byte(`MARKOV
4
2 2 2 2
3
2 0 1
2 1 2
2 2 3
4
1 2 3 4
4
1 1 1 1
4
2 1 1 2
`)

	m, err := UAIReader{}.ReadModel(data)
	assert.NoError(err)
	assert.Equal(MARKOV, m.Type)
	assert.Equal(4, len(m.Vars))
	assert.Equal(3, len(m.Funcs))
	// The file lists x1 fastest; the factor stores x0 (lowest label) fastest.
	assert.InDeltaSlice([]float64{1, 3, 2, 4}, m.Funcs[0].Values, 1e-12)
}

func TestUAIReaderReadModelBayesSetsChildTag(t *testing.T) {
	assert := assert.New(t)

	data := []byte(`BAYES
2
2 2
1
2 0 1
4
0.5 0.5 0.5 0.5
`)

	m, err := UAIReader{}.ReadModel(data)
	assert.NoError(err)
	assert.Equal(BAYES, m.Type)
	assert.Equal(0, m.Funcs[0].ChildTag)
}

func TestUAIReaderReadModelRejectsShortBuffer(t *testing.T) {
	assert := assert.New(t)
	_, err := UAIReader{}.ReadModel([]byte("x"))
	assert.Error(err)
}

func TestUAIReaderReadModelRejectsBadType(t *testing.T) {
	assert := assert.New(t)
	_, err := UAIReader{}.ReadModel([]byte("NOTATYPE\n1\n2\n1\n2 0\n4\n1 1 1 1\n"))
	assert.Error(err)
}

func TestParseEvidenceDefaultsUnmentionedToNegOne(t *testing.T) {
	assert := assert.New(t)

	ev, err := ParseEvidence([]byte("1\n2 1\n"), 4)
	assert.NoError(err)
	assert.Equal(EvidenceVector{-1, -1, 1, -1}, ev)
}

func TestParseEvidenceRejectsOutOfRangeIndex(t *testing.T) {
	assert := assert.New(t)
	_, err := ParseEvidence([]byte("1\n99 0\n"), 4)
	assert.Error(err)
}

func TestUAIReaderApplyEvidenceAttachesToModel(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	err := UAIReader{}.ApplyEvidence([]byte("1\n0 1\n"), m)
	assert.NoError(err)
	assert.Equal(1, m.Evidence.Get(0))
}

func TestUAIReaderApplyVirtualEvidenceParsesRecords(t *testing.T) {
	assert := assert.New(t)

	data := []byte("2\n0 2 0.9 0.1\n2 3 0.2 0.3 0.5\n")
	obs, err := UAIReader{}.ApplyVirtualEvidence(data)
	assert.NoError(err)
	assert.Equal(2, len(obs))
	assert.Equal(0, obs[0].Label)
	assert.InDeltaSlice([]float64{0.9, 0.1}, obs[0].Likelihood, 1e-12)
	assert.Equal(2, obs[1].Label)
	assert.InDeltaSlice([]float64{0.2, 0.3, 0.5}, obs[1].Likelihood, 1e-12)
}

func TestUAIReaderApplyVirtualEvidenceEmptyIsNoError(t *testing.T) {
	assert := assert.New(t)
	obs, err := UAIReader{}.ApplyVirtualEvidence([]byte(""))
	assert.NoError(err)
	assert.Nil(obs)
}

func TestUAIReaderReadQuery(t *testing.T) {
	assert := assert.New(t)
	q, err := UAIReader{}.ReadQuery([]byte("3\n0 2 3\n"))
	assert.NoError(err)
	assert.Equal([]int{0, 2, 3}, q)
}
