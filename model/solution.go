package model

import (
	"io/ioutil"

	"github.com/pkg/errors"
)

// Solution holds a reference MAR solution: one marginal distribution per
// variable, used by test oracles and error-suite comparisons.
type Solution struct {
	Marginals Marginals
}

// NewSolutionFromFile reads a UAI MAR solution file.
func NewSolutionFromFile(filename string) (*Solution, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read solution from %s", filename)
	}
	return NewSolutionFromBuffer(data)
}

// NewSolutionFromBuffer parses a UAI MAR solution buffer. Per §6 it may be
// preceded by a PR section (as Merlin itself emits); everything before the
// first "MAR" token is skipped.
func NewSolutionFromBuffer(data []byte) (*Solution, error) {
	if len(data) < 11 {
		return nil, errors.Errorf("invalid data buffer: len=%d (<11)", len(data))
	}

	text, lineCount := uaiPreprocess(data, "MAR")
	if lineCount < 1 {
		return nil, errors.New("no lines in file")
	}

	fr := NewFieldReader(text)
	if len(fr.Fields) < 4 {
		return nil, errors.Errorf("invalid data: only %d fields found (<4)", len(fr.Fields))
	}

	solType, err := fr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "could not understand file")
	}
	if solType != "MAR" {
		return nil, errors.Errorf("unknown solution file type %s", solType)
	}

	varCount, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading MAR solution variable count")
	}

	sol := &Solution{Marginals: make(Marginals, varCount)}
	for i := 0; i < varCount; i++ {
		card, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading card for var %d", i)
		}

		dist := make([]float64, card)
		for k := 0; k < card; k++ {
			p, err := fr.ReadFloat()
			if err != nil {
				return nil, errors.Wrapf(err, "could not read marginal prob %d on var %d", k, i)
			}
			if p < 0.0 || p > 1.0 {
				return nil, errors.Errorf("invalid probability %f for var %d value %d", p, i, k)
			}
			dist[k] = p
		}
		sol.Marginals[i] = dist
	}

	return sol, nil
}

// Error returns the full error suite comparing sol to other.
func (s *Solution) Error(other Marginals) (*ErrorSuite, error) {
	return NewErrorSuite(s.Marginals, other)
}
