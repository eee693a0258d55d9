package model

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ObsKind distinguishes the three kinds of per-variable observation EM's
// dataset format supports.
type ObsKind int

// Observation kinds (§6 dataset file, §4.7).
const (
	ObsHard ObsKind = iota
	ObsMissing
	ObsVirtual
)

// Observation is one field of one EM training example.
type Observation struct {
	Kind       ObsKind
	Value      int       // valid when Kind == ObsHard
	Likelihood []float64 // valid when Kind == ObsVirtual
}

// Example is one line of an EM dataset: one Observation per model variable,
// in variable-label order.
type Example []Observation

// ParseDataset reads the EM dataset format (§6): one example per line,
// comma-separated fields that are an integer, `?` for missing, or
// `[v0;v1;...]` for a virtual-evidence likelihood vector.
func ParseDataset(data []byte) ([]Example, error) {
	lines := strings.Split(string(data), "\n")
	examples := make([]Example, 0, len(lines))

	for lineNo, ln := range lines {
		ln = strings.TrimSpace(ln)
		if len(ln) < 1 || ln[0] == '#' {
			continue
		}

		fields := strings.Split(ln, ",")
		ex := make(Example, len(fields))
		for i, field := range fields {
			obs, err := parseObservation(strings.TrimSpace(field))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d field %d", lineNo+1, i)
			}
			ex[i] = obs
		}
		examples = append(examples, ex)
	}

	return examples, nil
}

func parseObservation(field string) (Observation, error) {
	if field == "?" {
		return Observation{Kind: ObsMissing}, nil
	}

	if strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]") {
		inner := field[1 : len(field)-1]
		parts := strings.Split(inner, ";")
		lik := make([]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Observation{}, errors.Wrapf(err, "invalid likelihood entry %q", p)
			}
			lik[i] = v
		}
		return Observation{Kind: ObsVirtual, Likelihood: lik}, nil
	}

	v, err := strconv.Atoi(field)
	if err != nil {
		return Observation{}, errors.Wrapf(err, "invalid observation %q", field)
	}
	return Observation{Kind: ObsHard, Value: v}, nil
}
