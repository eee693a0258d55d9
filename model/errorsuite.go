package model

import (
	"math"

	"github.com/pkg/errors"
)

// Marginals is a per-variable-label posterior distribution map, the shape
// MAR results and EM diagnostics traffic in.
type Marginals map[int][]float64

// ErrorSuite aggregates several pseudo-metrics across a set of marginal
// distributions, grounded on the teacher's model/error.go (MeanMeanAbsError
// etc.), generalized from Variable.Marginal fields to the Marginals map.
type ErrorSuite struct {
	MeanMeanAbsError float64
	MeanMaxAbsError  float64
	MeanHellinger    float64
	MeanJSDiverge    float64

	MaxMeanAbsError float64
	MaxMaxAbsError  float64
	MaxHellinger    float64
	MaxJSDiverge    float64
}

// NewErrorSuite compares two Marginals maps (e.g. an engine's MAR result
// against a reference solution) over their common labels.
func NewErrorSuite(a, b Marginals) (*ErrorSuite, error) {
	count := 0
	es := &ErrorSuite{}

	for label, pa := range a {
		pb, ok := b[label]
		if !ok {
			continue
		}
		if len(pa) != len(pb) {
			return nil, errors.Errorf("variable %d marginal length mismatch %d != %d", label, len(pa), len(pb))
		}

		count++

		d := meanAbsDiff(pa, pb)
		es.MeanMeanAbsError += d
		es.MaxMeanAbsError = math.Max(d, es.MaxMeanAbsError)

		d = maxAbsDiff(pa, pb)
		es.MeanMaxAbsError += d
		es.MaxMaxAbsError = math.Max(d, es.MaxMaxAbsError)

		d = hellingerDiff(pa, pb)
		es.MeanHellinger += d
		es.MaxHellinger = math.Max(d, es.MaxHellinger)

		d = jsDivergence(pa, pb)
		es.MeanJSDiverge += d
		es.MaxJSDiverge = math.Max(d, es.MaxJSDiverge)
	}

	if count < 1 {
		return nil, errors.New("no common variables to score")
	}

	fc := float64(count)
	es.MeanMeanAbsError /= fc
	es.MeanMaxAbsError /= fc
	es.MeanHellinger /= fc
	es.MeanJSDiverge /= fc

	return es, nil
}

const errEps = 1e-12

func totals(p1, p2 []float64) (float64, float64) {
	t1, t2 := 0.0, 0.0
	for i := range p1 {
		t1 += p1[i]
		t2 += p2[i]
	}
	if t1 < errEps {
		t1 = errEps
	}
	if t2 < errEps {
		t2 = errEps
	}
	return t1, t2
}

func maxAbsDiff(p1, p2 []float64) float64 {
	t1, t2 := totals(p1, p2)
	maxErr := 0.0
	for i := range p1 {
		err := math.Abs(p1[i]/t1 - p2[i]/t2)
		if i == 0 || err > maxErr {
			maxErr = err
		}
	}
	return maxErr
}

func meanAbsDiff(p1, p2 []float64) float64 {
	if len(p1) < 1 {
		return 0
	}
	t1, t2 := totals(p1, p2)
	sum := 0.0
	for i := range p1 {
		sum += math.Abs(p1[i]/t1 - p2[i]/t2)
	}
	return sum / float64(len(p1))
}

func hellingerDiff(p1, p2 []float64) float64 {
	t1, t2 := totals(p1, p2)
	sum := 0.0
	for i := range p1 {
		d := math.Sqrt(p1[i]/t1) - math.Sqrt(p2[i]/t2)
		sum += d * d
	}
	return sum / math.Sqrt2
}

func klDivergence(p, q []float64) float64 {
	d := 0.0
	for i, pv := range p {
		if pv <= 0 {
			continue
		}
		d += pv * math.Log2(pv/q[i])
	}
	return d
}

func jsDivergence(p1, p2 []float64) float64 {
	t1, t2 := totals(p1, p2)
	n1 := make([]float64, len(p1))
	n2 := make([]float64, len(p2))
	mid := make([]float64, len(p1))
	for i := range p1 {
		n1[i] = p1[i] / t1
		n2[i] = p2[i] / t2
		mid[i] = (n1[i] + n2[i]) * 0.5
	}
	return 0.5 * (klDivergence(n1, mid) + klDivergence(n2, mid))
}
