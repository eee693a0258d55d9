package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/merlin-pgm/merlin/rand"
)

// ErrZeroSum is returned by Normalize when the factor sums to zero; the
// factor is returned unchanged and the caller decides how to react.
var ErrZeroSum = errors.New("factor sum is zero; cannot normalize")

// Factor is a dense table over a VariableSet (its scope). Values holds
// NumStates(Scope) nonnegative reals in the stride order described in
// index.go. ChildTag names the conditioned (child) variable for a Bayes net
// CPT factor; -1 if this factor has no distinguished child (e.g. a Markov
// network potential).
type Factor struct {
	Scope    *VariableSet
	Strides  []int
	Values   []float64
	ChildTag int
}

// NewFactor allocates a zero-valued factor over scope.
func NewFactor(scope *VariableSet) *Factor {
	return &Factor{
		Scope:    scope,
		Strides:  computeStrides(scope),
		Values:   make([]float64, scope.NumStates()),
		ChildTag: -1,
	}
}

// NewFactorFromValues builds a factor over scope from a value slice already
// laid out in this package's ascending-stride order.
func NewFactorFromValues(scope *VariableSet, values []float64) (*Factor, error) {
	f := NewFactor(scope)
	if len(values) != len(f.Values) {
		return nil, errors.Errorf("expected %d values for scope, got %d", len(f.Values), len(values))
	}
	copy(f.Values, values)
	return f, nil
}

// NewScalarFactor returns a constant, empty-scope factor.
func NewScalarFactor(value float64) *Factor {
	f := NewFactor(EmptyVariableSet())
	f.Values[0] = value
	return f
}

// Check validates that Values has the length implied by Scope.
func (f *Factor) Check() error {
	expect := f.Scope.NumStates()
	if len(f.Values) != expect {
		return errors.Errorf("factor over %d vars expects %d values, has %d", f.Scope.Size(), expect, len(f.Values))
	}
	return nil
}

// Clone returns a deep copy.
func (f *Factor) Clone() *Factor {
	out := &Factor{
		Scope:    f.Scope.Clone(),
		Strides:  append([]int(nil), f.Strides...),
		Values:   append([]float64(nil), f.Values...),
		ChildTag: f.ChildTag,
	}
	return out
}

// IsScalar reports whether the factor has an empty scope.
func (f *Factor) IsScalar() bool {
	return f.Scope.Size() == 0
}

// IndexOf returns the linear index for a full assignment given as
// label->value, erroring if any scope variable is missing from assign.
func (f *Factor) IndexOf(assign map[int]int) (int, error) {
	vars := f.Scope.Vars()
	vals := make([]int, len(vars))
	for i, v := range vars {
		val, ok := assign[v.Label]
		if !ok {
			return 0, errors.Errorf("assignment missing value for variable %d", v.Label)
		}
		if val < 0 || val >= v.Card {
			return 0, errors.Errorf("value %d out of range for variable %d (card %d)", val, v.Label, v.Card)
		}
		vals[i] = val
	}
	return composeIndex(f.Strides, vals), nil
}

// AssignmentOf is the inverse of IndexOf, returning label->value.
func (f *Factor) AssignmentOf(idx int) map[int]int {
	vars := f.Scope.Vars()
	vals := make([]int, len(vars))
	decompose(vars, f.Strides, idx, vals)
	out := make(map[int]int, len(vars))
	for i, v := range vars {
		out[v.Label] = vals[i]
	}
	return out
}

// Eval returns the value for a full assignment given in the same ascending
// order as f.Scope.Vars().
func (f *Factor) Eval(vals []int) (float64, error) {
	vars := f.Scope.Vars()
	if len(vals) != len(vars) {
		return 0, errors.Errorf("expected %d values, got %d", len(vars), len(vals))
	}
	for i, v := range vars {
		if vals[i] < 0 || vals[i] >= v.Card {
			return 0, errors.Errorf("value %d out of range for variable %d (card %d)", vals[i], v.Label, v.Card)
		}
	}
	return f.Values[composeIndex(f.Strides, vals)], nil
}

// combine builds a new factor over the union of a and b's scopes, applying
// op elementwise to the (broadcast) values of a and b.
func combine(a, b *Factor, op func(x, y float64) float64) *Factor {
	union := a.Scope.Union(b.Scope)
	strides := computeStrides(union)
	n := union.NumStates()
	vals := make([]float64, n)

	uvars := union.Vars()
	avars, bvars := a.Scope.Vars(), b.Scope.Vars()
	cur := make([]int, len(uvars))

	for idx := 0; idx < n; idx++ {
		decompose(uvars, strides, idx, cur)
		ai := subIndex(avars, a.Strides, uvars, cur)
		bi := subIndex(bvars, b.Strides, uvars, cur)
		vals[idx] = op(a.Values[ai], b.Values[bi])
	}

	return &Factor{Scope: union, Strides: strides, Values: vals, ChildTag: -1}
}

// Product returns the pointwise product over scope(a) union scope(b).
func Product(a, b *Factor) *Factor {
	return combine(a, b, func(x, y float64) float64 { return x * y })
}

// Quotient returns the pointwise division over scope(a) union scope(b).
// 0/0 is defined as 0. x/0 with x>0 is an ill-defined invariant failure: the
// caller asked this library to divide by a structural zero that should never
// occur in a correctly-built elimination, so we return a descriptive error
// rather than silently producing +Inf.
func Quotient(a, b *Factor) (*Factor, error) {
	var bad error
	out := combine(a, b, func(x, y float64) float64 {
		if y == 0 {
			if x == 0 {
				return 0
			}
			bad = errors.Errorf("ill-defined factor division: %g/0", x)
			return 0
		}
		return x / y
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

// eliminate reduces vs out of f's scope using combine/init as the reduction.
func (f *Factor) eliminate(vs *VariableSet, initVal float64, op func(acc, x float64) float64) *Factor {
	keep := f.Scope.Difference(vs)
	strides := computeStrides(keep)
	n := keep.NumStates()
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = initVal
	}

	fvars := f.Scope.Vars()
	cur := make([]int, len(fvars))
	kvars := keep.Vars()

	for idx, v := range f.Values {
		decompose(fvars, f.Strides, idx, cur)
		ki := subIndex(kvars, strides, fvars, cur)
		vals[ki] = op(vals[ki], v)
	}

	return &Factor{Scope: keep, Strides: strides, Values: vals, ChildTag: -1}
}

// Sum eliminates vs by summation.
func (f *Factor) Sum(vs *VariableSet) *Factor {
	return f.eliminate(vs, 0, func(acc, x float64) float64 { return acc + x })
}

// Max eliminates vs by maximization.
func (f *Factor) Max(vs *VariableSet) *Factor {
	return f.eliminate(vs, math.Inf(-1), math.Max)
}

// Min eliminates vs by minimization.
func (f *Factor) Min(vs *VariableSet) *Factor {
	return f.eliminate(vs, math.Inf(1), math.Min)
}

// Marginal keeps vs, eliminating every other scope variable by summation.
func (f *Factor) Marginal(vs *VariableSet) *Factor {
	return f.Sum(f.Scope.Difference(vs))
}

// MaxMarginal keeps vs, eliminating every other scope variable by max.
func (f *Factor) MaxMarginal(vs *VariableSet) *Factor {
	return f.Max(f.Scope.Difference(vs))
}

// Weight is a finite-or-infinite positive weight used by weighted
// elimination (sum_power / weighted marginal). +Inf degenerates the
// operator to max without special-casing every call site.
type Weight struct {
	val float64
	inf bool
}

// NewWeight wraps a finite positive weight.
func NewWeight(w float64) Weight { return Weight{val: w} }

// InfWeight returns the +Infinity weight (dualizes sum to max).
func InfWeight() Weight { return Weight{inf: true} }

// IsInf reports whether this is the +Infinity weight.
func (w Weight) IsInf() bool { return w.inf }

// Value returns the finite weight value; undefined if IsInf().
func (w Weight) Value() float64 { return w.val }

// SumPower performs weighted elimination: (sum(f^(1/w)))^w for finite w>0,
// and max(f) for w=+Inf.
func (f *Factor) SumPower(vs *VariableSet, w Weight) *Factor {
	if w.IsInf() {
		return f.Max(vs)
	}
	powed := f.Pow(1.0 / w.Value())
	summed := powed.Sum(vs)
	return summed.Pow(w.Value())
}

// MarginalPower is the weighted marginal: (marginal(f^(1/w), vs))^w.
func (f *Factor) MarginalPower(vs *VariableSet, w Weight) *Factor {
	if w.IsInf() {
		return f.MaxMarginal(vs)
	}
	powed := f.Pow(1.0 / w.Value())
	marg := powed.Marginal(vs)
	return marg.Pow(w.Value())
}

// Pow raises every value to the given power elementwise.
func (f *Factor) Pow(k float64) *Factor {
	out := f.Clone()
	for i, v := range out.Values {
		out.Values[i] = math.Pow(v, k)
	}
	return out
}

// Log takes the elementwise natural log.
func (f *Factor) Log() *Factor {
	out := f.Clone()
	for i, v := range out.Values {
		out.Values[i] = math.Log(v)
	}
	return out
}

// Exp takes the elementwise exponential.
func (f *Factor) Exp() *Factor {
	out := f.Clone()
	for i, v := range out.Values {
		out.Values[i] = math.Exp(v)
	}
	return out
}

// Normalize divides by the sum of Values. If the sum is zero the factor is
// returned unchanged along with ErrZeroSum so the caller can surface the
// failure instead of silently producing NaNs.
func (f *Factor) Normalize() (*Factor, error) {
	s := floats.Sum(f.Values)
	if s == 0 {
		return f.Clone(), ErrZeroSum
	}
	out := f.Clone()
	floats.Scale(1.0/s, out.Values)
	return out, nil
}

// NormalizeMax divides by the maximum value, returning the max it divided by
// (used by message passing to keep the running logZ accumulator stable).
func (f *Factor) NormalizeMax() (*Factor, float64) {
	mx := floats.Max(f.Values)
	out := f.Clone()
	if mx != 0 {
		floats.Scale(1.0/mx, out.Values)
	}
	return out, mx
}

// Condition restricts v to value val, dropping v from the scope. If v is not
// in the scope the factor is returned unchanged.
func (f *Factor) Condition(v Variable, val int) (*Factor, error) {
	pos, ok := f.Scope.IndexOf(v.Label)
	if !ok {
		return f.Clone(), nil
	}
	if val < 0 || val >= v.Card {
		return nil, errors.Errorf("condition value %d out of range for variable %d (card %d)", val, v.Label, v.Card)
	}

	keep := f.Scope.Difference(mustVarSet(v))
	strides := computeStrides(keep)
	n := keep.NumStates()
	vals := make([]float64, n)

	fvars := f.Scope.Vars()
	kvars := keep.Vars()
	cur := make([]int, len(fvars))

	for idx := 0; idx < n; idx++ {
		decompose(kvars, strides, idx, cur[:len(kvars)])
		full := insertAt(cur[:len(kvars)], kvars, fvars, pos, val)
		vals[idx] = f.Values[composeIndex(f.Strides, full)]
	}

	return &Factor{Scope: keep, Strides: strides, Values: vals, ChildTag: f.ChildTag}, nil
}

// insertAt builds a full assignment (ordered by fvars) from a sub assignment
// (ordered by kvars, which is fvars with the variable at fvars[pos] removed),
// inserting val at the position the removed variable occupied.
func insertAt(subVals []int, kvars []Variable, fvars []Variable, pos int, val int) []int {
	full := make([]int, len(fvars))
	si := 0
	for i := range fvars {
		if i == pos {
			full[i] = val
			continue
		}
		full[i] = subVals[si]
		si++
	}
	return full
}

func mustVarSet(vars ...Variable) *VariableSet {
	vs, _ := NewVariableSet(vars...)
	return vs
}

// ConditionVector restricts every observed scope variable named by ev, where
// ev is indexed by variable label and a value of -1 means "unobserved".
func (f *Factor) ConditionVector(ev []int) (*Factor, error) {
	cur := f
	for _, v := range f.Scope.Vars() {
		if v.Label >= len(ev) {
			continue
		}
		val := ev[v.Label]
		if val < 0 {
			continue
		}
		next, err := cur.Condition(v, val)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Sample draws a linear index with probability proportional to Values, using
// gen as the source of randomness.
func (f *Factor) Sample(gen *rand.Generator) (int, error) {
	total := floats.Sum(f.Values)
	if total <= 0 {
		return 0, errors.New("cannot sample a factor whose values sum to <= 0")
	}
	target := gen.Float64() * total
	acc := 0.0
	for i, v := range f.Values {
		acc += v
		if acc >= target {
			return i, nil
		}
	}
	return len(f.Values) - 1, nil
}

// Argmax returns the index of the largest value, breaking ties by the
// lowest linear index (only a strictly larger value replaces the incumbent).
func (f *Factor) Argmax() int {
	best := 0
	bestVal := math.Inf(-1)
	for i, v := range f.Values {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return best
}

// DistanceKind selects the pseudo-metric used by Distance.
type DistanceKind int

// Supported distance kinds, matching the LBP priority scheduler's Distance
// config option (L1, LInf, KL, HPM).
const (
	L1 DistanceKind = iota
	LInf
	KL
	HPM
)

// Distance computes a pseudo-metric between f and other, which must share
// the same scope. Values are normalized to sum 1 before comparison.
func (f *Factor) Distance(other *Factor, kind DistanceKind) (float64, error) {
	if !f.Scope.Equals(other.Scope) {
		return 0, errors.New("distance requires factors with identical scope")
	}

	p, err := f.Normalize()
	if err != nil {
		p = f.Clone()
	}
	q, err := other.Normalize()
	if err != nil {
		q = other.Clone()
	}

	switch kind {
	case L1:
		d := 0.0
		for i := range p.Values {
			d += math.Abs(p.Values[i] - q.Values[i])
		}
		return d, nil
	case LInf:
		d := 0.0
		for i := range p.Values {
			diff := math.Abs(p.Values[i] - q.Values[i])
			if diff > d {
				d = diff
			}
		}
		return d, nil
	case KL:
		d := 0.0
		for i := range p.Values {
			if p.Values[i] <= 0 {
				continue
			}
			d += p.Values[i] * math.Log(p.Values[i]/q.Values[i])
		}
		return d, nil
	case HPM:
		d := 0.0
		for i := range p.Values {
			diff := math.Sqrt(p.Values[i]) - math.Sqrt(q.Values[i])
			d += diff * diff
		}
		return d / math.Sqrt2, nil
	default:
		return 0, errors.Errorf("unknown distance kind %d", kind)
	}
}

// Sigma is a temperature-annealed projection used by MMAP's backward pass: it
// tends to the indicator of Argmax as iter grows. Implemented as
// softmax(value*iter), i.e. a softmax with temperature 1/iter.
func (f *Factor) Sigma(iter int) *Factor {
	out := f.Clone()
	t := float64(iter)
	for i, v := range out.Values {
		out.Values[i] = v * t
	}
	mx := floats.Max(out.Values)
	floats.AddConst(-mx, out.Values)
	for i, v := range out.Values {
		out.Values[i] = math.Exp(v)
	}
	s := floats.Sum(out.Values)
	if s > 0 {
		floats.Scale(1.0/s, out.Values)
	}
	return out
}
