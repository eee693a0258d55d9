package model

import (
	"math"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/rand"
)

// EvidenceVector maps variable label -> observed value, or -1 if
// unobserved. It is indexed directly by label (dense, per spec §6).
type EvidenceVector []int

// Get returns the observed value for label, or -1 if out of range/missing.
func (ev EvidenceVector) Get(label int) int {
	if label < 0 || label >= len(ev) {
		return -1
	}
	return ev[label]
}

// VirtualObservation is a likelihood vector applied to a variable, per the
// Virtual evidence glossary entry: realized either by multiplying the
// likelihood into a clique directly, or via an auxiliary indicator per §4.7.
type VirtualObservation struct {
	Label     int
	Likelihood []float64 // length == Card of the named variable
}

// AssertEvidence produces a new GraphicalModel whose variables are the
// non-evidence ones (densely renumbered), with every factor conditioned on
// ev. Constant (fully-conditioned, scalar) factors are folded into a single
// returned log-space constant rather than kept as degenerate 0-var factors.
// The old->new label map is returned alongside.
func (m *GraphicalModel) AssertEvidence(ev EvidenceVector) (*GraphicalModel, map[int]int, float64, error) {
	oldToNew := make(map[int]int)
	newVars := make([]Variable, 0, len(m.Vars))
	for _, v := range m.Vars {
		if ev.Get(v.Label) >= 0 {
			continue
		}
		oldToNew[v.Label] = len(newVars)
		newVars = append(newVars, Variable{Label: len(newVars), Card: v.Card})
	}

	logConst := 0.0
	newFuncs := make([]*Factor, 0, len(m.Funcs))

	for _, f := range m.Funcs {
		cf, err := f.ConditionVector(ev)
		if err != nil {
			return nil, nil, 0, errors.Wrap(err, "failed to condition factor on evidence")
		}

		if cf.IsScalar() {
			v := cf.Values[0]
			if v <= 0 {
				logConst = math.Inf(-1)
			} else if !math.IsInf(logConst, -1) {
				logConst += math.Log(v)
			}
			continue
		}

		relabeled, err := relabelFactor(cf, oldToNew)
		if err != nil {
			return nil, nil, 0, err
		}
		newFuncs = append(newFuncs, relabeled)
	}

	newModel, err := NewGraphicalModel(m.Type, m.Name+"|evidence", newVars, newFuncs)
	if err != nil {
		return nil, nil, 0, err
	}

	return newModel, oldToNew, logConst, nil
}

// relabelFactor rewrites a factor's scope labels through oldToNew, keeping
// values unchanged (the relative stride order is preserved because oldToNew
// is order-preserving on surviving labels).
func relabelFactor(f *Factor, oldToNew map[int]int) (*Factor, error) {
	oldVars := f.Scope.Vars()
	newVars := make([]Variable, len(oldVars))
	for i, v := range oldVars {
		nl, ok := oldToNew[v.Label]
		if !ok {
			return nil, errors.Errorf("variable %d missing from evidence relabeling", v.Label)
		}
		newVars[i] = Variable{Label: nl, Card: v.Card}
	}
	scope, err := NewVariableSet(newVars...)
	if err != nil {
		return nil, err
	}
	// oldToNew preserves ascending order (both old and new variable sets are
	// sorted by label and the mapping is monotone), so the existing value
	// layout is still valid for the relabeled scope's strides.
	return NewFactorFromValues(scope, f.Values)
}

// AugmentWithIndicator appends one fresh auxiliary binary variable U with
// P(U=0|X=k)=likelihood[k] for a virtual observation on X, returning the
// augmented model and U's label. Observing U=0 is left to the caller's
// evidence vector. This is the auxiliary-indicator construction behind
// invariant #8.
func (m *GraphicalModel) AugmentWithIndicator(obs VirtualObservation) (*GraphicalModel, int, error) {
	x, err := m.VarByLabel(obs.Label)
	if err != nil {
		return nil, 0, err
	}
	if len(obs.Likelihood) != x.Card {
		return nil, 0, errors.Errorf("likelihood length %d does not match variable %d cardinality %d", len(obs.Likelihood), x.Label, x.Card)
	}

	uLabel := 0
	for _, v := range m.Vars {
		if v.Label >= uLabel {
			uLabel = v.Label + 1
		}
	}
	u := Variable{Label: uLabel, Card: 2}

	scope, err := NewVariableSet(x, u)
	if err != nil {
		return nil, 0, err
	}
	uFactor := NewFactor(scope)
	uFactor.ChildTag = u.Label
	for k := 0; k < x.Card; k++ {
		idx0, _ := uFactor.IndexOf(map[int]int{x.Label: k, u.Label: 0})
		idx1, _ := uFactor.IndexOf(map[int]int{x.Label: k, u.Label: 1})
		uFactor.Values[idx0] = obs.Likelihood[k]
		uFactor.Values[idx1] = 1 - obs.Likelihood[k]
	}

	newVars := append(append([]Variable(nil), m.Vars...), u)
	newFuncs := append(append([]*Factor(nil), m.Funcs...), uFactor)
	newModel, err := NewGraphicalModel(m.Type, m.Name, newVars, newFuncs)
	if err != nil {
		return nil, 0, err
	}
	return newModel, u.Label, nil
}

// UniformBayes (re)initializes every child-tagged factor's CPT rows to the
// uniform distribution over the child's cardinality.
func (m *GraphicalModel) UniformBayes() {
	for _, f := range m.Funcs {
		if f.ChildTag < 0 {
			continue
		}
		fillUniformRows(f)
	}
}

// RandomBayes (re)initializes every child-tagged factor's CPT rows to a
// Dirichlet(1,...,1)-style random draw (positive, summing to 1) using gen.
func (m *GraphicalModel) RandomBayes(gen *rand.Generator) {
	for _, f := range m.Funcs {
		if f.ChildTag < 0 {
			continue
		}
		fillRandomRows(f, gen)
	}
}

// forEachRow walks every "parent configuration" row of a child-tagged
// factor, invoking fn with the slice of value-indices belonging to that row
// (one index per value of the child, in child-value order).
func forEachRow(f *Factor, fn func(rowIdx []int)) {
	childPos, ok := f.Scope.IndexOf(f.ChildTag)
	if !ok {
		return
	}
	child := f.Scope.Vars()[childPos]
	parentScope := f.Scope.Difference(mustVarSet(child))
	pvars := parentScope.Vars()
	fvars := f.Scope.Vars()

	rows := parentScope.NumStates()
	pcur := make([]int, len(pvars))
	pstrides := computeStrides(parentScope)

	for r := 0; r < rows; r++ {
		decompose(pvars, pstrides, r, pcur)
		rowIdx := make([]int, child.Card)
		for k := 0; k < child.Card; k++ {
			full := insertAt(pcur, pvars, fvars, childPos, k)
			rowIdx[k] = composeIndex(f.Strides, full)
		}
		fn(rowIdx)
	}
}

func fillUniformRows(f *Factor) {
	forEachRow(f, func(rowIdx []int) {
		p := 1.0 / float64(len(rowIdx))
		for _, idx := range rowIdx {
			f.Values[idx] = p
		}
	})
}

func fillRandomRows(f *Factor, gen *rand.Generator) {
	forEachRow(f, func(rowIdx []int) {
		draws := make([]float64, len(rowIdx))
		sum := 0.0
		for i := range draws {
			// Dirichlet(1,...,1) via normalized Exp(1) draws.
			u := gen.Float64()
			if u <= 0 {
				u = 1e-12
			}
			draws[i] = -math.Log(u)
			sum += draws[i]
		}
		for i, idx := range rowIdx {
			f.Values[idx] = draws[i] / sum
		}
	})
}
