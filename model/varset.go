package model

import (
	"sort"

	"github.com/pkg/errors"
)

// VariableSet is a set of Variables kept in ascending label order. It is the
// scope of a Factor, a cluster, or a query.
type VariableSet struct {
	vars []Variable
}

// NewVariableSet builds a VariableSet from the given variables, sorting by
// label and removing duplicates (by label - later duplicates are dropped).
func NewVariableSet(vars ...Variable) (*VariableSet, error) {
	for _, v := range vars {
		if err := v.Check(); err != nil {
			return nil, errors.Wrap(err, "invalid variable in set")
		}
	}

	cp := make([]Variable, len(vars))
	copy(cp, vars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Label < cp[j].Label })

	out := cp[:0]
	for i, v := range cp {
		if i > 0 && v.Label == out[len(out)-1].Label {
			continue
		}
		out = append(out, v)
	}

	return &VariableSet{vars: out}, nil
}

// EmptyVariableSet returns a VariableSet with no variables (a scalar scope).
func EmptyVariableSet() *VariableSet {
	return &VariableSet{}
}

// Vars returns the variables in ascending label order. Callers must not
// mutate the returned slice.
func (vs *VariableSet) Vars() []Variable {
	return vs.vars
}

// Size returns the number of variables in the set.
func (vs *VariableSet) Size() int {
	return len(vs.vars)
}

// NumStates returns the product of cardinalities - the number of joint
// states/table rows for this scope. An empty scope has exactly 1 state.
func (vs *VariableSet) NumStates() int {
	n := 1
	for _, v := range vs.vars {
		n *= v.Card
	}
	return n
}

// Contains returns true if the set contains a variable with the given label.
func (vs *VariableSet) Contains(label int) bool {
	_, ok := vs.IndexOf(label)
	return ok
}

// IndexOf returns the position of a label in the ascending order, if present.
func (vs *VariableSet) IndexOf(label int) (int, bool) {
	lo, hi := 0, len(vs.vars)
	for lo < hi {
		mid := (lo + hi) / 2
		if vs.vars[mid].Label < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(vs.vars) && vs.vars[lo].Label == label {
		return lo, true
	}
	return -1, false
}

// Labels returns the ascending list of variable labels.
func (vs *VariableSet) Labels() []int {
	out := make([]int, len(vs.vars))
	for i, v := range vs.vars {
		out[i] = v.Label
	}
	return out
}

// Union returns a new VariableSet that is the union of vs and other.
func (vs *VariableSet) Union(other *VariableSet) *VariableSet {
	merged := make([]Variable, 0, len(vs.vars)+len(other.vars))
	merged = append(merged, vs.vars...)
	merged = append(merged, other.vars...)
	out, _ := NewVariableSet(merged...) // inputs already valid, error impossible
	return out
}

// Intersect returns a new VariableSet containing variables present in both.
func (vs *VariableSet) Intersect(other *VariableSet) *VariableSet {
	out := make([]Variable, 0)
	for _, v := range vs.vars {
		if other.Contains(v.Label) {
			out = append(out, v)
		}
	}
	r, _ := NewVariableSet(out...)
	return r
}

// Difference returns a new VariableSet with the variables of vs that are not
// present in other.
func (vs *VariableSet) Difference(other *VariableSet) *VariableSet {
	out := make([]Variable, 0)
	for _, v := range vs.vars {
		if !other.Contains(v.Label) {
			out = append(out, v)
		}
	}
	r, _ := NewVariableSet(out...)
	return r
}

// Equals returns true if both sets contain exactly the same labels.
func (vs *VariableSet) Equals(other *VariableSet) bool {
	if len(vs.vars) != len(other.vars) {
		return false
	}
	for i, v := range vs.vars {
		if v.Label != other.vars[i].Label {
			return false
		}
	}
	return true
}

// Subset returns true if every variable of vs is present in other.
func (vs *VariableSet) Subset(other *VariableSet) bool {
	for _, v := range vs.vars {
		if !other.Contains(v.Label) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy (cheap, since Variable is a value type).
func (vs *VariableSet) Clone() *VariableSet {
	cp := make([]Variable, len(vs.vars))
	copy(cp, vs.vars)
	return &VariableSet{vars: cp}
}
