package model

// Index arithmetic for a VariableSet's dense table storage. Variables are
// kept ascending by label; per spec the lowest-label variable gets the
// lowest stride (varies fastest as the linear index increases).

// computeStrides returns the stride for each variable in vs, in the same
// (ascending) order as vs.Vars().
func computeStrides(vs *VariableSet) []int {
	vars := vs.Vars()
	strides := make([]int, len(vars))
	s := 1
	for i, v := range vars {
		strides[i] = s
		s *= v.Card
	}
	return strides
}

// decompose fills dst (len == len(strides)) with the per-variable value for
// linear index idx, in ascending-label order. dst must be pre-sized.
func decompose(vars []Variable, strides []int, idx int, dst []int) {
	for i := len(vars) - 1; i >= 0; i-- {
		dst[i] = idx / strides[i]
		idx -= dst[i] * strides[i]
	}
}

// composeIndex is the inverse of decompose: given per-variable values in the
// same ascending order as strides, compute the linear index.
func composeIndex(strides []int, vals []int) int {
	idx := 0
	for i, s := range strides {
		idx += vals[i] * s
	}
	return idx
}

// subIndex computes the linear index into a factor with scope sub/subStrides
// given a full assignment (fullVars, fullVals) that is a superset of sub's
// scope. It looks up, for each of sub's variables, its position in fullVars.
func subIndex(subVars []Variable, subStrides []int, fullVars []Variable, fullVals []int) int {
	idx := 0
	fi := 0
	for i, sv := range subVars {
		// fullVars is ascending; sub's vars are a subset, so fi only advances.
		for fi < len(fullVars) && fullVars[fi].Label != sv.Label {
			fi++
		}
		idx += fullVals[fi] * subStrides[i]
	}
	return idx
}
