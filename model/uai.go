package model

import (
	"strings"

	"github.com/pkg/errors"
)

// UAIReader reads the UAI inference competition file format, generalized
// from the teacher's model/uai.go to the full factor/evidence/virtual
// evidence/query surface §6 describes. Per spec §1 this file-format layer
// is an external-collaborator interface, not a place for algorithmic work:
// it exists to get models in and solutions out, nothing more.
type UAIReader struct{}

// uaiPreprocess strips blank lines and 'c'-prefixed comments, optionally
// dropping everything before the first line with the given prefix.
func uaiPreprocess(data []byte, reqPrefix string) (string, int) {
	lines := strings.Split(string(data), "\n")

	startFound := len(reqPrefix) < 1
	newPos := 0
	for i, ln := range lines {
		ln = strings.TrimSpace(ln)
		if len(ln) < 1 || ln[0] == 'c' {
			lines[i] = ""
			continue
		}
		if !startFound {
			if strings.HasPrefix(ln, reqPrefix) {
				startFound = true
			} else {
				continue
			}
		}
		lines[newPos] = ln
		newPos++
	}

	return strings.Join(lines[:newPos], "\n"), newPos
}

func declStrides(vars []Variable) []int {
	n := len(vars)
	strides := make([]int, n)
	s := 1
	for i := n - 1; i >= 0; i-- {
		strides[i] = s
		s *= vars[i].Card
	}
	return strides
}

func declDecompose(vars []Variable, strides []int, idx int) []int {
	vals := make([]int, len(vars))
	for i := range vars {
		vals[i] = idx / strides[i]
		idx -= vals[i] * strides[i]
	}
	return vals
}

// reorderTable takes a UAI-declared variable order (possibly not ascending
// by label) and its row-major table (last declared variable fastest), and
// returns the equivalent Factor in this package's canonical ascending-label
// stride order.
func reorderTable(declVars []Variable, table []float64) (*Factor, error) {
	scope, err := NewVariableSet(declVars...)
	if err != nil {
		return nil, err
	}
	f := NewFactor(scope)
	if len(table) != len(f.Values) {
		return nil, errors.Errorf("table has %d entries, expected %d", len(table), len(f.Values))
	}

	strides := declStrides(declVars)
	for t, val := range table {
		vals := declDecompose(declVars, strides, t)
		assign := make(map[int]int, len(declVars))
		for i, v := range declVars {
			assign[v.Label] = vals[i]
		}
		idx, err := f.IndexOf(assign)
		if err != nil {
			return nil, err
		}
		f.Values[idx] = val
	}

	return f, nil
}

// ReadModel implements model.Reader.
func (r UAIReader) ReadModel(data []byte) (*GraphicalModel, error) {
	if len(data) < 15 {
		return nil, errors.Errorf("invalid data buffer: len=%d (<15)", len(data))
	}

	text, lineCount := uaiPreprocess(data, "")
	if lineCount < 1 {
		return nil, errors.New("no lines found in file")
	}
	fr := NewFieldReader(text)
	if len(fr.Fields) < 6 {
		return nil, errors.Errorf("invalid data: only %d fields found (<6)", len(fr.Fields))
	}

	typ, err := fr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "error reading UAI type")
	}
	if typ != BAYES && typ != MARKOV {
		return nil, errors.Errorf("unknown model type %v", typ)
	}

	varCount, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading variable count")
	}
	if varCount < 1 {
		return nil, errors.Errorf("invalid variable count: %d", varCount)
	}

	vars := make([]Variable, varCount)
	for i := 0; i < varCount; i++ {
		card, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading card for var %d", i)
		}
		v, err := NewVariable(i, card)
		if err != nil {
			return nil, errors.Wrap(err, "could not create variable from UAI file")
		}
		vars[i] = v
	}

	funcCount, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading clique count")
	}
	if funcCount < 1 {
		return nil, errors.Errorf("invalid clique count: %d", funcCount)
	}

	declScopes := make([][]Variable, funcCount)
	childTags := make([]int, funcCount)
	for i := 0; i < funcCount; i++ {
		k, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading clique size for clique %d", i)
		}
		if k < 1 {
			return nil, errors.Errorf("invalid variable count (<1) for clique %d", i)
		}

		decl := make([]Variable, k)
		for j := 0; j < k; j++ {
			idx, err := fr.ReadInt()
			if err != nil {
				return nil, errors.Wrapf(err, "error reading var idx for clique %d variable %d", i, j)
			}
			if idx < 0 || idx >= len(vars) {
				return nil, errors.Errorf("invalid var idx %d for clique %d variable %d", idx, i, j)
			}
			decl[j] = vars[idx]
		}
		declScopes[i] = decl
		childTags[i] = -1
		if typ == BAYES {
			childTags[i] = decl[0].Label
		}
	}

	funcs := make([]*Factor, funcCount)
	for i := 0; i < funcCount; i++ {
		tabSize, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading table size on function %d", i)
		}

		table := make([]float64, tabSize)
		for t := 0; t < tabSize; t++ {
			v, err := fr.ReadFloat()
			if err != nil {
				return nil, errors.Errorf("error reading entry %d on function %d", t, i)
			}
			table[t] = v
		}

		f, err := reorderTable(declScopes[i], table)
		if err != nil {
			return nil, errors.Wrapf(err, "error building function %d", i)
		}
		f.ChildTag = childTags[i]
		funcs[i] = f
	}

	return &GraphicalModel{Type: typ, Vars: vars, Funcs: funcs}, nil
}

// ApplyEvidence implements model.Reader: the evidence file is `n` pairs of
// `var value`, applied via AssertEvidence is left to the caller (this just
// parses and attaches it as m's EvidenceVector).
func (r UAIReader) ApplyEvidence(data []byte, m *GraphicalModel) error {
	ev, err := ParseEvidence(data, len(m.Vars))
	if err != nil {
		return err
	}
	m.Evidence = ev
	return nil
}

// ParseEvidence parses a UAI evidence file: `n` then `n` pairs `var value`.
func ParseEvidence(data []byte, numVars int) (EvidenceVector, error) {
	text, lineCount := uaiPreprocess(data, "")
	if lineCount < 1 {
		return nil, errors.New("invalid data buffer: there is no data")
	}

	fr := NewFieldReader(text)
	if len(fr.Fields) < 1 {
		return nil, errors.New("invalid data: found no fields")
	}

	n, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading evidence variable count")
	}

	ev := make(EvidenceVector, numVars)
	for i := range ev {
		ev[i] = -1
	}

	for i := 0; i < n; i++ {
		idx, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "could not read evidence var on iteration %d", i)
		}
		if idx < 0 || idx >= numVars {
			return nil, errors.Errorf("read invalid variable index %d", idx)
		}
		val, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "could not read evidence value on iteration %d", i)
		}
		ev[idx] = val
	}

	return ev, nil
}

// ApplyVirtualEvidence implements model.Reader: `n` then `n` records
// `var cardinality v0 v1 ... v_{c-1}`.
func (r UAIReader) ApplyVirtualEvidence(data []byte) ([]VirtualObservation, error) {
	text, lineCount := uaiPreprocess(data, "")
	if lineCount < 1 {
		return nil, nil
	}

	fr := NewFieldReader(text)
	n, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading virtual evidence count")
	}

	out := make([]VirtualObservation, n)
	for i := 0; i < n; i++ {
		label, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading virtual evidence var %d", i)
		}
		card, err := fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading virtual evidence cardinality %d", i)
		}
		lik := make([]float64, card)
		for k := 0; k < card; k++ {
			lik[k], err = fr.ReadFloat()
			if err != nil {
				return nil, errors.Wrapf(err, "error reading virtual evidence likelihood %d/%d", i, k)
			}
		}
		out[i] = VirtualObservation{Label: label, Likelihood: lik}
	}

	return out, nil
}

// ReadQuery implements model.Reader: `k` then `k` variable labels.
func (r UAIReader) ReadQuery(data []byte) ([]int, error) {
	text, lineCount := uaiPreprocess(data, "")
	if lineCount < 1 {
		return nil, errors.New("no lines found in query file")
	}

	fr := NewFieldReader(text)
	k, err := fr.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading query variable count")
	}

	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i], err = fr.ReadInt()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading query variable %d", i)
		}
	}
	return out, nil
}
