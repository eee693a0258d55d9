package model

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
)

// Model type constants, matching the UAI format header.
const (
	BAYES  = "BAYES"
	MARKOV = "MARKOV"
)

// Reader implementors instantiate a GraphicalModel from a byte stream and
// optionally apply evidence/virtual-evidence/query selections from further
// streams. The file-format concerns live behind this interface per spec;
// UAIReader is the one concrete implementation this repo ships.
type Reader interface {
	ReadModel(data []byte) (*GraphicalModel, error)
	ApplyEvidence(data []byte, m *GraphicalModel) error
	ApplyVirtualEvidence(data []byte) ([]VirtualObservation, error)
	ReadQuery(data []byte) ([]int, error)
}

// GraphicalModel is an ordered sequence of Factors over a set of Variables,
// plus the derived with_variable index (§3).
type GraphicalModel struct {
	Type  string
	Name  string
	Vars     []Variable
	Funcs    []*Factor
	Evidence EvidenceVector // nil or -1 per label means "unobserved"

	withVariable map[int][]int // variable label -> indices into Funcs
}

// NewGraphicalModel builds a model and its derived indices.
func NewGraphicalModel(typ, name string, vars []Variable, funcs []*Factor) (*GraphicalModel, error) {
	m := &GraphicalModel{Type: typ, Name: name, Vars: vars, Funcs: funcs}
	m.reindex()
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GraphicalModel) reindex() {
	m.withVariable = make(map[int][]int, len(m.Vars))
	for _, v := range m.Vars {
		m.withVariable[v.Label] = nil
	}
	for i, f := range m.Funcs {
		for _, v := range f.Scope.Vars() {
			m.withVariable[v.Label] = append(m.withVariable[v.Label], i)
		}
	}
}

// WithVariable returns the indices of factors whose scope contains the
// variable with the given label.
func (m *GraphicalModel) WithVariable(label int) []int {
	return m.withVariable[label]
}

// VarByLabel returns the Variable with the given label.
func (m *GraphicalModel) VarByLabel(label int) (Variable, error) {
	for _, v := range m.Vars {
		if v.Label == label {
			return v, nil
		}
	}
	return Variable{}, errors.Errorf("no variable with label %d", label)
}

// Clone returns a deep copy of the model.
func (m *GraphicalModel) Clone() *GraphicalModel {
	cp := &GraphicalModel{
		Type:     m.Type,
		Name:     m.Name,
		Vars:     append([]Variable(nil), m.Vars...),
		Funcs:    make([]*Factor, len(m.Funcs)),
		Evidence: append(EvidenceVector(nil), m.Evidence...),
	}
	for i, f := range m.Funcs {
		cp.Funcs[i] = f.Clone()
	}
	cp.reindex()
	return cp
}

// Check validates model-level invariants: every factor scope variable is
// declared, labels are unique, and every factor is internally consistent.
func (m *GraphicalModel) Check() error {
	if m.Type != BAYES && m.Type != MARKOV {
		return errors.Errorf("unknown model type %q", m.Type)
	}

	seen := make(map[int]bool, len(m.Vars))
	for _, v := range m.Vars {
		if err := v.Check(); err != nil {
			return errors.Wrapf(err, "model %s has an invalid variable", m.Name)
		}
		if seen[v.Label] {
			return errors.Errorf("duplicate variable label %d", v.Label)
		}
		seen[v.Label] = true
	}

	for i, f := range m.Funcs {
		if err := f.Check(); err != nil {
			return errors.Wrapf(err, "model %s has an invalid factor %d", m.Name, i)
		}
		for _, v := range f.Scope.Vars() {
			if !seen[v.Label] {
				return errors.Errorf("factor %d references undeclared variable %d", i, v.Label)
			}
		}
	}

	return nil
}

// NewModelFromFile reads a model and, if requested, its matching .evid file.
func NewModelFromFile(r Reader, filename string, useEvidence bool) (*GraphicalModel, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read model from %s", filename)
	}

	m, err := NewModelFromBuffer(r, data)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	m.Name = filename[:len(filename)-len(ext)]

	if useEvidence {
		if err := m.ApplyEvidenceFromFile(r, filename+".evid"); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// NewModelFromBuffer parses and validates a model from already-read bytes.
func NewModelFromBuffer(r Reader, data []byte) (*GraphicalModel, error) {
	m, err := r.ReadModel(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse model")
	}
	if err := m.Check(); err != nil {
		return nil, errors.Wrap(err, "parsed model is not valid")
	}
	return m, nil
}

// ApplyEvidenceFromFile reads and applies an evidence file, recorded as an
// EvidenceVector on the model.
func (m *GraphicalModel) ApplyEvidenceFromFile(r Reader, filename string) error {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "could not read evidence from %s", filename)
	}
	if err := r.ApplyEvidence(data, m); err != nil {
		return errors.Wrapf(err, "could not apply evidence to model %s", m.Name)
	}
	return nil
}
