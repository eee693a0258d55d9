package model

import (
	"github.com/pkg/errors"
)

// Variable is a labeled discrete random variable. Identity is Label; two
// Variables with the same Label are considered the same variable regardless
// of Card (construction is responsible for keeping Card consistent across a
// GraphicalModel).
type Variable struct {
	Label int // Nonnegative identifier, stable across a GraphicalModel instance
	Card  int // Cardinality: values range over 0..Card-1
}

// NewVariable creates a Variable, checking the usual constraints.
func NewVariable(label, card int) (Variable, error) {
	v := Variable{Label: label, Card: card}
	if err := v.Check(); err != nil {
		return Variable{}, err
	}
	return v, nil
}

// Check returns an error if the Variable is not well-formed.
func (v Variable) Check() error {
	if v.Label < 0 {
		return errors.Errorf("variable label %d must be >= 0", v.Label)
	}
	if v.Card < 1 {
		return errors.Errorf("variable %d has invalid cardinality %d", v.Label, v.Card)
	}
	return nil
}

// Name returns a spreadsheet-column-style display name for the variable,
// matching the teacher's letter26 convention (0=A, 1=B, ..., 25=Z, 26=AA...).
func (v Variable) Name() string {
	return letter26(v.Label)
}

func divmod(numerator, denominator int) (quotient, remainder int) {
	quotient = numerator / denominator
	remainder = numerator % denominator
	return
}

// letter26 is base-26 with only letters, 0=A and ZZ+1=AAA.
func letter26(n int) string {
	if n == 0 {
		return "A"
	}
	n++

	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits := make([]byte, 0, 8)
	var remain int
	for n > 0 {
		n, remain = divmod(n-1, 26)
		digits = append(digits, letters[remain])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return string(digits)
}
