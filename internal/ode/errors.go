package ode

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVariable is returned when an evaluation reads a variable
	// that has no value.
	ErrMissingVariable = errors.New("ode: missing variable")

	// ErrMalformed is returned for token sequences that do not form a
	// single expression.
	ErrMalformed = errors.New("ode: malformed expression")
)

func missing(v Variable) error {
	return fmt.Errorf("%w: state %d delay %d", ErrMissingVariable, v.State, v.Delay)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
