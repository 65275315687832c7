package ode

import (
	"fmt"
	"strings"

	"github.com/roach88/popdyn/internal/model"
)

// Equation is the per-step change of one state.
type Equation struct {
	State   model.StateID
	Name    string
	Root    NodeID
	Infix   []Token
	Postfix []Token
}

// Var returns the equation's designated variable: its state at delay 0.
func (e Equation) Var() Variable {
	return Variable{State: e.State}
}

// System is a task's equations plus every variable they read.
type System struct {
	Arena     *Arena
	Equations []Equation
	Variables []Variable
}

// Evaluate computes every equation from one snapshot of values, in
// equation order.
func (s *System) Evaluate(values Values) ([]float64, error) {
	out := make([]float64, len(s.Equations))
	for i, eq := range s.Equations {
		v, err := Eval(eq.Postfix, values)
		if err != nil {
			return nil, fmt.Errorf("equation %s: %w", eq.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// String renders one "d(name) = ..." line per equation.
func (s *System) String() string {
	var b strings.Builder
	for _, eq := range s.Equations {
		fmt.Fprintf(&b, "d(%s) = %s\n", eq.Name, Format(eq.Infix))
	}
	return b.String()
}

// PostfixString renders one "name: ..." line per equation.
func (s *System) PostfixString() string {
	var b strings.Builder
	for _, eq := range s.Equations {
		fmt.Fprintf(&b, "%s: %s\n", eq.Name, Format(eq.Postfix))
	}
	return b.String()
}
