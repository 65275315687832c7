package ode

import (
	"fmt"

	"github.com/roach88/popdyn/internal/model"
)

// Initial returns the task's current counts in equation order.
func Initial(task *model.Task) []float64 {
	counts := make([]float64, len(task.States))
	for i, s := range task.States {
		counts[i] = s.Count
	}
	return counts
}

// Solve integrates the system with unit forward-Euler steps, keeping the
// whole history so delayed variables can be read. Reads before step 0 see
// step 0. The result has steps+1 rows, one column per equation.
func Solve(sys *System, initial []float64, steps int) ([][]float64, error) {
	if len(initial) != len(sys.Equations) {
		return nil, fmt.Errorf("ode: %d initial values for %d equations", len(initial), len(sys.Equations))
	}
	if steps < 0 {
		steps = 0
	}

	col := make(map[model.StateID]int, len(sys.Equations))
	for i, eq := range sys.Equations {
		col[eq.State] = i
	}
	for _, v := range sys.Variables {
		if _, ok := col[v.State]; !ok {
			return nil, fmt.Errorf("ode: variable of state %d has no equation", v.State)
		}
	}

	rows := make([][]float64, steps+1)
	rows[0] = append([]float64(nil), initial...)
	values := make(Values, len(sys.Variables))

	for t := 0; t < steps; t++ {
		for _, v := range sys.Variables {
			values[v] = rows[max(t-v.Delay, 0)][col[v.State]]
		}
		delta, err := sys.Evaluate(values)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", t, err)
		}
		next := make([]float64, len(initial))
		for i := range next {
			next[i] = rows[t][i] + delta[i]
		}
		rows[t+1] = next
	}
	return rows, nil
}
