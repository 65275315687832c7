package engine

import (
	"fmt"

	"github.com/roach88/popdyn/internal/model"
)

// Table is the dense trajectory statesCount[step][stateIndex].
type Table [][]float64

// newTable allocates steps+1 rows of width columns.
func newTable(steps, width int) Table {
	t := make(Table, steps+1)
	for i := range t {
		t[i] = make([]float64, width)
	}
	return t
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	for i, row := range t {
		c[i] = append([]float64(nil), row...)
	}
	return c
}

// Final returns the last row, or nil for an empty table.
func (t Table) Final() []float64 {
	if len(t) == 0 {
		return nil
	}
	return t[len(t)-1]
}

// stepView exposes one row of the table, with delayed lookups, as a
// kinetics.Counts.
type stepView struct {
	table Table
	step  int
	index map[model.StateID]int
}

// At returns the count of s at step-delay, clamped to step 0.
// Panics if s is not a column of the table.
func (v stepView) At(s *model.State, delay int) float64 {
	col, ok := v.index[s.ID]
	if !ok {
		panic(fmt.Sprintf("engine: state %s is not part of the task", s))
	}
	return v.table[clampStep(v.step-delay)][col]
}

// Population sums the current row.
func (v stepView) Population() float64 {
	var total float64
	for _, c := range v.table[v.step] {
		total += c
	}
	return total
}

// clampStep maps lookups before the first step onto step 0.
func clampStep(step int) int {
	if step < 0 {
		return 0
	}
	return step
}
