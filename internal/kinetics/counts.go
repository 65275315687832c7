package kinetics

import "github.com/roach88/popdyn/internal/model"

// Counts is a read-only view of state counts at one time step.
type Counts interface {
	// At returns the count of s looked up delay steps before the current
	// step. Implementations clamp lookups before the first step.
	At(s *model.State, delay int) float64

	// Population returns the sum of every task state's count at the
	// current step.
	Population() float64
}

// MapCounts is a Counts with no history: delays are ignored.
type MapCounts map[model.StateID]float64

// CountsOf captures the current counts of the given states.
func CountsOf(states []*model.State) MapCounts {
	c := make(MapCounts, len(states))
	for _, s := range states {
		c[s.ID] = s.Count
	}
	return c
}

// At returns the count of s; unknown states count as 0.
func (c MapCounts) At(s *model.State, _ int) float64 {
	return c[s.ID]
}

// Population sums every count in the map.
func (c MapCounts) Population() float64 {
	var total float64
	for _, v := range c {
		total += v
	}
	return total
}
