package model

// StateInTransition is a state's participation record within a transition.
type StateInTransition struct {
	State *State    `json:"-"`
	In    float64   `json:"in"`
	Out   float64   `json:"out"`
	Delay int       `json:"delay"`
	Mode  StateMode `json:"mode"`
}

// Coefficient returns the net effect of the transition on the state.
func (e *StateInTransition) Coefficient() float64 {
	return e.Out - e.In
}

// IsActual reports whether the entry references a real state.
func (e *StateInTransition) IsActual() bool {
	return e != nil && !e.State.IsEmpty()
}

// Transition is a rule describing flow between states.
type Transition struct {
	ID          TransitionID         `json:"id"`
	Name        string               `json:"name,omitempty"`
	Probability float64              `json:"probability"`
	Type        TransitionType       `json:"type"`
	States      []*StateInTransition `json:"states"`
	Block       string               `json:"block,omitempty"`
}

// ActualStates returns the entries that reference a real state, in order.
func (t *Transition) ActualStates() []*StateInTransition {
	actual := make([]*StateInTransition, 0, len(t.States))
	for _, e := range t.States {
		if e.IsActual() {
			actual = append(actual, e)
		}
	}
	return actual
}

// HasResidual reports whether any actual entry is in Residual mode.
func (t *Transition) HasResidual() bool {
	for _, e := range t.ActualStates() {
		if e.Mode == Residual {
			return true
		}
	}
	return false
}

// DistinctStates returns the actual states, each once, in first-appearance order.
func (t *Transition) DistinctStates() []*State {
	seen := make(map[StateID]bool)
	var states []*State
	for _, e := range t.ActualStates() {
		if seen[e.State.ID] {
			continue
		}
		seen[e.State.ID] = true
		states = append(states, e.State)
	}
	return states
}

// hasDuplicateStates reports whether two actual entries share a state.
func (t *Transition) hasDuplicateStates() bool {
	return len(t.DistinctStates()) != len(t.ActualStates())
}

// MaxDelay returns the largest delay over the transition's entries.
func (t *Transition) MaxDelay() int {
	maxDelay := 0
	for _, e := range t.States {
		if e.Delay > maxDelay {
			maxDelay = e.Delay
		}
	}
	return maxDelay
}

// NormalizeStates merges duplicate entries referencing the same state.
//
// Solute and Blend transitions sum in and out. Linear transitions keep the
// largest in and shift out so the summed net flow is unchanged. The first
// entry's delay and mode win. Placeholder entries are dropped.
func (t *Transition) NormalizeStates() {
	merged := make([]*StateInTransition, 0, len(t.States))
	index := make(map[StateID]int)
	net := make(map[StateID]float64)

	for _, e := range t.ActualStates() {
		id := e.State.ID
		net[id] += e.Coefficient()

		i, ok := index[id]
		if !ok {
			index[id] = len(merged)
			c := *e
			merged = append(merged, &c)
			continue
		}

		m := merged[i]
		if t.Type == Linear {
			if e.In > m.In {
				m.In = e.In
			}
		} else {
			m.In += e.In
			m.Out += e.Out
		}
	}

	if t.Type == Linear {
		for _, m := range merged {
			m.Out = m.In + net[m.State.ID]
		}
	}

	t.States = merged
}

// Clone returns a deep copy whose entries point at the states in the given
// map. Entries whose state is missing from the map keep a cloned copy of
// their own state so the result never aliases the source.
func (t *Transition) Clone(states map[StateID]*State) *Transition {
	c := &Transition{
		ID:          t.ID,
		Name:        t.Name,
		Probability: t.Probability,
		Type:        t.Type,
		Block:       t.Block,
		States:      make([]*StateInTransition, len(t.States)),
	}
	for i, e := range t.States {
		ce := *e
		if e.State != nil {
			if s, ok := states[e.State.ID]; ok {
				ce.State = s
			} else {
				ce.State = e.State.Clone()
			}
		}
		c.States[i] = &ce
	}
	return c
}
