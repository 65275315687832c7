package model

import (
	"fmt"
	"strings"
)

// Task is the aggregate the engine and the ODE builder consume.
//
// States and Transitions are kept in declaration order; the engine's table
// columns follow States order.
type Task struct {
	Name        string        `json:"name"`
	States      []*State      `json:"states"`
	Transitions []*Transition `json:"transitions"`
	Start       int           `json:"start"`
	Steps       int           `json:"steps"`
}

// MaxDelay returns the largest delay across all entries of all transitions.
func (t *Task) MaxDelay() int {
	maxDelay := 0
	for _, tr := range t.Transitions {
		if d := tr.MaxDelay(); d > maxDelay {
			maxDelay = d
		}
	}
	return maxDelay
}

// StateIndex maps each state id to its column in the engine's table.
func (t *Task) StateIndex() map[StateID]int {
	index := make(map[StateID]int, len(t.States))
	for i, s := range t.States {
		index[s.ID] = i
	}
	return index
}

// StateByName returns the state with the given name or alias, or nil.
func (t *Task) StateByName(name string) *State {
	for _, s := range t.States {
		if s.Name == name {
			return s
		}
	}
	for _, s := range t.States {
		if s.Alias != "" && s.Alias == name {
			return s
		}
	}
	return nil
}

// Snapshot returns the current counts keyed by state name.
func (t *Task) Snapshot() map[string]float64 {
	snap := make(map[string]float64, len(t.States))
	for _, s := range t.States {
		snap[s.Name] = s.Count
	}
	return snap
}

// Clone returns a deep copy. State and transition identities are preserved,
// but no pointer is shared with the source.
func (t *Task) Clone() *Task {
	c := &Task{
		Name:        t.Name,
		Start:       t.Start,
		Steps:       t.Steps,
		States:      make([]*State, len(t.States)),
		Transitions: make([]*Transition, len(t.Transitions)),
	}
	byID := make(map[StateID]*State, len(t.States))
	for i, s := range t.States {
		c.States[i] = s.Clone()
		byID[s.ID] = c.States[i]
	}
	for i, tr := range t.Transitions {
		c.Transitions[i] = tr.Clone(byID)
	}
	return c
}

// ValidationError reports every problem found in a task.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the invariants the engine relies on: unique ids and
// names, known types and modes, non-negative delays and steps, and entries
// that point at states owned by the task.
func (t *Task) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.Steps < 0 {
		add("steps must be non-negative, got %d", t.Steps)
	}

	stateIDs := make(map[StateID]bool)
	names := make(map[string]bool)
	for _, s := range t.States {
		if s.IsEmpty() {
			add("state %q uses the reserved empty id", s.Name)
			continue
		}
		if stateIDs[s.ID] {
			add("duplicate state id %d", s.ID)
		}
		stateIDs[s.ID] = true
		if names[s.Name] {
			add("duplicate state name %q", s.Name)
		}
		names[s.Name] = true
	}

	transitionIDs := make(map[TransitionID]bool)
	for _, tr := range t.Transitions {
		if transitionIDs[tr.ID] {
			add("duplicate transition id %d", tr.ID)
		}
		transitionIDs[tr.ID] = true
		if !tr.Type.Valid() {
			add("transition %d: unknown type %q", tr.ID, tr.Type)
		}
		for i, e := range tr.ActualStates() {
			if !stateIDs[e.State.ID] {
				add("transition %d entry %d: state %d is not part of the task", tr.ID, i, e.State.ID)
			}
			if !e.Mode.Valid() {
				add("transition %d entry %d: unknown mode %q", tr.ID, i, e.Mode)
			}
			if e.Delay < 0 {
				add("transition %d entry %d: negative delay %d", tr.ID, i, e.Delay)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
