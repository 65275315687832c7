package model

import (
	"fmt"
	"strings"
)

// StateID identifies a State within a task.
type StateID int64

// TransitionID identifies a Transition within a task.
type TransitionID int64

// EmptyStateID marks a placeholder state in partially filled transitions.
// Entries pointing at it are never "actual" states.
const EmptyStateID StateID = -1

// State is a named, countable quantity in the model.
type State struct {
	ID    StateID `json:"id"`
	Name  string  `json:"name"`
	Alias string  `json:"alias,omitempty"`
	Count float64 `json:"count"`
}

// EmptyState returns a fresh placeholder state.
func EmptyState() *State {
	return &State{ID: EmptyStateID}
}

// IsEmpty reports whether s is nil or the placeholder state.
func (s *State) IsEmpty() bool {
	return s == nil || s.ID == EmptyStateID
}

// Equal compares states by identity.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID
}

// Clone returns an independent copy with the same identity.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// Label returns the alias when set, otherwise the name.
func (s *State) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

func (s *State) String() string {
	if s.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%s#%d", s.Name, s.ID)
}

// TransitionType selects the intensity formula and total-count normaliser.
type TransitionType string

const (
	// Linear transitions are limited by their scarcest reagent.
	Linear TransitionType = "LINEAR"

	// Solute transitions follow mass action over the whole task population.
	Solute TransitionType = "SOLUTE"

	// Blend transitions follow mass action over their own states only.
	Blend TransitionType = "BLEND"
)

// ValidTransitionTypes defines allowed transition types.
var ValidTransitionTypes = map[TransitionType]bool{
	Linear: true,
	Solute: true,
	Blend:  true,
}

// Valid reports whether t is one of the closed set of types.
func (t TransitionType) Valid() bool {
	return ValidTransitionTypes[t]
}

// ParseTransitionType parses a type name case-insensitively.
func ParseTransitionType(s string) (TransitionType, error) {
	t := TransitionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transition type %q", s)
	}
	return t, nil
}

// StateMode controls how an entry participates in its transition.
type StateMode string

const (
	// Simple entries drive the transition in proportion to their count.
	Simple StateMode = "SIMPLE"

	// Inhibitor entries reduce the transition rate as their count grows.
	Inhibitor StateMode = "INHIBITOR"

	// Residual entries are redistributed in a separate pass.
	Residual StateMode = "RESIDUAL"
)

// ValidStateModes defines allowed entry modes.
var ValidStateModes = map[StateMode]bool{
	Simple:    true,
	Inhibitor: true,
	Residual:  true,
}

// Valid reports whether m is one of the closed set of modes.
func (m StateMode) Valid() bool {
	return ValidStateModes[m]
}

// ParseStateMode parses a mode name case-insensitively.
// The empty string maps to Simple.
func ParseStateMode(s string) (StateMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Simple, nil
	}
	m := StateMode(strings.ToUpper(s))
	if !m.Valid() {
		return "", fmt.Errorf("unknown state mode %q", s)
	}
	return m, nil
}
