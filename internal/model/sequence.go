package model

import "sync/atomic"

// Sequence hands out monotonically increasing identities.
//
// The same sequence is used for states and transitions of a task, so every
// id is unique within it. Safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewSequence creates a sequence whose first id is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence that continues after start.
// Used when importing a task that already carries ids.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last id handed out, or the start value.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}

// NextState returns the next id typed as a StateID.
func (s *Sequence) NextState() StateID {
	return StateID(s.Next())
}

// NextTransition returns the next id typed as a TransitionID.
func (s *Sequence) NextTransition() TransitionID {
	return TransitionID(s.Next())
}
