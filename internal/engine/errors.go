package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/popdyn/internal/kinetics"
	"github.com/roach88/popdyn/internal/model"
)

// RuntimeError represents an error detected during a simulation run.
//
// Runtime errors include:
//   - Unknown transition type: type outside LINEAR, SOLUTE, BLEND
//   - Invalid block: a block expression that does not parse, when block
//     scaling is enabled
//   - Negative delay: an entry that reads ahead of the current step
//
// Every runtime error is fatal: the run stops and the table is left as
// computed up to the failing step.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Task names the task being run.
	Task string

	// TransitionID identifies the offending transition.
	TransitionID model.TransitionID

	// Step is the step being advanced from when the error occurred.
	Step int

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownTransitionType indicates a type outside the closed set.
	ErrCodeUnknownTransitionType RuntimeErrorCode = "UNKNOWN_TRANSITION_TYPE"

	// ErrCodeInvalidBlock indicates a block expression that does not parse.
	ErrCodeInvalidBlock RuntimeErrorCode = "INVALID_BLOCK"

	// ErrCodeNegativeDelay indicates an entry with a delay below zero.
	ErrCodeNegativeDelay RuntimeErrorCode = "NEGATIVE_DELAY"

	// ErrCodeInternal indicates a failure that is not a modelling error.
	ErrCodeInternal RuntimeErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (task=%s, transition=%d, step=%d)", e.Code, e.Message, e.Task, e.TransitionID, e.Step)
	}
	return fmt.Sprintf("%s: %s (transition=%d, step=%d)", e.Code, e.Message, e.TransitionID, e.Step)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsUnknownTransitionType returns true if the error is an unknown
// transition type, whether raised by the engine or by kinetics directly.
// Uses errors.As to handle wrapped errors.
func IsUnknownTransitionType(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownTransitionType
	}
	return errors.Is(err, kinetics.ErrUnknownTransitionType)
}

// IsInvalidBlock returns true if the error is an invalid block expression.
func IsInvalidBlock(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidBlock
	}
	return false
}

// IsNegativeDelay returns true if the error is a negative entry delay.
func IsNegativeDelay(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNegativeDelay
	}
	return false
}

// newTransitionError classifies an error raised while applying tr.
func newTransitionError(task string, tr *model.Transition, step int, err error) *RuntimeError {
	if errors.Is(err, kinetics.ErrUnknownTransitionType) {
		return &RuntimeError{
			Code:         ErrCodeUnknownTransitionType,
			Message:      fmt.Sprintf("transition type %q is not LINEAR, SOLUTE or BLEND", tr.Type),
			Task:         task,
			TransitionID: tr.ID,
			Step:         step,
			Err:          err,
		}
	}
	return &RuntimeError{
		Code:         ErrCodeInternal,
		Message:      err.Error(),
		Task:         task,
		TransitionID: tr.ID,
		Step:         step,
		Err:          err,
	}
}

// NewInvalidBlockError creates a RuntimeError for a block that does not parse.
func NewInvalidBlockError(task string, tr *model.Transition) *RuntimeError {
	return &RuntimeError{
		Code:         ErrCodeInvalidBlock,
		Message:      fmt.Sprintf("block expression %q is not a constant, linear or exponential form in t", tr.Block),
		Task:         task,
		TransitionID: tr.ID,
	}
}

// NewNegativeDelayError creates a RuntimeError for an entry reading ahead
// of the current step.
func NewNegativeDelayError(task string, tr *model.Transition, entry *model.StateInTransition) *RuntimeError {
	return &RuntimeError{
		Code:         ErrCodeNegativeDelay,
		Message:      fmt.Sprintf("entry for state %s has delay %d, want >= 0", entry.State, entry.Delay),
		Task:         task,
		TransitionID: tr.ID,
	}
}
