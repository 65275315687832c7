package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/timeexpr"
)

// Validation error codes (E100-E199)
const (
	// Task errors (E101-E104)
	ErrTaskNoStates   = "E101" // at least one state required
	ErrNegativeSteps  = "E102" // steps must be >= 0
	ErrDuplicateName  = "E103" // duplicate state/transition name or alias
	ErrNonFiniteCount = "E104" // state count is NaN or infinite

	// Transition errors (E110-E118)
	ErrInvalidType         = "E110" // type outside LINEAR/SOLUTE/BLEND
	ErrInvalidProbability  = "E111" // probability negative or not finite
	ErrInvalidBlock        = "E112" // block is not a time expression
	ErrNoEntries           = "E113" // transition references no state
	ErrForeignState        = "E114" // entry references a state outside the task
	ErrInvalidMode         = "E115" // mode outside SIMPLE/INHIBITOR/RESIDUAL
	ErrNegativeDelay       = "E116" // delay must be >= 0
	ErrNegativeCoefficient = "E117" // in/out must be >= 0
	ErrDuplicateEntry      = "E118" // state listed twice in one transition
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled task against the modelling rules.
// Returns all errors found (does not fail-fast).
func Validate(task *model.Task) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E101: at least one state
	if len(task.States) == 0 {
		add(ErrTaskNoStates, "state", "at least one state is required")
	}

	// E102: steps non-negative
	if task.Steps < 0 {
		add(ErrNegativeSteps, "steps", "steps must be non-negative, got %d", task.Steps)
	}

	// Names and aliases share one namespace since entries resolve either.
	names := make(map[string]string)
	owned := make(map[model.StateID]bool)
	for i, s := range task.States {
		field := fmt.Sprintf("state[%d]", i)
		owned[s.ID] = true

		labels := []string{s.Name}
		if s.Alias != "" && s.Alias != s.Name {
			labels = append(labels, s.Alias)
		}
		for _, n := range labels {
			if prev, ok := names[n]; ok {
				add(ErrDuplicateName, field, "name %q is already used by state %q", n, prev)
				continue
			}
			names[n] = s.Name
		}

		// E104: counts must be finite
		if math.IsNaN(s.Count) || math.IsInf(s.Count, 0) {
			add(ErrNonFiniteCount, field+".count", "state %q has non-finite count %v", s.Name, s.Count)
		}
	}

	trNames := make(map[string]bool)
	for i, tr := range task.Transitions {
		field := fmt.Sprintf("transition[%d]", i)
		if tr.Name != "" {
			field = "transition." + tr.Name
			if trNames[tr.Name] {
				add(ErrDuplicateName, field, "duplicate transition name %q", tr.Name)
			}
			trNames[tr.Name] = true
		}

		// E110: closed set of types
		if !tr.Type.Valid() {
			add(ErrInvalidType, field+".type", "unknown transition type %q, must be one of %s",
				tr.Type, strings.Join([]string{string(model.Linear), string(model.Solute), string(model.Blend)}, ", "))
		}

		// E111: probability
		if tr.Probability < 0 || math.IsNaN(tr.Probability) || math.IsInf(tr.Probability, 0) {
			add(ErrInvalidProbability, field+".probability", "probability must be a finite non-negative number, got %v", tr.Probability)
		}

		// E112: block expression
		if tr.Block != "" && !timeexpr.Valid(tr.Block) {
			add(ErrInvalidBlock, field+".block", "block %q is not a constant, linear or exponential form in t", tr.Block)
		}

		// E113: at least one actual entry
		if len(tr.ActualStates()) == 0 {
			add(ErrNoEntries, field+".states", "transition must reference at least one state")
		}

		seen := make(map[model.StateID]bool)
		for j, e := range tr.ActualStates() {
			efield := fmt.Sprintf("%s.states[%d]", field, j)

			// E114: entries point into the task
			if !owned[e.State.ID] {
				add(ErrForeignState, efield+".state", "state %s is not part of the task", e.State)
			}

			// E118: one entry per state
			if seen[e.State.ID] {
				add(ErrDuplicateEntry, efield+".state", "state %q is listed more than once", e.State.Name)
			}
			seen[e.State.ID] = true

			// E115: closed set of modes
			if !e.Mode.Valid() {
				add(ErrInvalidMode, efield+".mode", "unknown mode %q, must be SIMPLE, INHIBITOR or RESIDUAL", e.Mode)
			}

			// E116: delays look back only
			if e.Delay < 0 {
				add(ErrNegativeDelay, efield+".delay", "delay must be non-negative, got %d", e.Delay)
			}

			// E117: coefficients
			if e.In < 0 || e.Out < 0 {
				add(ErrNegativeCoefficient, efield, "in and out must be non-negative, got in=%v out=%v", e.In, e.Out)
			}
		}
	}

	return errs
}
