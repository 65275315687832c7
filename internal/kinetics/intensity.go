package kinetics

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/popdyn/internal/model"
)

// ErrUnknownTransitionType is returned for a type outside LINEAR, SOLUTE
// and BLEND. It aborts any computation that meets it.
var ErrUnknownTransitionType = errors.New("unknown transition type")

func unknownType(tr *model.Transition) error {
	return fmt.Errorf("transition %d: %w %q", tr.ID, ErrUnknownTransitionType, tr.Type)
}

// TotalCount returns the population a transition's rate is scaled against.
//
//	LINEAR  1
//	SOLUTE  sum of all task states
//	BLEND   sum of the transition's own distinct states
//
// Totals are read at the current step, without delay.
func TotalCount(tr *model.Transition, c Counts) (float64, error) {
	switch tr.Type {
	case model.Linear:
		return 1, nil
	case model.Solute:
		return c.Population(), nil
	case model.Blend:
		var total float64
		for _, s := range tr.DistinctStates() {
			total += c.At(s, 0)
		}
		return total, nil
	default:
		return 0, unknownType(tr)
	}
}

// Intensity returns the instantaneous rate multiplier of a transition,
// before probability and total-count scaling.
//
// LINEAR is the rate-limiting reagent model: the minimum over entries of
// count/in, or count - count/in for inhibitors. With no entries it is 0.
//
// SOLUTE and BLEND are mass action: the product over entries of
// count^in / in! / total^in, or one minus that for inhibitors. With no
// entries it is 1.
func Intensity(tr *model.Transition, c Counts) (float64, error) {
	switch tr.Type {
	case model.Linear:
		return linearIntensity(tr, c), nil
	case model.Solute, model.Blend:
		total, err := TotalCount(tr, c)
		if err != nil {
			return 0, err
		}
		return massActionIntensity(tr, c, total), nil
	default:
		return 0, unknownType(tr)
	}
}

func linearIntensity(tr *model.Transition, c Counts) float64 {
	intensity := math.Inf(1)
	found := false
	for _, e := range tr.ActualStates() {
		if e.In <= 0 {
			continue
		}
		count := c.At(e.State, e.Delay)
		v := count / e.In
		if e.Mode == model.Inhibitor {
			v = count - v
		}
		if !found || v < intensity {
			intensity = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return intensity
}

func massActionIntensity(tr *model.Transition, c Counts, total float64) float64 {
	intensity := 1.0
	for _, e := range tr.ActualStates() {
		if e.In <= 0 {
			continue
		}
		term := MassActionTerm(c.At(e.State, e.Delay), e.In, total)
		if e.Mode == model.Inhibitor {
			term = 1 - term
		}
		intensity *= term
	}
	return intensity
}

// MassActionTerm returns count^in / in! / total^in, or 0 when total is 0.
func MassActionTerm(count, in, total float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Pow(count, in) / Factorial(in) / math.Pow(total, in)
}

// Rate returns probability × intensity × totalCount, the per-unit rate a
// transition applies before the entry coefficient (out - in).
func Rate(tr *model.Transition, c Counts) (float64, error) {
	intensity, err := Intensity(tr, c)
	if err != nil {
		return 0, err
	}
	total, err := TotalCount(tr, c)
	if err != nil {
		return 0, err
	}
	return tr.Probability * intensity * total, nil
}
