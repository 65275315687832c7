package harness

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/ode"
	"github.com/roach88/popdyn/internal/queryir"
	"github.com/roach88/popdyn/internal/store"
)

// Default tolerances per assertion type.
const (
	DefaultCountTolerance     = 1e-6
	DefaultConservedTolerance = 1e-9
	DefaultODETolerance       = 1e-8
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides what assertions need beyond the result.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context

	// Task is the task as it was before the run.
	Task *model.Task

	// BlockScaling reports whether the run scaled rates by block
	// expressions. The symbolic system has no blocks.
	BlockScaling bool
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState, AssertStateAt:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
				break
			}
			step := len(result.Trajectory) - 1
			if assertion.Type == AssertStateAt {
				step = *assertion.Step
			}
			err = assertCounts(actx.Ctx, actx.Store, result.RunID, assertion, step)
		case AssertConserved:
			err = assertConserved(result.Trajectory, assertion)
		case AssertNonNegative:
			err = assertNonNegative(result, assertion)
		case AssertMaxDelay:
			if actx == nil || actx.Task == nil {
				err = fmt.Errorf("assertion[%d]: max_delay requires the task", i)
				break
			}
			err = assertMaxDelay(actx.Task, assertion)
		case AssertODEMatches:
			if actx == nil || actx.Task == nil {
				err = fmt.Errorf("assertion[%d]: ode_matches requires the task", i)
				break
			}
			if actx.BlockScaling && hasBlocks(actx.Task) {
				err = fmt.Errorf("assertion[%d]: ode_matches cannot check a block-scaled run", i)
				break
			}
			err = assertODEMatches(actx.Task, result.Trajectory, assertion)
		case AssertReplayIdentical:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: replay_identical requires a store", i)
				break
			}
			err = assertReplayIdentical(actx.Ctx, actx.Store, result.RunID)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCounts reads one step back from the store and compares the
// expected states within tolerance.
func assertCounts(ctx context.Context, st *store.Store, runID string, assertion Assertion, step int) error {
	names := sortedKeys(assertion.Expect)
	samples, err := st.History(ctx, queryir.Samples{
		RunID: runID,
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.StepRange{From: step, To: step},
			queryir.StateIn{Names: names},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", assertion.Type, err)
	}

	actual := make(map[string]float64, len(samples))
	for _, s := range samples {
		actual[s.State] = s.Count
	}

	tol := tolerance(assertion, DefaultCountTolerance)
	var mismatches []string
	for _, name := range names {
		got, ok := actual[name]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s missing", name))
			continue
		}
		if !within(got, assertion.Expect[name], tol) {
			mismatches = append(mismatches, fmt.Sprintf("%s=%v", name, got))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}

	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("step %d: %s (±%g)", step, formatCounts(assertion.Expect, names), tol),
		Actual:   strings.Join(mismatches, ", "),
	}
}

func assertConserved(table [][]float64, assertion Assertion) error {
	if len(table) == 0 {
		return nil
	}
	tol := tolerance(assertion, DefaultConservedTolerance)
	want := rowSum(table[0])
	for step, row := range table {
		if got := rowSum(row); !within(got, want, tol) {
			return &AssertionError{
				Type:     AssertConserved,
				Expected: fmt.Sprintf("total %v at every step (±%g)", want, tol),
				Actual:   fmt.Sprintf("total %v at step %d", got, step),
			}
		}
	}
	return nil
}

func assertNonNegative(result *Result, assertion Assertion) error {
	tol := assertion.Tolerance
	for step, row := range result.Trajectory {
		for col, v := range row {
			if math.IsNaN(v) || v < -tol {
				return &AssertionError{
					Type:     AssertNonNegative,
					Expected: fmt.Sprintf("every count >= %g", -tol),
					Actual:   fmt.Sprintf("%s=%v at step %d", result.States[col], v, step),
				}
			}
		}
	}
	return nil
}

func assertMaxDelay(task *model.Task, assertion Assertion) error {
	if got := task.MaxDelay(); got != *assertion.Value {
		return &AssertionError{
			Type:     AssertMaxDelay,
			Expected: fmt.Sprintf("max delay %d", *assertion.Value),
			Actual:   fmt.Sprintf("max delay %d", got),
		}
	}
	return nil
}

// assertODEMatches solves the symbolic system with Euler steps and
// compares it with the engine's table.
func assertODEMatches(task *model.Task, table [][]float64, assertion Assertion) error {
	sys, err := ode.NewBuilder(task).Convert()
	if err != nil {
		return fmt.Errorf("%s: %w", AssertODEMatches, err)
	}
	solved, err := ode.Solve(sys, ode.Initial(task), len(table)-1)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertODEMatches, err)
	}

	tol := tolerance(assertion, DefaultODETolerance)
	for step := range table {
		for col, v := range table[step] {
			if !within(solved[step][col], v, tol) {
				return &AssertionError{
					Type:     AssertODEMatches,
					Expected: fmt.Sprintf("engine %s=%v at step %d (±%g)", sys.Equations[col].Name, v, step, tol),
					Actual:   fmt.Sprintf("ode %v", solved[step][col]),
				}
			}
		}
	}
	return nil
}

// assertReplayIdentical recomputes the stored run from its stored task
// document and requires bit-identical output.
func assertReplayIdentical(ctx context.Context, st *store.Store, runID string) error {
	in, err := st.LoadReplay(ctx, runID)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertReplayIdentical, err)
	}

	var opts []engine.Option
	if in.Run.BlockScaling {
		opts = append(opts, engine.WithBlockScaling())
	}
	eng := engine.New(in.Task, opts...)
	if err := eng.Calculate(); err != nil {
		return fmt.Errorf("%s: %w", AssertReplayIdentical, err)
	}

	names := make([]string, len(in.Task.States))
	for i, s := range in.Task.States {
		names[i] = s.Name
	}
	cmp := store.CompareTrajectories(runID, names, in.Trajectory, eng.StatesCount())
	if cmp.Identical {
		return nil
	}

	actual := cmp.Shape
	if actual == "" {
		m := cmp.Mismatches[0]
		actual = fmt.Sprintf("%d mismatches, first %s at step %d: stored %v, replayed %v",
			len(cmp.Mismatches), m.State, m.Step, m.Stored, m.Replayed)
	}
	return &AssertionError{
		Type:     AssertReplayIdentical,
		Expected: "bit-identical replay",
		Actual:   actual,
	}
}

func hasBlocks(task *model.Task) bool {
	for _, tr := range task.Transitions {
		if tr.Block != "" {
			return true
		}
	}
	return false
}

func tolerance(a Assertion, def float64) float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return def
}

// within reports |got-want| <= tol. NaN is never within tolerance.
func within(got, want, tol float64) bool {
	if got == want {
		return true
	}
	return math.Abs(got-want) <= tol
}

func rowSum(row []float64) float64 {
	var total float64
	for _, v := range row {
		total += v
	}
	return total
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatCounts(m map[string]float64, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ", ")
}
