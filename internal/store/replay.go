package store

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/popdyn/internal/model"
)

// ReplayInput is what a stored run needs to be recomputed: its catalogue
// entry, the task it started from and the trajectory it produced.
type ReplayInput struct {
	Run        Run
	Task       *model.Task
	Trajectory [][]float64
}

// LoadReplay reads everything needed to replay a run.
func (s *Store) LoadReplay(ctx context.Context, id string) (ReplayInput, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return ReplayInput{}, fmt.Errorf("load replay: %w", err)
	}
	task, err := s.ReadTask(ctx, id)
	if err != nil {
		return ReplayInput{}, fmt.Errorf("load replay: %w", err)
	}
	table, err := s.ReadTrajectory(ctx, id)
	if err != nil {
		return ReplayInput{}, fmt.Errorf("load replay: %w", err)
	}

	hash, err := task.Hash()
	if err != nil {
		return ReplayInput{}, fmt.Errorf("load replay: %w", err)
	}
	if hash != run.TaskHash {
		return ReplayInput{}, fmt.Errorf("load replay %s: stored task hash %s does not match document hash %s", id, run.TaskHash, hash)
	}

	return ReplayInput{Run: run, Task: task, Trajectory: table}, nil
}

// Mismatch is one sample whose replayed value differs from the stored one.
type Mismatch struct {
	Step     int
	Column   int
	State    string
	Stored   float64
	Replayed float64
}

// ReplayResult compares a stored trajectory with a recomputed one.
type ReplayResult struct {
	RunID string

	// Identical is true when both tables have the same shape and every
	// value has the same bits (NaN matches NaN).
	Identical bool

	// Shape describes a row or column count difference. Empty when the
	// shapes agree.
	Shape string

	Mismatches []Mismatch
}

// CompareTrajectories checks a replay for bit-identical output.
// states names the columns for reporting; it may be shorter than a row.
func CompareTrajectories(runID string, states []string, stored, replayed [][]float64) ReplayResult {
	result := ReplayResult{RunID: runID, Mismatches: []Mismatch{}}

	if len(stored) != len(replayed) {
		result.Shape = fmt.Sprintf("stored %d rows, replayed %d", len(stored), len(replayed))
		return result
	}

	for step := range stored {
		if len(stored[step]) != len(replayed[step]) {
			result.Shape = fmt.Sprintf("row %d: stored %d columns, replayed %d", step, len(stored[step]), len(replayed[step]))
			return result
		}
		for col, v := range stored[step] {
			r := replayed[step][col]
			if sameBits(v, r) {
				continue
			}
			m := Mismatch{Step: step, Column: col, Stored: v, Replayed: r}
			if col < len(states) {
				m.State = states[col]
			}
			result.Mismatches = append(result.Mismatches, m)
		}
	}

	result.Identical = len(result.Mismatches) == 0
	return result
}

func sameBits(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Float64bits(a) == math.Float64bits(b)
}
