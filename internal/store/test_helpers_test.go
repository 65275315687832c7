package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// simulate runs the task on a clone and returns the record to persist.
func simulate(t *testing.T, id string, task *model.Task) RunRecord {
	t.Helper()
	e := engine.New(task.Clone())
	require.NoError(t, e.Calculate())
	return RunRecord{ID: id, Task: task, Trajectory: e.StatesCount()}
}

// writeTestRun simulates and persists a run.
func writeTestRun(t *testing.T, s *Store, id string, task *model.Task) Run {
	t.Helper()
	run, err := s.WriteRun(context.Background(), simulate(t, id, task))
	require.NoError(t, err)
	return run
}

// epidemicTask is the LINEAR/LINEAR epidemic: 100 steps over infected and
// healthy.
func epidemicTask() *model.Task {
	return testutil.Epidemic(model.Linear, 0.2, model.Linear, 0.6)
}
