package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/store"
)

// storeRun runs a task into dbPath under a fixed run id.
func storeRun(t *testing.T, dbPath, path, task, runID string, blockScaling bool) RunSummary {
	t.Helper()

	opts := &RunOptions{
		RootOptions:  &RootOptions{Format: "json"},
		Database:     dbPath,
		Task:         task,
		BlockScaling: blockScaling,
		IDGenerator:  engine.NewFixedGenerator(runID),
	}
	cmd := NewRunCommand(opts.RootOptions)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runTask(opts, path, cmd))

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRunMissingDatabaseFlag(t *testing.T) {
	path := writeTaskFile(t, "catch.cue", catchTask)

	_, err := executeCommand(NewRunCommand(&RootOptions{Format: "text"}), path) // Missing --db flag
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestRunStoresTrajectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := writeTaskFile(t, "catch.cue", catchTask)

	summary := storeRun(t, dbPath, path, "", "run-1", false)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, int64(1), summary.Seq)
	assert.Equal(t, "catch", summary.Task)
	assert.Equal(t, 3, summary.Steps)
	assert.Equal(t, []string{"fish", "caught"}, summary.States)
	assert.Equal(t, 12.5, summary.Final["fish"])
	assert.Equal(t, 87.5, summary.Final["caught"])

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	table, err := st.ReadTrajectory(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{
		{100, 0},
		{50, 50},
		{25, 75},
		{12.5, 87.5},
	}, table)

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, summary.TaskHash, run.TaskHash)
	assert.False(t, run.BlockScaling)
}

func TestRunSequenceAcrossRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := writeTaskFile(t, "catch.cue", catchTask)

	first := storeRun(t, dbPath, path, "", "run-1", false)
	second := storeRun(t, dbPath, path, "", "run-2", false)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	// Same task document, same hash.
	assert.Equal(t, first.TaskHash, second.TaskHash)
}

func TestRunTextOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := writeTaskFile(t, "catch.cue", catchTask)

	out, err := executeCommand(NewRunCommand(&RootOptions{Format: "text"}), "--db", dbPath, path)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Run ")
	assert.Contains(t, out, "(seq 1)")
	assert.Contains(t, out, "task catch, 3 step(s)")
	assert.Contains(t, out, "fish = 12.5")
	assert.Contains(t, out, "caught = 87.5")
}

func TestRunStepsOverride(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := writeTaskFile(t, "catch.cue", catchTask)

	out, err := executeCommand(NewRunCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--steps", "1", path)
	require.NoError(t, err)

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Steps)
	assert.Equal(t, 50.0, resp.Data.Final["fish"])
	assert.Len(t, resp.Data.RunID, 36)
}

func TestRunBlockScaling(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := filepath.Join(tasksDir, "season.cue")

	open := storeRun(t, dbPath, path, "closed_season", "open", false)
	closed := storeRun(t, dbPath, path, "closed_season", "closed", true)

	assert.InDelta(t, 100*math.Pow(0.9, 12), open.Final["fish"], 1e-9)
	assert.Equal(t, 100.0, closed.Final["fish"])
	assert.Equal(t, 0.0, closed.Final["caught"])
	assert.True(t, closed.BlockScaling)
}

func TestRunMetrics(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "popdyn.db")
	path := writeTaskFile(t, "catch.cue", catchTask)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	errBuf := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"--db", dbPath, "--metrics", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errBuf.String(), `popdyn_runs_total{outcome="success"}`)
	assert.Contains(t, errBuf.String(), "popdyn_steps_total")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		args     []string
		wantCode string
		wantExit int
	}{
		{
			name:     "missing_path",
			path:     func(t *testing.T) string { return "/nonexistent/tasks" },
			wantCode: ErrCodeNotFound,
			wantExit: ExitCommandError,
		},
		{
			name:     "ambiguous_task",
			path:     func(t *testing.T) string { return tasksDir },
			wantCode: ErrCodeNoTasks,
			wantExit: ExitCommandError,
		},
		{
			name:     "invalid_task",
			path:     func(t *testing.T) string { return writeTaskFile(t, "broken.cue", invalidTask) },
			wantCode: "E102",
			wantExit: ExitFailure,
		},
		{
			name:     "negative_steps_override",
			path:     func(t *testing.T) string { return writeTaskFile(t, "catch.cue", catchTask) },
			args:     []string{"--steps", "-1"},
			wantCode: "E102",
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "popdyn.db")
			args := append([]string{"--db", dbPath}, tt.args...)
			args = append(args, tt.path(t))

			out, err := executeCommand(NewRunCommand(&RootOptions{Format: "json"}), args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestJSONCount(t *testing.T) {
	assert.Equal(t, 1.5, jsonCount(1.5))
	assert.Equal(t, "NaN", jsonCount(math.NaN()))
	assert.Equal(t, "+Inf", jsonCount(math.Inf(1)))
	assert.Equal(t, "-Inf", jsonCount(math.Inf(-1)))
}

func TestRunHelpText(t *testing.T) {
	out, err := executeCommand(NewRunCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Simulate a task step by step")
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "--block-scaling")
	assert.Contains(t, out, "tasks-path")
}

func TestWriteMetrics_TextExposition(t *testing.T) {
	storeRun(t, filepath.Join(t.TempDir(), "popdyn.db"), writeTaskFile(t, "catch.cue", catchTask), "catch", "run-metrics", false)

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE popdyn_runs_total counter")
	assert.Contains(t, out, "# TYPE popdyn_run_duration_seconds histogram")
	assert.Contains(t, out, `popdyn_run_duration_seconds_count{outcome="success"}`)
	assert.NotContains(t, out, "go_goroutines")
}
