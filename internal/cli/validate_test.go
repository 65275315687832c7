package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/testutil"
)

const invalidTask = `
package tasks

task: broken: {
	steps: -2
	state: {
		fish:   100
		caught: 0
	}
	transition: net: {
		probability: -0.5
		states: [
			{state: "fish", in: 1, delay: -1},
			{state: "caught", out: 1},
		]
	}
}
`

func TestValidateTasksDirectory(t *testing.T) {
	out, err := executeCommand(NewValidateCommand(&RootOptions{Format: "text"}), tasksDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ All tasks valid")
	// The epidemic models feed back into themselves.
	assert.Contains(t, out, "Feedback loops:")
	assert.Contains(t, out, "epidemic_linear")
}

func TestValidateNoFeedback(t *testing.T) {
	path := writeTaskFile(t, "catch.cue", catchTask)

	out, err := executeCommand(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All tasks valid")
	assert.NotContains(t, out, "Feedback loops:")
}

func TestValidateJSON(t *testing.T) {
	path := filepath.Join(tasksDir, "epidemic.cue")
	out, err := executeCommand(NewValidateCommand(&RootOptions{Format: "json"}), path, "--task", "epidemic_solute")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
	require.NotEmpty(t, resp.Data.Warnings)
	assert.Equal(t, "epidemic_solute", resp.Data.Warnings[0].Task)
}

func TestValidateInvalidTask(t *testing.T) {
	path := writeTaskFile(t, "broken.cue", invalidTask)

	out, err := executeCommand(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "3 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E102: broken.steps")
	assert.Contains(t, out, "E111: broken.transition.net.probability")
	assert.Contains(t, out, "E116:")
}

func TestValidateInvalidTaskJSON(t *testing.T) {
	path := writeTaskFile(t, "broken.cue", invalidTask)

	out, err := executeCommand(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 3)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateLoadErrors(t *testing.T) {
	_, err := executeCommand(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/tasks")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")

	_, err = executeCommand(NewValidateCommand(&RootOptions{Format: "text"}), tasksDir, "--task", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E008")
}

func TestValidateTasks(t *testing.T) {
	valid := testutil.Delays()
	bad := testutil.Epidemic(model.Linear, 0.2, model.Linear, 0.6)
	bad.Name = "bad"
	bad.Transitions[0].Probability = -1

	result := ValidateTasks([]*model.Task{valid, bad})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "E111", result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Field, "bad.")

	// Warnings are collected for every task, valid or not.
	tasks := map[string]bool{}
	for _, w := range result.Warnings {
		tasks[w.Task] = true
	}
	assert.True(t, tasks[valid.Name])
	assert.True(t, tasks["bad"])
}
