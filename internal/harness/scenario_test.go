package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catchSource halves the fish every step: 100, 50, 25, 12.5.
const catchSource = `package tasks

task: catch: {
	steps: 3
	state: {
		fish:   100
		caught: 0
	}
	transition: net: {
		probability: 0.5
		states: [
			{state: "fish", in: 1},
			{state: "caught", out: 1},
		]
	}
}
`

// createTestTask writes a CUE task file into dir and returns its path.
func createTestTask(t *testing.T, dir, name, source string) string {
	t.Helper()
	tasksDir := filepath.Join(dir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(tasksDir, name)
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	createTestTask(t, dir, "catch.cue", catchSource)

	path := writeScenario(t, dir, `
name: catch_half
description: "Half the fish are caught every step"
task: tasks/catch.cue
task_name: catch
steps: 2
golden_stride: 2
assertions:
  - type: final_state
    expect:
      fish: 25
      caught: 75
  - type: state_at
    step: 1
    expect:
      fish: 50
    tolerance: 0.001
  - type: max_delay
    value: 0
  - type: conserved
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "catch_half", scenario.Name)
	assert.Equal(t, "Half the fish are caught every step", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "tasks", "catch.cue"), scenario.Task)
	assert.Equal(t, "catch", scenario.TaskName)
	require.NotNil(t, scenario.Steps)
	assert.Equal(t, 2, *scenario.Steps)
	assert.Equal(t, 2, scenario.goldenStride())
	require.Len(t, scenario.Assertions, 4)

	assert.Equal(t, AssertFinalState, scenario.Assertions[0].Type)
	assert.Equal(t, 25.0, scenario.Assertions[0].Expect["fish"])
	require.NotNil(t, scenario.Assertions[1].Step)
	assert.Equal(t, 1, *scenario.Assertions[1].Step)
	assert.Equal(t, 0.001, scenario.Assertions[1].Tolerance)
	require.NotNil(t, scenario.Assertions[2].Value)
	assert.Equal(t, 0, *scenario.Assertions[2].Value)
}

func TestLoadScenario_Defaults(t *testing.T) {
	dir := t.TempDir()
	createTestTask(t, dir, "catch.cue", catchSource)

	path := writeScenario(t, dir, `
name: defaults
description: "No optional fields"
task: tasks/catch.cue
assertions:
  - type: non_negative
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Nil(t, scenario.Steps)
	assert.False(t, scenario.BlockScaling)
	assert.Equal(t, "scenario-defaults", scenario.runID())
	assert.Equal(t, 1, scenario.goldenStride())

	scenario.RunID = "fixed"
	assert.Equal(t, "fixed", scenario.runID())
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	taskPath := createTestTask(t, dir, "catch.cue", catchSource)

	scenarioDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarioDir, 0755))
	path := writeScenario(t, scenarioDir, `
name: based
description: "Task resolved against an explicit base"
task: tasks/catch.cue
assertions:
  - type: conserved
`)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, taskPath, scenario.Task)

	_, err = LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestLoadScenario_AbsoluteTaskPath(t *testing.T) {
	dir := t.TempDir()
	taskPath := createTestTask(t, dir, "catch.cue", catchSource)

	path := writeScenario(t, t.TempDir(), `
name: absolute
description: "Absolute task path"
task: `+taskPath+`
assertions:
  - type: conserved
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, taskPath, scenario.Task)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_InvalidYAML(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "name: [unclosed\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	createTestTask(t, dir, "catch.cue", catchSource)

	path := writeScenario(t, dir, `
name: typo
description: "Misspelled assertions key"
task: tasks/catch.cue
assertion:
  - type: conserved
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing name",
			body:    "description: d\ntask: tasks/catch.cue\nassertions:\n  - type: conserved\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			body:    "name: n\ntask: tasks/catch.cue\nassertions:\n  - type: conserved\n",
			wantErr: "description is required",
		},
		{
			name:    "missing task",
			body:    "name: n\ndescription: d\nassertions:\n  - type: conserved\n",
			wantErr: "task is required",
		},
		{
			name:    "task not found",
			body:    "name: n\ndescription: d\ntask: tasks/nope.cue\nassertions:\n  - type: conserved\n",
			wantErr: "task not found",
		},
		{
			name:    "negative steps",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nsteps: -1\nassertions:\n  - type: conserved\n",
			wantErr: "steps must be non-negative",
		},
		{
			name:    "negative golden stride",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\ngolden_stride: -2\nassertions:\n  - type: conserved\n",
			wantErr: "golden_stride must be non-negative",
		},
		{
			name:    "no assertions",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions: []\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "assertion without type",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - tolerance: 1\n",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "negative tolerance",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: conserved\n    tolerance: -1\n",
			wantErr: "tolerance must be non-negative",
		},
		{
			name:    "final_state without expect",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: final_state\n",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "state_at without step",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: state_at\n    expect: {fish: 1}\n",
			wantErr: "step is required for state_at",
		},
		{
			name:    "state_at negative step",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: state_at\n    step: -1\n    expect: {fish: 1}\n",
			wantErr: "step must be non-negative",
		},
		{
			name:    "state_at without expect",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: state_at\n    step: 1\n",
			wantErr: "expect is required for state_at",
		},
		{
			name:    "max_delay without value",
			body:    "name: n\ndescription: d\ntask: tasks/catch.cue\nassertions:\n  - type: max_delay\n",
			wantErr: "value is required for max_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createTestTask(t, dir, "catch.cue", catchSource)
			path := writeScenario(t, dir, tt.body)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_RepositoryScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(scenariosDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Assertions)
			assert.FileExists(t, scenario.Task)
		})
	}
}
