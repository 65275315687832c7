package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

func catchScenario(t *testing.T, assertions ...Assertion) *Scenario {
	t.Helper()
	return &Scenario{
		Name:        "catch",
		Description: "Half the fish are caught every step",
		Task:        createTestTask(t, t.TempDir(), "catch.cue", catchSource),
		Assertions:  assertions,
	}
}

func intPtr(v int) *int { return &v }

func TestRun_Scenarios(t *testing.T) {
	paths, err := DiscoverScenarios(scenariosDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario, WithLogger(slogt.New(t)))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Equal(t, scenario.runID(), result.RunID)
			assert.Len(t, result.TaskHash, 64)
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := catchScenario(t,
		Assertion{Type: AssertFinalState, Expect: map[string]float64{"fish": 12.5, "caught": 87.5}},
		Assertion{Type: AssertStateAt, Step: intPtr(1), Expect: map[string]float64{"fish": 50, "caught": 50}},
		Assertion{Type: AssertConserved},
		Assertion{Type: AssertNonNegative},
		Assertion{Type: AssertMaxDelay, Value: intPtr(0)},
		Assertion{Type: AssertODEMatches},
		Assertion{Type: AssertReplayIdentical},
	)

	result, err := Run(scenario, WithLogger(slogt.New(t)))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "scenario-catch", result.RunID)
	assert.Equal(t, "catch", result.Task)
	assert.Equal(t, []string{"fish", "caught"}, result.States)
	assert.Equal(t, [][]float64{
		{100, 0},
		{50, 50},
		{25, 75},
		{12.5, 87.5},
	}, result.Trajectory)
	assert.Equal(t, map[string]float64{"fish": 12.5, "caught": 87.5}, result.Final())
}

func TestRun_StepsOverride(t *testing.T) {
	scenario := catchScenario(t, Assertion{Type: AssertConserved})
	scenario.Steps = intPtr(1)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Len(t, result.Trajectory, 2)
	assert.Equal(t, []float64{50, 50}, result.Trajectory[1])
}

func TestRun_ZeroSteps(t *testing.T) {
	scenario := catchScenario(t,
		Assertion{Type: AssertFinalState, Expect: map[string]float64{"fish": 100}},
		Assertion{Type: AssertReplayIdentical},
	)
	scenario.Steps = intPtr(0)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trajectory, 1)
}

func TestRun_FailingAssertionsReported(t *testing.T) {
	scenario := catchScenario(t,
		Assertion{Type: AssertFinalState, Expect: map[string]float64{"fish": 10}},
		Assertion{Type: AssertStateAt, Step: intPtr(2), Expect: map[string]float64{"whale": 1}},
		Assertion{Type: AssertMaxDelay, Value: intPtr(3)},
		Assertion{Type: AssertConserved},
	)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: final_state")
	assert.Contains(t, result.Errors[0], "fish=12.5")
	assert.Contains(t, result.Errors[1], "whale missing")
	assert.Contains(t, result.Errors[2], "max delay 3")
}

func TestRun_StateAtBeyondLastStep(t *testing.T) {
	scenario := catchScenario(t,
		Assertion{Type: AssertStateAt, Step: intPtr(10), Expect: map[string]float64{"fish": 0}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "fish missing")
}

func TestRun_ODERejectsBlockScaledRun(t *testing.T) {
	path, err := filepath.Abs("../../testdata/tasks/season.cue")
	require.NoError(t, err)

	scenario := &Scenario{
		Name:         "blocked",
		Description:  "Block-scaled runs have no symbolic counterpart",
		Task:         path,
		BlockScaling: true,
		Assertions:   []Assertion{{Type: AssertODEMatches}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "cannot check a block-scaled run")
}

func TestRun_TaskSelection(t *testing.T) {
	path, err := filepath.Abs("../../testdata/tasks/epidemic.cue")
	require.NoError(t, err)

	t.Run("ambiguous", func(t *testing.T) {
		_, err := Run(&Scenario{Name: "s", Task: path, Assertions: []Assertion{{Type: AssertConserved}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 tasks defined")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Run(&Scenario{Name: "s", Task: path, TaskName: "plague", Assertions: []Assertion{{Type: AssertConserved}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `task "plague" not found`)
	})

	t.Run("selected", func(t *testing.T) {
		result, err := Run(&Scenario{
			Name:       "s",
			Task:       path,
			TaskName:   "epidemic_solute",
			Steps:      intPtr(5),
			Assertions: []Assertion{{Type: AssertConserved}},
		})
		require.NoError(t, err)
		assert.Equal(t, "epidemic_solute", result.Task)
		assert.Len(t, result.Trajectory, 6)
	})
}

func TestRun_InvalidTask(t *testing.T) {
	source := strings.Replace(catchSource, "probability: 0.5", "probability: -0.5", 1)
	scenario := &Scenario{
		Name:       "invalid",
		Task:       createTestTask(t, t.TempDir(), "bad.cue", source),
		Assertions: []Assertion{{Type: AssertConserved}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task")
	assert.Contains(t, err.Error(), "probability")
}

func TestRun_MissingTask(t *testing.T) {
	scenario := &Scenario{
		Name:       "missing",
		Task:       filepath.Join(t.TempDir(), "nope.cue"),
		Assertions: []Assertion{{Type: AssertConserved}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load task")
}

func TestRun_IsolatedStores(t *testing.T) {
	scenario := catchScenario(t, Assertion{Type: AssertReplayIdentical})

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, first.Pass)
	assert.True(t, second.Pass, "same run id must not collide across runs: %v", second.Errors)
	assert.Equal(t, first.TaskHash, second.TaskHash)
}
