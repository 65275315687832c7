package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/model"
)

const sirSource = `
task: sir: {
	start: 1
	steps: 100

	state: {
		infected: { count: 20, alias: "I" }
		healthy:  80
	}

	transition: {
		infection: {
			probability: 0.6
			type:        "solute"
			states: [
				{ state: "I", in: 1, out: 2 },
				{ state: "healthy", in: 1 },
			]
		}
		recovery: {
			probability: 0.2
			block:       "exp(0.5t)"
			states: [
				{ state: "infected", in: 1, delay: 2 },
				{ state: "healthy", out: 1, mode: "simple" },
			]
		}
	}
}
`

func compileSource(t *testing.T, src, path string) (*model.Task, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("task.cue"))
	require.NoError(t, v.Err())
	return CompileTask(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileTaskBasic(t *testing.T) {
	task, err := compileSource(t, sirSource, "task.sir")
	require.NoError(t, err)

	assert.Equal(t, "sir", task.Name)
	assert.Equal(t, 1, task.Start)
	assert.Equal(t, 100, task.Steps)

	require.Len(t, task.States, 2)
	infected, healthy := task.States[0], task.States[1]
	assert.Equal(t, &model.State{ID: 1, Name: "infected", Alias: "I", Count: 20}, infected)
	assert.Equal(t, &model.State{ID: 2, Name: "healthy", Count: 80}, healthy)

	require.Len(t, task.Transitions, 2)
	infection, recovery := task.Transitions[0], task.Transitions[1]

	assert.Equal(t, model.TransitionID(3), infection.ID)
	assert.Equal(t, "infection", infection.Name)
	assert.Equal(t, model.Solute, infection.Type)
	assert.Equal(t, 0.6, infection.Probability)
	require.Len(t, infection.States, 2)
	assert.Same(t, infected, infection.States[0].State, "alias resolves to the state")
	assert.Equal(t, 2.0, infection.States[0].Out)
	assert.Equal(t, model.Simple, infection.States[1].Mode)

	assert.Equal(t, model.Linear, recovery.Type, "type defaults to LINEAR")
	assert.Equal(t, "exp(0.5t)", recovery.Block)
	assert.Equal(t, 2, recovery.States[0].Delay)

	require.NoError(t, task.Validate())
	assert.Empty(t, Validate(task))
}

func TestCompileTasks(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(sirSource + `
task: "two-state": {
	state: { a: 1, b: 2 }
}
`)

	tasks, err := CompileTasks(v)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "sir", tasks[0].Name)
	assert.Equal(t, "two-state", tasks[1].Name)
	assert.Equal(t, 0, tasks[1].Steps, "steps defaults to zero")
	assert.Empty(t, tasks[1].Transitions)
}

func TestCompileTasksWithoutTasks(t *testing.T) {
	ctx := cuecontext.New()
	tasks, err := CompileTasks(ctx.CompileString(`other: 1`))
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCompileTaskErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "no states",
			src:     `task: x: { steps: 1 }`,
			field:   "state",
			message: "at least one state is required",
		},
		{
			name:    "state without count",
			src:     `task: x: { state: a: { alias: "A" } }`,
			field:   "state.a.count",
			message: "count is required",
		},
		{
			name: "missing probability",
			src: `task: x: {
				state: a: 1
				transition: t: { states: [{ state: "a", in: 1 }] }
			}`,
			field:   "transition.t.probability",
			message: "probability is required",
		},
		{
			name: "unknown type",
			src: `task: x: {
				state: a: 1
				transition: t: { probability: 1, type: "QUADRATIC", states: [{ state: "a", in: 1 }] }
			}`,
			field:   "transition.t.type",
			message: "unknown transition type",
		},
		{
			name: "invalid block",
			src: `task: x: {
				state: a: 1
				transition: t: { probability: 1, block: "t^2", states: [{ state: "a", in: 1 }] }
			}`,
			field:   "transition.t.block",
			message: "not a constant, linear or exponential form",
		},
		{
			name: "missing states list",
			src: `task: x: {
				state: a: 1
				transition: t: { probability: 1 }
			}`,
			field:   "transition.t.states",
			message: "transition states are required",
		},
		{
			name: "unknown state",
			src: `task: x: {
				state: a: 1
				transition: t: { probability: 1, states: [{ state: "b", in: 1 }] }
			}`,
			field:   "transition.t.states[0].state",
			message: `unknown state "b"`,
		},
		{
			name: "unknown mode",
			src: `task: x: {
				state: a: 1
				transition: t: { probability: 1, states: [{ state: "a", in: 1, mode: "CATALYST" }] }
			}`,
			field:   "transition.t.states[0].mode",
			message: "unknown state mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(t, tt.src, "task.x")
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileTaskWrongKind(t *testing.T) {
	_, err := compileSource(t, `task: x: { steps: "many", state: a: 1 }`, "task.x")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "task.cue:")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "state", Message: "at least one state is required"}
	assert.Equal(t, "state: at least one state is required", err.Error())
}
