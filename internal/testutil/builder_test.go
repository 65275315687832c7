package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/model"
)

func TestTaskBuilder(t *testing.T) {
	task := NewTask("sis", 10).
		State("infected", 20).
		State("healthy", 80).
		Transition(model.Linear, 0.6, Consume("infected", 1).Delayed(2), Produce("healthy", 1)).
		Block("2t").
		Start(5).
		Build()

	require.NoError(t, task.Validate())
	assert.Equal(t, 5, task.Start)
	require.Len(t, task.Transitions, 1)

	tr := task.Transitions[0]
	assert.Equal(t, "t1", tr.Name)
	assert.Equal(t, "2t", tr.Block)
	assert.Same(t, task.States[0], tr.States[0].State)
	assert.Equal(t, 2, tr.States[0].Delay)
	assert.Equal(t, model.Simple, tr.States[1].Mode)
	assert.Equal(t, model.TransitionID(3), tr.ID, "ids continue after the states")
}

func TestTaskBuilder_UnknownStatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewTask("bad", 1).State("a", 1).Transition(model.Linear, 1, Consume("b", 1))
	})
}

func TestReferenceTasksValidate(t *testing.T) {
	tasks := []*model.Task{
		Epidemic(model.Linear, 0.2, model.Linear, 0.6),
		Inhibited(),
		Residual(model.Linear),
		Residual(model.Solute),
		Delays(),
		Mixed(),
	}
	for _, task := range tasks {
		t.Run(task.Name, func(t *testing.T) {
			assert.NoError(t, task.Validate())
		})
	}
}

func TestDelaysMaxDelay(t *testing.T) {
	assert.Equal(t, 2, Delays().MaxDelay())
}
