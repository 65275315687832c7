package testutil

import (
	"fmt"

	"github.com/roach88/popdyn/internal/model"
)

// TaskBuilder assembles tasks for tests with ids drawn from one Sequence.
//
// States are referenced by name; referencing an unknown name panics so a
// typo in a fixture fails loudly.
//
//	task := testutil.NewTask("sis", 100).
//		State("infected", 20).
//		State("healthy", 80).
//		Transition(model.Linear, 0.6, testutil.Consume("infected", 1), testutil.Produce("healthy", 1)).
//		Build()
type TaskBuilder struct {
	seq  *model.Sequence
	task *model.Task
}

// Entry describes one StateInTransition by state name.
type Entry struct {
	State string
	In    float64
	Out   float64
	Delay int
	Mode  model.StateMode
}

// Consume is an entry with only an in coefficient.
func Consume(state string, in float64) Entry {
	return Entry{State: state, In: in}
}

// Produce is an entry with only an out coefficient.
func Produce(state string, out float64) Entry {
	return Entry{State: state, Out: out}
}

// Flow is an entry with both coefficients.
func Flow(state string, in, out float64) Entry {
	return Entry{State: state, In: in, Out: out}
}

// Delayed returns a copy of e reading counts delay steps back.
func (e Entry) Delayed(delay int) Entry {
	e.Delay = delay
	return e
}

// As returns a copy of e in the given mode.
func (e Entry) As(mode model.StateMode) Entry {
	e.Mode = mode
	return e
}

// NewTask starts a task with the given step count.
func NewTask(name string, steps int) *TaskBuilder {
	return &TaskBuilder{
		seq:  model.NewSequence(),
		task: &model.Task{Name: name, Steps: steps},
	}
}

// State appends a state with an initial count.
func (b *TaskBuilder) State(name string, count float64) *TaskBuilder {
	b.task.States = append(b.task.States, &model.State{
		ID:    b.seq.NextState(),
		Name:  name,
		Count: count,
	})
	return b
}

// Transition appends a transition built from the entries.
func (b *TaskBuilder) Transition(typ model.TransitionType, probability float64, entries ...Entry) *TaskBuilder {
	tr := &model.Transition{
		ID:          b.seq.NextTransition(),
		Name:        fmt.Sprintf("t%d", len(b.task.Transitions)+1),
		Probability: probability,
		Type:        typ,
	}
	for _, e := range entries {
		s := b.task.StateByName(e.State)
		if s == nil {
			panic(fmt.Sprintf("testutil: unknown state %q", e.State))
		}
		mode := e.Mode
		if mode == "" {
			mode = model.Simple
		}
		tr.States = append(tr.States, &model.StateInTransition{
			State: s,
			In:    e.In,
			Out:   e.Out,
			Delay: e.Delay,
			Mode:  mode,
		})
	}
	b.task.Transitions = append(b.task.Transitions, tr)
	return b
}

// Block sets the block expression of the most recently added transition.
func (b *TaskBuilder) Block(expr string) *TaskBuilder {
	b.task.Transitions[len(b.task.Transitions)-1].Block = expr
	return b
}

// Start sets the time offset of step 0.
func (b *TaskBuilder) Start(start int) *TaskBuilder {
	b.task.Start = start
	return b
}

// Build returns the task.
func (b *TaskBuilder) Build() *model.Task {
	return b.task
}
