package testutil

import "github.com/roach88/popdyn/internal/model"

// Reference tasks with known trajectories. Expected values are documented
// next to each constructor and asserted by the engine, ode and harness tests.

// Epidemic is the two-state infection/recovery model.
//
//	infection  infected + healthy -> 2 infected   (infType, infP)
//	recovery   infected -> healthy                (recType, recP)
//
// Starting from infected=20, healthy=80:
//   - infection LINEAR 0.2, recovery LINEAR 0.6: after 100 steps ≈ (0, 100)
//   - infection SOLUTE 0.6, recovery LINEAR 0.2: after 100 steps ≈ (66.666, 33.333)
func Epidemic(infType model.TransitionType, infP float64, recType model.TransitionType, recP float64) *model.Task {
	return NewTask("epidemic", 100).
		State("infected", 20).
		State("healthy", 80).
		Transition(infType, infP, Flow("infected", 1, 2), Consume("healthy", 1)).
		Transition(recType, recP, Consume("infected", 1), Produce("healthy", 1)).
		Build()
}

// family returns the four-state population used by the mode scenarios.
func family(name string) *TaskBuilder {
	return NewTask(name, 1).
		State("adult", 20).
		State("grand", 20).
		State("child", 4).
		State("area", 10)
}

// Inhibited is a SOLUTE transition in which child inhibits its own
// consumption while adult, grand and area act as catalysts.
// After one step ≈ (20, 20, 3.316, 10).
func Inhibited() *model.Task {
	return family("inhibited").
		Transition(model.Solute, 0.5,
			Flow("adult", 1, 1),
			Flow("grand", 1, 1),
			Flow("area", 1, 1),
			Flow("child", 2, 1).As(model.Inhibitor),
		).
		Build()
}

// Residual is a residual transition on child with area as a catalyst.
// After one step:
//   - LINEAR ≈ (20, 20, 4, 10)
//   - SOLUTE ≈ (20, 20, 0.74, 10)
func Residual(typ model.TransitionType) *model.Task {
	return family("residual").
		Transition(typ, 1,
			Consume("child", 1).As(model.Residual),
			Flow("area", 1, 1),
		).
		Build()
}

// Delays is a task whose entries carry delays {1, 0, 2, 1}; MaxDelay is 2.
func Delays() *model.Task {
	return NewTask("delays", 10).
		State("prey", 50).
		State("predator", 10).
		Transition(model.Blend, 0.3,
			Flow("prey", 1, 0).Delayed(1),
			Flow("predator", 1, 2),
		).
		Transition(model.Linear, 0.1,
			Consume("predator", 1).Delayed(2),
			Produce("prey", 1).Delayed(1),
		).
		Build()
}

// Mixed combines normal and residual transitions with delays so the two
// passes and the history lookups interact in a single step.
func Mixed() *model.Task {
	return NewTask("mixed", 25).
		State("s", 90).
		State("i", 10).
		State("r", 0).
		State("pool", 5).
		Transition(model.Solute, 0.5, Flow("i", 1, 2), Consume("s", 1).Delayed(1)).
		Transition(model.Linear, 0.1, Consume("i", 1).Delayed(2), Produce("r", 1)).
		Transition(model.Blend, 0.2, Consume("r", 1), Produce("s", 1), Flow("pool", 1, 1).As(model.Inhibitor)).
		Transition(model.Linear, 0.5, Consume("pool", 1).As(model.Residual), Flow("s", 1, 2)).
		Build()
}
