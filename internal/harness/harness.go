package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/popdyn/internal/compiler"
	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/store"
)

// Harness is the scenario execution engine.
// It runs one task per scenario against an isolated store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes engine diagnostics to logger.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store
//  2. Load and compile the scenario's task
//  3. Run the engine on a clone of the task
//  4. Persist the run under the scenario's run id
//  5. Evaluate assertions against the stored run
//
// An error means the scenario could not be executed at all; assertion
// failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	task, err := loadTask(scenario)
	if err != nil {
		return nil, err
	}

	initial := task.Clone()
	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithLogger(h.logger))
	if scenario.BlockScaling {
		engineOpts = append(engineOpts, engine.WithBlockScaling())
	}

	eng := engine.New(task, engineOpts...)
	if err := eng.Calculate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	trajectory := eng.StatesCount()

	run, err := h.store.WriteRun(ctx, store.RunRecord{
		ID:           scenario.runID(),
		Task:         initial,
		BlockScaling: scenario.BlockScaling,
		Trajectory:   trajectory,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h.logger.Info("scenario run stored",
		"scenario", scenario.Name,
		"run_id", run.ID,
		"task_hash", run.TaskHash,
		"steps", run.Steps,
	)

	result := NewResult()
	result.RunID = run.ID
	result.Task = run.TaskName
	result.TaskHash = run.TaskHash
	result.Trajectory = trajectory
	for _, s := range initial.States {
		result.States = append(result.States, s.Name)
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
		Task:  initial,

		BlockScaling: scenario.BlockScaling,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// loadTask compiles the scenario's task and applies its overrides.
func loadTask(scenario *Scenario) (*model.Task, error) {
	tasks, err := compiler.LoadTasks(scenario.Task)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: load task: %w", scenario.Name, err)
	}
	task, err := compiler.SelectTask(tasks, scenario.TaskName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	if scenario.Steps != nil {
		task.Steps = *scenario.Steps
	}

	if problems := compiler.Validate(task); len(problems) > 0 {
		return nil, fmt.Errorf("scenario %s: invalid task: %v", scenario.Name, problems[0])
	}
	return task, nil
}
