package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/popdyn/internal/kinetics"
	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/timeexpr"
)

// Engine advances a task's state counts step by step.
//
// Thread-safety model: none. One Calculate at a time per Engine, and the
// task must not be mutated while it runs.
//
// INVARIANTS:
//   - len(table) == task.Steps+1 and every row has len(task.States) columns
//   - row 0 always mirrors State.Count as of the last CopyStep(0)
//   - Calculate never mutates the task; Commit is the only write-back
type Engine struct {
	task   *model.Task
	index  map[model.StateID]int
	table  Table
	logger *slog.Logger

	blockScaling bool
	blocks       map[model.TransitionID]timeexpr.Expr
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger used for run diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBlockScaling multiplies every transition's rate by its block
// expression evaluated at t = task.Start + step.
//
// Default: off. Transitions without a block are unaffected either way.
func WithBlockScaling() Option {
	return func(e *Engine) {
		e.blockScaling = true
	}
}

// New creates an Engine for the task and initialises row 0 from the
// current State.Count values.
func New(task *model.Task, opts ...Option) *Engine {
	steps := task.Steps
	if steps < 0 {
		steps = 0
	}

	e := &Engine{
		task:   task,
		index:  task.StateIndex(),
		table:  newTable(steps, len(task.States)),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.CopyStep(0)
	return e
}

// Task returns the task the engine runs.
func (e *Engine) Task() *model.Task {
	return e.task
}

// CopyStep initialises row step: row 0 from the states' current counts,
// any later row from the row before it.
func (e *Engine) CopyStep(step int) {
	if step == 0 {
		for i, s := range e.task.States {
			e.table[0][i] = s.Count
		}
		return
	}
	copy(e.table[step], e.table[step-1])
}

// StatesCount returns a copy of the full trajectory, one row per step.
func (e *Engine) StatesCount() Table {
	return e.table.Clone()
}

// MaxDelay returns the largest delay across every entry of the task.
func (e *Engine) MaxDelay() int {
	return e.task.MaxDelay()
}

// Intensity returns the transition's intensity at the given step.
func (e *Engine) Intensity(tr *model.Transition, step int) (float64, error) {
	return kinetics.Intensity(tr, e.view(step))
}

// TotalCount returns the transition's total-count normaliser at the given step.
func (e *Engine) TotalCount(tr *model.Transition, step int) (float64, error) {
	return kinetics.TotalCount(tr, e.view(step))
}

// Commit writes the final row back into State.Count.
func (e *Engine) Commit() {
	final := e.table.Final()
	for i, s := range e.task.States {
		s.Count = final[i]
	}
}

// column returns the table column of s. Panics if s is not part of the task.
func (e *Engine) column(s *model.State) int {
	col, ok := e.index[s.ID]
	if !ok {
		panic(fmt.Sprintf("engine: state %s is not part of the task", s))
	}
	return col
}

func (e *Engine) view(step int) stepView {
	return stepView{table: e.table, step: step, index: e.index}
}

// Calculate runs the whole simulation from the states' current counts.
// It can be called again; each call starts over from row 0.
//
// Returns a *RuntimeError if a transition has an unknown type or, with
// block scaling, a block that does not parse. The run stops at the first
// such error.
func (e *Engine) Calculate() error {
	start := time.Now()
	steps := len(e.table) - 1

	e.logger.Debug("calculation starting",
		"task", e.task.Name,
		"states", len(e.task.States),
		"transitions", len(e.task.Transitions),
		"steps", steps,
		"max_delay", e.MaxDelay())

	err := e.calculate(steps)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
		e.logger.Error("calculation failed", "task", e.task.Name, "error", err)
	} else {
		e.logger.Debug("calculation finished", "task", e.task.Name, "final", e.table.Final())
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return err
}

func (e *Engine) calculate(steps int) error {
	if err := e.checkDelays(); err != nil {
		return err
	}
	if err := e.parseBlocks(); err != nil {
		return err
	}

	var normal, residual []*model.Transition
	for _, tr := range e.task.Transitions {
		if tr.HasResidual() {
			residual = append(residual, tr)
		} else {
			normal = append(normal, tr)
		}
	}

	e.CopyStep(0)
	for t := 0; t < steps; t++ {
		e.CopyStep(t + 1)

		for _, tr := range normal {
			if err := e.applyNormal(tr, t); err != nil {
				return err
			}
		}
		for _, tr := range residual {
			if err := e.applyResidual(tr, t); err != nil {
				return err
			}
		}

		stepsTotal.Inc()
	}
	return nil
}

// applyNormal adds (out - in) × rate to every actual entry of tr with a
// non-zero coefficient.
func (e *Engine) applyNormal(tr *model.Transition, t int) error {
	rate, err := e.rate(tr, t)
	if err != nil {
		return newTransitionError(e.task.Name, tr, t, err)
	}

	next := e.table[t+1]
	for _, entry := range tr.ActualStates() {
		// A zero coefficient leaves the state alone even when rate is NaN.
		if c := entry.Coefficient(); c != 0 {
			next[e.column(entry.State)] += c * rate
		}
	}

	applicationsTotal.WithLabelValues(passNormal).Inc()
	return nil
}

// applyResidual drives every RESIDUAL entry toward the shared term and
// redistributes the removed quantity to the producing entries.
func (e *Engine) applyResidual(tr *model.Transition, t int) error {
	term, err := e.rate(tr, t)
	if err != nil {
		return newTransitionError(e.task.Name, tr, t, err)
	}

	view := e.view(t)
	next := e.table[t+1]
	entries := tr.ActualStates()

	var pool float64
	for _, entry := range entries {
		if entry.Mode != model.Residual {
			continue
		}
		leftover := view.At(entry.State, entry.Delay) - term
		pool += leftover
		next[e.column(entry.State)] -= leftover
	}

	for _, entry := range entries {
		if entry.Mode == model.Residual || entry.Out == 0 {
			continue
		}
		if c := entry.Coefficient(); c != 0 {
			next[e.column(entry.State)] += c * pool
		}
	}

	applicationsTotal.WithLabelValues(passResidual).Inc()
	return nil
}

// rate returns probability × intensity × total at step t, scaled by the
// block expression when block scaling is on.
func (e *Engine) rate(tr *model.Transition, t int) (float64, error) {
	rate, err := kinetics.Rate(tr, e.view(t))
	if err != nil {
		return 0, err
	}
	if expr, ok := e.blocks[tr.ID]; ok {
		rate *= expr.Eval(float64(e.task.Start + t))
	}
	return rate, nil
}

// checkDelays rejects entries that would read a row the run has not
// produced yet.
func (e *Engine) checkDelays() error {
	for _, tr := range e.task.Transitions {
		for _, entry := range tr.ActualStates() {
			if entry.Delay < 0 {
				return NewNegativeDelayError(e.task.Name, tr, entry)
			}
		}
	}
	return nil
}

// parseBlocks resolves block expressions once per run.
func (e *Engine) parseBlocks() error {
	e.blocks = nil
	if !e.blockScaling {
		return nil
	}

	e.blocks = make(map[model.TransitionID]timeexpr.Expr)
	for _, tr := range e.task.Transitions {
		if tr.Block == "" {
			continue
		}
		expr := timeexpr.Parse(tr.Block)
		if expr.Kind == timeexpr.Invalid {
			return NewInvalidBlockError(e.task.Name, tr)
		}
		e.blocks[tr.ID] = expr
	}
	return nil
}
