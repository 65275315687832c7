package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	Task         string
	Steps        int
	BlockScaling bool
	Metrics      bool

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.RunIDGenerator
}

// RunSummary is the outcome of a stored run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Seq          int64          `json:"seq"`
	Task         string         `json:"task"`
	TaskHash     string         `json:"task_hash"`
	Steps        int            `json:"steps"`
	BlockScaling bool           `json:"block_scaling"`
	States       []string       `json:"states"`
	Final        map[string]any `json:"final"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <tasks-path>",
		Short: "Simulate a task and store the trajectory",
		Long: `Simulate a task step by step and store the run in SQLite.

The database is created if it doesn't exist. Every run gets a
time-sortable UUIDv7 id and keeps the task document it started from, so
it can be replayed later.

Example:
  popdyn run --db ./popdyn.db ./tasks/epidemic.cue --task epidemic_linear
  popdyn run --db ./popdyn.db ./tasks --task predation --steps 50 --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Task, "task", "", "task to run when the path defines several")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "override the task's step count")
	cmd.Flags().BoolVar(&opts.BlockScaling, "block-scaling", false, "scale transition rates by their block expressions")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics to stderr after the run")

	return cmd
}

func runTask(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	task, err := LoadTask(path, opts.Task)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if cmd.Flags().Changed("steps") {
		task.Steps = opts.Steps
	}

	validation := ValidateTasks([]*model.Task{task})
	if !validation.Valid {
		return outputValidationErrors(formatter, validation)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	initial := task.Clone()
	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.BlockScaling {
		engineOpts = append(engineOpts, engine.WithBlockScaling())
	}

	logger.Info("run starting", "task", task.Name, "steps", task.Steps, "block_scaling", opts.BlockScaling)
	eng := engine.New(task, engineOpts...)
	if err := eng.Calculate(); err != nil {
		return formatter.fail(ExitFailure, ErrCodeRunFailed, err.Error(), nil)
	}
	trajectory := eng.StatesCount()

	gen := opts.IDGenerator
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	run, err := st.WriteRun(ctx, store.RunRecord{
		ID:           gen.Generate(),
		Task:         initial,
		BlockScaling: opts.BlockScaling,
		Trajectory:   trajectory,
	})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	logger.Info("run stored", "run_id", run.ID, "seq", run.Seq, "task_hash", run.TaskHash)

	summary := RunSummary{
		RunID:        run.ID,
		Seq:          run.Seq,
		Task:         run.TaskName,
		TaskHash:     run.TaskHash,
		Steps:        run.Steps,
		BlockScaling: run.BlockScaling,
		States:       make([]string, len(initial.States)),
		Final:        make(map[string]any, len(initial.States)),
	}
	last := trajectory[len(trajectory)-1]
	for i, s := range initial.States {
		summary.States[i] = s.Name
		summary.Final[s.Name] = jsonCount(last[i])
	}

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter()); err != nil {
			logger.Warn("failed to gather metrics", "error", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s stored (seq %d)\n", summary.RunID, summary.Seq)
	fmt.Fprintf(w, "  task %s, %d step(s), hash %s\n", summary.Task, summary.Steps, summary.TaskHash)
	fmt.Fprintln(w, "  final counts:")
	for i, name := range summary.States {
		fmt.Fprintf(w, "    %s = %s\n", name, formatFloat(last[i]))
	}
	return nil
}

// writeMetrics prints the engine's metric families in the Prometheus text
// exposition format.
func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "popdyn_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// jsonCount makes a count safe for encoding/json, which rejects NaN and
// infinities.
func jsonCount(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatFloat(v)
	}
	return v
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
