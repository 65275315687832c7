package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/engine"
	"github.com/roach88/popdyn/internal/queryir"
	"github.com/roach88/popdyn/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	All      bool // replay every stored run
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string         `json:"run_id"`
	Task          string         `json:"task"`
	Steps         int            `json:"steps"`
	Deterministic bool           `json:"deterministic"`
	Shape         string         `json:"shape,omitempty"`
	Mismatches    int            `json:"mismatches"`
	First         *MismatchEntry `json:"first_mismatch,omitempty"`
}

// MismatchEntry is the first differing sample of a replay.
type MismatchEntry struct {
	Step     int    `json:"step"`
	State    string `json:"state"`
	Stored   any    `json:"stored"`
	Replayed any    `json:"replayed"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Recompute stored runs and verify determinism",
		Long: `Recompute stored runs from their stored task documents and verify
that every sample is bit-identical to the stored trajectory.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  popdyn replay --db ./popdyn.db 0190b5c2-...
  popdyn replay --db ./popdyn.db --all
  popdyn replay --db ./popdyn.db --all --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReplay(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every stored run")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd)

	if (runID == "") == !opts.All {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "give either a run id or --all", nil)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	defer st.Close()

	runIDs := []string{runID}
	if opts.All {
		runs, err := st.ListRuns(ctx, queryir.Runs{})
		if err != nil {
			return outputStoreError(formatter, err)
		}
		runIDs = runIDs[:0]
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	if len(runIDs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{Runs: []ReplayRunResult{}, AllDeterministic: true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}

	for _, id := range runIDs {
		runResult, err := ReplayRun(ctx, st, id, engine.WithLogger(logger))
		if err != nil {
			return outputStoreError(formatter, err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// ReplayRun recomputes one stored run with the options it was stored
// with and compares the result bit for bit.
func ReplayRun(ctx context.Context, st *store.Store, runID string, opts ...engine.Option) (ReplayRunResult, error) {
	in, err := st.LoadReplay(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	if in.Run.BlockScaling {
		opts = append(opts, engine.WithBlockScaling())
	}
	eng := engine.New(in.Task, opts...)
	if err := eng.Calculate(); err != nil {
		return ReplayRunResult{}, fmt.Errorf("replay %s: %w", runID, err)
	}

	names := make([]string, len(in.Task.States))
	for i, s := range in.Task.States {
		names[i] = s.Name
	}
	cmp := store.CompareTrajectories(runID, names, in.Trajectory, eng.StatesCount())

	res := ReplayRunResult{
		RunID:         runID,
		Task:          in.Run.TaskName,
		Steps:         in.Run.Steps,
		Deterministic: cmp.Identical,
		Shape:         cmp.Shape,
		Mismatches:    len(cmp.Mismatches),
	}
	if len(cmp.Mismatches) > 0 {
		m := cmp.Mismatches[0]
		res.First = &MismatchEntry{
			Step:     m.Step,
			State:    m.State,
			Stored:   jsonCount(m.Stored),
			Replayed: jsonCount(m.Replayed),
		}
	}
	return res, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		if verbose {
			fmt.Fprintf(w, "  Task: %s\n", run.Task)
			fmt.Fprintf(w, "  Steps: %d\n", run.Steps)
		}

		switch {
		case run.Shape != "":
			fmt.Fprintf(w, "  Warning: trajectory shape differs: %s\n", run.Shape)
		case run.First != nil:
			fmt.Fprintf(w, "  Warning: %d sample(s) differ, first %s at step %d: stored %v, replayed %v\n",
				run.Mismatches, run.First.State, run.First.Step, run.First.Stored, run.First.Replayed)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
