package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/queryir"
	"github.com/roach88/popdyn/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	From     int
	To       int      // -1 means open-ended
	Stride   int      // 0 or 1 keeps every step
	States   []string // optional - filter to specific states
	Limit    int
}

// HistorySample is one stored count in JSON output.
type HistorySample struct {
	Step  int    `json:"step"`
	State string `json:"state"`
	Count any    `json:"count"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	RunID   string          `json:"run_id"`
	Task    string          `json:"task"`
	Samples []HistorySample `json:"samples"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <run-id>",
		Short: "Query the stored trajectory of a run",
		Long: `Query the stored trajectory of a run.

Samples come back ordered by step, then by state column. Filters
combine: a step range, a stride over steps, and a set of state names.

Examples:
  popdyn history --db ./popdyn.db 0190b5c2-...
  popdyn history --db ./popdyn.db 0190b5c2-... --from 10 --to 20 --state infected
  popdyn history --db ./popdyn.db 0190b5c2-... --stride 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.From, "from", 0, "first step")
	cmd.Flags().IntVar(&opts.To, "to", -1, "last step (-1 for the end of the run)")
	cmd.Flags().IntVar(&opts.Stride, "stride", 1, "keep every n-th step")
	cmd.Flags().StringSliceVar(&opts.States, "state", nil, "filter to state names (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of samples (0 for no limit)")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return outputStoreError(formatter, err)
	}

	query := historyQuery(runID, opts)
	if res := queryir.Validate(query); !res.Valid {
		return formatter.fail(ExitCommandError, ErrCodeBadQuery, strings.Join(res.Problems, "; "), nil)
	}
	formatter.VerboseLog("History filter: %+v", query.Filter)

	samples, err := st.History(ctx, query)
	if err != nil {
		return outputStoreError(formatter, err)
	}

	if formatter.Format == "json" {
		result := HistoryResult{
			RunID:   run.ID,
			Task:    run.TaskName,
			Samples: make([]HistorySample, len(samples)),
		}
		for i, s := range samples {
			result.Samples[i] = HistorySample{Step: s.Step, State: s.State, Count: jsonCount(s.Count)}
		}
		return formatter.Success(result)
	}

	if len(samples) == 0 {
		fmt.Fprintf(formatter.Writer, "No samples found for run: %s\n", runID)
		return nil
	}
	writeHistoryTable(formatter, samples)
	return nil
}

// historyQuery builds the sample query for the command's filters. Unset
// filters are left out.
func historyQuery(runID string, opts *HistoryOptions) queryir.Samples {
	var preds []queryir.Predicate
	if opts.From != 0 || opts.To >= 0 {
		preds = append(preds, queryir.StepRange{From: opts.From, To: opts.To})
	}
	if opts.Stride != 1 {
		preds = append(preds, queryir.Stride{Every: opts.Stride})
	}
	if len(opts.States) > 0 {
		preds = append(preds, queryir.StateIn{Names: opts.States})
	}

	q := queryir.Samples{RunID: runID, Limit: opts.Limit}
	switch len(preds) {
	case 0:
	case 1:
		q.Filter = preds[0]
	default:
		q.Filter = queryir.And{Predicates: preds}
	}
	return q
}

// writeHistoryTable pivots samples into one row per step and one column
// per state, in stored column order.
func writeHistoryTable(formatter *OutputFormatter, samples []store.Sample) {
	names := map[int]string{}
	for _, s := range samples {
		names[s.Column] = s.State
	}
	columns := make([]int, 0, len(names))
	for c := range names {
		columns = append(columns, c)
	}
	sort.Ints(columns)

	w := formatter.Writer
	fmt.Fprint(w, "step")
	for _, c := range columns {
		fmt.Fprintf(w, "\t%s", names[c])
	}
	fmt.Fprintln(w)

	for i := 0; i < len(samples); {
		step := samples[i].Step
		row := map[int]float64{}
		for ; i < len(samples) && samples[i].Step == step; i++ {
			row[samples[i].Column] = samples[i].Count
		}

		fmt.Fprintf(w, "%d", step)
		for _, c := range columns {
			if v, ok := row[c]; ok {
				fmt.Fprintf(w, "\t%s", formatFloat(v))
			} else {
				fmt.Fprint(w, "\t-")
			}
		}
		fmt.Fprintln(w)
	}
}

// openStore opens an existing database. Read-only commands must not
// create an empty one as a side effect.
func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %s", path)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// outputStoreError reports a store failure. An unknown run is a command
// error like any other bad argument.
func outputStoreError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
}
