package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/queryir"
	"github.com/roach88/popdyn/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Task     string // optional - filter by task name
	Hash     string // optional - filter by task hash
	Limit    int
}

// RunEntry is one stored run in JSON output.
type RunEntry struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	Task            string `json:"task"`
	TaskHash        string `json:"task_hash"`
	Start           int    `json:"start"`
	Steps           int    `json:"steps"`
	BlockScaling    bool   `json:"block_scaling"`
	EngineVersion   string `json:"engine_version"`
	DocumentVersion string `json:"document_version"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List stored runs in the order they were written.

Runs of the same task document share a hash, so --hash finds every run
of an exact task regardless of its name.

Examples:
  popdyn runs --db ./popdyn.db
  popdyn runs --db ./popdyn.db --task epidemic_linear --limit 5
  popdyn runs --db ./popdyn.db --hash 3f2a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Task, "task", "", "filter by task name")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "filter by task hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs (0 for no limit)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	defer st.Close()

	query := runsQuery(opts)
	if res := queryir.Validate(query); !res.Valid {
		return formatter.fail(ExitCommandError, ErrCodeBadQuery, strings.Join(res.Problems, "; "), nil)
	}

	runs, err := st.ListRuns(ctx, query)
	if err != nil {
		return outputStoreError(formatter, err)
	}

	if formatter.Format == "json" {
		entries := make([]RunEntry, len(runs))
		for i, r := range runs {
			entries[i] = runEntry(r)
		}
		return formatter.Success(entries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\t%d step(s)\t%s\n", r.Seq, r.ID, r.TaskName, r.Steps, shortHash(r.TaskHash))
	}
	return nil
}

func runsQuery(opts *RunsOptions) queryir.Runs {
	var preds []queryir.Predicate
	if opts.Task != "" {
		preds = append(preds, queryir.TaskIs{Name: opts.Task})
	}
	if opts.Hash != "" {
		preds = append(preds, queryir.HashIs{Hash: opts.Hash})
	}

	q := queryir.Runs{Limit: opts.Limit}
	if len(preds) > 0 {
		q.Filter = queryir.And{Predicates: preds}
	}
	return q
}

func runEntry(r store.Run) RunEntry {
	return RunEntry{
		ID:              r.ID,
		Seq:             r.Seq,
		Task:            r.TaskName,
		TaskHash:        r.TaskHash,
		Start:           r.Start,
		Steps:           r.Steps,
		BlockScaling:    r.BlockScaling,
		EngineVersion:   r.EngineVersion,
		DocumentVersion: r.DocumentVersion,
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
