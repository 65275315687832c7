package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/queryir"
	"github.com/roach88/popdyn/internal/querysql"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is the catalogue entry of a stored run.
type Run struct {
	ID              string
	Seq             int64
	TaskName        string
	TaskHash        string
	Start           int
	Steps           int
	BlockScaling    bool
	EngineVersion   string
	DocumentVersion string
}

// Sample is one stored count.
type Sample struct {
	Step   int
	Column int
	State  string
	Count  float64
}

// ReadRun returns the catalogue entry of one run.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, task_name, task_hash, start, steps, block_scaling, engine_version, document_version
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the runs matching q, ordered by sequence number.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, q queryir.Runs) ([]Run, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadTask decodes the task a run was started from.
func (s *Store) ReadTask(ctx context.Context, id string) (*model.Task, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT task_json FROM runs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read task %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read task %s: %w", id, err)
	}

	task, err := unmarshalTask(doc)
	if err != nil {
		return nil, fmt.Errorf("read task %s: %w", id, err)
	}
	return task, nil
}

// ReadStates returns a run's state names in column order.
func (s *Store) ReadStates(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM run_states
		WHERE run_id = ?
		ORDER BY state_index ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read states %s: %w", id, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("read states %s: %w", id, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read states %s: %w", id, err)
	}
	return names, nil
}

// History returns the samples matching q, ordered by step and column.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) History(ctx context.Context, q queryir.Samples) ([]Sample, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var (
			sample Sample
			count  sql.NullFloat64
		)
		if err := rows.Scan(&sample.Step, &sample.Column, &sample.State, &count); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		sample.Count = scanCount(count)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return samples, nil
}

// ReadTrajectory rebuilds a run's full table, one row per step.
// Fails if any sample is missing.
func (s *Store) ReadTrajectory(ctx context.Context, id string) ([][]float64, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := s.ReadStates(ctx, id)
	if err != nil {
		return nil, err
	}
	samples, err := s.History(ctx, queryir.Samples{RunID: id})
	if err != nil {
		return nil, fmt.Errorf("read trajectory %s: %w", id, err)
	}

	width := len(names)
	if want := (run.Steps + 1) * width; len(samples) != want {
		return nil, fmt.Errorf("read trajectory %s: %d samples, want %d", id, len(samples), want)
	}

	table := make([][]float64, run.Steps+1)
	for i := range table {
		table[i] = make([]float64, width)
	}
	for _, sample := range samples {
		table[sample.Step][sample.Column] = sample.Count
	}
	return table, nil
}

// LastSeq returns the highest run sequence number, or 0 for an empty store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads the querysql.RunColumns layout.
func scanRun(r rowScanner) (Run, error) {
	var (
		run          Run
		blockScaling int
	)
	err := r.Scan(
		&run.ID,
		&run.Seq,
		&run.TaskName,
		&run.TaskHash,
		&run.Start,
		&run.Steps,
		&blockScaling,
		&run.EngineVersion,
		&run.DocumentVersion,
	)
	if err != nil {
		return Run{}, err
	}
	run.BlockScaling = blockScaling != 0
	return run, nil
}
