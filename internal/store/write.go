package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/popdyn/internal/model"
)

// ErrRunExists is returned when a run id is written twice.
var ErrRunExists = errors.New("run already exists")

// RunRecord is everything needed to persist one simulation run.
type RunRecord struct {
	ID string

	// Task as it was before the run. Its States order defines the
	// trajectory's columns.
	Task *model.Task

	BlockScaling bool

	// Trajectory holds Task.Steps+1 rows of len(Task.States) counts.
	Trajectory [][]float64
}

// WriteRun persists a run, its column layout and every sample in one
// transaction, and returns the stored Run with its assigned sequence
// number.
//
// Sequence numbers come from the store (max + 1), so they are dense and
// strictly increasing in write order.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (Run, error) {
	if err := checkRecord(rec); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	doc, hash, err := marshalTask(rec.Task)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	run := Run{
		ID:              rec.ID,
		TaskName:        rec.Task.Name,
		TaskHash:        hash,
		Start:           rec.Task.Start,
		Steps:           rec.Task.Steps,
		BlockScaling:    rec.BlockScaling,
		EngineVersion:   model.EngineVersion,
		DocumentVersion: model.DocumentVersion,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, rec.ID).Scan(&exists)
	switch {
	case err == nil:
		return Run{}, fmt.Errorf("write run %s: %w", rec.ID, ErrRunExists)
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, task_name, task_hash, task_json, start, steps, block_scaling, engine_version, document_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.TaskName,
		run.TaskHash,
		doc,
		run.Start,
		run.Steps,
		boolParam(run.BlockScaling),
		run.EngineVersion,
		run.DocumentVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for i, st := range rec.Task.States {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_states (run_id, state_index, state_id, name, alias)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, i, int64(st.ID), st.Name, st.Alias)
		if err != nil {
			return Run{}, fmt.Errorf("write run: state %s: %w", st.Name, err)
		}
	}

	if err := writeSamples(ctx, tx, run.ID, rec.Trajectory); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

func writeSamples(ctx context.Context, tx *sql.Tx, runID string, table [][]float64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, step, state_index, count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for step, row := range table {
		for col, v := range row {
			if _, err := stmt.ExecContext(ctx, runID, step, col, countParam(v)); err != nil {
				return fmt.Errorf("sample step %d column %d: %w", step, col, err)
			}
		}
	}
	return nil
}

func checkRecord(rec RunRecord) error {
	if rec.ID == "" {
		return errors.New("run id is required")
	}
	if rec.Task == nil {
		return errors.New("task is required")
	}
	if rec.Task.Steps < 0 {
		return fmt.Errorf("negative steps %d", rec.Task.Steps)
	}
	if want := rec.Task.Steps + 1; len(rec.Trajectory) != want {
		return fmt.Errorf("trajectory has %d rows, want %d", len(rec.Trajectory), want)
	}
	width := len(rec.Task.States)
	for step, row := range rec.Trajectory {
		if len(row) != width {
			return fmt.Errorf("trajectory row %d has %d columns, want %d", step, len(row), width)
		}
	}
	return nil
}
