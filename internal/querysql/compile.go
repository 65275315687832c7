package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/popdyn/internal/queryir"
)

// SampleColumns is the column order of every compiled Samples query.
var SampleColumns = []string{"step", "state_index", "name", "count"}

// RunColumns is the column order of every compiled Runs query.
var RunColumns = []string{
	"id", "seq", "task_name", "task_hash", "start", "steps",
	"block_scaling", "engine_version", "document_version",
}

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Every statement carries an ORDER BY with a unique tiebreaker, and every
// value travels as a ? parameter.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error). Invalid queries are rejected before any
// SQL is produced.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}

	switch query := q.(type) {
	case queryir.Samples:
		return c.compileSamples(query)
	case *queryir.Samples:
		return c.compileSamples(*query)
	case queryir.Runs:
		return c.compileRuns(query)
	case *queryir.Runs:
		return c.compileRuns(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSamples(q queryir.Samples) (string, []any, error) {
	where := []string{"s.run_id = ?"}
	params := []any{q.RunID}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			where = append(where, filterSQL)
			params = append(params, filterParams...)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT s.step, s.state_index, rs.name, s.count")
	b.WriteString(" FROM samples AS s")
	b.WriteString(" INNER JOIN run_states AS rs ON rs.run_id = s.run_id AND rs.state_index = s.state_index")
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY s.step ASC, s.state_index ASC")
	params = appendLimit(&b, params, q.Limit)

	return b.String(), params, nil
}

func (c *SQLCompiler) compileRuns(q queryir.Runs) (string, []any, error) {
	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(RunColumns, ", "))
	b.WriteString(" FROM runs")

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			b.WriteString(" WHERE ")
			b.WriteString(filterSQL)
			params = filterParams
		}
	}

	// seq is unique; id keeps the order total even on a hand-edited database.
	b.WriteString(" ORDER BY seq ASC, id ASC COLLATE BINARY")
	params = appendLimit(&b, params, q.Limit)

	return b.String(), params, nil
}

func appendLimit(b *strings.Builder, params []any, limit int) []any {
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, limit)
	}
	return params
}

// compilePredicate returns an empty fragment for predicates that filter
// nothing (an empty And).
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.StepRange:
		return compileStepRange(pred)
	case *queryir.StepRange:
		return compileStepRange(*pred)
	case queryir.Stride:
		return "s.step % ? = 0", []any{pred.Every}, nil
	case *queryir.Stride:
		return "s.step % ? = 0", []any{pred.Every}, nil
	case queryir.StateIn:
		return compileStateIn(pred)
	case *queryir.StateIn:
		return compileStateIn(*pred)
	case queryir.TaskIs:
		return "task_name = ?", []any{pred.Name}, nil
	case *queryir.TaskIs:
		return "task_name = ?", []any{pred.Name}, nil
	case queryir.HashIs:
		return "task_hash = ?", []any{pred.Hash}, nil
	case *queryir.HashIs:
		return "task_hash = ?", []any{pred.Hash}, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileStepRange(r queryir.StepRange) (string, []any, error) {
	if r.To < 0 {
		return "s.step >= ?", []any{r.From}, nil
	}
	return "s.step BETWEEN ? AND ?", []any{r.From, r.To}, nil
}

func compileStateIn(in queryir.StateIn) (string, []any, error) {
	marks := make([]string, len(in.Names))
	params := make([]any, len(in.Names))
	for i, name := range in.Names {
		marks[i] = "?"
		params[i] = name
	}
	return "rs.name IN (" + strings.Join(marks, ", ") + ")", params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}
