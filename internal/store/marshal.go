package store

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/roach88/popdyn/internal/model"
)

// marshalTask returns the task's JSON document and content hash.
// The document round-trips every float64 exactly, which replay relies on.
func marshalTask(task *model.Task) (doc string, hash string, err error) {
	data, err := model.MarshalTask(task)
	if err != nil {
		return "", "", err
	}
	hash, err = task.Hash()
	if err != nil {
		return "", "", err
	}
	return string(data), hash, nil
}

// unmarshalTask parses a stored task document.
func unmarshalTask(doc string) (*model.Task, error) {
	if doc == "" {
		return nil, fmt.Errorf("unmarshal task: empty document")
	}
	return model.UnmarshalTask([]byte(doc))
}

// countParam converts a count to a SQL parameter. SQLite has no NaN, so
// NaN is stored as NULL.
func countParam(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// scanCount is the inverse of countParam.
func scanCount(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolParam(b bool) int {
	if b {
		return 1
	}
	return 0
}
