package cli

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/popdyn/internal/compiler"
	"github.com/roach88/popdyn/internal/model"
)

// LoadResult contains the tasks compiled from a file or directory.
type LoadResult struct {
	Tasks     []*model.Task
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during task loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadTasks loads and compiles every task in a .cue file or a directory
// holding one CUE package. Every failure comes back as a *LoadError.
func LoadTasks(path string) (*LoadResult, error) {
	src, err := compiler.Load(path)
	if err != nil {
		return nil, convertLoadError(err)
	}

	tasks, err := compiler.CompileTasks(src.Value)
	if err != nil {
		return nil, convertLoadError(err)
	}
	if len(tasks) == 0 {
		return nil, &LoadError{Code: ErrCodeNoTasks, Message: fmt.Sprintf("no tasks found in %s", path)}
	}

	return &LoadResult{Tasks: tasks, FileCount: len(src.Files)}, nil
}

// LoadTask loads path and selects one task by name. An empty name
// selects the only task.
func LoadTask(path, name string) (*model.Task, error) {
	result, err := LoadTasks(path)
	if err != nil {
		return nil, err
	}
	task, err := compiler.SelectTask(result.Tasks, name)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNoTasks, Message: err.Error()}
	}
	return task, nil
}

// convertLoadError converts a loader or compiler error to a LoadError
// with position info.
func convertLoadError(err error) *LoadError {
	switch {
	case errors.Is(err, compiler.ErrNotFound):
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, compiler.ErrNoFiles):
		return &LoadError{Code: ErrCodeNoFiles, Message: err.Error()}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
// Task validation codes (E1xx) are shared with compiler.Validate.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoTasks     = "E008" // No task found or selected
	ErrCodeStore       = "E009" // Database error
	ErrCodeRunFailed   = "E010" // Engine error
	ErrCodeBadQuery    = "E011" // Invalid history or runs filter
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	if field == "cue" {
		return ErrCodeBuildFailed
	}
	if field == "state" {
		return compiler.ErrTaskNoStates
	}

	switch field[strings.LastIndex(field, ".")+1:] {
	case "count":
		return compiler.ErrNonFiniteCount
	case "type":
		return compiler.ErrInvalidType
	case "probability":
		return compiler.ErrInvalidProbability
	case "block":
		return compiler.ErrInvalidBlock
	case "states":
		return compiler.ErrNoEntries
	case "state":
		return compiler.ErrForeignState
	case "mode":
		return compiler.ErrInvalidMode
	default:
		return ErrCodeGeneric
	}
}
