package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/popdyn/internal/model"
)

var (
	// ErrNotFound is returned when the task path does not exist.
	ErrNotFound = errors.New("task path not found")

	// ErrNoFiles is returned when a directory holds no .cue files.
	ErrNoFiles = errors.New("no CUE files found")
)

// CompileError is a task error tied to a CUE field. Pos is the zero
// token.Pos when CUE reported no position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos.Position(), e.Field, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// cueError turns a CUE error list into a *CompileError at the first
// position CUE reports. Errors without any position pass through.
func cueError(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range cueerrors.Errors(err) {
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			return &CompileError{Field: "cue", Message: e.Error(), Pos: pos[0], Err: err}
		}
	}
	return err
}

// Source is a built CUE value and the files it came from.
type Source struct {
	Value cue.Value
	Files []string
}

// Load builds the CUE value for a single .cue file or for the package in
// a directory. Files in a directory must share a package clause.
//
// CUE load and build failures come back as *CompileError when CUE reports
// a position.
func Load(path string) (*Source, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	var (
		cfg   *load.Config
		args  []string
		files []string
	)
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoFiles, path)
		}
		cfg = &load.Config{Dir: path}
		args = []string{"."}
	} else {
		files = []string{path}
		cfg = &load.Config{Dir: filepath.Dir(path)}
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueError(err)
	}

	return &Source{Value: value, Files: files}, nil
}

// LoadTasks loads path and compiles every task in it.
func LoadTasks(path string) ([]*model.Task, error) {
	src, err := Load(path)
	if err != nil {
		return nil, err
	}
	return CompileTasks(src.Value)
}

// SelectTask picks a task by name. An empty name selects the only task
// and is an error when there are several.
func SelectTask(tasks []*model.Task, name string) (*model.Task, error) {
	if name == "" {
		switch len(tasks) {
		case 0:
			return nil, errors.New("no tasks defined")
		case 1:
			return tasks[0], nil
		default:
			names := make([]string, len(tasks))
			for i, t := range tasks {
				names[i] = t.Name
			}
			return nil, fmt.Errorf("%d tasks defined, choose one of %v", len(tasks), names)
		}
	}
	for _, t := range tasks {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task %q not found", name)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
