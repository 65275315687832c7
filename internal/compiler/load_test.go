package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTasks_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sir.cue", "package tasks\n"+sirSource)

	tasks, err := LoadTasks(path)
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, "sir", tasks[0].Name)
}

func TestLoadTasks_DirectoryUnifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "package tasks\n"+sirSource)
	writeFile(t, dir, "b.cue", `package tasks
task: decay: {
	steps: 3
	state: { n: 10 }
	transition: { loss: { probability: 0.1, states: [{ state: "n", in: 1 }] } }
}
`)

	src, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, src.Files, 2)

	tasks, err := CompileTasks(src.Value)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestLoad_SyntaxErrorHasPosition(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.cue", "package tasks\ntask: x: {\n")

	_, err := Load(path)
	require.Error(t, err)

	var ce *CompileError
	if assert.ErrorAs(t, err, &ce) {
		assert.True(t, ce.Pos.IsValid())
		assert.Equal(t, "cue", ce.Field)
		assert.NotNil(t, errors.Unwrap(ce), "keeps the CUE error list")
		assert.Contains(t, ce.Error(), "bad.cue:")
	}
}

func TestSelectTask(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "package tasks\n"+sirSource)
	writeFile(t, dir, "b.cue", "package tasks\ntask: other: { state: { x: 1 } }\n")

	tasks, err := LoadTasks(dir)
	require.NoError(t, err)

	task, err := SelectTask(tasks, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", task.Name)

	_, err = SelectTask(tasks, "")
	assert.ErrorContains(t, err, "choose one of")

	_, err = SelectTask(tasks, "nope")
	assert.ErrorContains(t, err, `task "nope" not found`)

	only, err := SelectTask(tasks[:1], "")
	require.NoError(t, err)
	assert.Equal(t, "sir", only.Name)

	_, err = SelectTask(nil, "")
	assert.ErrorContains(t, err, "no tasks defined")
}
