package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/compiler"
	"github.com/roach88/popdyn/internal/model"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Task   string // optional - compile one task only
	Output string // output file path
}

// CompilationResult holds the compiled task documents.
type CompilationResult struct {
	Tasks []TaskDocument `json:"tasks"`
}

// TaskDocument is a compiled task with its content hash.
type TaskDocument struct {
	Hash     string         `json:"hash"`
	Document model.Document `json:"document"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <tasks-path>",
		Short: "Compile CUE tasks to task documents",
		Long: `Compile CUE task definitions to their JSON task documents.

The path is a single .cue file or a directory holding one CUE package.
Each document carries the content hash that stored runs are keyed by.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Task, "task", "", "compile only the named task")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadTasks(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	tasks := loaded.Tasks
	if opts.Task != "" {
		task, err := compiler.SelectTask(tasks, opts.Task)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeNoTasks, err.Error(), nil)
		}
		tasks = []*model.Task{task}
	}

	result := &CompilationResult{Tasks: make([]TaskDocument, 0, len(tasks))}
	for _, task := range tasks {
		formatter.VerboseLog("Compiling task: %s", task.Name)
		hash, err := task.Hash()
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		result.Tasks = append(result.Tasks, TaskDocument{Hash: hash, Document: task.Document()})
	}

	if opts.Output != "" {
		if err := writeDocumentsToFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d task(s)\n\n", len(result.Tasks))
	for _, doc := range result.Tasks {
		d := doc.Document
		fmt.Fprintf(formatter.Writer, "  %s: %d state(s), %d transition(s), %d step(s)\n",
			d.Name, len(d.States), len(d.Transitions), d.Steps)
		fmt.Fprintf(formatter.Writer, "    hash %s\n", doc.Hash)
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote task documents to %s\n", outputFile)
	}

	return nil
}

// outputLoadError reports a LoadTasks failure. A missing path and CUE
// errors are command errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format != "json" && loadErr.Pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
			loadErr.Pos.Filename(),
			loadErr.Pos.Line(),
			loadErr.Pos.Column())
	}
	return formatter.fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
}

// writeDocumentsToFile writes the compilation result as indented JSON.
// The hash is computed over canonical JSON, not this rendering.
func writeDocumentsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling task documents: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
