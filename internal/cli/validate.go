package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/compiler"
	"github.com/roach88/popdyn/internal/model"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Task string // optional - validate one task only
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []TaskWarning              `json:"warnings,omitempty"`
}

// TaskWarning is a feedback loop found in one task.
type TaskWarning struct {
	Task string `json:"task"`
	compiler.CycleWarning
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <tasks-path>",
		Short: "Validate tasks without running them",
		Long: `Validate CUE tasks against the modelling rules.

Reports every rule violation (codes E101-E118) and lists feedback loops
in each task's flow graph. Loops are informational: most population
models are built on them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Task, "task", "", "validate only the named task")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
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

	result := ValidateTasks(tasks)
	for _, task := range tasks {
		formatter.VerboseLog("Validated task: %s", task.Name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateTasks runs the modelling rules and the feedback analysis over
// every task. Error fields are prefixed with the task name.
func ValidateTasks(tasks []*model.Task) ValidationResult {
	result := ValidationResult{
		Errors:   []compiler.ValidationError{},
		Warnings: []TaskWarning{},
	}

	for _, task := range tasks {
		for _, verr := range compiler.Validate(task) {
			verr.Field = task.Name + "." + verr.Field
			result.Errors = append(result.Errors, verr)
		}
		for _, w := range compiler.AnalyzeCycles(task) {
			result.Warnings = append(result.Warnings, TaskWarning{Task: task.Name, CycleWarning: w})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All tasks valid")
	writeWarnings(formatter, result.Warnings)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	writeWarnings(formatter, result.Warnings)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(formatter *OutputFormatter, warnings []TaskWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Feedback loops:")
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", w.Level, w.Task, w.Message)
	}
}
