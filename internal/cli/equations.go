package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/popdyn/internal/ode"
)

// EquationsOptions holds flags for the equations command.
type EquationsOptions struct {
	*RootOptions
	Task    string
	Postfix bool
}

// EquationEntry is one state's equation in JSON output.
type EquationEntry struct {
	State   string `json:"state"`
	Infix   string `json:"infix"`
	Postfix string `json:"postfix"`
}

// EquationsResult holds the symbolic system of one task.
type EquationsResult struct {
	Task      string          `json:"task"`
	Equations []EquationEntry `json:"equations"`
	Variables []ode.Variable  `json:"variables"`
}

// NewEquationsCommand creates the equations command.
func NewEquationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EquationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "equations <tasks-path>",
		Short: "Print a task as a system of difference equations",
		Long: `Print the per-step change of every state as a symbolic expression.

Variables are written name[-d] for a read delayed by d steps. Block
expressions are not part of the symbolic form.

Examples:
  popdyn equations ./tasks/epidemic.cue --task epidemic_solute
  popdyn equations ./tasks/predation.cue --postfix`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEquations(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Task, "task", "", "task to convert when the path defines several")
	cmd.Flags().BoolVar(&opts.Postfix, "postfix", false, "also print the postfix form")

	return cmd
}

func runEquations(opts *EquationsOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	task, err := LoadTask(path, opts.Task)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	sys, err := ode.NewBuilder(task).Convert()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Converted %s: %d equation(s), %d variable(s), %d node(s)",
		task.Name, len(sys.Equations), len(sys.Variables), sys.Arena.Len())

	if formatter.Format == "json" {
		result := EquationsResult{
			Task:      task.Name,
			Equations: make([]EquationEntry, len(sys.Equations)),
			Variables: sys.Variables,
		}
		for i, eq := range sys.Equations {
			result.Equations[i] = EquationEntry{
				State:   eq.Name,
				Infix:   ode.Format(eq.Infix),
				Postfix: ode.Format(eq.Postfix),
			}
		}
		return formatter.Success(result)
	}

	fmt.Fprint(formatter.Writer, sys.String())
	if opts.Postfix {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprint(formatter.Writer, sys.PostfixString())
	}
	return nil
}
