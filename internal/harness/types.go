package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	RunID    string `json:"run_id"`
	Task     string `json:"task"`
	TaskHash string `json:"task_hash"`

	// States names the trajectory's columns.
	States []string `json:"states"`

	// Trajectory is the engine's table, one row per step.
	Trajectory [][]float64 `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		States: []string{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Final returns the last row keyed by state name, or nil for an empty
// trajectory.
func (r *Result) Final() map[string]float64 {
	if len(r.Trajectory) == 0 {
		return nil
	}
	last := r.Trajectory[len(r.Trajectory)-1]
	final := make(map[string]float64, len(r.States))
	for i, name := range r.States {
		final[name] = last[i]
	}
	return final
}
