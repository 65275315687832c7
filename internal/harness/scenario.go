package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test: one task, one run, and the
// assertions the stored run must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Task is a .cue file or a directory holding one CUE package.
	// Relative paths are resolved against the scenario's base path.
	Task string `yaml:"task"`

	// TaskName selects a task when the source defines several.
	TaskName string `yaml:"task_name,omitempty"`

	// Steps overrides the task's step count when set.
	Steps *int `yaml:"steps,omitempty"`

	// BlockScaling enables block-expression rate scaling for the run.
	BlockScaling bool `yaml:"block_scaling,omitempty"`

	// RunID is the id the run is stored under.
	// If empty, defaults to "scenario-" + Name.
	RunID string `yaml:"run_id,omitempty"`

	// GoldenStride keeps every n-th row (and always the last) in golden
	// snapshots. Defaults to 1.
	GoldenStride int `yaml:"golden_stride,omitempty"`

	// Assertions validate the stored run.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step is the row checked by state_at.
	Step *int `yaml:"step,omitempty"`

	// Expect maps state names to expected counts (final_state, state_at).
	Expect map[string]float64 `yaml:"expect,omitempty"`

	// Tolerance is the allowed absolute error. Zero selects the
	// assertion's default.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Value is the expected result of max_delay.
	Value *int `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState      = "final_state"
	AssertStateAt         = "state_at"
	AssertConserved       = "conserved"
	AssertNonNegative     = "non_negative"
	AssertMaxDelay        = "max_delay"
	AssertODEMatches      = "ode_matches"
	AssertReplayIdentical = "replay_identical"
)

// LoadScenario reads and parses a scenario YAML file. The task path is
// resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the task path relative to basePath.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Task != "" && !filepath.IsAbs(scenario.Task) && basePath != "" {
		scenario.Task = filepath.Join(basePath, scenario.Task)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Task == "" {
		return fmt.Errorf("task is required")
	}
	if _, err := os.Stat(s.Task); os.IsNotExist(err) {
		return fmt.Errorf("task not found: %s", s.Task)
	}

	if s.Steps != nil && *s.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", *s.Steps)
	}

	if s.GoldenStride < 0 {
		return fmt.Errorf("golden_stride must be non-negative, got %d", s.GoldenStride)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertStateAt:
		if a.Step == nil {
			return fmt.Errorf("assertions[%d]: step is required for state_at", index)
		}
		if *a.Step < 0 {
			return fmt.Errorf("assertions[%d]: step must be non-negative for state_at", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for state_at", index)
		}
	case AssertMaxDelay:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for max_delay", index)
		}
	case AssertConserved, AssertNonNegative, AssertODEMatches, AssertReplayIdentical:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// runID returns the scenario's run id.
func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return "scenario-" + s.Name
}

// goldenStride returns the snapshot stride.
func (s *Scenario) goldenStride() int {
	if s.GoldenStride <= 0 {
		return 1
	}
	return s.GoldenStride
}
