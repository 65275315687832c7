package harness

import (
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// goldenPrecision is the number of decimals kept in snapshots.
const goldenPrecision = 6

// Snapshot renders a trajectory as a tab-separated table: a header of
// state names, then every stride-th row and always the final one.
//
//	step	infected	healthy
//	0	20.000000	80.000000
//	10	...
func Snapshot(result *Result, stride int) []byte {
	if stride <= 0 {
		stride = 1
	}

	var b strings.Builder
	b.WriteString("step")
	for _, name := range result.States {
		b.WriteByte('\t')
		b.WriteString(name)
	}
	b.WriteByte('\n')

	last := len(result.Trajectory) - 1
	for step, row := range result.Trajectory {
		if step%stride != 0 && step != last {
			continue
		}
		b.WriteString(strconv.Itoa(step))
		for _, v := range row {
			b.WriteByte('\t')
			b.WriteString(formatCount(v))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// formatCount prints a count with fixed decimals, folding negative zero
// into zero.
func formatCount(v float64) string {
	s := strconv.FormatFloat(v, 'f', goldenPrecision, 64)
	if s == "-"+strconv.FormatFloat(0, 'f', goldenPrecision, 64) {
		return s[1:]
	}
	return s
}

// RunWithGolden executes a scenario and compares its trajectory snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result, scenario.goldenStride())
	return result, nil
}

// AssertGolden compares an existing result's snapshot against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result, stride int) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result, stride))
}
