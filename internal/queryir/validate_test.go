package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidSamples(t *testing.T) {
	query := Samples{
		RunID: "run-1",
		Filter: And{Predicates: []Predicate{
			StepRange{From: 0, To: 10},
			Stride{Every: 2},
			StateIn{Names: []string{"infected", "healthy"}},
		}},
	}

	result := Validate(query)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_PointerForms(t *testing.T) {
	query := &Samples{
		RunID:  "run-1",
		Filter: &And{Predicates: []Predicate{&StepRange{From: 3, To: -1}, &Stride{Every: 1}}},
	}

	assert.True(t, Validate(query).Valid)
	assert.True(t, Validate(&Runs{Filter: &TaskIs{Name: "sir"}}).Valid)
}

func TestValidate_ValidRuns(t *testing.T) {
	query := Runs{Filter: And{Predicates: []Predicate{
		TaskIs{Name: "sir"},
		HashIs{Hash: "sha256:abc"},
	}}}

	result := Validate(query)

	assert.True(t, result.Valid)
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)

	assert.False(t, result.Valid)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "nil query")
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"missing run id", Samples{}, "run id is required"},
		{"negative sample limit", Samples{RunID: "r", Limit: -1}, "negative limit"},
		{"negative run limit", Runs{Limit: -2}, "negative limit"},
		{"negative start", Samples{RunID: "r", Filter: StepRange{From: -1, To: 4}}, "negative start"},
		{"reversed range", Samples{RunID: "r", Filter: StepRange{From: 5, To: 4}}, "end 4 before start 5"},
		{"zero stride", Samples{RunID: "r", Filter: Stride{Every: 0}}, "must be positive"},
		{"empty state list", Samples{RunID: "r", Filter: StateIn{}}, "no state names"},
		{"empty state name", Samples{RunID: "r", Filter: StateIn{Names: []string{"a", ""}}}, "empty name at position 1"},
		{"empty task name", Runs{Filter: TaskIs{}}, "TaskIs: empty value"},
		{"task filter on samples", Samples{RunID: "r", Filter: TaskIs{Name: "sir"}}, "TaskIs cannot filter Samples"},
		{"step filter on runs", Runs{Filter: StepRange{From: 0, To: 1}}, "StepRange cannot filter Runs"},
		{"nil inside and", Runs{Filter: And{Predicates: []Predicate{nil}}}, "nil predicate"},
		{"nested and", Samples{RunID: "r", Filter: And{Predicates: []Predicate{
			And{Predicates: []Predicate{HashIs{Hash: "x"}}},
		}}}, "HashIs cannot filter Samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Problems)
			assert.Contains(t, result.Problems[0], tt.want)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	query := Samples{Filter: And{Predicates: []Predicate{
		Stride{Every: -1},
		StateIn{},
	}}}

	result := Validate(query)

	assert.Len(t, result.Problems, 3)
}

func TestValidate_EmptyAndIsValid(t *testing.T) {
	assert.True(t, Validate(Samples{RunID: "r", Filter: And{}}).Valid)
}
