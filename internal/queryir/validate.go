package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Validate checks a query before compilation:
//   - Samples needs a run id
//   - predicates must belong to the query shape they filter
//   - step ranges must be non-negative and ordered
//   - strides must be positive
//   - state and name filters must not be empty
//   - limits must not be negative
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type scope int

const (
	scopeSamples scope = iota
	scopeRuns
)

func (s scope) String() string {
	if s == scopeRuns {
		return "Runs"
	}
	return "Samples"
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Samples:
		v.validateSamples(query)
	case *Samples:
		v.validateSamples(*query)
	case Runs:
		v.validateRuns(query)
	case *Runs:
		v.validateRuns(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSamples(q Samples) {
	if q.RunID == "" {
		v.addProblem("Samples: run id is required")
	}
	if q.Limit < 0 {
		v.addProblem("Samples: negative limit %d", q.Limit)
	}
	v.validatePredicate(q.Filter, scopeSamples)
}

func (v *validator) validateRuns(q Runs) {
	if q.Limit < 0 {
		v.addProblem("Runs: negative limit %d", q.Limit)
	}
	v.validatePredicate(q.Filter, scopeRuns)
}

func (v *validator) validatePredicate(p Predicate, s scope) {
	switch pred := p.(type) {
	case nil:
	case StepRange:
		v.validateStepRange(pred, s)
	case *StepRange:
		v.validateStepRange(*pred, s)
	case Stride:
		v.validateStride(pred, s)
	case *Stride:
		v.validateStride(*pred, s)
	case StateIn:
		v.validateStateIn(pred, s)
	case *StateIn:
		v.validateStateIn(*pred, s)
	case TaskIs:
		v.validateName("TaskIs", pred.Name, s)
	case *TaskIs:
		v.validateName("TaskIs", pred.Name, s)
	case HashIs:
		v.validateName("HashIs", pred.Hash, s)
	case *HashIs:
		v.validateName("HashIs", pred.Hash, s)
	case And:
		v.validateAnd(pred, s)
	case *And:
		v.validateAnd(*pred, s)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) requireScope(name string, want, got scope) bool {
	if want != got {
		v.addProblem("%s cannot filter %s", name, got)
		return false
	}
	return true
}

func (v *validator) validateStepRange(r StepRange, s scope) {
	if !v.requireScope("StepRange", scopeSamples, s) {
		return
	}
	if r.From < 0 {
		v.addProblem("StepRange: negative start %d", r.From)
	}
	if r.To >= 0 && r.To < r.From {
		v.addProblem("StepRange: end %d before start %d", r.To, r.From)
	}
}

func (v *validator) validateStride(st Stride, s scope) {
	if !v.requireScope("Stride", scopeSamples, s) {
		return
	}
	if st.Every <= 0 {
		v.addProblem("Stride: step must be positive, got %d", st.Every)
	}
}

func (v *validator) validateStateIn(in StateIn, s scope) {
	if !v.requireScope("StateIn", scopeSamples, s) {
		return
	}
	if len(in.Names) == 0 {
		v.addProblem("StateIn: no state names")
	}
	for i, name := range in.Names {
		if name == "" {
			v.addProblem("StateIn: empty name at position %d", i)
		}
	}
}

func (v *validator) validateName(kind, value string, s scope) {
	if !v.requireScope(kind, scopeRuns, s) {
		return
	}
	if value == "" {
		v.addProblem("%s: empty value", kind)
	}
}

func (v *validator) validateAnd(and And, s scope) {
	for _, p := range and.Predicates {
		if p == nil {
			v.addProblem("And: nil predicate")
			continue
		}
		v.validatePredicate(p, s)
	}
}
