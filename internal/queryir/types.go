package queryir

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Samples selects the stored counts of one run.
//
// Rows come back as (step, state column, state name, count), ordered by
// step and then by the state's column in the run's table.
//
// Example:
//
//	Samples{
//	  RunID: "0190c3a4-...",
//	  Filter: And{Predicates: []Predicate{
//	    StepRange{From: 10, To: 50},
//	    Stride{Every: 5},
//	    StateIn{Names: []string{"infected"}},
//	  }},
//	}
type Samples struct {
	RunID  string
	Filter Predicate // nil = every sample
	Limit  int       // 0 = no limit
}

func (Samples) queryNode() {}

// Runs selects the run catalogue ordered by sequence number.
type Runs struct {
	Filter Predicate // nil = every run
	Limit  int       // 0 = no limit
}

func (Runs) queryNode() {}

// StepRange keeps samples whose step lies in [From, To].
// A negative To leaves the range open at the top.
type StepRange struct {
	From int
	To   int
}

func (StepRange) predicateNode() {}

// Stride keeps every Every-th step, counting from step 0.
type Stride struct {
	Every int
}

func (Stride) predicateNode() {}

// StateIn keeps samples of the named states.
type StateIn struct {
	Names []string
}

func (StateIn) predicateNode() {}

// TaskIs keeps runs of the named task.
type TaskIs struct {
	Name string
}

func (TaskIs) predicateNode() {}

// HashIs keeps runs whose task content hash matches.
type HashIs struct {
	Hash string
}

func (HashIs) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
