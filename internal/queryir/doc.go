// Package queryir describes queries over stored simulation runs.
//
// Queries are backend-neutral values. The querysql package compiles them to
// parameterized SQLite statements; the store executes them.
//
//	[cli history / runs] → [queryir] → [querysql] → [store]
//
// Two query shapes exist:
//   - Samples: the per-step counts of one run
//   - Runs: the run catalogue
//
// Predicates narrow either shape. StepRange, Stride and StateIn apply to
// Samples; TaskIs and HashIs apply to Runs; And combines predicates of the
// same shape.
//
// Query and Predicate are sealed: only types in this package implement
// them, so backends can switch exhaustively.
//
// Every compiled query is totally ordered (step then state column for
// samples, sequence then id for runs). Two reads of the same data always
// return rows in the same order.
package queryir
