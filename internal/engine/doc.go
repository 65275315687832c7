// Package engine implements the popdyn numeric integration engine.
//
// The engine advances a dense table statesCount[step][state] with forward
// Euler steps. Columns follow the task's state order; row 0 holds the
// initial State.Count values.
//
// ARCHITECTURE:
//
// Two-Pass Step:
// Advancing from step t to t+1:
// 1. Row t is copied forward into row t+1
// 2. Normal pass: every transition without RESIDUAL entries adds
//    (out - in) × rate to each of its states in row t+1
// 3. Residual pass: every transition with RESIDUAL entries drives those
//    entries toward the shared rate term and hands the difference to its
//    producing entries
//
// Both passes read row t (delayed lookups read row t - delay, clamped to 0)
// and write row t+1, so the order of transitions inside a pass does not
// change the result. The normal pass always precedes the residual pass.
//
// CRITICAL PATTERNS:
//
// Determinism:
// A run is a sequential loop with no goroutines, no randomness and no
// wall-clock input. Identical tasks produce bit-identical tables.
//
// Exclusive Access:
// The engine reads the task graph for the whole of Calculate and never locks
// it. Callers must not mutate the task while a run is in flight; work on
// Task.Clone() when editing concurrently.
//
// Failure:
// An unknown transition type aborts the run with a RuntimeError. Negative
// counts are not checked; that is a modelling choice left to the caller.
package engine
