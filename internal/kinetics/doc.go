// Package kinetics computes transition intensities and total-count
// normalisers from the data model.
//
// Every function here is pure: it reads counts through a Counts view of a
// single time step and never mutates the task. The numeric engine supplies a
// view over its trajectory table; tests and diagnostics can use MapCounts.
//
// Numeric conventions:
//   - Only entries with in > 0 contribute to intensity
//   - Division by a zero normaliser yields 0, never Inf or NaN
//   - Factorial is the probabilistic (linearly interpolated) extension, not Gamma
package kinetics
