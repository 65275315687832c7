// Package model provides the state/transition graph shared by the numeric
// engine and the symbolic ODE builder.
//
// This package contains data types plus the pure helpers that operate on
// them (cloning, normalisation, validation, hashing). All other internal
// packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Counts and coefficients are float64, identities are int64 from a Sequence
//   - Clones never alias the source graph
//   - Transitions reference states by pointer; documents reference them by id
//   - All JSON tags use snake_case
package model
