// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store is append-only:
//   - runs: one catalogue row per run, with the task document it started
//     from and that document's content hash
//   - run_states: the run's column layout (task declaration order)
//   - samples: one row per (step, state)
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned at write time, never by
// timestamps. Samples are ordered by step then column. Every query carries
// an ORDER BY, so repeated reads return identical results.
//
// # Replay
//
// The stored task document round-trips every float64 exactly. Replaying a
// run from it must reproduce the stored trajectory bit for bit;
// CompareTrajectories reports any sample that does not.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: samples cascade with their run
package store
