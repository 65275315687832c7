// Package harness runs conformance scenarios against popdyn tasks.
//
// A scenario names a CUE task, runs it through the engine, persists the run
// in a fresh in-memory store and evaluates assertions against what was
// stored.
//
// # Scenario Format
//
//	name: epidemic_linear
//	description: "Linear infection burns out"
//	task: ../tasks/epidemic.cue   # file or directory, relative to the scenario
//	task_name: epidemic_linear    # optional when the source holds one task
//	steps: 100                    # optional override of the task's steps
//	block_scaling: false
//	golden_stride: 10             # rows kept in the golden snapshot
//	assertions:
//	  - type: final_state
//	    expect: { infected: 0, healthy: 100 }
//	    tolerance: 0.001
//	  - type: state_at
//	    step: 1
//	    expect: { infected: 19.2 }
//	  - type: conserved
//	  - type: non_negative
//	  - type: max_delay
//	    value: 0
//	  - type: ode_matches
//	    tolerance: 1e-8
//	  - type: replay_identical
//
// # Assertion Types
//
//   - final_state: counts at the last step, read back from the store
//   - state_at: counts at a given step, read back from the store
//   - conserved: every row sums to the row-0 total
//   - non_negative: no count drops below -tolerance
//   - max_delay: the task's largest delay
//   - ode_matches: the symbolic system, solved with Euler steps, reproduces
//     the numeric trajectory
//   - replay_identical: replaying the stored run from its stored task
//     document is bit-identical
//
// # Determinism
//
// Each scenario gets its own in-memory SQLite store and a fixed run id, so
// stored catalogues and golden snapshots are identical from run to run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/epidemic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
