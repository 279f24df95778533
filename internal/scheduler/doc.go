// Package scheduler executes a target job and its predecessor closure.
//
// Starting from the target, `after` edges are followed backward to build an
// explicit DAG, which is verified acyclic before anything runs. Execution
// uses a pool of workers fed by a ready channel: a job becomes eligible
// when its last predecessor succeeds, so independent branches run
// concurrently. A failed or cancelled predecessor cancels all of its
// not-yet-started dependents; already-running branches finish naturally.
package scheduler
