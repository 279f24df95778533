package scheduler

import (
	"fmt"

	"github.com/anvil-build/anvil/internal/job"
)

// State is the execution state of a job in the graph.
type State int32

const (
	// Pending indicates the job is waiting for its predecessors.
	Pending State = iota
	// Running indicates a worker is executing the job.
	Running
	// Succeeded indicates the job completed without error.
	Succeeded
	// Failed indicates the job's action returned or panicked with an error.
	Failed
	// Cancelled indicates the job never ran because a predecessor failed
	// or the caller's cancellation signal was raised.
	Cancelled
)

// String renders the state for logs.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome is a job's terminal result. Err carries the causing error for
// Failed outcomes and the propagated cause for Cancelled ones.
type Outcome struct {
	State State
	Err   error
}

// CyclicDependencyError reports that a job's `after` chain reaches itself.
// It is detected before any job runs.
type CyclicDependencyError struct {
	URI job.URI
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic job dependency involving %q", e.URI.String())
}
