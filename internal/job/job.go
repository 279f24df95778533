package job

import (
	"context"
	"sync/atomic"
)

// Action is the executable unit of work carried by a job. It must observe
// ctx cooperatively: a cancelled context is expected to abort the work and
// surface ctx.Err().
type Action func(ctx context.Context) error

// Job is a single unit of build work with declared predecessors. It is
// immutable once built from its declaration, except for the satisfied flag
// used for cache bookkeeping.
type Job struct {
	// Project and Artifact identify the owning component. Either may be
	// empty for project-global or workspace-global jobs.
	Project  string
	Artifact string
	// Name is the job's own name, unique within its owning component.
	Name string
	// Description is free-form human-readable text.
	Description string
	// After lists the URIs of predecessor jobs that must complete
	// successfully before this job may start.
	After []URI
	// Action is the work itself. A nil action is dispatched by the
	// executor's runner instead (build jobs are bound at request time).
	Action Action

	satisfied atomic.Bool
}

// URI returns the job's canonical address.
func (j *Job) URI() URI {
	return NewURI(j.Project, j.Artifact, j.Name)
}

// MarkSatisfied records that this job's work was already covered by an
// artifact cache hit. The scheduler treats a satisfied job as a no-op
// success.
func (j *Job) MarkSatisfied() {
	j.satisfied.Store(true)
}

// Satisfied reports whether the job was satisfied by a cache hit.
func (j *Job) Satisfied() bool {
	return j.satisfied.Load()
}
