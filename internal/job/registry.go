package job

import (
	"fmt"
	"iter"
	"sync"
)

// DuplicateJobError reports an attempt to register a second job under an
// already-taken URI.
type DuplicateJobError struct {
	URI URI
}

// Error implements the error interface.
func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("job %q is already registered", e.URI.String())
}

// Registry is a thread-safe store of declared jobs keyed by canonical URI.
type Registry struct {
	mu   sync.RWMutex
	jobs map[URI]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[URI]*Job)}
}

// Register adds a job under its canonical URI. The existence check and the
// insert happen under one critical section, so two racing registrations of
// the same URI cannot both succeed. The second returns a DuplicateJobError
// and leaves the registry unchanged.
func (r *Registry) Register(j *Job) error {
	uri := j.URI()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[uri]; exists {
		return &DuplicateJobError{URI: uri}
	}
	r.jobs[uri] = j
	return nil
}

// Get returns the job registered under the given URI, or false if none is.
func (r *Registry) Get(uri URI) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[uri]
	return j, ok
}

// Has reports whether a job is registered under the given URI.
func (r *Registry) Has(uri URI) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[uri]
	return ok
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// All yields the registered jobs. The iteration walks a snapshot taken when
// All is called, so it is restartable and safe against concurrent
// registration.
func (r *Registry) All() iter.Seq[*Job] {
	r.mu.RLock()
	snapshot := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		snapshot = append(snapshot, j)
	}
	r.mu.RUnlock()

	return func(yield func(*Job) bool) {
		for _, j := range snapshot {
			if !yield(j) {
				return
			}
		}
	}
}
