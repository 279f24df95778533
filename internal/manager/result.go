package manager

import (
	"fmt"

	"github.com/anvil-build/anvil/internal/component"
)

// BuildStatus is the terminal status of a build request.
type BuildStatus int

const (
	// StatusBuilt means the artifact was built and its outputs recorded.
	StatusBuilt BuildStatus = iota
	// StatusCached means the fingerprint was already cached; no job ran.
	StatusCached
	// StatusFailed means the build callback or a job action failed.
	StatusFailed
	// StatusCancelled means the build never completed because of
	// cancellation or an upstream failure.
	StatusCancelled
)

// String renders the status for logs.
func (s BuildStatus) String() string {
	switch s {
	case StatusBuilt:
		return "built"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// BuildResult is the outcome of one BuildFromDependencies call.
type BuildResult struct {
	Status      BuildStatus
	Fingerprint string
	// Output is the artifact's recorded output for Built and Cached
	// results; nil otherwise.
	Output *component.ArtifactOutput
	// ChangedSources names the source files, normalized relative to the
	// workspace root, whose content differed from the file hash store's
	// records. Set on Built results as the rebuild reason; empty when the
	// rebuild was driven by config or dependency changes alone.
	ChangedSources []string
	// Err carries the cause for Failed and Cancelled results.
	Err error
}

// BuildProcessError wraps a failure raised by a blueprint's build or
// consume callback.
type BuildProcessError struct {
	Project  string
	Artifact string
	Err      error
}

// Error implements the error interface.
func (e *BuildProcessError) Error() string {
	return fmt.Sprintf("building %s/%s: %v", e.Project, e.Artifact, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *BuildProcessError) Unwrap() error {
	return e.Err
}
