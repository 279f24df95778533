package job

import (
	"fmt"
	"strings"
)

// URI is the canonical address of a job: `[project][:artifact]:job`.
// Comparison is case-insensitive; the canonical form is lower-case.
type URI struct {
	// Project is the owning project's name. Empty for workspace-global jobs.
	Project string
	// Artifact is the owning artifact's name. Empty for project-global jobs.
	Artifact string
	// Job is the job's own name. Never empty for a valid URI.
	Job string
}

// NewURI builds a URI from its segments, canonicalizing case.
func NewURI(project, artifact, name string) URI {
	return URI{
		Project:  strings.ToLower(project),
		Artifact: strings.ToLower(artifact),
		Job:      strings.ToLower(name),
	}
}

// ParseURI parses a colon-delimited job address. One segment is a
// workspace-global job, two segments are `project:job`, three segments are
// `project:artifact:job`.
func ParseURI(s string) (URI, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return URI{}, fmt.Errorf("empty job URI")
		}
		return NewURI("", "", parts[0]), nil
	case 2:
		return NewURI(parts[0], "", parts[1]), nil
	case 3:
		return NewURI(parts[0], parts[1], parts[2]), nil
	default:
		return URI{}, fmt.Errorf("malformed job URI %q: expected [project][:artifact]:job", s)
	}
}

// String renders the canonical form of the URI. Empty leading segments are
// omitted, so a workspace-global job renders as its bare name.
func (u URI) String() string {
	var parts []string
	if u.Project != "" {
		parts = append(parts, u.Project)
	}
	if u.Artifact != "" {
		parts = append(parts, u.Artifact)
	}
	parts = append(parts, u.Job)
	return strings.Join(parts, ":")
}

// IsZero reports whether the URI is the empty value.
func (u URI) IsZero() bool {
	return u.Job == ""
}
