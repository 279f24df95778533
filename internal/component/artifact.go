package component

import (
	"sync"

	"github.com/anvil-build/anvil/internal/job"
)

// Dependency is a reference from one artifact to another artifact or to an
// external package. It is resolved lazily by the engine.
type Dependency struct {
	// Project and Artifact name the referenced artifact.
	Project  string
	Artifact string
	// Package names an external package (`name@version`) instead. Exactly
	// one of Artifact and Package is set.
	Package string
}

// Key returns the identity used for deduplication.
func (d *Dependency) Key() string {
	if d.Package != "" {
		return "pkg:" + d.Package
	}
	return d.Project + "/" + d.Artifact
}

// ConsumedInput is one dependency output handed to a Consumable blueprint.
type ConsumedInput struct {
	From   *CreatedArtifact
	Output *ArtifactOutput
}

// CreatedArtifact is a concrete artifact instance bound to one project.
// It is created once when a project's declarations are finalized and
// immutable thereafter, except for the consumed-input and last-output
// bookkeeping the engine maintains across a build.
type CreatedArtifact struct {
	// Project is the owning project's name.
	Project string
	// Name is the artifact's name, unique within its project.
	Name string
	// Description is free-form human-readable text.
	Description string
	// Jobs is the artifact's ordered job list; the first entry is the
	// primary build job.
	Jobs []job.URI
	// Dependencies lists the declared artifact and package references,
	// deduplicated by identity.
	Dependencies []*Dependency
	// Blueprint is the back-reference to the artifact's kind.
	Blueprint Blueprint
	// SourceSets are the file collections the artifact builds from.
	SourceSets []*SourceSet

	mu         sync.Mutex
	consumed   []*ConsumedInput
	lastOutput *ArtifactOutput
}

// PrimaryJob returns the URI of the artifact's build job.
func (a *CreatedArtifact) PrimaryJob() job.URI {
	if len(a.Jobs) > 0 {
		return a.Jobs[0]
	}
	return job.NewURI(a.Project, a.Name, "build")
}

// AddConsumed records a dependency output consumed for the current build.
func (a *CreatedArtifact) AddConsumed(in *ConsumedInput) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consumed = append(a.consumed, in)
}

// Consumed returns the dependency outputs recorded for the current build.
func (a *CreatedArtifact) Consumed() []*ConsumedInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*ConsumedInput, len(a.consumed))
	copy(out, a.consumed)
	return out
}

// ResetConsumed clears the consumed-input bookkeeping before a new build.
func (a *CreatedArtifact) ResetConsumed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consumed = nil
}

// SetLastOutput records the most recent output produced or restored for
// this artifact.
func (a *CreatedArtifact) SetLastOutput(out *ArtifactOutput) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastOutput = out
}

// LastOutput returns the most recent output, or nil if none was recorded.
func (a *CreatedArtifact) LastOutput() *ArtifactOutput {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastOutput
}

// ArtifactBuilder assembles a CreatedArtifact in two phases: accumulate
// declarations, then Build an immutable value.
type ArtifactBuilder struct {
	artifact *CreatedArtifact
	depKeys  map[string]struct{}
	err      error
}

// NewArtifactBuilder starts building an artifact bound to the given project
// and blueprint.
func NewArtifactBuilder(project, name string, bp Blueprint) *ArtifactBuilder {
	return &ArtifactBuilder{
		artifact: &CreatedArtifact{Project: project, Name: name, Blueprint: bp},
		depKeys:  make(map[string]struct{}),
	}
}

// WithDescription sets the artifact's description.
func (b *ArtifactBuilder) WithDescription(desc string) *ArtifactBuilder {
	b.artifact.Description = desc
	return b
}

// AddSourceSet appends a source set to the artifact.
func (b *ArtifactBuilder) AddSourceSet(s *SourceSet) *ArtifactBuilder {
	b.artifact.SourceSets = append(b.artifact.SourceSets, s)
	return b
}

// AddDependency appends a dependency reference. A reference declared more
// than once is kept only the first time.
func (b *ArtifactBuilder) AddDependency(d *Dependency) *ArtifactBuilder {
	if _, dup := b.depKeys[d.Key()]; dup {
		return b
	}
	b.depKeys[d.Key()] = struct{}{}
	b.artifact.Dependencies = append(b.artifact.Dependencies, d)
	return b
}

// AddJob appends a job URI to the artifact's ordered job list.
func (b *ArtifactBuilder) AddJob(uri job.URI) *ArtifactBuilder {
	b.artifact.Jobs = append(b.artifact.Jobs, uri)
	return b
}

// Build finalizes the artifact. Missing name or blueprint is a
// ConfigurationError.
func (b *ArtifactBuilder) Build() (*CreatedArtifact, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.artifact.Name == "" {
		return nil, &ConfigurationError{Subject: "artifact", Reason: "missing name"}
	}
	if b.artifact.Blueprint == nil {
		return nil, &ConfigurationError{Subject: "artifact " + b.artifact.Name, Reason: "missing blueprint"}
	}
	return b.artifact, nil
}
