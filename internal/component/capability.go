package component

import "context"

// Blueprint is the type-level description of how an artifact kind is built.
// Concrete blueprints additionally implement any subset of the capability
// interfaces below.
type Blueprint interface {
	// Type is the kind name declarations refer to, e.g. "archive".
	Type() string
	// Describe returns human-readable help text for the kind.
	Describe() string
	// ConfigSpec enumerates the kind's build-config fields and their
	// fingerprint/artifact-key markers.
	ConfigSpec() *Descriptor
}

// Buildable is the capability of producing outputs from sources. The build
// callback accumulates produced files on the output builder; the engine
// freezes and records them on success. A cancelled ctx must be surfaced as
// ctx.Err().
type Buildable interface {
	Blueprint
	Build(ctx context.Context, out *OutputBuilder, artifact *CreatedArtifact, project *Project, config Config) error
}

// Consumable is the capability of accepting another artifact's outputs as a
// build input. Consume is called once per resolved dependency, before Build
// runs; implementations typically stash what they need on the artifact via
// AddConsumed.
type Consumable interface {
	Blueprint
	Consume(ctx context.Context, artifact *CreatedArtifact, dep *CreatedArtifact, output *ArtifactOutput) error
}

// Executable is the capability of being run directly, without the run being
// a cacheable output.
type Executable interface {
	Blueprint
	Execute(ctx context.Context, project *Project, config Config, sources *SourceSet) error
}

// TransientExecutable marks an Executable whose runs never touch the
// artifact cache at all.
type TransientExecutable interface {
	Executable
	// Transient is a marker method distinguishing the capability from
	// plain Executable.
	Transient()
}
