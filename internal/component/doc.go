// Package component defines the domain model shared by the build engine and
// its pluggable artifact blueprints.
//
// A Blueprint describes how one artifact *kind* builds. Capabilities are
// orthogonal interfaces a blueprint may implement in any combination:
// Buildable produces outputs from sources, Consumable accepts another
// artifact's outputs as an input, Executable and TransientExecutable can be
// run without being cached. The engine probes for the capability it needs
// at the call site instead of relying on a type hierarchy.
//
// A CreatedArtifact is a concrete instance of a blueprint bound to one
// project. It is assembled through ArtifactBuilder and immutable afterwards,
// except for cache bookkeeping. ArtifactOutput follows the same two-phase
// protocol through OutputBuilder: outputs are accumulated during a build and
// frozen once recorded.
package component
