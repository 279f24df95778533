// Package manager is the single entry point that turns "build artifact X
// of project P with config C" into either a cache hit or a real build.
//
// BuildFromDependencies first resolves and recursively builds the
// artifact's declared dependencies, because the artifact's fingerprint
// folds in dependency fingerprints. It then computes the fingerprint,
// consults the artifact cache, and only on a miss hands the artifact's
// primary job to the scheduler. Successful outputs are recorded in the
// cache, flushed, and optionally pushed to a remote cache sink. A
// per-fingerprint lock guarantees at most one build in flight per unique
// input combination; concurrent requests for the same fingerprint wait and
// then observe the fresh cache entry.
package manager
