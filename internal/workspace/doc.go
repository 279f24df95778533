// Package workspace loads the declaration files of a workspace and
// finalizes them into the engine's domain model.
//
// Declarations live in `*.anvil.hcl` files: each declares projects with
// source sets, artifacts, and jobs. Loading translates the HCL into plain
// declaration structs; finalizing binds them against the blueprint
// registry, creates immutable CreatedArtifacts, and registers every job
// under its canonical URI. Tool settings (cache location, workers, remote
// cache endpoint) come from an optional `anvil.yaml` next to the
// workspace root.
package workspace
