// Package app wires the application together: logger, blueprint registry,
// workspace model, caches, scheduler, and the artifact manager. Every
// component receives its collaborators through construction; there is no
// ambient global state.
package app
