// Package job defines the unit of build work and the registry that
// addresses it.
//
// A Job is declared by a project or artifact and carries an ordered list of
// predecessor job URIs (the `after` set). The Registry stores every declared
// job under its canonical URI and guarantees that a URI is registered at
// most once. The registry has no notion of execution order; ordering is
// reconstructed by the scheduler from each job's After list at run time.
package job
