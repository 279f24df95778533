package component

import (
	"path/filepath"

	"github.com/anvil-build/anvil/internal/fsutil"
)

// Project is the declaration-time owner of artifacts and jobs.
type Project struct {
	// Name is the project's unique name within the workspace.
	Name string
	// Description is free-form human-readable text.
	Description string
	// Root is the absolute directory the project's source sets are
	// resolved against.
	Root string
	// SourceSets are the project's named file collections, keyed by name.
	SourceSets map[string]*SourceSet
}

// SourceSet is a named, filtered collection of files belonging to a project.
type SourceSet struct {
	// Name is the set's name, unique within its project.
	Name string
	// Root is the directory the include patterns are applied under,
	// relative to the project root.
	Root string
	// Include are the match patterns (path.Match syntax with `**`
	// directory wildcards).
	Include []string

	// projectRoot is the owning project's absolute root.
	projectRoot string
}

// NewSourceSet binds a source set declaration to its project root.
func NewSourceSet(projectRoot, name, root string, include []string) *SourceSet {
	if len(include) == 0 {
		include = []string{"**"}
	}
	return &SourceSet{
		Name:        name,
		Root:        root,
		Include:     include,
		projectRoot: projectRoot,
	}
}

// Dir returns the absolute directory the set enumerates.
func (s *SourceSet) Dir() string {
	return filepath.Join(s.projectRoot, s.Root)
}

// Files enumerates the set's files as absolute paths, sorted.
func (s *SourceSet) Files() ([]string, error) {
	return fsutil.FindFilesMatching(s.Dir(), s.Include)
}
