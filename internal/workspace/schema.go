package workspace

import "github.com/hashicorp/hcl/v2"

// fileSchema is the top-level structure of one `*.anvil.hcl` file.
type fileSchema struct {
	Projects []*projectSchema `hcl:"project,block"`
	Jobs     []*jobSchema     `hcl:"job,block"`
	Body     hcl.Body         `hcl:",remain"`
}

// projectSchema is a `project` block.
type projectSchema struct {
	Name        string             `hcl:"name,label"`
	Description string             `hcl:"description,optional"`
	SourceSets  []*sourceSetSchema `hcl:"source_set,block"`
	Artifacts   []*artifactSchema  `hcl:"artifact,block"`
	Jobs        []*jobSchema       `hcl:"job,block"`
}

// sourceSetSchema is a `source_set` block within a project.
type sourceSetSchema struct {
	Name    string   `hcl:"name,label"`
	Root    string   `hcl:"root,optional"`
	Include []string `hcl:"include,optional"`
}

// artifactSchema is an `artifact` block: `artifact "<type>" "<name>"`.
type artifactSchema struct {
	Type        string        `hcl:"type,label"`
	Name        string        `hcl:"name,label"`
	Description string        `hcl:"description,optional"`
	Sources     []string      `hcl:"sources,optional"`
	DependsOn   []string      `hcl:"depends_on,optional"`
	Packages    []string      `hcl:"packages,optional"`
	Config      *configSchema `hcl:"config,block"`
}

// configSchema carries the per-type build-config attributes; the set of
// valid attributes is defined by the blueprint's descriptor, so the body
// stays opaque here.
type configSchema struct {
	Body hcl.Body `hcl:",remain"`
}

// jobSchema is a `job` block, either project-scoped or workspace-global.
type jobSchema struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	After       []string `hcl:"after,optional"`
}
