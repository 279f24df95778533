package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/fingerprint"
	"github.com/anvil-build/anvil/internal/job"
	"github.com/anvil-build/anvil/internal/manager"
)

// ArtifactEntry binds a created artifact to its build context.
type ArtifactEntry struct {
	Artifact *component.CreatedArtifact
	Project  *component.Project
	Config   component.Config
}

// Model is the finalized workspace: immutable projects, created artifacts,
// and their configs, ready for the artifact manager.
type Model struct {
	Root     string
	Projects map[string]*component.Project

	artifacts map[string]*ArtifactEntry
}

// Artifact looks up a created artifact by project and artifact name.
func (m *Model) Artifact(project, name string) (*ArtifactEntry, bool) {
	e, ok := m.artifacts[artifactKey(project, name)]
	return e, ok
}

// Resolve implements manager.DependencyResolver. Artifact references
// resolve to their created artifacts; external package references resolve
// to a synthetic fingerprint over the pinned package identity.
func (m *Model) Resolve(ctx context.Context, dep *component.Dependency) (*manager.ResolvedDependency, error) {
	if dep.Package != "" {
		return &manager.ResolvedDependency{
			PackageFingerprint: fingerprint.HashString("pkg:" + dep.Package),
		}, nil
	}
	entry, ok := m.Artifact(dep.Project, dep.Artifact)
	if !ok {
		return nil, &component.ConfigurationError{
			Subject: "dependency " + dep.Key(),
			Reason:  "no such artifact in workspace",
		}
	}
	return &manager.ResolvedDependency{
		Artifact: entry.Artifact,
		Project:  entry.Project,
		Config:   entry.Config,
	}, nil
}

func artifactKey(project, name string) string {
	return strings.ToLower(project) + "/" + strings.ToLower(name)
}

// Finalize binds the raw declarations against the blueprint registry:
// projects and source sets become immutable values, artifacts are created
// through their builders, and every job (declared and implicit build jobs)
// is registered under its canonical URI.
func Finalize(ctx context.Context, decls *Declarations, blueprints *component.Registry, jobs *job.Registry) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := &Model{
		Root:      decls.Root,
		Projects:  make(map[string]*component.Project),
		artifacts: make(map[string]*ArtifactEntry),
	}

	for _, g := range decls.GlobalJobs {
		after, err := parseAfter("", g.After)
		if err != nil {
			return nil, err
		}
		if err := jobs.Register(&job.Job{Name: g.Name, Description: g.Description, After: after}); err != nil {
			return nil, err
		}
	}

	for _, decl := range decls.Projects {
		p := decl.schema
		project := &component.Project{
			Name:        p.Name,
			Description: p.Description,
			Root:        decl.Dir,
			SourceSets:  make(map[string]*component.SourceSet),
		}
		for _, s := range p.SourceSets {
			if _, dup := project.SourceSets[s.Name]; dup {
				return nil, &component.ConfigurationError{
					Subject: "project " + p.Name,
					Reason:  "duplicate source set " + s.Name,
				}
			}
			project.SourceSets[s.Name] = component.NewSourceSet(decl.Dir, s.Name, s.Root, s.Include)
		}
		model.Projects[p.Name] = project

		for _, j := range p.Jobs {
			after, err := parseAfter(p.Name, j.After)
			if err != nil {
				return nil, err
			}
			if err := jobs.Register(&job.Job{Project: p.Name, Name: j.Name, Description: j.Description, After: after}); err != nil {
				return nil, err
			}
		}

		for _, a := range p.Artifacts {
			if err := finalizeArtifact(model, project, a, blueprints, jobs); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("Workspace finalized.", "projects", len(model.Projects), "artifacts", len(model.artifacts), "jobs", jobs.Len())
	return model, nil
}

func finalizeArtifact(model *Model, project *component.Project, a *artifactSchema, blueprints *component.Registry, jobs *job.Registry) error {
	bp, ok := blueprints.Blueprint(a.Type)
	if !ok {
		return &component.ConfigurationError{
			Subject: fmt.Sprintf("artifact %s/%s", project.Name, a.Name),
			Reason:  "unknown artifact type " + a.Type,
		}
	}

	key := artifactKey(project.Name, a.Name)
	if _, dup := model.artifacts[key]; dup {
		return &component.ConfigurationError{
			Subject: "project " + project.Name,
			Reason:  "duplicate artifact " + a.Name,
		}
	}

	values, err := configValues(a.Config)
	if err != nil {
		return err
	}
	config, err := component.NewConfig(bp.ConfigSpec(), values)
	if err != nil {
		return err
	}

	builder := component.NewArtifactBuilder(project.Name, a.Name, bp).
		WithDescription(a.Description)

	for _, setName := range a.Sources {
		set, ok := project.SourceSets[setName]
		if !ok {
			return &component.ConfigurationError{
				Subject: fmt.Sprintf("artifact %s/%s", project.Name, a.Name),
				Reason:  "unknown source set " + setName,
			}
		}
		builder.AddSourceSet(set)
	}

	for _, ref := range a.DependsOn {
		dep, err := parseArtifactRef(project.Name, ref)
		if err != nil {
			return err
		}
		builder.AddDependency(dep)
	}
	for _, pkg := range a.Packages {
		builder.AddDependency(&component.Dependency{Package: pkg})
	}

	buildURI := job.NewURI(project.Name, a.Name, "build")
	builder.AddJob(buildURI)

	artifact, err := builder.Build()
	if err != nil {
		return err
	}

	// The build job's action is bound by the artifact manager at request
	// time; registering it here gives `after` edges a stable address.
	buildJob := &job.Job{
		Project:     project.Name,
		Artifact:    a.Name,
		Name:        "build",
		Description: "Build artifact " + a.Name,
	}
	if err := jobs.Register(buildJob); err != nil {
		return err
	}

	model.artifacts[key] = &ArtifactEntry{Artifact: artifact, Project: project, Config: config}
	return nil
}

// parseAfter resolves `after` entries to job URIs. A bare name refers to a
// job in the same project; an entry with an explicit empty project segment
// (`:name`) refers to a workspace-global job.
func parseAfter(projectName string, entries []string) ([]job.URI, error) {
	var after []job.URI
	for _, entry := range entries {
		uri, err := job.ParseURI(entry)
		if err != nil {
			return nil, &component.ConfigurationError{Subject: "after", Reason: err.Error()}
		}
		if uri.Project == "" && uri.Artifact == "" && !strings.Contains(entry, ":") {
			uri = job.NewURI(projectName, "", uri.Job)
		}
		after = append(after, uri)
	}
	return after, nil
}

// parseArtifactRef resolves a depends_on entry. `name` refers to an
// artifact of the same project, `project/name` to another project's.
func parseArtifactRef(projectName, ref string) (*component.Dependency, error) {
	parts := strings.Split(ref, "/")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return nil, &component.ConfigurationError{Subject: "depends_on", Reason: "empty artifact reference"}
		}
		return &component.Dependency{Project: projectName, Artifact: parts[0]}, nil
	case 2:
		return &component.Dependency{Project: parts[0], Artifact: parts[1]}, nil
	default:
		return nil, &component.ConfigurationError{
			Subject: "depends_on",
			Reason:  fmt.Sprintf("malformed artifact reference %q: expected [project/]artifact", ref),
		}
	}
}
