package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/job"
	"github.com/anvil-build/anvil/internal/manager"
	"github.com/anvil-build/anvil/internal/scheduler"
)

// target is a parsed run request.
type target struct {
	// project and artifact are set for `<project>/<artifact>[:<job>]`
	// requests; jobURI for bare job addresses.
	project  string
	artifact string
	jobName  string
	jobURI   job.URI
}

// parseTarget resolves a run request. `<project>/<artifact>` implies the
// artifact's build job; a request without a slash addresses a job URI
// directly.
func parseTarget(s string) (*target, error) {
	if !strings.Contains(s, "/") {
		uri, err := job.ParseURI(s)
		if err != nil {
			return nil, err
		}
		return &target{jobURI: uri}, nil
	}

	projectPart, rest, _ := strings.Cut(s, "/")
	artifactPart, jobName, hasJob := strings.Cut(rest, ":")
	if !hasJob {
		jobName = "build"
	}
	if projectPart == "" || artifactPart == "" || jobName == "" {
		return nil, fmt.Errorf("malformed target %q: expected <project>/<artifact>[:<job>]", s)
	}
	return &target{project: projectPart, artifact: artifactPart, jobName: jobName}, nil
}

// Run executes the configured run request: a diagnostic query, a bare job,
// a transient execution, or an artifact build.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.ShowLastProject != "" {
		return a.showLast(a.config.ShowLastProject)
	}

	tgt, err := parseTarget(a.config.Target)
	if err != nil {
		return err
	}

	if tgt.project == "" {
		return a.runBareJob(ctx, tgt.jobURI)
	}

	entry, ok := a.model.Artifact(tgt.project, tgt.artifact)
	if !ok {
		return &component.ConfigurationError{
			Subject: "target " + a.config.Target,
			Reason:  "no such artifact in workspace",
		}
	}

	// An explicit non-build job addresses the artifact's job graph
	// directly. It must resolve to a registered job.
	if tgt.jobName != "build" {
		uri := job.NewURI(tgt.project, tgt.artifact, tgt.jobName)
		if !a.jobs.Has(uri) {
			return &component.ConfigurationError{
				Subject: "target " + a.config.Target,
				Reason:  "no such job " + uri.String(),
			}
		}
		return a.runBareJob(ctx, uri)
	}

	// A run request against an executable-only blueprint is a transient
	// execution, never a cached build.
	if _, executable := entry.Artifact.Blueprint.(component.TransientExecutable); executable {
		return a.manager.RunTransient(ctx, entry.Artifact.Blueprint, entry.Project, entry.Config, firstSourceSet(entry.Artifact))
	}

	result, err := a.manager.BuildFromDependencies(ctx, entry.Artifact.Blueprint, entry.Artifact, entry.Project, entry.Config, a.config.InvalidateCache)
	if err != nil {
		return err
	}
	// Access-time stamps from cache hits anywhere in the dependency walk
	// are persisted once here instead of on every hit.
	if result.Status == manager.StatusCached {
		a.manager.FlushAccessTimes(ctx)
	}

	switch result.Status {
	case manager.StatusBuilt:
		fmt.Fprintf(a.outW, "built %s/%s (%d files) -> %s\n", tgt.project, tgt.artifact, len(result.Output.Files), result.Output.Root)
		return nil
	case manager.StatusCached:
		fmt.Fprintf(a.outW, "cached %s/%s -> %s\n", tgt.project, tgt.artifact, result.Output.Root)
		return nil
	case manager.StatusCancelled:
		return fmt.Errorf("build of %s/%s was cancelled: %w", tgt.project, tgt.artifact, result.Err)
	default:
		return result.Err
	}
}

// runBareJob schedules a job URI that is not tied to an artifact build.
func (a *App) runBareJob(ctx context.Context, uri job.URI) error {
	outcome, err := a.manager.RunJob(ctx, uri)
	if err != nil {
		return err
	}
	switch outcome.State {
	case scheduler.Succeeded:
		fmt.Fprintf(a.outW, "job %s succeeded\n", uri.String())
		return nil
	case scheduler.Cancelled:
		return fmt.Errorf("job %s was cancelled: %w", uri.String(), outcome.Err)
	default:
		return fmt.Errorf("job %s failed: %w", uri.String(), outcome.Err)
	}
}

// showLast prints the most recent cached output recorded for a project.
func (a *App) showLast(project string) error {
	entry, ok := a.manager.MostRecentOutput(project)
	if !ok {
		fmt.Fprintf(a.outW, "no cached outputs recorded for project %s\n", project)
		return nil
	}
	fmt.Fprintf(a.outW, "%s/%s built %s\n", entry.Project, entry.Artifact, entry.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, f := range entry.Files {
		fmt.Fprintf(a.outW, "  %s\n", f)
	}
	return nil
}

func firstSourceSet(a *component.CreatedArtifact) *component.SourceSet {
	if len(a.SourceSets) > 0 {
		return a.SourceSets[0]
	}
	return nil
}
