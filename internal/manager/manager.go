package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/anvil-build/anvil/internal/artifactcache"
	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/fingerprint"
	"github.com/anvil-build/anvil/internal/hashcache"
	"github.com/anvil-build/anvil/internal/job"
	"github.com/anvil-build/anvil/internal/remote"
	"github.com/anvil-build/anvil/internal/scheduler"
)

// ResolvedDependency is the result of resolving one Dependency reference.
// Artifact dependencies carry the created artifact and its build context;
// external package dependencies carry only a fingerprint.
type ResolvedDependency struct {
	Artifact *component.CreatedArtifact
	Project  *component.Project
	Config   component.Config
	// PackageFingerprint is set for external package references instead
	// of Artifact.
	PackageFingerprint string
}

// DependencyResolver resolves declared dependency references to their
// created artifacts. The workspace layer implements it.
type DependencyResolver interface {
	Resolve(ctx context.Context, dep *component.Dependency) (*ResolvedDependency, error)
}

// Manager orchestrates dependency resolution, fingerprinting, cache
// consultation, and job scheduling for artifact builds. All collaborators
// are injected at construction.
type Manager struct {
	registry  *job.Registry
	scheduler *scheduler.Scheduler
	cache     *artifactcache.Cache
	hashes    *hashcache.Store
	resolver  DependencyResolver
	// pusher is the optional remote cache sink; nil disables pushing.
	pusher    *remote.Pusher
	cacheRoot string
}

// New creates a manager. pusher may be nil.
func New(registry *job.Registry, sched *scheduler.Scheduler, cache *artifactcache.Cache, hashes *hashcache.Store, resolver DependencyResolver, pusher *remote.Pusher, cacheRoot string) *Manager {
	return &Manager{
		registry:  registry,
		scheduler: sched,
		cache:     cache,
		hashes:    hashes,
		resolver:  resolver,
		pusher:    pusher,
		cacheRoot: cacheRoot,
	}
}

// BuildFromDependencies builds the artifact, or reports its cached output.
// Structural problems (bad declarations, cycles) are returned as an error;
// execution outcomes, including failure and cancellation, are reported in
// the BuildResult.
func (m *Manager) BuildFromDependencies(ctx context.Context, bp component.Blueprint, artifact *component.CreatedArtifact, project *component.Project, config component.Config, invalidateCache bool) (*BuildResult, error) {
	logger := ctxlog.FromContext(ctx).With("project", project.Name, "artifact", artifact.Name)

	artifact.ResetConsumed()

	// Dependencies must be fully built or cached before this artifact's
	// fingerprint can exist, because the fingerprint folds theirs in.
	depFingerprints, depResult, err := m.resolveDependencies(ctx, bp, artifact, invalidateCache)
	if err != nil {
		return nil, err
	}
	if depResult != nil {
		return depResult, nil
	}

	files, changed, err := m.hashSources(ctx, artifact)
	if err != nil {
		return nil, err
	}
	fp := fingerprint.Artifact(project.Name, artifact.Name, config, files, depFingerprints)
	logger = logger.With("fingerprint", fp[:12])

	if !invalidateCache {
		if result := m.tryCache(ctx, artifact, fp); result != nil {
			logger.Info("Artifact output reused from cache.")
			return result, nil
		}
	}

	unlock := m.cache.LockFingerprint(fp)
	defer unlock()

	// Another request may have finished this exact build while we waited
	// for the fingerprint lock.
	if !invalidateCache {
		if result := m.tryCache(ctx, artifact, fp); result != nil {
			logger.Info("Artifact output reused from cache after waiting for in-flight build.")
			return result, nil
		}
	}

	buildable, ok := bp.(component.Buildable)
	if !ok {
		return nil, &component.ConfigurationError{
			Subject: "artifact " + artifact.Name,
			Reason:  fmt.Sprintf("blueprint %q is not buildable", bp.Type()),
		}
	}

	root := m.GetArtifactRoot(config, project.Name, artifact.Name, fp)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact root %s: %w", root, err)
	}
	out := component.NewOutputBuilder(root)

	primary := artifact.PrimaryJob()
	runner := func(ctx context.Context, j *job.Job) error {
		if j.URI() == primary {
			return buildable.Build(ctx, out, artifact, project, config)
		}
		if j.Action != nil {
			return j.Action(ctx)
		}
		return nil
	}

	logger.Info("Cache miss, scheduling build.", "job", primary.String(), "changedSources", len(changed))
	outcome, err := m.scheduler.Run(ctx, primary, runner)
	if err != nil {
		return nil, err
	}

	switch outcome.State {
	case scheduler.Succeeded:
		built := out.Build()
		artifact.SetLastOutput(built)
		m.cache.CacheArtifact(project.Name, artifact.Name, fp, built)
		m.cache.FlushCacheToDisk(ctx)
		m.hashes.Flush(ctx)
		m.pushRemote(ctx, fp, built)
		logger.Info("Artifact built.", "files", len(built.Files))
		return &BuildResult{Status: StatusBuilt, Fingerprint: fp, Output: built, ChangedSources: changed}, nil
	case scheduler.Cancelled:
		logger.Warn("Build cancelled.", "cause", outcome.Err)
		return &BuildResult{Status: StatusCancelled, Fingerprint: fp, Err: outcome.Err}, nil
	default:
		cause := &BuildProcessError{Project: project.Name, Artifact: artifact.Name, Err: outcome.Err}
		logger.Error("Build failed.", "error", outcome.Err)
		return &BuildResult{Status: StatusFailed, Fingerprint: fp, Err: cause}, nil
	}
}

// resolveDependencies resolves and recursively builds every declared
// dependency, feeding consumable blueprints, and returns the dependency
// fingerprints. A dependency that fails or is cancelled is
// surfaced as a non-nil BuildResult that the caller propagates unchanged.
func (m *Manager) resolveDependencies(ctx context.Context, bp component.Blueprint, artifact *component.CreatedArtifact, invalidateCache bool) ([]string, *BuildResult, error) {
	var depFingerprints []string
	for _, dep := range artifact.Dependencies {
		resolved, err := m.resolver.Resolve(ctx, dep)
		if err != nil {
			return nil, nil, err
		}

		if resolved.Artifact == nil {
			depFingerprints = append(depFingerprints, resolved.PackageFingerprint)
			continue
		}

		depBP := resolved.Artifact.Blueprint
		res, err := m.BuildFromDependencies(ctx, depBP, resolved.Artifact, resolved.Project, resolved.Config, invalidateCache)
		if err != nil {
			return nil, nil, err
		}
		switch res.Status {
		case StatusFailed, StatusCancelled:
			return nil, res, nil
		}
		depFingerprints = append(depFingerprints, res.Fingerprint)

		if consumable, ok := bp.(component.Consumable); ok {
			if err := consumable.Consume(ctx, artifact, resolved.Artifact, res.Output); err != nil {
				cause := &BuildProcessError{Project: artifact.Project, Artifact: artifact.Name, Err: err}
				return nil, &BuildResult{Status: StatusFailed, Err: cause}, nil
			}
		}
	}
	return depFingerprints, nil, nil
}

// tryCache returns a Cached result when the fingerprint is already
// recorded, updating the entry's access time and marking the artifact's
// primary job satisfied so a surrounding job graph skips it. The access
// time is stamped in memory only; a hit performs no file I/O beyond the
// lookup, and the caller persists the stamps once per run via
// FlushAccessTimes.
func (m *Manager) tryCache(ctx context.Context, artifact *component.CreatedArtifact, fp string) *BuildResult {
	entry, ok := m.cache.Get(fp)
	if !ok {
		return nil
	}
	m.cache.UpdateAccessTime(fp)

	if j, registered := m.registry.Get(artifact.PrimaryJob()); registered {
		j.MarkSatisfied()
	}

	out := entry.Output()
	artifact.SetLastOutput(out)
	return &BuildResult{Status: StatusCached, Fingerprint: fp, Output: out}
}

// RunTransient invokes an executable artifact's run behavior without any
// caching. Blueprints lacking the Executable capability yield a
// NotExecutableError.
func (m *Manager) RunTransient(ctx context.Context, bp component.Blueprint, project *component.Project, config component.Config, sources *component.SourceSet) error {
	exec, ok := bp.(component.Executable)
	if !ok {
		return &component.NotExecutableError{BlueprintType: bp.Type()}
	}
	ctxlog.FromContext(ctx).Info("Running transient artifact.", "type", bp.Type(), "project", project.Name)
	return exec.Execute(ctx, project, config, sources)
}

// GetArtifactRoot composes the deterministic on-disk root for an
// artifact's outputs: platform key, project and artifact name, the
// artifact-key-relevant config fields, and a fingerprint prefix. Identical
// inputs always map to the same path; a different fingerprint or
// artifact-key field always maps to a different one.
func (m *Manager) GetArtifactRoot(config component.Config, project, artifact, fp string) string {
	segments := []string{m.cacheRoot, runtime.GOOS + "-" + runtime.GOARCH, project, artifact}
	if config != nil {
		for _, f := range component.ArtifactKeyFields(config) {
			if f.Value != "" {
				segments = append(segments, f.Value)
			}
		}
	}
	prefix := fp
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	segments = append(segments, prefix)
	return filepath.Join(segments...)
}

// RunJob schedules a bare job and its predecessor closure without any
// artifact bookkeeping. Used for workspace- and project-global jobs.
func (m *Manager) RunJob(ctx context.Context, uri job.URI) (*scheduler.Outcome, error) {
	return m.scheduler.Run(ctx, uri, nil)
}

// FlushAccessTimes persists access-time stamps accumulated by cache hits.
// Called once at the end of a run; a successful build already flushes the
// index as part of recording its entry.
func (m *Manager) FlushAccessTimes(ctx context.Context) {
	m.cache.FlushCacheToDisk(ctx)
}

// MostRecentOutput reports the project's most recently built cache entry
// for diagnostics.
func (m *Manager) MostRecentOutput(project string) (*artifactcache.Entry, bool) {
	return m.cache.GetMostRecentOutputForProject(project)
}

// pushRemote hands the output to the remote cache sink. Failures are
// logged and never fail the local build.
func (m *Manager) pushRemote(ctx context.Context, fp string, out *component.ArtifactOutput) {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Push(ctx, fp, out); err != nil {
		ctxlog.FromContext(ctx).Warn("Remote cache push failed.", "fingerprint", fp[:12], "error", err)
	}
}
