package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvil-build/anvil/internal/artifactcache"
	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/job"
)

// newWorkspace lays out a minimal buildable workspace: one project with a
// copy artifact over a single source file.
func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "src", "data.txt"), []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "project.anvil.hcl"), []byte(`
project "app" {
  source_set "main" {
    root = "src"
  }

  artifact "copy" "assets" {
    sources = ["main"]
  }

  job "lint" {}
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "workspace.anvil.hcl"), []byte(`
job "clean" {}
`), 0o644))
	return root
}

func newTestApp(t *testing.T, cfg Config) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)
	a, err := NewApp(&out, config)
	require.NoError(t, err)
	return a, &out
}

func TestAppBuildsArtifact(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	a, out := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, a.Run(ctx))
	assert.Contains(t, out.String(), "built app/assets")

	// The staged file exists under the cache directory.
	entry, ok := a.Manager().MostRecentOutput("app")
	require.True(t, ok)
	staged, err := os.ReadFile(filepath.Join(entry.Root, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(staged))

	// A fresh App over the same workspace reuses the persisted cache.
	b, out2 := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, b.Run(ctx))
	assert.Contains(t, out2.String(), "cached app/assets")
}

func TestAppCachedRunPersistsAccessTime(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, a.Run(ctx))

	time.Sleep(2 * time.Millisecond)
	b, out := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, b.Run(ctx))
	require.Contains(t, out.String(), "cached app/assets")

	// The hit's access stamp reached the on-disk index.
	index := artifactcache.New(filepath.Join(root, ".anvil-cache", "index.cbor"))
	index.LoadCache(ctx)
	entry, ok := index.GetMostRecentOutputForProject("app")
	require.True(t, ok)
	assert.True(t, entry.LastAccess.After(entry.CreatedAt))
}

func TestAppInvalidateCache(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, a.Run(ctx))

	b, out := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets", InvalidateCache: true})
	require.NoError(t, b.Run(ctx))
	assert.Contains(t, out.String(), "built app/assets")
}

func TestAppRunsBareJobs(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	t.Run("workspace-global job", func(t *testing.T) {
		a, out := newTestApp(t, Config{WorkspacePath: root, Target: "clean"})
		require.NoError(t, a.Run(ctx))
		assert.Contains(t, out.String(), "job clean succeeded")
	})

	t.Run("project-scoped job", func(t *testing.T) {
		a, out := newTestApp(t, Config{WorkspacePath: root, Target: "app:lint"})
		require.NoError(t, a.Run(ctx))
		assert.Contains(t, out.String(), "job app:lint succeeded")
	})

	t.Run("unknown job is an error", func(t *testing.T) {
		a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "ghost"})
		assert.Error(t, a.Run(ctx))
	})
}

func TestAppArtifactJobSegment(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	t.Run("unknown job name is a configuration error", func(t *testing.T) {
		a, out := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets:deploy"})
		err := a.Run(ctx)

		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "app:assets:deploy")
		assert.NotContains(t, out.String(), "built app/assets", "the build job must not run in place of the named job")
	})

	t.Run("registered non-build job is scheduled", func(t *testing.T) {
		a, out := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets:package"})
		require.NoError(t, a.Jobs().Register(&job.Job{Project: "app", Artifact: "assets", Name: "package"}))

		require.NoError(t, a.Run(ctx))
		assert.Contains(t, out.String(), "job app:assets:package succeeded")
	})
}

func TestAppShowLast(t *testing.T) {
	root := newWorkspace(t)
	ctx := context.Background()

	t.Run("nothing recorded yet", func(t *testing.T) {
		a, out := newTestApp(t, Config{WorkspacePath: root, ShowLastProject: "app"})
		require.NoError(t, a.Run(ctx))
		assert.Contains(t, out.String(), "no cached outputs recorded")
	})

	t.Run("after a build", func(t *testing.T) {
		a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
		require.NoError(t, a.Run(ctx))

		b, out := newTestApp(t, Config{WorkspacePath: root, ShowLastProject: "app"})
		require.NoError(t, b.Run(ctx))
		assert.Contains(t, out.String(), "app/assets built")
		assert.Contains(t, out.String(), "data.txt")
	})
}

func TestAppUnknownTarget(t *testing.T) {
	root := newWorkspace(t)
	a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/ghost"})
	assert.Error(t, a.Run(context.Background()))
}

func TestAppRegistersDeclaredJobs(t *testing.T) {
	root := newWorkspace(t)
	a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})

	assert.True(t, a.Jobs().Has(job.NewURI("", "", "clean")))
	assert.True(t, a.Jobs().Has(job.NewURI("app", "", "lint")))
	assert.True(t, a.Jobs().Has(job.NewURI("app", "assets", "build")))
}

func TestAppSettingsMerge(t *testing.T) {
	root := newWorkspace(t)
	customCache := filepath.Join(t.TempDir(), "custom-cache")
	require.NoError(t, os.WriteFile(filepath.Join(root, "anvil.yaml"), []byte(
		"cache_dir: "+customCache+"\nworkers: 2\n"), 0o644))

	a, _ := newTestApp(t, Config{WorkspacePath: root, Target: "app/assets"})
	require.NoError(t, a.Run(context.Background()))

	// Outputs and the index land under the settings-provided cache dir.
	_, err := os.Stat(filepath.Join(customCache, "index.cbor"))
	assert.NoError(t, err)
	assert.Equal(t, 2, a.config.Workers)
}

func TestParseTarget(t *testing.T) {
	t.Run("artifact targets", func(t *testing.T) {
		tgt, err := parseTarget("app/server")
		require.NoError(t, err)
		assert.Equal(t, "app", tgt.project)
		assert.Equal(t, "server", tgt.artifact)
		assert.Equal(t, "build", tgt.jobName)

		tgt, err = parseTarget("app/server:package")
		require.NoError(t, err)
		assert.Equal(t, "package", tgt.jobName)
	})

	t.Run("bare job targets", func(t *testing.T) {
		tgt, err := parseTarget("app:lint")
		require.NoError(t, err)
		assert.Empty(t, tgt.project)
		assert.Equal(t, "app:lint", tgt.jobURI.String())
	})

	t.Run("malformed targets", func(t *testing.T) {
		_, err := parseTarget("app/")
		assert.Error(t, err)
		_, err = parseTarget("/server")
		assert.Error(t, err)
	})
}
