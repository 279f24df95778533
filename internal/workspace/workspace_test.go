package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/job"
)

// writeDecl writes one declaration file at a relative path under root.
func writeDecl(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// stubBlueprint is a minimal buildable kind for finalization tests.
type stubBlueprint struct{ kind string }

func (s *stubBlueprint) Type() string     { return s.kind }
func (s *stubBlueprint) Describe() string { return "stub" }
func (s *stubBlueprint) ConfigSpec() *component.Descriptor {
	return &component.Descriptor{Fields: []component.FieldSpec{
		{Name: "variant", Fingerprint: true, Default: "release"},
	}}
}

func testRegistry() *component.Registry {
	r := component.NewRegistry()
	r.RegisterBlueprint(&stubBlueprint{kind: "copy"})
	return r
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("loads projects and global jobs across files", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "workspace.anvil.hcl", `
job "clean" {
  description = "Remove build outputs."
}
`)
		writeDecl(t, root, "app/project.anvil.hcl", `
project "app" {
  description = "The application."

  source_set "main" {
    root    = "src"
    include = ["**/*.c"]
  }

  artifact "copy" "server" {
    sources = ["main"]
  }
}
`)

		decls, err := Load(ctx, root)
		require.NoError(t, err)
		require.Len(t, decls.Projects, 1)
		require.Len(t, decls.GlobalJobs, 1)
		assert.Equal(t, "clean", decls.GlobalJobs[0].Name)
		assert.Equal(t, filepath.Join(decls.Root, "app"), decls.Projects[0].Dir)
	})

	t.Run("duplicate project across files is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "a/project.anvil.hcl", `project "app" {}`)
		writeDecl(t, root, "b/project.anvil.hcl", `project "app" {}`)

		_, err := Load(ctx, root)
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("malformed HCL is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "bad.anvil.hcl", `project "app" {`)

		_, err := Load(ctx, root)
		assert.Error(t, err)
	})

	t.Run("empty workspace loads cleanly", func(t *testing.T) {
		decls, err := Load(ctx, t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, decls.Projects)
	})
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	load := func(t *testing.T, root string) *Declarations {
		t.Helper()
		decls, err := Load(ctx, root)
		require.NoError(t, err)
		return decls
	}

	t.Run("binds artifacts, jobs, and source sets", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "app/project.anvil.hcl", `
project "app" {
  source_set "main" {
    root = "src"
  }

  job "lint" {}

  job "verify" {
    after = ["lint", ":clean"]
  }

  artifact "copy" "server" {
    sources = ["main"]
    config {
      variant = "debug"
    }
  }
}
`)
		writeDecl(t, root, "workspace.anvil.hcl", `job "clean" {}`)

		jobs := job.NewRegistry()
		model, err := Finalize(ctx, load(t, root), testRegistry(), jobs)
		require.NoError(t, err)

		entry, ok := model.Artifact("app", "server")
		require.True(t, ok)
		assert.Equal(t, "debug", entry.Config.Value("variant"))
		assert.Equal(t, job.NewURI("app", "server", "build"), entry.Artifact.PrimaryJob())
		require.Len(t, entry.Artifact.SourceSets, 1)
		assert.Equal(t, filepath.Join(model.Root, "app", "src"), entry.Artifact.SourceSets[0].Dir())

		// Declared jobs plus the implicit build job.
		assert.True(t, jobs.Has(job.NewURI("app", "", "lint")))
		assert.True(t, jobs.Has(job.NewURI("", "", "clean")))
		assert.True(t, jobs.Has(job.NewURI("app", "server", "build")))

		// A bare `after` name is project-scoped; `:name` is workspace-global.
		verify, ok := jobs.Get(job.NewURI("app", "", "verify"))
		require.True(t, ok)
		assert.Equal(t, []job.URI{
			job.NewURI("app", "", "lint"),
			job.NewURI("", "", "clean"),
		}, verify.After)
	})

	t.Run("artifact lookup is case-insensitive", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "project.anvil.hcl", `
project "App" {
  artifact "copy" "Server" {}
}
`)
		model, err := Finalize(ctx, load(t, root), testRegistry(), job.NewRegistry())
		require.NoError(t, err)

		_, ok := model.Artifact("app", "server")
		assert.True(t, ok)
	})

	t.Run("unknown artifact type is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "project.anvil.hcl", `
project "app" {
  artifact "mystery" "server" {}
}
`)
		_, err := Finalize(ctx, load(t, root), testRegistry(), job.NewRegistry())
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "mystery")
	})

	t.Run("unknown source set is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "project.anvil.hcl", `
project "app" {
  artifact "copy" "server" {
    sources = ["missing"]
  }
}
`)
		_, err := Finalize(ctx, load(t, root), testRegistry(), job.NewRegistry())
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("unknown config field is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "project.anvil.hcl", `
project "app" {
  artifact "copy" "server" {
    config {
      bogus = "x"
    }
  }
}
`)
		_, err := Finalize(ctx, load(t, root), testRegistry(), job.NewRegistry())
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("duplicate artifact in a project is rejected", func(t *testing.T) {
		root := t.TempDir()
		writeDecl(t, root, "project.anvil.hcl", `
project "app" {
  artifact "copy" "server" {}
  artifact "copy" "server" {}
}
`)
		_, err := Finalize(ctx, load(t, root), testRegistry(), job.NewRegistry())
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestModelResolve(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeDecl(t, root, "project.anvil.hcl", `
project "app" {
  artifact "copy" "lib" {}

  artifact "copy" "server" {
    depends_on = ["lib"]
    packages   = ["zlib@1.3"]
  }
}
`)
	decls, err := Load(ctx, root)
	require.NoError(t, err)
	model, err := Finalize(ctx, decls, testRegistry(), job.NewRegistry())
	require.NoError(t, err)

	entry, ok := model.Artifact("app", "server")
	require.True(t, ok)
	require.Len(t, entry.Artifact.Dependencies, 2)

	t.Run("artifact reference resolves to the created artifact", func(t *testing.T) {
		resolved, err := model.Resolve(ctx, &component.Dependency{Project: "app", Artifact: "lib"})
		require.NoError(t, err)
		require.NotNil(t, resolved.Artifact)
		assert.Equal(t, "lib", resolved.Artifact.Name)
	})

	t.Run("package reference resolves to a synthetic fingerprint", func(t *testing.T) {
		resolved, err := model.Resolve(ctx, &component.Dependency{Package: "zlib@1.3"})
		require.NoError(t, err)
		assert.Nil(t, resolved.Artifact)
		assert.NotEmpty(t, resolved.PackageFingerprint)

		again, err := model.Resolve(ctx, &component.Dependency{Package: "zlib@1.3"})
		require.NoError(t, err)
		assert.Equal(t, resolved.PackageFingerprint, again.PackageFingerprint)
	})

	t.Run("unknown artifact reference is a configuration error", func(t *testing.T) {
		_, err := model.Resolve(ctx, &component.Dependency{Project: "app", Artifact: "ghost"})
		var cfgErr *component.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestParseArtifactRef(t *testing.T) {
	t.Run("bare name stays in the project", func(t *testing.T) {
		dep, err := parseArtifactRef("app", "lib")
		require.NoError(t, err)
		assert.Equal(t, "app", dep.Project)
		assert.Equal(t, "lib", dep.Artifact)
	})

	t.Run("qualified name crosses projects", func(t *testing.T) {
		dep, err := parseArtifactRef("app", "other/lib")
		require.NoError(t, err)
		assert.Equal(t, "other", dep.Project)
	})

	t.Run("malformed references are rejected", func(t *testing.T) {
		_, err := parseArtifactRef("app", "")
		assert.Error(t, err)
		_, err = parseArtifactRef("app", "a/b/c")
		assert.Error(t, err)
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("missing file yields zero settings", func(t *testing.T) {
		s, err := LoadSettings(t.TempDir())
		require.NoError(t, err)
		assert.Zero(t, *s)
	})

	t.Run("reads all fields", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFile), []byte(`
cache_dir: /tmp/anvil-cache
workers: 4
log_level: debug
log_format: json
remote:
  url: https://cache.example.com
  token: secret
`), 0o644))

		s, err := LoadSettings(root)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/anvil-cache", s.CacheDir)
		assert.Equal(t, 4, s.Workers)
		assert.Equal(t, "debug", s.LogLevel)
		assert.Equal(t, "json", s.LogFormat)
		assert.Equal(t, "https://cache.example.com", s.Remote.URL)
		assert.Equal(t, "secret", s.Remote.Token)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFile), []byte("workers: [not an int"), 0o644))
		_, err := LoadSettings(root)
		assert.Error(t, err)
	})
}
