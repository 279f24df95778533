// Package copy provides the simplest buildable blueprint: it stages the
// files of an artifact's source sets into the artifact root unchanged.
package copy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/component"
)

// Module implements component.Module and registers the copy blueprint.
type Module struct{}

// Register registers the blueprint with the application's registry.
func (m *Module) Register(r *component.Registry) {
	r.RegisterBlueprint(&Blueprint{})
}

// Blueprint copies source files verbatim into the artifact root.
type Blueprint struct{}

// Type implements component.Blueprint.
func (b *Blueprint) Type() string { return "copy" }

// Describe implements component.Blueprint.
func (b *Blueprint) Describe() string {
	return "Stages the artifact's source files into the artifact root unchanged."
}

// ConfigSpec implements component.Blueprint.
func (b *Blueprint) ConfigSpec() *component.Descriptor {
	return &component.Descriptor{Fields: []component.FieldSpec{
		{Name: "variant", Fingerprint: true, ArtifactKey: true, Default: "release"},
	}}
}

// Build implements component.Buildable.
func (b *Blueprint) Build(ctx context.Context, out *component.OutputBuilder, artifact *component.CreatedArtifact, project *component.Project, config component.Config) error {
	for _, set := range artifact.SourceSets {
		files, err := set.Files()
		if err != nil {
			return err
		}
		for _, src := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(set.Dir(), src)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if err := copyFile(src, filepath.Join(out.Root(), filepath.FromSlash(rel))); err != nil {
				return fmt.Errorf("staging %s: %w", rel, err)
			}
			out.AddFile(rel)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
