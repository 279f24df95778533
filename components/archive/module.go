// Package archive provides a zip blueprint. It is both buildable and
// consumable: source files are zipped, and the outputs of consumed
// dependency artifacts are folded into the zip under a per-dependency
// prefix.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/component"
)

// Module implements component.Module and registers the archive blueprint.
type Module struct{}

// Register registers the blueprint with the application's registry.
func (m *Module) Register(r *component.Registry) {
	r.RegisterBlueprint(&Blueprint{})
}

// Blueprint builds a zip of the artifact's sources and consumed inputs.
type Blueprint struct{}

// Type implements component.Blueprint.
func (b *Blueprint) Type() string { return "archive" }

// Describe implements component.Blueprint.
func (b *Blueprint) Describe() string {
	return "Packs the artifact's sources and consumed dependency outputs into a zip."
}

// ConfigSpec implements component.Blueprint.
func (b *Blueprint) ConfigSpec() *component.Descriptor {
	return &component.Descriptor{Fields: []component.FieldSpec{
		{Name: "variant", Fingerprint: true, ArtifactKey: true, Default: "release"},
		{Name: "compression", Fingerprint: true, Default: "deflate"},
	}}
}

// Consume implements component.Consumable. Each resolved dependency's
// output is recorded on the artifact for Build to pack.
func (b *Blueprint) Consume(ctx context.Context, artifact *component.CreatedArtifact, dep *component.CreatedArtifact, output *component.ArtifactOutput) error {
	if output == nil {
		return fmt.Errorf("dependency %s/%s produced no output", dep.Project, dep.Name)
	}
	artifact.AddConsumed(&component.ConsumedInput{From: dep, Output: output})
	return nil
}

// Build implements component.Buildable.
func (b *Blueprint) Build(ctx context.Context, out *component.OutputBuilder, artifact *component.CreatedArtifact, project *component.Project, config component.Config) error {
	name := artifact.Name + ".zip"
	full := filepath.Join(out.Root(), name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	method := zip.Deflate
	if config.Value("compression") == "store" {
		method = zip.Store
	}

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
			if err := addEntry(zw, method, src, filepath.ToSlash(rel)); err != nil {
				return err
			}
		}
	}

	for _, in := range artifact.Consumed() {
		prefix := path.Join("deps", in.From.Name)
		for _, rel := range in.Output.Files {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := filepath.Join(in.Output.Root, filepath.FromSlash(rel))
			if err := addEntry(zw, method, src, path.Join(prefix, rel)); err != nil {
				return err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return err
	}
	out.AddFile(name)
	return nil
}

func addEntry(zw *zip.Writer, method uint16, src, name string) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
