// Package run provides a transient-executable blueprint that runs a shell
// command in the project root. Runs are never cached.
package run

import (
	"context"
	"os"
	"os/exec"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
)

// Module implements component.Module and registers the run blueprint.
type Module struct{}

// Register registers the blueprint with the application's registry.
func (m *Module) Register(r *component.Registry) {
	r.RegisterBlueprint(&Blueprint{})
}

// Blueprint executes a configured command. It implements Executable and
// the TransientExecutable marker, and deliberately not Buildable.
type Blueprint struct{}

// Type implements component.Blueprint.
func (b *Blueprint) Type() string { return "run" }

// Describe implements component.Blueprint.
func (b *Blueprint) Describe() string {
	return "Runs a shell command in the project root without caching."
}

// ConfigSpec implements component.Blueprint.
func (b *Blueprint) ConfigSpec() *component.Descriptor {
	return &component.Descriptor{Fields: []component.FieldSpec{
		{Name: "command", Fingerprint: true, Required: true},
	}}
}

// Execute implements component.Executable.
func (b *Blueprint) Execute(ctx context.Context, project *component.Project, config component.Config, sources *component.SourceSet) error {
	command := config.Value("command")
	ctxlog.FromContext(ctx).Info("Running command.", "project", project.Name, "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = project.Root
	if sources != nil {
		cmd.Dir = sources.Dir()
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Transient implements the component.TransientExecutable marker.
func (b *Blueprint) Transient() {}
