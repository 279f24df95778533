package component

import (
	"fmt"
	"log/slog"
)

// Module is the interface component packages implement to hook their
// blueprints into an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry maps artifact kind names to their blueprints for a single
// application instance.
type Registry struct {
	blueprints map[string]Blueprint
}

// NewRegistry creates an empty blueprint registry.
func NewRegistry() *Registry {
	return &Registry{blueprints: make(map[string]Blueprint)}
}

// RegisterBlueprint adds a blueprint under its kind name. Registration
// happens once at startup; a duplicate kind is a programmer error and
// panics.
func (r *Registry) RegisterBlueprint(bp Blueprint) {
	name := bp.Type()
	if _, exists := r.blueprints[name]; exists {
		panic(fmt.Sprintf("blueprint with type '%s' already registered", name))
	}
	slog.Debug("Registering blueprint.", "type", name)
	r.blueprints[name] = bp
}

// Blueprint returns the blueprint registered for a kind name.
func (r *Registry) Blueprint(name string) (Blueprint, bool) {
	bp, ok := r.blueprints[name]
	return bp, ok
}

// Types returns the registered kind names.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.blueprints))
	for name := range r.blueprints {
		names = append(names, name)
	}
	return names
}
