package component

import "sort"

// FieldSpec describes one build-config field and which marker sets it
// belongs to. Fingerprint fields affect the artifact's content hash;
// ArtifactKey fields affect the on-disk artifact root segmentation (for
// example a Debug/Release axis). The two sets may overlap.
type FieldSpec struct {
	Name        string
	Fingerprint bool
	ArtifactKey bool
	// Default is used when a declaration omits the field.
	Default string
	// Required marks fields a declaration must set explicitly.
	Required bool
}

// Descriptor is the declarative marker table for one config type. It is
// computed once when a blueprint registers and consulted on every
// fingerprint, so lookups must not pay reflection cost.
type Descriptor struct {
	Fields []FieldSpec
}

// Field returns the spec for a named field, if declared.
func (d *Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Config is a build-configuration value object. Implementations expose
// their descriptor and the value of each declared field.
type Config interface {
	// Descriptor enumerates the config's fields and marker sets.
	Descriptor() *Descriptor
	// Value returns the effective value of a field (declaration value or
	// the field's default).
	Value(name string) string
}

// MapConfig is the standard Config backed by a field-name map, typically
// decoded from a declaration body.
type MapConfig struct {
	desc   *Descriptor
	values map[string]string
}

// NewConfig validates the given values against the descriptor and returns
// an immutable config. Unknown fields and missing required fields are
// ConfigurationErrors.
func NewConfig(desc *Descriptor, values map[string]string) (*MapConfig, error) {
	for name := range values {
		if _, ok := desc.Field(name); !ok {
			return nil, &ConfigurationError{Subject: "config", Reason: "unknown field " + name}
		}
	}
	for _, f := range desc.Fields {
		if f.Required {
			if v, ok := values[f.Name]; !ok || v == "" {
				return nil, &ConfigurationError{Subject: "config", Reason: "missing required field " + f.Name}
			}
		}
	}
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapConfig{desc: desc, values: copied}, nil
}

// Descriptor implements Config.
func (c *MapConfig) Descriptor() *Descriptor {
	return c.desc
}

// Value implements Config.
func (c *MapConfig) Value(name string) string {
	if v, ok := c.values[name]; ok {
		return v
	}
	if f, ok := c.desc.Field(name); ok {
		return f.Default
	}
	return ""
}

// FingerprintFields returns the fingerprint-relevant fields of a config as
// name/value pairs sorted by name, so the rendering is independent of
// declaration order.
func FingerprintFields(c Config) []FieldValue {
	return markedFields(c, func(f FieldSpec) bool { return f.Fingerprint })
}

// ArtifactKeyFields returns the artifact-key-relevant fields of a config as
// name/value pairs sorted by name.
func ArtifactKeyFields(c Config) []FieldValue {
	return markedFields(c, func(f FieldSpec) bool { return f.ArtifactKey })
}

// FieldValue is one resolved config field.
type FieldValue struct {
	Name  string
	Value string
}

func markedFields(c Config, marked func(FieldSpec) bool) []FieldValue {
	var out []FieldValue
	for _, f := range c.Descriptor().Fields {
		if marked(f) {
			out = append(out, FieldValue{Name: f.Name, Value: c.Value(f.Name)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
