package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildVariantDescriptor() *Descriptor {
	return &Descriptor{Fields: []FieldSpec{
		{Name: "variant", Fingerprint: true, ArtifactKey: true, Default: "release"},
		{Name: "command", Fingerprint: true, Required: true},
		{Name: "note"},
	}}
}

func TestNewConfig(t *testing.T) {
	t.Run("applies defaults for omitted fields", func(t *testing.T) {
		cfg, err := NewConfig(buildVariantDescriptor(), map[string]string{"command": "make"})
		require.NoError(t, err)
		assert.Equal(t, "release", cfg.Value("variant"))
		assert.Equal(t, "make", cfg.Value("command"))
		assert.Empty(t, cfg.Value("note"))
	})

	t.Run("declared values override defaults", func(t *testing.T) {
		cfg, err := NewConfig(buildVariantDescriptor(), map[string]string{
			"command": "make",
			"variant": "debug",
		})
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Value("variant"))
	})

	t.Run("unknown field is a configuration error", func(t *testing.T) {
		_, err := NewConfig(buildVariantDescriptor(), map[string]string{
			"command": "make",
			"bogus":   "x",
		})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "bogus")
	})

	t.Run("missing required field is a configuration error", func(t *testing.T) {
		_, err := NewConfig(buildVariantDescriptor(), nil)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "command")
	})

	t.Run("config is detached from the caller's map", func(t *testing.T) {
		values := map[string]string{"command": "make"}
		cfg, err := NewConfig(buildVariantDescriptor(), values)
		require.NoError(t, err)

		values["command"] = "mutated"
		assert.Equal(t, "make", cfg.Value("command"))
	})
}

func TestMarkedFields(t *testing.T) {
	cfg, err := NewConfig(buildVariantDescriptor(), map[string]string{
		"command": "make",
		"note":    "ignored by the fingerprint",
	})
	require.NoError(t, err)

	t.Run("fingerprint fields are sorted by name", func(t *testing.T) {
		fields := FingerprintFields(cfg)
		require.Len(t, fields, 2)
		assert.Equal(t, "command", fields[0].Name)
		assert.Equal(t, "variant", fields[1].Name)
		assert.Equal(t, "release", fields[1].Value)
	})

	t.Run("artifact-key fields select only the marked subset", func(t *testing.T) {
		fields := ArtifactKeyFields(cfg)
		require.Len(t, fields, 1)
		assert.Equal(t, "variant", fields[0].Name)
	})
}

func TestDescriptorField(t *testing.T) {
	desc := buildVariantDescriptor()

	spec, ok := desc.Field("variant")
	require.True(t, ok)
	assert.True(t, spec.Fingerprint)
	assert.True(t, spec.ArtifactKey)

	_, ok = desc.Field("missing")
	assert.False(t, ok)
}
