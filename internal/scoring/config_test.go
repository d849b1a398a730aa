package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
mode: normalized
precision: 2
rules:
  - name: english
    query:
      fields: [english_level]
      adapter: english_level
    vector:
      fields: [english_level]
      adapter: english_level
    analyzer: threshold
    weight: 8
    penalty_per_step: 2
    validator: english_required
  - name: salary
    query:
      fields: [salary_min, salary_max]
    vector:
      fields: [salary_min]
    analyzer: range
    weight: 1
    extra_weight: true
    extra_weight_per_unit: 0.2
`

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte(sampleRules))
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 2)
	require.NotNil(t, cfg.Precision)

	assert.Equal(t, ModeNormalized, cfg.Mode)
	assert.Equal(t, 2, *cfg.Precision)
	assert.Equal(t, Threshold, cfg.Rules[0].Analyzer)
	assert.Equal(t, []string{"salary_min", "salary_max"}, cfg.Rules[1].Query.Fields)
	assert.True(t, cfg.Rules[1].ExtraWeight)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, ModeNormalized, reg.Mode())
	assert.Equal(t, 2, reg.Precision())

	reg, err = cfg.Registry(WithMode(ModeSum))
	require.NoError(t, err)
	assert.Equal(t, ModeSum, reg.Mode())
}

func TestParseConfigRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "not yaml", doc: "rules: [\n"},
		{name: "missing rules", doc: "mode: sum\n"},
		{name: "unknown mode", doc: "mode: max\nrules: [{name: a, query: {fields: [position]}, vector: {fields: [position]}, analyzer: string_equality, weight: 1}]\n"},
		{name: "unknown analyzer", doc: "rules: [{name: a, query: {fields: [position]}, vector: {fields: [position]}, analyzer: fuzzy, weight: 1}]\n"},
		{name: "missing weight", doc: "rules: [{name: a, query: {fields: [position]}, vector: {fields: [position]}, analyzer: string_equality}]\n"},
		{name: "misspelled key", doc: "rules: [{name: a, query: {fields: [position]}, vector: {fields: [position]}, analyzer: string_equality, weight: 1, wieght: 2}]\n"},
		{name: "too many fields", doc: "rules: [{name: a, query: {fields: [a, b, c]}, vector: {fields: [position]}, analyzer: string_equality, weight: 1}]\n"},
		{name: "weight not a number", doc: "rules: [{name: a, query: {fields: [position]}, vector: {fields: [position]}, analyzer: string_equality, weight: high}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestRegistryRejectsSchemaValidButUnknownField(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte("rules: [{name: a, query: {fields: [title]}, vector: {fields: [position]}, analyzer: string_equality, weight: 1}]\n"))
	require.NoError(t, err)

	_, err = cfg.Registry()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	t.Parallel()

	raw, err := DefaultConfig().Marshal()
	require.NoError(t, err)

	parsed, err := ParseConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), parsed)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Rules, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
