package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  []StringField
		expect map[string]string
	}{
		{
			name:   "no input",
			expect: map[string]string{},
		},
		{
			name: "trims keys and values",
			input: []StringField{
				{Key: "  rule  ", Value: "  salary  "},
			},
			expect: map[string]string{"rule": "salary"},
		},
		{
			name: "drops blank keys and values",
			input: []StringField{
				{Key: "ignored", Value: "   "},
				{Key: "   ", Value: "empty key"},
				{Key: FieldModel, Value: "hashing-v1"},
			},
			expect: map[string]string{FieldModel: "hashing-v1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := map[string]string{}
			for _, f := range StringFields(tt.input...) {
				got[f.Key] = f.String
			}
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestPairingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                         string
		pairing, seeker, opportunity int64
		expect                       []string
	}{
		{name: "all identifiers", pairing: 1, seeker: 2, opportunity: 3, expect: []string{FieldPairing, FieldSeeker, FieldOpportunity}},
		{name: "skips zero seeker", pairing: 7, opportunity: 3, expect: []string{FieldPairing, FieldOpportunity}},
		{name: "seeker only", seeker: 5, expect: []string{FieldSeeker}},
		{name: "nothing", expect: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			keys := []string{}
			for _, f := range PairingFields(tt.pairing, tt.seeker, tt.opportunity) {
				assert.Equal(t, zapcore.Int64Type, f.Type)
				keys = append(keys, f.Key)
			}
			assert.Equal(t, tt.expect, keys)
		})
	}
}

func TestRuleFields(t *testing.T) {
	t.Parallel()

	fields := RuleFields("english")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldRule, fields[0].Key)
	assert.Equal(t, "english", fields[0].String)

	assert.Empty(t, RuleFields("  "))
}

func TestWithEncoderFields(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	WithEncoderFields(zap.New(core), "gemini", "text-embedding-004").Info("encoder ready")

	entries := observed.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "gemini", ctx[FieldEncoder])
	assert.Equal(t, "text-embedding-004", ctx[FieldModel])

	assert.NotNil(t, WithFields(nil), "nil logger falls back to a no-op logger")
	assert.Empty(t, EncoderFields("", ""))
}
