package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRule is the structured log field key for a scoring rule name.
	FieldRule = "rule"
	// FieldPairing is the structured log field key for a pairing identifier.
	FieldPairing = "pairing_id"
	// FieldSeeker is the structured log field key for a seeker identifier.
	FieldSeeker = "seeker_id"
	// FieldOpportunity is the structured log field key for an opportunity identifier.
	FieldOpportunity = "opportunity_id"
	// FieldEncoder is the structured log field key for the embedding encoder name.
	FieldEncoder = "encoder"
	// FieldModel is the structured log field key for the embedding model identifier.
	FieldModel = "model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RuleFields describes a scoring rule.
func RuleFields(rule string) []zap.Field {
	return StringFields(StringField{Key: FieldRule, Value: rule})
}

// PairingFields returns the identifiers of a pairing and its two sides.
// Zero identifiers are omitted.
func PairingFields(pairingID, seekerID, opportunityID int64) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if pairingID != 0 {
		fields = append(fields, zap.Int64(FieldPairing, pairingID))
	}
	if seekerID != 0 {
		fields = append(fields, zap.Int64(FieldSeeker, seekerID))
	}
	if opportunityID != 0 {
		fields = append(fields, zap.Int64(FieldOpportunity, opportunityID))
	}

	return fields
}

// EncoderFields returns fields describing the embedding encoder and model.
// Empty values are ignored to keep log entries compact when information is missing.
func EncoderFields(encoder, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldEncoder, Value: encoder},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithEncoderFields attaches the encoder fields to the provided logger.
func WithEncoderFields(logger *zap.Logger, encoder, model string) *zap.Logger {
	return WithFields(logger, EncoderFields(encoder, model)...)
}
