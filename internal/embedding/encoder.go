package embedding

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultDim is the vector length used by the local encoder.
	DefaultDim = 384

	ProviderHashing = "hashing"
	ProviderGemini  = "gemini"
)

// Encoder turns texts into fixed-length vectors. Implementations must return
// one vector of length Dim per input, in input order, and a zero vector for
// blank text.
type Encoder interface {
	Name() string
	// ModelID identifies the encoder version. Vectors from different model
	// ids are not comparable.
	ModelID() string
	Dim() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Config selects and parameterises an encoder.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Dim      int    `mapstructure:"dim"`
	APIKey   string `mapstructure:"-"`
}

// New builds the encoder named by cfg.Provider. An empty provider selects the
// local hashing encoder.
func New(ctx context.Context, cfg Config) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHashing:
		return NewHashingEncoder(cfg.Dim)
	case ProviderGemini:
		return NewGeminiEncoder(ctx, cfg.APIKey, cfg.Model, cfg.Dim)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// EncodeOne is a convenience for single texts. Prefer batching.
func EncodeOne(ctx context.Context, enc Encoder, text string) ([]float32, error) {
	vectors, err := enc.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encoder %s returned %d vectors for 1 text", enc.Name(), len(vectors))
	}
	return vectors[0], nil
}
