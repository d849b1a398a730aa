package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEncoder(t *testing.T) {
	t.Parallel()

	enc, err := NewHashingEncoder(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDim, enc.Dim())
	assert.Equal(t, "hashing-v1-d384", enc.ModelID())

	texts := []string{
		"Senior Go developer, PostgreSQL and Kubernetes",
		"senior go developer postgresql and KUBERNETES!",
		"   ",
		"Illustrator for a children's book",
	}
	vectors, err := enc.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, v := range vectors {
		assert.Len(t, v, DefaultDim, "vector %d", i)
	}

	assert.Equal(t, vectors[0], vectors[1], "cleaning makes punctuation and case irrelevant")
	assert.InDelta(t, 1.0, norm(vectors[0]), 1e-6)
	assert.Equal(t, 0.0, norm(vectors[2]))
	assert.Greater(t, Cosine(vectors[0], vectors[1]), Cosine(vectors[0], vectors[3]))

	again, err := enc.Encode(context.Background(), texts[:1])
	require.NoError(t, err)
	assert.Equal(t, vectors[0], again[0])
}

func TestHashingEncoderRejectsNegativeDim(t *testing.T) {
	t.Parallel()

	_, err := NewHashingEncoder(-1)
	assert.Error(t, err)
}

func TestHashingEncoderHonoursCancellation(t *testing.T) {
	t.Parallel()

	enc, err := NewHashingEncoder(16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = enc.Encode(ctx, []string{"go"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	enc, err := New(context.Background(), Config{Dim: 32})
	require.NoError(t, err)
	assert.Equal(t, ProviderHashing, enc.Name())
	assert.Equal(t, 32, enc.Dim())

	_, err = New(context.Background(), Config{Provider: "word2vec"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "api key is required")
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
