package embedding

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/spigell/inbox-ranker/internal/utils"
)

const bigramWeight = 0.5

// HashingEncoder is a deterministic local encoder. Cleaned unigrams and
// bigrams are hashed into Dim signed buckets and the result is L2-normalised.
type HashingEncoder struct {
	dim int
}

func NewHashingEncoder(dim int) (*HashingEncoder, error) {
	if dim == 0 {
		dim = DefaultDim
	}
	if dim < 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &HashingEncoder{dim: dim}, nil
}

func (h *HashingEncoder) Name() string { return ProviderHashing }

func (h *HashingEncoder) ModelID() string { return fmt.Sprintf("hashing-v1-d%d", h.dim) }

func (h *HashingEncoder) Dim() int { return h.dim }

func (h *HashingEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.encode(text)
	}
	return out, nil
}

func (h *HashingEncoder) encode(text string) []float32 {
	vec := make([]float32, h.dim)
	tokens := utils.Tokens(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, bigramWeight)
		}
	}
	NormalizeL2(vec)
	return vec
}

func (h *HashingEncoder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[sum%uint64(h.dim)] += weight
}
