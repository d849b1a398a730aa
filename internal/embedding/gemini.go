package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/spigell/inbox-ranker/internal/utils"
)

const (
	defaultGeminiModel = "gemini-embedding-001"
	defaultGeminiDim   = 768
	// maxGeminiBatch is the number of contents accepted by one embed request.
	maxGeminiBatch = 100
	maxAttempts    = 3
)

var retryDelay = 2 * time.Second

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEncoder embeds texts with the Gemini embeddings API.
type GeminiEncoder struct {
	models    contentEmbedder
	modelName string
	dim       int
}

// NewGeminiEncoder creates an encoder configured for the Gemini API backend.
func NewGeminiEncoder(ctx context.Context, apiKey, model string, dim int) (*GeminiEncoder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiEncoder(client.Models, model, dim), nil
}

func newGeminiEncoder(models contentEmbedder, model string, dim int) *GeminiEncoder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if dim <= 0 {
		dim = defaultGeminiDim
	}
	return &GeminiEncoder{models: models, modelName: model, dim: dim}
}

func (g *GeminiEncoder) Name() string { return ProviderGemini }

func (g *GeminiEncoder) ModelID() string { return fmt.Sprintf("gemini-%s-d%d", g.modelName, g.dim) }

func (g *GeminiEncoder) Dim() int { return g.dim }

// Encode embeds the non-blank texts in batches and fills blank ones with
// zero vectors without calling the API.
func (g *GeminiEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini encoder is not initialized")
	}

	out := make([][]float32, len(texts))
	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, g.dim)
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += maxGeminiBatch {
		batch := pending[start:min(start+maxGeminiBatch, len(pending))]

		contents := make([]*genai.Content, 0, len(batch))
		for _, idx := range batch {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: texts[idx]}},
			})
		}

		vectors, err := g.embed(ctx, contents)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", len(vectors), len(batch))
		}
		for j, idx := range batch {
			out[idx] = vectors[j]
		}
	}

	return out, nil
}

func (g *GeminiEncoder) embed(ctx context.Context, contents []*genai.Content) ([][]float32, error) {
	dim := int32(g.dim)
	cfg := &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dim,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := g.models.EmbedContent(ctx, g.modelName, contents, cfg)
		if err == nil {
			return g.vectors(resp)
		}
		lastErr = err
		if !temporary(err) || attempt == maxAttempts {
			break
		}
		if werr := utils.WaitFor(ctx, time.Duration(attempt)*retryDelay); werr != nil {
			return nil, werr
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (g *GeminiEncoder) vectors(resp *genai.EmbedContentResponse) ([][]float32, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != g.dim {
			return nil, fmt.Errorf("gemini embedding %d has unexpected length", i)
		}
		vec := append([]float32(nil), emb.Values...)
		NormalizeL2(vec)
		out = append(out, vec)
	}
	return out, nil
}

func temporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
