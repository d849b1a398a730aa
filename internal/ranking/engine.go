// Package ranking scores pairings with the rule registry and, when an encoder
// is configured, blends in the semantic similarity of both sides.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/embedding"
	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/scoring"
)

var ErrIncompletePairing = errors.New("pairing is missing its seeker or opportunity")

// Outcome is the result of scoring one pairing. Exactly one of Score and Err
// is set.
type Outcome struct {
	PairingID int64
	Score     *inbox.Score
	Err       error
}

type Engine struct {
	registry *scoring.Registry
	encoder  embedding.Encoder
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

// WithEncoder enables semantic similarity. Without an encoder scores are rule
// based only.
func WithEncoder(enc embedding.Encoder) Option {
	return func(e *Engine) { e.encoder = enc }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(registry *scoring.Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *scoring.Registry { return e.registry }

// Semantic reports whether similarity is computed.
func (e *Engine) Semantic() bool { return e.encoder != nil }

// ScorePairings scores a batch. All texts of the batch go to the encoder in a
// single call. The outcomes are in input order.
func (e *Engine) ScorePairings(ctx context.Context, pairings []*inbox.Pairing) []Outcome {
	out := make([]Outcome, len(pairings))
	at := e.now().UTC()

	for i, p := range pairings {
		if p == nil {
			out[i] = Outcome{Err: ErrIncompletePairing}
			continue
		}
		out[i].PairingID = p.ID
		if !p.Complete() {
			out[i].Err = fmt.Errorf("pairing %d: %w", p.ID, ErrIncompletePairing)
		}
	}

	similarity, err := e.similarities(ctx, pairings, out)
	for i, p := range pairings {
		if out[i].Err != nil {
			continue
		}
		if err != nil {
			out[i].Err = fmt.Errorf("pairing %d: %w", p.ID, err)
			continue
		}

		result := e.registry.Score(p.Seeker, p.Opportunity)
		score := result.ToScore(p.ID, at)
		if sim, ok := similarity[i]; ok {
			sim = scoring.Round(sim, e.registry.Precision())
			score.Similarity = &sim
			if e.registry.Mode() == scoring.ModeNormalized {
				score.Value = scoring.Round(embedding.Blend(score.Value, sim), e.registry.Precision())
			}
		}
		out[i].Score = score
	}

	return out
}

// ScorePairing scores a single pairing.
func (e *Engine) ScorePairing(ctx context.Context, p *inbox.Pairing) (*inbox.Score, error) {
	outcome := e.ScorePairings(ctx, []*inbox.Pairing{p})[0]
	return outcome.Score, outcome.Err
}

func (e *Engine) similarities(ctx context.Context, pairings []*inbox.Pairing, out []Outcome) (map[int]float64, error) {
	if e.encoder == nil {
		return nil, nil
	}

	var (
		texts []string
		index []int
	)
	for i, p := range pairings {
		if out[i].Err != nil {
			continue
		}
		seekerText, oppText := embedding.PairingTexts(p)
		texts = append(texts, seekerText, oppText)
		index = append(index, i)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.encoder.Encode(ctx, texts)
	if err != nil {
		e.logger.Error("failed to encode pairing texts",
			append(logger.EncoderFields(e.encoder.Name(), e.encoder.ModelID()),
				zap.Int("pairings", len(index)), zap.Error(err))...)
		return nil, fmt.Errorf("encode pairing texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	sims := make(map[int]float64, len(index))
	for j, i := range index {
		sims[i] = embedding.Cosine(vectors[2*j], vectors[2*j+1])
	}
	return sims, nil
}
