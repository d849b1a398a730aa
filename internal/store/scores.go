package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// PersistScores upserts the scores of a chunk with a single statement. It is
// idempotent: writing the same scores twice leaves the same rows.
func (s *Store) PersistScores(ctx context.Context, scores []*inbox.Score) error {
	if len(scores) == 0 {
		return nil
	}

	var (
		ids         = make([]int64, len(scores))
		values      = make([]float64, len(scores))
		breakdowns  = make([]string, len(scores))
		modes       = make([]string, len(scores))
		similarity  = make([]sql.NullFloat64, len(scores))
		computedAts = make([]string, len(scores))
	)
	for i, sc := range scores {
		raw, err := json.Marshal(sc.Breakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown of pairing %d: %w", sc.PairingID, err)
		}
		ids[i] = sc.PairingID
		values[i] = sc.Value
		breakdowns[i] = string(raw)
		modes[i] = sc.Mode
		if sc.Similarity != nil {
			similarity[i] = sql.NullFloat64{Float64: *sc.Similarity, Valid: true}
		}
		computedAts[i] = sc.ComputedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO pairing_scores (pairing_id, score, breakdown, mode, similarity, computed_at)
		SELECT * FROM unnest($1::bigint[], $2::double precision[], $3::jsonb[], $4::text[], $5::double precision[], $6::timestamptz[])
		ON CONFLICT (pairing_id) DO UPDATE SET score = EXCLUDED.score, breakdown = EXCLUDED.breakdown,
			mode = EXCLUDED.mode, similarity = EXCLUDED.similarity, computed_at = EXCLUDED.computed_at`,
		pq.Array(ids), pq.Array(values), pq.Array(breakdowns), pq.Array(modes),
		pq.Array(similarity), pq.Array(computedAts))
	if err != nil {
		return fmt.Errorf("persist %d scores: %w", len(scores), err)
	}

	s.logger.Debug("scores persisted", zap.Int("count", len(scores)), zap.Int64("last_pairing_id", ids[len(ids)-1]))
	return nil
}

// Score returns the stored score of a pairing.
func (s *Store) Score(ctx context.Context, pairingID int64) (*inbox.Score, error) {
	var (
		sc         = &inbox.Score{PairingID: pairingID}
		breakdown  []byte
		similarity sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT score, breakdown, mode, similarity, computed_at FROM pairing_scores WHERE pairing_id = $1`, pairingID).
		Scan(&sc.Value, &breakdown, &sc.Mode, &similarity, &sc.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("score of pairing %d: %w", pairingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query score of pairing %d: %w", pairingID, err)
	}

	if err := json.Unmarshal(breakdown, &sc.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown of pairing %d: %w", pairingID, err)
	}
	if similarity.Valid {
		v := similarity.Float64
		sc.Similarity = &v
	}
	return sc, nil
}
