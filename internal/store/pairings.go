package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

const pairingQuery = `SELECT p.id, p.bucket, p.updated_at, ` + seekerColumns + `, ` + opportunityColumns + `
	FROM pairings p
	JOIN seekers s ON s.id = p.seeker_id
	JOIN opportunities o ON o.id = p.opportunity_id`

func scanPairing(scan func(...any) error) (*inbox.Pairing, error) {
	p := &inbox.Pairing{Seeker: &inbox.Seeker{}, Opportunity: &inbox.Opportunity{}}
	dest := []any{&p.ID, &p.Bucket, &p.UpdatedAt}
	dest = append(dest, seekerDest(p.Seeker)...)
	dest = append(dest, opportunityDest(p.Opportunity)...)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	return p, nil
}

// NextChunk returns up to limit pairings with id greater than afterID,
// ordered by id, with both sides and their conversations loaded.
func (s *Store) NextChunk(ctx context.Context, afterID int64, limit int) ([]*inbox.Pairing, error) {
	rows, err := s.db.QueryContext(ctx, pairingQuery+` WHERE p.id > $1 ORDER BY p.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query pairings after %d: %w", afterID, err)
	}

	var (
		out []*inbox.Pairing
		ids []int64
	)
	for rows.Next() {
		p, err := scanPairing(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pairing: %w", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate pairings: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return out, nil
	}

	conversations, err := s.Conversations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range out {
		p.Messages = conversations[p.ID]
	}

	return out, nil
}

// Pairing loads one pairing with its conversation.
func (s *Store) Pairing(ctx context.Context, id int64) (*inbox.Pairing, error) {
	row := s.db.QueryRowContext(ctx, pairingQuery+` WHERE p.id = $1`, id)
	p, err := scanPairing(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pairing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query pairing %d: %w", id, err)
	}

	if p.Messages, err = s.Messages(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

const messageQuery = `SELECT id, pairing_id, sender, body, created FROM messages`

// Messages returns the conversation of one pairing in chronological order.
func (s *Store) Messages(ctx context.Context, pairingID int64) ([]inbox.Message, error) {
	conversations, err := s.Conversations(ctx, []int64{pairingID})
	if err != nil {
		return nil, err
	}
	return conversations[pairingID], nil
}

// Conversations loads the conversations of several pairings in one query.
func (s *Store) Conversations(ctx context.Context, pairingIDs []int64) (map[int64][]inbox.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		messageQuery+` WHERE pairing_id = ANY($1) ORDER BY pairing_id, created, id`, pq.Array(pairingIDs))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]inbox.Message, len(pairingIDs))
	for rows.Next() {
		var (
			m         inbox.Message
			pairingID int64
		)
		if err := rows.Scan(&m.ID, &pairingID, &m.Sender, &m.Body, &m.Created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out[pairingID] = append(out[pairingID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

// SavePairing upserts a pairing row and inserts its new messages in one
// transaction.
func (s *Store) SavePairing(ctx context.Context, p *inbox.Pairing) error {
	if !p.Complete() {
		return errors.New("pairing needs both a seeker and an opportunity")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO pairings (id, seeker_id, opportunity_id, bucket, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET seeker_id = EXCLUDED.seeker_id,
			opportunity_id = EXCLUDED.opportunity_id, bucket = EXCLUDED.bucket, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Seeker.ID, p.Opportunity.ID, p.Bucket, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert pairing %d: %w", p.ID, err)
	}

	if len(p.Messages) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (id, pairing_id, sender, body, created)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare message insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range p.Messages {
			if _, err := stmt.ExecContext(ctx, m.ID, p.ID, m.Sender, m.Body, m.Created); err != nil {
				return fmt.Errorf("insert message %d: %w", m.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pairing %d: %w", p.ID, err)
	}
	return nil
}
