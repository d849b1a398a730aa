package inbox

import (
	"strings"
	"time"
)

type Sender string

const (
	SenderCandidate Sender = "candidate"
	SenderRecruiter Sender = "recruiter"
)

// Message is a single message of a pairing conversation.
type Message struct {
	ID      int64     `json:"id" mapstructure:"id"`
	Body    string    `json:"body" mapstructure:"body"`
	Sender  Sender    `json:"sender" mapstructure:"sender"`
	Created time.Time `json:"created" mapstructure:"created"`
}

// Pairing is the (seeker, opportunity) relationship under evaluation, i.e. an
// inbox thread.
type Pairing struct {
	ID          int64        `json:"id" mapstructure:"id"`
	Seeker      *Seeker      `json:"seeker" mapstructure:"seeker"`
	Opportunity *Opportunity `json:"opportunity" mapstructure:"opportunity"`
	Messages    []Message    `json:"messages,omitempty" mapstructure:"messages"`
	Bucket      string       `json:"bucket,omitempty" mapstructure:"bucket"`
	UpdatedAt   time.Time    `json:"updated_at" mapstructure:"updated_at"`
}

// Complete reports whether both sides of the pairing are present.
func (p *Pairing) Complete() bool {
	return p != nil && p.Seeker != nil && p.Opportunity != nil
}

// Conversation returns the non-empty message bodies in chronological order.
func (p *Pairing) Conversation() []string {
	bodies := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		if body := strings.TrimSpace(m.Body); body != "" {
			bodies = append(bodies, body)
		}
	}
	return bodies
}

// Origin marks who produced a write to a pairing.
type Origin string

const (
	// OriginManual is a write made by a user or an import.
	OriginManual Origin = "manual"
	// OriginRecompute is a write made by the score recompute task. Writes with
	// this origin never schedule another recompute.
	OriginRecompute Origin = "recompute"
)

// Score is the persisted result of scoring a pairing.
type Score struct {
	PairingID  int64              `json:"pairing_id"`
	Value      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Mode       string             `json:"mode"`
	Similarity *float64           `json:"similarity,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
}
