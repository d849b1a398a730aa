package embedding

import (
	"strings"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

// MaxConversationMessages bounds how many of the latest messages feed the
// seeker text.
const MaxConversationMessages = 10

// SeekerText builds the text embedded for a seeker: role, keywords, skills,
// free text and the latest conversation bodies in chronological order.
func SeekerText(s *inbox.Seeker, conversation []string) string {
	if s == nil {
		return joinText(tail(conversation))
	}

	parts := []string{s.Position, s.PrimaryKeyword, s.SecondaryKeyword}
	parts = append(parts, s.Skills...)
	parts = append(parts, s.FreeText())
	parts = append(parts, tail(conversation)...)
	return joinText(parts)
}

// OpportunityText builds the text embedded for an opportunity.
func OpportunityText(o *inbox.Opportunity) string {
	if o == nil {
		return ""
	}

	parts := []string{o.Position}
	parts = append(parts, o.Keywords()...)
	parts = append(parts, o.LongDescription)
	return joinText(parts)
}

// PairingTexts returns the seeker and opportunity texts of a pairing.
func PairingTexts(p *inbox.Pairing) (string, string) {
	if p == nil {
		return "", ""
	}
	return SeekerText(p.Seeker, p.Conversation()), OpportunityText(p.Opportunity)
}

func tail(items []string) []string {
	if len(items) > MaxConversationMessages {
		return items[len(items)-MaxConversationMessages:]
	}
	return items
}

func joinText(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
