package embedding

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spigell/inbox-ranker/internal/inbox"
)

func TestSeekerText(t *testing.T) {
	t.Parallel()

	s := &inbox.Seeker{
		Position:       "Go developer",
		PrimaryKeyword: "Golang",
		Skills:         []string{"PostgreSQL", " "},
		LookingFor:     "product company",
	}

	got := SeekerText(s, []string{"hello", "I am interested"})
	assert.Equal(t, "Go developer\nGolang\nPostgreSQL\nproduct company\nhello\nI am interested", got)

	assert.Equal(t, "", SeekerText(&inbox.Seeker{}, nil))
}

func TestSeekerTextKeepsLatestMessages(t *testing.T) {
	t.Parallel()

	conversation := make([]string, MaxConversationMessages+3)
	for i := range conversation {
		conversation[i] = fmt.Sprintf("m%d", i)
	}

	got := SeekerText(nil, conversation)
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, MaxConversationMessages)
	assert.Equal(t, "m3", lines[0])
	assert.Equal(t, fmt.Sprintf("m%d", MaxConversationMessages+2), lines[len(lines)-1])
}

func TestPairingTexts(t *testing.T) {
	t.Parallel()

	p := &inbox.Pairing{
		Seeker: &inbox.Seeker{Position: "QA"},
		Opportunity: &inbox.Opportunity{
			Position:        "QA engineer",
			PrimaryKeyword:  "QA",
			ExtraKeywords:   []string{"Selenium"},
			LongDescription: "Manual and automated testing",
		},
		Messages: []inbox.Message{{Body: "hi"}, {Body: "  "}},
	}

	seeker, opp := PairingTexts(p)
	assert.Equal(t, "QA\nhi", seeker)
	assert.Equal(t, "QA engineer\nQA\nSelenium\nManual and automated testing", opp)

	seeker, opp = PairingTexts(nil)
	assert.Empty(t, seeker)
	assert.Empty(t, opp)
}
