package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/utils"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List the pairings of an opportunity in inbox order",
	Run: func(cmd *cobra.Command, _ []string) {
		listInbox(cmd)
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)

	inboxCmd.Flags().Int64P("opportunity", "o", 0, "opportunity id, 0 lists every pairing")
	inboxCmd.Flags().StringP("fixture", "f", "", "read pairings from a fixture file instead of the database")
	inboxCmd.Flags().String("sort", string(inbox.DefaultSortKey), "recent, sal-lh, sal-hl, exp-lh, exp-hl or adv (by score)")
}

func listInbox(cmd *cobra.Command) {
	ctx := context.Background()
	l, config := setup()

	oppID, _ := cmd.Flags().GetInt64("opportunity")
	key, _ := cmd.Flags().GetString("sort")

	var pairings []*inbox.Pairing
	if fixturePath, _ := cmd.Flags().GetString("fixture"); fixturePath != "" {
		fixture, err := loadFixture(fixturePath, l)
		if err != nil {
			l.Fatal("loading fixture", zap.Error(err))
		}
		pairings = fixture.Pairings
	} else {
		db, err := openStore(ctx, config, l)
		if err != nil {
			l.Fatal("opening store", zap.Error(err))
		}
		defer db.Close()

		if pairings, err = pages(ctx, db.NextChunk, func(p *inbox.Pairing) int64 { return p.ID }); err != nil {
			l.Fatal("loading pairings", zap.Error(err))
		}
	}

	selected := make([]*inbox.Pairing, 0, len(pairings))
	for _, p := range pairings {
		if p.Complete() && (oppID == 0 || p.Opportunity.ID == oppID) {
			selected = append(selected, p)
		}
	}

	scores := map[int64]float64{}
	if inbox.SortKey(key) == inbox.SortAdvanced {
		engine, err := buildEngine(ctx, config, l)
		if err != nil {
			l.Fatal("building scoring engine", zap.Error(err))
		}
		for _, out := range engine.ScorePairings(ctx, selected) {
			if out.Err != nil {
				l.Warn("scoring failed", append(logger.PairingFields(out.PairingID, 0, 0), zap.Error(out.Err))...)
				continue
			}
			scores[out.PairingID] = out.Score.Value
		}
	}

	if err := inbox.SortPairings(selected, inbox.SortKey(key), func(id int64) float64 { return scores[id] }); err != nil {
		l.Fatal("sorting inbox", zap.Error(err))
	}

	for _, p := range selected {
		last := ""
		if conv := p.Conversation(); len(conv) > 0 {
			last = utils.TruncateForLog(conv[len(conv)-1], 60)
		}
		fmt.Printf("pairing %-8d seeker %-8d %-30s salary %-6d exp %-4v score %-8v %s\n",
			p.ID, p.Seeker.ID, utils.TruncateForLog(p.Seeker.Position, 30), p.Seeker.SalaryMin,
			p.Seeker.ExperienceYears, scores[p.ID], last)
	}
}
