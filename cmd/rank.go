package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/scoring"
	"github.com/spigell/inbox-ranker/internal/store"
)

const listPageSize = 500

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank seekers for an opportunity, or opportunities for a seeker",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().Int64P("opportunity", "o", 0, "rank all seekers for this opportunity")
	rankCmd.Flags().Int64P("seeker", "s", 0, "rank all opportunities for this seeker")
	rankCmd.Flags().StringP("fixture", "f", "", "read seekers and opportunities from a fixture file instead of the database")
	rankCmd.Flags().IntP("limit", "n", 20, "how many entries to print, 0 prints all")
	rankCmd.MarkFlagsOneRequired("opportunity", "seeker")
	rankCmd.MarkFlagsMutuallyExclusive("opportunity", "seeker")
}

// rankData holds every seeker and opportunity available to the command.
type rankData struct {
	seekers       *inbox.Seekers
	opportunities *inbox.Opportunities
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()
	l, config := setup()

	oppID, _ := cmd.Flags().GetInt64("opportunity")
	seekerID, _ := cmd.Flags().GetInt64("seeker")
	limit, _ := cmd.Flags().GetInt("limit")

	registry, err := buildRegistry(config, l)
	if err != nil {
		l.Fatal("building scoring registry", zap.Error(err))
	}

	data := &rankData{}
	if fixturePath, _ := cmd.Flags().GetString("fixture"); fixturePath != "" {
		fixture, err := loadFixture(fixturePath, l)
		if err != nil {
			l.Fatal("loading fixture", zap.Error(err))
		}
		data.seekers = &inbox.Seekers{Items: fixture.Seekers}
		data.opportunities = &inbox.Opportunities{Items: fixture.Opportunities}
	} else {
		db, err := openStore(ctx, config, l)
		if err != nil {
			l.Fatal("opening store", zap.Error(err))
		}
		defer db.Close()

		if data, err = loadRankData(ctx, db); err != nil {
			l.Fatal("loading entities", zap.Error(err))
		}
	}

	var (
		ranked []scoring.Ranked
		label  string
	)
	if seekerID != 0 {
		seeker := data.seekers.FindByID(seekerID)
		if seeker == nil {
			l.Fatal("seeker not found", logger.PairingFields(0, seekerID, 0)...)
		}
		ranked = registry.RankOpportunities(seeker, data.opportunities.Items)
		label = "opportunity"
	} else {
		opp := data.opportunities.FindByID(oppID)
		if opp == nil {
			l.Fatal("opportunity not found", logger.PairingFields(0, 0, oppID)...)
		}
		ranked = registry.Rank(opp, data.seekers.Items)
		label = "seeker"
	}

	l.Info("ranking computed",
		append(logger.PairingFields(0, seekerID, oppID),
			zap.Int("count", len(ranked)),
			zap.String("mode", string(registry.Mode())))...)

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i, r := range ranked {
		fmt.Printf("%3d. %s %-8d score %v\n", i+1, label, r.ID, r.Result.Score)
	}
}

func loadRankData(ctx context.Context, db *store.Store) (*rankData, error) {
	seekers, err := pages(ctx, db.Seekers, func(s *inbox.Seeker) int64 { return s.ID })
	if err != nil {
		return nil, err
	}
	opportunities, err := pages(ctx, db.Opportunities, func(o *inbox.Opportunity) int64 { return o.ID })
	if err != nil {
		return nil, err
	}
	return &rankData{
		seekers:       &inbox.Seekers{Items: seekers},
		opportunities: &inbox.Opportunities{Items: opportunities},
	}, nil
}

// pages drains a keyset-paginated listing.
func pages[T any](ctx context.Context, next func(context.Context, int64, int) ([]T, error), id func(T) int64) ([]T, error) {
	var (
		out   []T
		after int64
	)
	for {
		page, err := next(ctx, after, listPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < listPageSize {
			return out, nil
		}
		after = id(page[len(page)-1])
	}
}
