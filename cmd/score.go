package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <pairing-id>...",
	Short: "Score pairings and print the breakdown",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("fixture", "f", "", "read pairings from a fixture file instead of the database")
	scoreCmd.Flags().Bool("persist", false, "store the computed scores")
}

func score(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	l, config := setup()

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			l.Fatal("invalid pairing id", zap.String("arg", arg), zap.Error(err))
		}
		ids = append(ids, id)
	}

	engine, err := buildEngine(ctx, config, l)
	if err != nil {
		l.Fatal("building scoring engine", zap.Error(err))
	}

	var (
		pairings = make([]*inbox.Pairing, 0, len(ids))
		scored   []*inbox.Score
		db       *store.Store
	)
	fixturePath, _ := cmd.Flags().GetString("fixture")
	if fixturePath != "" {
		fixture, err := loadFixture(fixturePath, l)
		if err != nil {
			l.Fatal("loading fixture", zap.Error(err))
		}
		for _, id := range ids {
			p := findPairing(fixture.Pairings, id)
			if p == nil {
				l.Fatal("pairing not found in fixture", logger.PairingFields(id, 0, 0)...)
			}
			pairings = append(pairings, p)
		}
	} else {
		db, err = openStore(ctx, config, l)
		if err != nil {
			l.Fatal("opening store", zap.Error(err))
		}
		defer db.Close()

		for _, id := range ids {
			p, err := db.Pairing(ctx, id)
			if err != nil {
				l.Fatal("loading pairing", append(logger.PairingFields(id, 0, 0), zap.Error(err))...)
			}
			pairings = append(pairings, p)
		}
	}

	for _, out := range engine.ScorePairings(ctx, pairings) {
		if out.Err != nil {
			l.Error("scoring failed", append(logger.PairingFields(out.PairingID, 0, 0), zap.Error(out.Err))...)
			continue
		}
		scored = append(scored, out.Score)

		pretty, _ := json.MarshalIndent(out.Score, "", "  ")
		fmt.Println(string(pretty))
	}

	if persist, _ := cmd.Flags().GetBool("persist"); persist && db != nil {
		if err := db.PersistScores(ctx, scored); err != nil {
			l.Fatal("persisting scores", zap.Error(err))
		}
		l.Info("scores persisted", zap.Int("count", len(scored)))
	}
}

func findPairing(pairings []*inbox.Pairing, id int64) *inbox.Pairing {
	for _, p := range pairings {
		if p.ID == id {
			return p
		}
	}
	return nil
}
