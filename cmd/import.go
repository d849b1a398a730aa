package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/recompute"
)

var importCmd = &cobra.Command{
	Use:   "import <fixture>",
	Short: "Load a fixture into the database and schedule score recomputes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		importFixture(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("migrate", false, "create missing tables first")
	importCmd.Flags().Bool("no-recompute", false, "do not schedule score recomputes for imported pairings")
}

func importFixture(cmd *cobra.Command, path string) {
	ctx := context.Background()
	l, config := setup()

	fixture, err := loadFixture(path, l)
	if err != nil {
		l.Fatal("loading fixture", zap.Error(err))
	}

	db, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening store", zap.Error(err))
	}
	defer db.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := db.Migrate(ctx); err != nil {
			l.Fatal("migrating schema", zap.Error(err))
		}
	}

	for _, s := range fixture.Seekers {
		if err := db.UpsertSeeker(ctx, s); err != nil {
			l.Fatal("importing seeker", zap.Error(err))
		}
	}
	for _, o := range fixture.Opportunities {
		if err := db.UpsertOpportunity(ctx, o); err != nil {
			l.Fatal("importing opportunity", zap.Error(err))
		}
	}

	// Imports made without recompute are marked as recompute writes so the
	// service does not dispatch.
	origin := inbox.OriginManual
	var dispatcher recompute.Dispatcher
	if skip, _ := cmd.Flags().GetBool("no-recompute"); skip {
		origin = inbox.OriginRecompute
	} else {
		redisConfig := recompute.RedisConfig{Address: "localhost:6379"}
		if config.Redis != nil {
			redisConfig = *config.Redis
		}
		client := recompute.NewRedisClient(redisConfig)
		defer client.Close()
		dispatcher = recompute.NewQueue(client, redisConfig.Queue, l.Named("queue"))
	}

	service := recompute.NewService(db, dispatcher, l)
	for _, p := range fixture.Pairings {
		if !p.Complete() {
			l.Warn("skipping pairing with unknown seeker or opportunity", logger.PairingFields(p.ID, 0, 0)...)
			continue
		}
		if err := service.Save(ctx, p, origin); err != nil {
			l.Fatal("importing pairing", append(logger.PairingFields(p.ID, p.Seeker.ID, p.Opportunity.ID), zap.Error(err))...)
		}
	}

	l.Info("fixture imported",
		zap.Int("seekers", len(fixture.Seekers)),
		zap.Int("opportunities", len(fixture.Opportunities)),
		zap.Int("pairings", len(fixture.Pairings)),
		zap.Bool("recompute", origin == inbox.OriginManual))
}
