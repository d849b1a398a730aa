package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/bulk"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var confirmPrompt = promptui.Select{
	Label: "Rescore every pairing?",
	Items: []string{PromptYes, PromptNo},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute and store the score of every pairing",
	Run: func(cmd *cobra.Command, _ []string) {
		rescore(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rescoreCmd)

	rescoreCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	rescoreCmd.Flags().Int("chunk-size", bulk.DefaultChunkSize, "pairings loaded and persisted per chunk")
	rescoreCmd.Flags().Int("workers", bulk.DefaultWorkers, "concurrent scoring workers")
	rescoreCmd.Flags().Bool("skip-failed", false, "skip pairings that fail to score instead of aborting")
	rescoreCmd.Flags().Int64("start-after", 0, "resume after this pairing id")
	rescoreCmd.Flags().Duration("timeout", 0, "limit for the whole run, 0 disables it")

	for _, name := range []string{"chunk-size", "workers", "skip-failed", "start-after", "timeout"} {
		viper.BindPFlag("bulk."+name, rescoreCmd.Flags().Lookup(name))
	}
}

func rescore(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, config := setup()
	l.Info("starting the rescore", zap.String("version", version))

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		_, answer, err := confirmPrompt.Run()
		if err != nil {
			l.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			l.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	engine, err := buildEngine(ctx, config, l)
	if err != nil {
		l.Fatal("building scoring engine", zap.Error(err))
	}

	db, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening store", zap.Error(err))
	}
	defer db.Close()

	orchestrator := bulk.New(db, db, engine, config.Bulk,
		bulk.WithLogger(l.Named("bulk")),
		bulk.WithMetrics(bulk.NewMetrics(prometheus.DefaultRegisterer)))

	report, err := orchestrator.Run(ctx)
	if err != nil {
		var runErr *bulk.RunError
		if errors.As(err, &runErr) {
			l.Fatal("rescore aborted",
				zap.Error(err),
				zap.String("hint", fmt.Sprintf("resume with --start-after %d", runErr.LastCommittedID)))
		}
		l.Fatal("rescore failed", zap.Error(err))
	}

	for _, f := range report.Failed {
		fmt.Printf("skipped pairing %d: %v\n", f.PairingID, f.Err)
	}
	l.Info("rescore finished",
		zap.String("run_id", report.RunID),
		zap.Int("chunks", report.Chunks),
		zap.Int("scored", report.Scored),
		zap.Int("skipped", len(report.Failed)),
		zap.Duration("duration", report.Duration))
}
