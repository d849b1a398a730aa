package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/scoring"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the built-in scoring rules or validate a rules file",
	Run: func(cmd *cobra.Command, _ []string) {
		rules(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().String("check", "", "validate this rules file and print its bounds")
}

func rules(cmd *cobra.Command) {
	l, _ := setup()

	path, _ := cmd.Flags().GetString("check")
	if path == "" {
		out, err := scoring.DefaultConfig().Marshal()
		if err != nil {
			l.Fatal("rendering default rules", zap.Error(err))
		}
		fmt.Print(string(out))
		return
	}

	config, err := scoring.LoadConfig(path)
	if err != nil {
		l.Fatal("invalid rules file", zap.Error(err))
	}
	registry, err := config.Registry(scoring.WithLogger(l))
	if err != nil {
		l.Fatal("invalid rules file", zap.Error(err))
	}

	lo, hi := registry.Bounds()
	for _, r := range registry.Rules() {
		rlo, rhi := r.Bounds()
		fmt.Printf("%-28s %-16s [%g, %g]\n", r.Name(), r.Config().Analyzer, rlo, rhi)
	}
	fmt.Printf("%d rules, mode %s, precision %d, total [%g, %g]\n",
		len(registry.Rules()), registry.Mode(), registry.Precision(), lo, hi)
}
