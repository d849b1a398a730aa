package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/embedding"
	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/vectorindex"
)

const (
	kindOpportunities = "opportunities"
	kindSeekers       = "seekers"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and query the vector similarity index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed seekers or opportunities and persist the index",
	Run: func(cmd *cobra.Command, _ []string) {
		indexBuild(cmd)
	},
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Print the nearest indexed entities for a text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		indexSearch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd, indexSearchCmd)

	indexCmd.PersistentFlags().String("dir", "", "index directory (default is index.dir from the config)")
	indexBuildCmd.Flags().String("kind", kindOpportunities, "what to index: opportunities or seekers")
	indexBuildCmd.Flags().StringP("fixture", "f", "", "read entities from a fixture file instead of the database")
	indexSearchCmd.Flags().IntP("k", "k", 10, "number of neighbours")
}

func indexDirFlag(cmd *cobra.Command, config *Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return indexDir(config)
}

func indexBuild(cmd *cobra.Command) {
	ctx := context.Background()
	l, config := setup()
	dir := indexDirFlag(cmd, config)
	kind, _ := cmd.Flags().GetString("kind")

	shared, err := sharedEncoder(config, l)
	if err != nil {
		l.Fatal("configuring encoder", zap.Error(err))
	}
	enc, err := shared.Get(ctx)
	if err != nil {
		l.Fatal("initialising encoder", zap.Error(err))
	}
	l = logger.WithEncoderFields(l, enc.Name(), enc.ModelID())

	var data *rankData
	if fixturePath, _ := cmd.Flags().GetString("fixture"); fixturePath != "" {
		fixture, err := loadFixture(fixturePath, l)
		if err != nil {
			l.Fatal("loading fixture", zap.Error(err))
		}
		data = &rankData{
			seekers:       &inbox.Seekers{Items: fixture.Seekers},
			opportunities: &inbox.Opportunities{Items: fixture.Opportunities},
		}
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

	docs, err := documents(kind, data)
	if err != nil {
		l.Fatal("selecting documents", zap.Error(err))
	}

	// Reuse vectors of unchanged documents from the previous build.
	ix, err := vectorindex.Load(ctx, dir, enc, indexOptions(config, l))
	if err != nil {
		l.Info("starting a fresh index", zap.String("dir", dir), zap.String("reason", err.Error()))
		if ix, err = vectorindex.New(enc, indexOptions(config, l)); err != nil {
			l.Fatal("creating index", zap.Error(err))
		}
	}

	stats, err := ix.Build(ctx, docs)
	if err != nil {
		l.Fatal("building index", zap.Error(err))
	}
	if err := ix.Persist(ctx, dir); err != nil {
		l.Fatal("persisting index", zap.Error(err))
	}

	l.Info("index built",
		zap.String("dir", dir),
		zap.String("kind", kind),
		zap.String("metric", string(ix.Metric())),
		zap.Int("documents", stats.Documents),
		zap.Int("encoded", stats.Encoded),
		zap.Int("reused", stats.Reused))
}

func documents(kind string, data *rankData) ([]vectorindex.Document, error) {
	var docs []vectorindex.Document
	switch kind {
	case kindOpportunities:
		for _, o := range data.opportunities.Items {
			docs = append(docs, vectorindex.Document{ID: o.ID, Text: embedding.OpportunityText(o)})
		}
	case kindSeekers:
		for _, s := range data.seekers.Items {
			docs = append(docs, vectorindex.Document{ID: s.ID, Text: embedding.SeekerText(s, nil)})
		}
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
	return docs, nil
}

func indexSearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	l, config := setup()
	dir := indexDirFlag(cmd, config)
	k, _ := cmd.Flags().GetInt("k")

	shared, err := sharedEncoder(config, l)
	if err != nil {
		l.Fatal("configuring encoder", zap.Error(err))
	}
	enc, err := shared.Get(ctx)
	if err != nil {
		l.Fatal("initialising encoder", zap.Error(err))
	}

	ix, err := vectorindex.Load(ctx, dir, enc, indexOptions(config, l))
	if err != nil {
		l.Fatal("loading index", zap.String("dir", dir), zap.Error(err))
	}

	neighbors, err := ix.Search(ctx, strings.Join(args, " "), k)
	if err != nil {
		l.Fatal("searching index", zap.Error(err))
	}

	for i, n := range neighbors {
		fmt.Printf("%3d. id %-8d distance %.6f\n", i+1, n.ID, n.Distance)
	}
}
