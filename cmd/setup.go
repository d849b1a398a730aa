package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/embedding"
	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/ranking"
	"github.com/spigell/inbox-ranker/internal/scoring"
	"github.com/spigell/inbox-ranker/internal/secrets"
	"github.com/spigell/inbox-ranker/internal/store"
	"github.com/spigell/inbox-ranker/internal/vectorindex"
)

// setup returns the logger and the decoded configuration, exiting on failure.
func setup() (*zap.Logger, *Config) {
	l, err := logger.Build(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Fields: []zap.Field{zap.String("app", app), zap.String("version", version)},
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}

	return l, config
}

func openStore(ctx context.Context, config *Config, l *zap.Logger) (*store.Store, error) {
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}

	dsn, err := secrets.Load(secrets.Source{
		Name:  "database dsn",
		File:  config.Database.DSNFile,
		Value: config.Database.DSN,
		Env:   "INBOX_RANKER_DSN",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set database.dsn-file or INBOX_RANKER_DSN_FILE)", err)
	}

	dbConfig := config.Database.Config
	dbConfig.DSN = dsn
	db, err := store.Open(dbConfig)
	if err != nil {
		return nil, err
	}

	s := store.New(db, l.Named("store"))
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return s, nil
}

// buildRegistry compiles the rule file when configured, the built-in rules
// otherwise.
func buildRegistry(config *Config, l *zap.Logger) (*scoring.Registry, error) {
	rules := &scoring.Config{Rules: scoring.DefaultRules()}
	opts := []scoring.Option{scoring.WithLogger(l.Named("scoring"))}

	if sc := config.Scoring; sc != nil {
		if sc.RulesFile != "" {
			loaded, err := scoring.LoadConfig(sc.RulesFile)
			if err != nil {
				return nil, err
			}
			rules = loaded
		}
		// The rules file wins over the main config.
		if sc.Mode != "" && rules.Mode == "" {
			opts = append(opts, scoring.WithMode(scoring.Mode(sc.Mode)))
		}
		if sc.Precision > 0 && rules.Precision == nil {
			opts = append(opts, scoring.WithPrecision(sc.Precision))
		}
	}

	registry, err := rules.Registry(opts...)
	if err != nil {
		return nil, err
	}

	lo, hi := registry.Bounds()
	l.Debug("scoring registry ready",
		zap.Int("rules", len(registry.Rules())),
		zap.String("mode", string(registry.Mode())),
		zap.Float64("min", lo), zap.Float64("max", hi))
	return registry, nil
}

func embeddingConfig(config *Config) (embedding.Config, error) {
	ec := config.Embedding
	if ec == nil {
		return embedding.Config{Provider: embedding.ProviderHashing}, nil
	}

	cfg := embedding.Config{Provider: ec.Provider, Model: ec.Model, Dim: ec.Dim}
	if ec.Provider == embedding.ProviderGemini {
		key, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: ec.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return cfg, fmt.Errorf("%w (set embedding.api-key-file or GEMINI_API_KEY_FILE)", err)
		}
		cfg.APIKey = key
	}
	return cfg, nil
}

// sharedEncoder returns the process-wide lazily initialised encoder.
func sharedEncoder(config *Config, l *zap.Logger) (*embedding.Shared, error) {
	cfg, err := embeddingConfig(config)
	if err != nil {
		return nil, err
	}
	return embedding.SharedFromConfig(cfg, l.Named("embedding")), nil
}

// buildEngine wires the registry and, when semantic scoring is enabled, the
// shared encoder.
func buildEngine(ctx context.Context, config *Config, l *zap.Logger) (*ranking.Engine, error) {
	registry, err := buildRegistry(config, l)
	if err != nil {
		return nil, err
	}

	opts := []ranking.Option{ranking.WithLogger(l.Named("ranking"))}
	if config.Embedding != nil && config.Embedding.Enabled {
		shared, err := sharedEncoder(config, l)
		if err != nil {
			return nil, err
		}
		enc, err := shared.Get(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ranking.WithEncoder(enc))
	}

	return ranking.New(registry, opts...), nil
}

func indexOptions(config *Config, l *zap.Logger) vectorindex.Options {
	opts := vectorindex.Options{Logger: l.Named("index")}
	if config.Index != nil {
		opts.Metric = vectorindex.Metric(config.Index.Metric)
	}
	return opts
}

func indexDir(config *Config) string {
	if config.Index == nil || config.Index.Dir == "" {
		return "data/index"
	}
	return config.Index.Dir
}

// loadFixture reads the fixture when path is set.
func loadFixture(path string, l *zap.Logger) (*inbox.Fixture, error) {
	fixture, err := inbox.LoadFixture(path)
	if err != nil {
		return nil, err
	}
	l.Info("fixture loaded",
		zap.String("path", path),
		zap.Int("seekers", len(fixture.Seekers)),
		zap.Int("opportunities", len(fixture.Opportunities)),
		zap.Int("pairings", len(fixture.Pairings)))
	return fixture, nil
}
