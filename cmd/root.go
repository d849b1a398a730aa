package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/inbox-ranker/internal/bulk"
	"github.com/spigell/inbox-ranker/internal/recompute"
	"github.com/spigell/inbox-ranker/internal/store"
)

const (
	app = "inbox-ranker"
)

type Config struct {
	Database  *DatabaseConfig        `mapstructure:"database"`
	Redis     *recompute.RedisConfig `mapstructure:"redis"`
	Scoring   *ScoringConfig         `mapstructure:"scoring"`
	Embedding *EmbeddingConfig       `mapstructure:"embedding"`
	Index     *IndexConfig           `mapstructure:"index"`
	Bulk      bulk.Options           `mapstructure:"bulk"`
	Metrics   *MetricsConfig         `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	store.Config `mapstructure:",squash"`
	DSN          string `mapstructure:"dsn"`
	DSNFile      string `mapstructure:"dsn-file"`
}

type ScoringConfig struct {
	// RulesFile replaces the built-in rule set when set.
	RulesFile string `mapstructure:"rules-file"`
	Mode      string `mapstructure:"mode"`
	Precision int    `mapstructure:"precision"`
}

type EmbeddingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dim        int    `mapstructure:"dim"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type IndexConfig struct {
	Dir    string `mapstructure:"dir"`
	Metric string `mapstructure:"metric"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "inbox-ranker scores and ranks job seekers against opportunities",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"database.dsn-file":      "INBOX_RANKER_DSN_FILE",
		"embedding.api-key-file": "GEMINI_API_KEY_FILE",
		"redis.address":          "INBOX_RANKER_REDIS_ADDR",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is inbox-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("rules", "", "scoring rules file (default is the built-in rule set)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("scoring.rules-file", rootCmd.PersistentFlags().Lookup("rules"))
}

func setDefaults() {
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.queue", recompute.DefaultQueue)
	viper.SetDefault("scoring.mode", "sum")
	viper.SetDefault("embedding.provider", "hashing")
	viper.SetDefault("index.dir", "data/index")
	viper.SetDefault("index.metric", "cosine")
	viper.SetDefault("bulk.chunk-size", bulk.DefaultChunkSize)
	viper.SetDefault("bulk.workers", bulk.DefaultWorkers)
	viper.SetDefault("bulk.sub-batch", bulk.DefaultSubBatch)
	viper.SetDefault("metrics.address", ":9090")
}

func initConfig() {
	// .env is optional and only fills variables that are not set yet.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional; an explicit one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
