package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/recompute"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume recompute tasks and expose Prometheus metrics",
	Run: func(_ *cobra.Command, _ []string) {
		worker()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func worker() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, config := setup()
	l.Info("starting the recompute worker", zap.String("version", version))

	engine, err := buildEngine(ctx, config, l)
	if err != nil {
		l.Fatal("building scoring engine", zap.Error(err))
	}

	db, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening store", zap.Error(err))
	}
	defer db.Close()

	redisConfig := recompute.RedisConfig{Address: "localhost:6379"}
	if config.Redis != nil {
		redisConfig = *config.Redis
	}
	client := recompute.NewRedisClient(redisConfig)
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		l.Fatal("redis ping failed", zap.String("address", redisConfig.Address), zap.Error(err))
	}

	queue := recompute.NewQueue(client, redisConfig.Queue, l.Named("queue"))
	w := recompute.NewWorker(queue, db, engine, db, l.Named("worker"),
		recompute.WithMetrics(recompute.NewMetrics(prometheus.DefaultRegisterer)))

	if config.Metrics != nil && config.Metrics.Address != "" {
		srv := serveMetrics(config.Metrics.Address, l)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := w.Run(ctx); err != nil {
		l.Fatal("recompute worker failed", zap.Error(err))
	}
}

func serveMetrics(addr string, l *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		l.Info("serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
