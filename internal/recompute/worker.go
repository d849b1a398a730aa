package recompute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/store"
	"github.com/spigell/inbox-ranker/internal/utils"
)

const (
	DefaultMaxAttempts = 3
	defaultPollTimeout = 5 * time.Second
	failureBackoff     = time.Second
)

type PairingLoader interface {
	Pairing(ctx context.Context, id int64) (*inbox.Pairing, error)
}

type PairingScorer interface {
	ScorePairing(ctx context.Context, p *inbox.Pairing) (*inbox.Score, error)
}

type ScoreWriter interface {
	PersistScores(ctx context.Context, scores []*inbox.Score) error
}

type Metrics struct {
	processed *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewMetrics registers the worker metrics with reg. A nil registerer keeps
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inbox_ranker_recompute_tasks_total",
			Help: "Recompute tasks handled by the worker, by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_ranker_recompute_duration_seconds",
			Help:    "Time spent recomputing one pairing score.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Worker consumes recompute tasks. It writes scores only and never dispatches
// new tasks, so a recompute cannot trigger another one.
type Worker struct {
	queue       *Queue
	loader      PairingLoader
	scorer      PairingScorer
	writer      ScoreWriter
	metrics     *Metrics
	logger      *zap.Logger
	pollTimeout time.Duration
	maxAttempts int
}

type WorkerOption func(*Worker)

func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithPollTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pollTimeout = d }
}

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) { w.maxAttempts = n }
}

func NewWorker(queue *Queue, loader PairingLoader, scorer PairingScorer, writer ScoreWriter, l *zap.Logger, opts ...WorkerOption) *Worker {
	if l == nil {
		l = zap.NewNop()
	}
	w := &Worker{
		queue:       queue,
		loader:      loader,
		scorer:      scorer,
		writer:      writer,
		logger:      l,
		pollTimeout: defaultPollTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	return w
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	moved, err := w.queue.Recover(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("recompute worker started", zap.String("queue", w.queue.Name()), zap.Int("recovered", moved))

	for {
		if ctx.Err() != nil {
			w.logger.Info("recompute worker stopped")
			return nil
		}

		if _, err := w.Step(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("recompute step failed", zap.Error(err))
			_ = utils.WaitFor(ctx, failureBackoff)
		}
	}
}

// Step claims and handles at most one task. It reports whether a task was
// handled.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	task, err := w.queue.Claim(ctx, w.pollTimeout)
	if err != nil || task == nil {
		return false, err
	}

	l := w.logger.With(append(logger.PairingFields(task.PairingID, 0, 0),
		zap.String("task_id", task.ID), zap.Int("attempt", task.Attempt))...)

	start := time.Now()
	err = w.recompute(ctx, task.PairingID)
	w.metrics.duration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		w.metrics.processed.WithLabelValues("ok").Inc()
		l.Debug("pairing score recomputed")
		return true, w.queue.Ack(ctx, task)
	case errors.Is(err, store.ErrNotFound):
		w.metrics.processed.WithLabelValues("missing").Inc()
		l.Warn("pairing no longer exists, dropping task")
		return true, w.queue.Ack(ctx, task)
	case task.Attempt+1 < w.maxAttempts:
		w.metrics.processed.WithLabelValues("retried").Inc()
		l.Warn("recompute failed, retrying", zap.Error(err))
		return true, w.queue.Retry(ctx, task)
	default:
		w.metrics.processed.WithLabelValues("failed").Inc()
		l.Error("recompute failed, giving up", zap.Error(err))
		return true, w.queue.Ack(ctx, task)
	}
}

func (w *Worker) recompute(ctx context.Context, pairingID int64) error {
	p, err := w.loader.Pairing(ctx, pairingID)
	if err != nil {
		return err
	}

	score, err := w.scorer.ScorePairing(ctx, p)
	if err != nil {
		return fmt.Errorf("score pairing %d: %w", pairingID, err)
	}

	return w.writer.PersistScores(ctx, []*inbox.Score{score})
}
