// Package bulk rescores every pairing in keyset-ordered chunks.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
	"github.com/spigell/inbox-ranker/internal/ranking"
)

const (
	DefaultChunkSize = 500
	DefaultWorkers   = 4
	DefaultSubBatch  = 50
)

const tracerName = "github.com/spigell/inbox-ranker/internal/bulk"

// Source yields pairings with id greater than afterID in ascending id order.
type Source interface {
	NextChunk(ctx context.Context, afterID int64, limit int) ([]*inbox.Pairing, error)
}

// Sink persists the scores of one chunk in a single idempotent write.
type Sink interface {
	PersistScores(ctx context.Context, scores []*inbox.Score) error
}

type Scorer interface {
	ScorePairings(ctx context.Context, pairings []*inbox.Pairing) []ranking.Outcome
}

type Options struct {
	ChunkSize int `mapstructure:"chunk-size"`
	Workers   int `mapstructure:"workers"`
	// SubBatch is the number of pairings one worker scores with a single
	// encoder call.
	SubBatch int `mapstructure:"sub-batch"`
	// SkipFailed records scoring failures and continues instead of aborting.
	SkipFailed bool          `mapstructure:"skip-failed"`
	Timeout    time.Duration `mapstructure:"timeout"`
	StartAfter int64         `mapstructure:"start-after"`
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.SubBatch <= 0 {
		o.SubBatch = DefaultSubBatch
	}
	return o
}

type Report struct {
	RunID           string
	Chunks          int
	Scored          int
	Failed          []Failure
	LastCommittedID int64
	Duration        time.Duration
}

type Orchestrator struct {
	source  Source
	sink    Sink
	scorer  Scorer
	opts    Options
	metrics *Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

type Option func(*Orchestrator)

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

func New(source Source, sink Sink, scorer Scorer, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		sink:   sink,
		scorer: scorer,
		opts:   opts.withDefaults(),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range options {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// Run scores all pairings after Options.StartAfter. It returns a *RunError
// when the run stops before the source is exhausted; the report is returned
// in both cases.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), LastCommittedID: o.opts.StartAfter}
	l := o.logger.With(zap.String("run_id", report.RunID))

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, "bulk.run", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int64("start_after", o.opts.StartAfter),
		attribute.Int("chunk_size", o.opts.ChunkSize),
	))
	defer span.End()

	l.Info("bulk scoring started",
		zap.Int64("start_after", o.opts.StartAfter),
		zap.Int("chunk_size", o.opts.ChunkSize),
		zap.Int("workers", o.opts.Workers),
		zap.Bool("skip_failed", o.opts.SkipFailed))

	fail := func(failedID int64, err error) (*Report, error) {
		report.Duration = time.Since(start)
		runErr := &RunError{
			RunID:           report.RunID,
			LastCommittedID: report.LastCommittedID,
			FailedPairingID: failedID,
			Err:             err,
		}
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "bulk run aborted")
		l.Error("bulk scoring aborted",
			zap.Int64("last_committed_id", runErr.LastCommittedID),
			zap.Int64("failed_pairing_id", failedID),
			zap.Error(err))
		return report, runErr
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(0, err)
		}

		n, failedID, err := o.runChunk(ctx, report, l)
		if err != nil {
			return fail(failedID, err)
		}
		if n < o.opts.ChunkSize {
			break
		}
	}

	report.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("scored", report.Scored), attribute.Int("failed", len(report.Failed)))
	l.Info("bulk scoring finished",
		zap.Int("chunks", report.Chunks),
		zap.Int("scored", report.Scored),
		zap.Int("failed", len(report.Failed)),
		zap.Int64("last_committed_id", report.LastCommittedID),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// runChunk loads, scores and persists the chunk after report.LastCommittedID.
// It returns the chunk length and, on a scoring failure, the failed pairing.
func (o *Orchestrator) runChunk(ctx context.Context, report *Report, l *zap.Logger) (int, int64, error) {
	chunkStart := time.Now()
	after := report.LastCommittedID

	ctx, span := o.tracer.Start(ctx, "bulk.chunk", trace.WithAttributes(attribute.Int64("after_id", after)))
	defer span.End()

	chunk, err := o.source.NextChunk(ctx, after, o.opts.ChunkSize)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("load chunk after %d: %w", after, err)
	}
	span.SetAttributes(attribute.Int("size", len(chunk)))
	if len(chunk) == 0 {
		return 0, 0, nil
	}

	outcomes := o.score(ctx, chunk)

	scores := make([]*inbox.Score, 0, len(chunk))
	var failures []Failure
	for _, out := range outcomes {
		if out.Err == nil {
			scores = append(scores, out.Score)
			continue
		}
		if !o.opts.SkipFailed {
			o.metrics.pairings.WithLabelValues("failed").Inc()
			span.RecordError(out.Err)
			return len(chunk), out.PairingID, out.Err
		}
		failures = append(failures, Failure{PairingID: out.PairingID, Err: out.Err})
	}

	last := chunk[len(chunk)-1].ID
	if err := o.sink.PersistScores(ctx, scores); err != nil {
		span.RecordError(err)
		return len(chunk), 0, &PersistenceError{FirstID: chunk[0].ID, LastID: last, Err: err}
	}

	for _, f := range failures {
		l.Warn("pairing skipped", append(logger.PairingFields(f.PairingID, 0, 0), zap.Error(f.Err))...)
	}
	report.Failed = append(report.Failed, failures...)
	report.Scored += len(scores)
	report.Chunks++
	report.LastCommittedID = last

	o.metrics.pairings.WithLabelValues("scored").Add(float64(len(scores)))
	o.metrics.pairings.WithLabelValues("skipped").Add(float64(len(failures)))
	o.metrics.chunks.Inc()
	o.metrics.lastCommitted.Set(float64(last))
	o.metrics.chunkDuration.Observe(time.Since(chunkStart).Seconds())

	l.Debug("chunk committed",
		zap.Int64("first_id", chunk[0].ID),
		zap.Int64("last_id", last),
		zap.Int("scored", len(scores)),
		zap.Int("skipped", len(failures)))
	return len(chunk), 0, nil
}

// score fans the chunk out over the worker pool in sub-batches. Outcomes keep
// the chunk order.
func (o *Orchestrator) score(ctx context.Context, chunk []*inbox.Pairing) []ranking.Outcome {
	outcomes := make([]ranking.Outcome, len(chunk))
	p := pool.New().WithMaxGoroutines(o.opts.Workers)

	for lo := 0; lo < len(chunk); lo += o.opts.SubBatch {
		hi := min(lo+o.opts.SubBatch, len(chunk))
		p.Go(func() {
			copy(outcomes[lo:hi], o.scorer.ScorePairings(ctx, chunk[lo:hi]))
		})
	}
	p.Wait()

	return outcomes
}
