package recompute

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/store"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, "test:recompute", nil), mr
}

func queueLen(t *testing.T, q *Queue) (int64, int64) {
	t.Helper()
	queued, processing, err := q.Len(context.Background())
	require.NoError(t, err)
	return queued, processing
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []int64
	err   error
}

func (f *fakeSaver) SavePairing(_ context.Context, p *inbox.Pairing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p.ID)
	return nil
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, int64) error {
	return errors.New("connection refused")
}

type fakeLoader struct{}

func (fakeLoader) Pairing(_ context.Context, id int64) (*inbox.Pairing, error) {
	if id < 0 {
		return nil, store.ErrNotFound
	}
	return &inbox.Pairing{ID: id, Seeker: &inbox.Seeker{ID: 1}, Opportunity: &inbox.Opportunity{ID: 2}}, nil
}

type fakeScorer struct {
	err error
}

func (f fakeScorer) ScorePairing(_ context.Context, p *inbox.Pairing) (*inbox.Score, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &inbox.Score{PairingID: p.ID, Value: 1, Mode: "sum"}, nil
}

type fakeWriter struct {
	mu     sync.Mutex
	scores []*inbox.Score
}

func (f *fakeWriter) PersistScores(_ context.Context, scores []*inbox.Score) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, scores...)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scores)
}

func TestQueueClaimAndAck(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Dispatch(ctx, 42))
	queued, processing := queueLen(t, q)
	assert.Equal(t, int64(1), queued)
	assert.Zero(t, processing)

	task, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, int64(42), task.PairingID)
	assert.NotEmpty(t, task.ID)
	assert.Zero(t, task.Attempt)

	queued, processing = queueLen(t, q)
	assert.Zero(t, queued)
	assert.Equal(t, int64(1), processing)

	require.NoError(t, q.Ack(ctx, task))
	queued, processing = queueLen(t, q)
	assert.Zero(t, queued)
	assert.Zero(t, processing)
}

func TestQueueClaimTimesOut(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	task, err := q.Claim(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueueRecover(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Dispatch(ctx, 1))
	require.NoError(t, q.Dispatch(ctx, 2))

	for range 2 {
		task, err := q.Claim(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, task)
	}

	moved, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	queued, processing := queueLen(t, q)
	assert.Equal(t, int64(2), queued)
	assert.Zero(t, processing)

	task, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.PairingID)
}

func TestQueueDropsMalformedTask(t *testing.T) {
	t.Parallel()

	q, mr := newTestQueue(t)
	_, err := mr.Lpush(q.Name(), "not json")
	require.NoError(t, err)

	task, err := q.Claim(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, task)

	queued, processing := queueLen(t, q)
	assert.Zero(t, queued)
	assert.Zero(t, processing)
}

func TestServiceDispatchesOncePerWrite(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	saver := &fakeSaver{}
	svc := NewService(saver, q, nil)
	ctx := context.Background()

	const writes = 5
	for i := range writes {
		require.NoError(t, svc.Save(ctx, &inbox.Pairing{ID: int64(i + 1)}, inbox.OriginManual))
	}
	for i := range 3 {
		require.NoError(t, svc.Save(ctx, &inbox.Pairing{ID: int64(100 + i)}, inbox.OriginRecompute))
	}

	queued, _ := queueLen(t, q)
	assert.Equal(t, int64(writes), queued)
	assert.Len(t, saver.saved, writes+3)
}

func TestServiceDoesNotDispatchFailedWrite(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	svc := NewService(&fakeSaver{err: errors.New("tx aborted")}, q, nil)

	err := svc.Save(context.Background(), &inbox.Pairing{ID: 1}, inbox.OriginManual)
	assert.ErrorContains(t, err, "tx aborted")

	queued, _ := queueLen(t, q)
	assert.Zero(t, queued)
}

func TestServiceReportsDispatchFailure(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{}

	err := NewService(saver, failingDispatcher{}, nil).Save(context.Background(), &inbox.Pairing{ID: 9}, inbox.OriginManual)
	assert.ErrorContains(t, err, "schedule recompute of pairing 9")
	assert.Equal(t, []int64{9}, saver.saved)
}

func TestWorkerStepPersistsWithoutDispatching(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	writer := &fakeWriter{}
	metrics := NewMetrics(prometheus.NewRegistry())
	w := NewWorker(q, fakeLoader{}, fakeScorer{}, writer, nil, WithMetrics(metrics), WithPollTimeout(time.Second))

	require.NoError(t, q.Dispatch(ctx, 7))
	handled, err := w.Step(ctx)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Equal(t, 1, writer.count())
	assert.Equal(t, int64(7), writer.scores[0].PairingID)

	queued, processing := queueLen(t, q)
	assert.Zero(t, queued)
	assert.Zero(t, processing)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.processed.WithLabelValues("ok")))
}

func TestWorkerRetriesThenGivesUp(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	writer := &fakeWriter{}
	w := NewWorker(q, fakeLoader{}, fakeScorer{err: errors.New("encoder down")}, writer, nil,
		WithMaxAttempts(2), WithPollTimeout(time.Second))

	require.NoError(t, q.Dispatch(ctx, 3))

	_, err := w.Step(ctx)
	require.NoError(t, err)
	queued, processing := queueLen(t, q)
	assert.Equal(t, int64(1), queued)
	assert.Zero(t, processing)

	task, err := q.Claim(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, task.Attempt)
	_, err = q.Recover(ctx)
	require.NoError(t, err)

	_, err = w.Step(ctx)
	require.NoError(t, err)
	queued, processing = queueLen(t, q)
	assert.Zero(t, queued)
	assert.Zero(t, processing)
	assert.Zero(t, writer.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.processed.WithLabelValues("failed")))
}

func TestWorkerDropsMissingPairing(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()
	w := NewWorker(q, fakeLoader{}, fakeScorer{}, &fakeWriter{}, nil, WithPollTimeout(time.Second))

	require.NoError(t, q.Dispatch(ctx, -1))
	handled, err := w.Step(ctx)
	require.NoError(t, err)
	assert.True(t, handled)

	queued, processing := queueLen(t, q)
	assert.Zero(t, queued)
	assert.Zero(t, processing)
}

func TestWorkerRunProcessesUntilCancelled(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	writer := &fakeWriter{}
	w := NewWorker(q, fakeLoader{}, fakeScorer{}, writer, nil, WithPollTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := range 3 {
		require.NoError(t, q.Dispatch(context.Background(), int64(i+1)))
	}
	require.Eventually(t, func() bool { return writer.count() == 3 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
