package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/inbox-ranker/internal/embedding"
)

// fakeEncoder maps known texts to fixed vectors and unknown texts to a
// vector derived from their length.
type fakeEncoder struct {
	dim     int
	model   string
	vectors map[string][]float32

	mu      sync.Mutex
	encoded []string
	err     error

	entered chan struct{}
	release chan struct{}
}

func newFakeEncoder(dim int) *fakeEncoder {
	return &fakeEncoder{dim: dim, model: "fake-v1", vectors: map[string][]float32{}}
}

func (f *fakeEncoder) Name() string    { return "fake" }
func (f *fakeEncoder) ModelID() string { return f.model }
func (f *fakeEncoder) Dim() int        { return f.dim }

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		f.encoded = append(f.encoded, text)
		if v, ok := f.vectors[text]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		v := make([]float32, f.dim)
		v[0] = float32(len(text))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEncoder) encodedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.encoded)
}

func hashingIndex(t *testing.T, metric Metric) *Index {
	t.Helper()
	enc, err := embedding.NewHashingEncoder(64)
	require.NoError(t, err)
	ix, err := New(enc, Options{Metric: metric, BatchSize: 2})
	require.NoError(t, err)
	return ix
}

var corpus = []Document{
	{ID: 42, Text: "Senior Go developer with PostgreSQL and Kubernetes"},
	{ID: 7, Text: "Frontend engineer, React and TypeScript"},
	{ID: 19, Text: "Data scientist: Python, pandas, PyTorch"},
	{ID: 3, Text: "Go backend engineer, gRPC, Kafka"},
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New(newFakeEncoder(2), Options{Metric: "manhattan"})
	assert.Error(t, err)

	ix, err := New(newFakeEncoder(2), Options{})
	require.NoError(t, err)
	assert.Equal(t, MetricL2, ix.Metric())
	assert.Equal(t, Unbuilt, ix.State())
}

func TestUnbuiltIndexRejectsQueries(t *testing.T) {
	t.Parallel()

	ix := hashingIndex(t, MetricL2)

	_, err := ix.Search(context.Background(), "go", 3)
	var stateErr *IndexStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, Unbuilt, stateErr.State)
	assert.ErrorIs(t, err, ErrNotSearchable)

	_, err = ix.Nearest(make([]float32, 64), 3)
	assert.ErrorIs(t, err, ErrNotSearchable)

	assert.ErrorIs(t, ix.Add(context.Background(), 1, "go"), ErrNotSearchable)
	assert.ErrorIs(t, ix.Persist(context.Background(), t.TempDir()), ErrNotSearchable)
}

func TestSearchWhileBuildingIsRejected(t *testing.T) {
	t.Parallel()

	enc := newFakeEncoder(2)
	enc.entered = make(chan struct{})
	enc.release = make(chan struct{})

	ix, err := New(enc, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ix.Build(context.Background(), []Document{{ID: 1, Text: "a"}})
		done <- err
	}()

	<-enc.entered
	assert.Equal(t, Building, ix.State())
	_, err = ix.Nearest([]float32{1, 0}, 1)
	var stateErr *IndexStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, Building, stateErr.State)

	close(enc.release)
	require.NoError(t, <-done)
	assert.Equal(t, Ready, ix.State())

	hits, err := ix.Nearest([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{ID: 1, Distance: 0}}, hits)
}

func TestBuildAndSearch(t *testing.T) {
	t.Parallel()

	for _, metric := range []Metric{MetricL2, MetricCosine} {
		t.Run(string(metric), func(t *testing.T) {
			t.Parallel()
			ix := hashingIndex(t, metric)

			stats, err := ix.Build(context.Background(), corpus)
			require.NoError(t, err)
			assert.Equal(t, BuildStats{Documents: 4, Encoded: 4}, stats)
			assert.Equal(t, []int64{3, 7, 19, 42}, ix.IDs())

			hits, err := ix.Search(context.Background(), corpus[2].Text, 2)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, int64(19), hits[0].ID)
			assert.InDelta(t, 0, hits[0].Distance, 1e-6)
			assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)

			all, err := ix.Search(context.Background(), "go", 10)
			require.NoError(t, err)
			assert.Len(t, all, len(corpus))

			none, err := ix.Search(context.Background(), "go", 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestTiesAreBrokenByID(t *testing.T) {
	t.Parallel()

	enc := newFakeEncoder(2)
	enc.vectors["near"] = []float32{1, 0}
	enc.vectors["far"] = []float32{0, 5}

	ix, err := New(enc, Options{})
	require.NoError(t, err)

	_, err = ix.Build(context.Background(), []Document{
		{ID: 30, Text: "near"},
		{ID: 9, Text: "far"},
		{ID: 12, Text: "near"},
		{ID: 1, Text: "near"},
	})
	require.NoError(t, err)

	hits, err := ix.Nearest([]float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{
		{ID: 1, Distance: 0},
		{ID: 12, Distance: 0},
		{ID: 30, Distance: 0},
		{ID: 9, Distance: 26},
	}, hits)
}

func TestDuplicateIDsAreRejected(t *testing.T) {
	t.Parallel()

	ix := hashingIndex(t, MetricL2)

	_, err := ix.Build(context.Background(), []Document{{ID: 1, Text: "a"}, {ID: 1, Text: "b"}})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, Unbuilt, ix.State())

	_, err = ix.Build(context.Background(), corpus)
	require.NoError(t, err)
	assert.ErrorIs(t, ix.Add(context.Background(), 42, "again"), ErrDuplicateID)
	assert.Equal(t, Ready, ix.State())
}

func TestRebuildReusesUnchangedVectors(t *testing.T) {
	t.Parallel()

	enc := newFakeEncoder(3)
	ix, err := New(enc, Options{BatchSize: 1})
	require.NoError(t, err)

	_, err = ix.Build(context.Background(), []Document{{ID: 1, Text: "a"}, {ID: 2, Text: "bb"}, {ID: 3, Text: "ccc"}})
	require.NoError(t, err)
	before, ok := ix.Vector(3)
	require.True(t, ok)

	stats, err := ix.Build(context.Background(), []Document{
		{ID: 3, Text: "ccc"},
		{ID: 2, Text: "changed"},
		{ID: 5, Text: "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, BuildStats{Documents: 3, Encoded: 2, Reused: 1}, stats)
	assert.Equal(t, 5, enc.encodedCount())

	after, ok := ix.Vector(3)
	require.True(t, ok)
	assert.Equal(t, before, after, "ids keep their vectors when the corpus changes")

	_, ok = ix.Vector(1)
	assert.False(t, ok)
}

func TestFailedBuildKeepsPreviousContent(t *testing.T) {
	t.Parallel()

	enc := newFakeEncoder(2)
	ix, err := New(enc, Options{})
	require.NoError(t, err)

	_, err = ix.Build(context.Background(), []Document{{ID: 1, Text: "a"}})
	require.NoError(t, err)

	enc.mu.Lock()
	enc.err = errors.New("encoder unavailable")
	enc.mu.Unlock()

	_, err = ix.Build(context.Background(), []Document{{ID: 2, Text: "b"}})
	require.Error(t, err)
	assert.Equal(t, Ready, ix.State())
	assert.Equal(t, []int64{1}, ix.IDs())
}

func TestAdd(t *testing.T) {
	t.Parallel()

	ix := hashingIndex(t, MetricCosine)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)

	require.NoError(t, ix.Add(context.Background(), 11, "QA automation engineer, Selenium"))
	assert.Equal(t, Ready, ix.State())
	assert.Equal(t, []int64{3, 7, 11, 19, 42}, ix.IDs())

	hits, err := ix.Search(context.Background(), "QA automation engineer, Selenium", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), hits[0].ID)
}

func TestConcurrentReadsDuringAdd(t *testing.T) {
	t.Parallel()

	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hits, err := ix.Search(context.Background(), "go developer", 3)
				assert.NoError(t, err)
				assert.Len(t, hits, 3)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, ix.Add(context.Background(), int64(1000+i), fmt.Sprintf("document %d", i)))
	}
	wg.Wait()

	assert.Equal(t, len(corpus)+20, ix.Len())
}

func TestNearestRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)

	_, err = ix.Nearest([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimMismatch)
}
