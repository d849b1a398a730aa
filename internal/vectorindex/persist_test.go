package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/inbox-ranker/internal/embedding"
)

func TestPersistLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, metric := range []Metric{MetricL2, MetricCosine} {
		t.Run(string(metric), func(t *testing.T) {
			t.Parallel()

			ix := hashingIndex(t, metric)
			_, err := ix.Build(context.Background(), corpus)
			require.NoError(t, err)

			dir := filepath.Join(t.TempDir(), "index")
			require.NoError(t, ix.Persist(context.Background(), dir))

			enc, err := embedding.NewHashingEncoder(64)
			require.NoError(t, err)
			loaded, err := Load(context.Background(), dir, enc, Options{})
			require.NoError(t, err)

			assert.Equal(t, Ready, loaded.State())
			assert.Equal(t, metric, loaded.Metric())
			assert.Equal(t, ix.IDs(), loaded.IDs())

			for _, query := range []string{"go developer", "python", corpus[1].Text, ""} {
				want, err := ix.Search(context.Background(), query, 3)
				require.NoError(t, err)
				got, err := loaded.Search(context.Background(), query, 3)
				require.NoError(t, err)
				assert.Equal(t, want, got, "query %q", query)
			}
		})
	}
}

func TestPersistOverwritesPreviousIndex(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")

	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)
	require.NoError(t, ix.Persist(context.Background(), dir))

	_, err = ix.Build(context.Background(), corpus[:2])
	require.NoError(t, err)
	require.NoError(t, ix.Persist(context.Background(), dir))

	enc, err := embedding.NewHashingEncoder(64)
	require.NoError(t, err)
	loaded, err := Load(context.Background(), dir, enc, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42}, loaded.IDs())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(dir), ".index.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
	_, err = os.Stat(dir + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadedIndexRebuildsIncrementally(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")
	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)
	require.NoError(t, ix.Persist(context.Background(), dir))

	enc, err := embedding.NewHashingEncoder(64)
	require.NoError(t, err)
	loaded, err := Load(context.Background(), dir, enc, Options{})
	require.NoError(t, err)

	stats, err := loaded.Build(context.Background(), append(corpus[:3:3], Document{ID: 99, Text: "new"}))
	require.NoError(t, err)
	assert.Equal(t, BuildStats{Documents: 4, Encoded: 1, Reused: 3}, stats)
}

func TestLoadRejectsDifferentModel(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")
	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)
	require.NoError(t, ix.Persist(context.Background(), dir))

	other, err := embedding.NewHashingEncoder(128)
	require.NoError(t, err)
	_, err = Load(context.Background(), dir, other, Options{})
	assert.ErrorIs(t, err, ErrModelMismatch)
}

func TestLoadRejectsCorruptVectors(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")
	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)
	require.NoError(t, ix.Persist(context.Background(), dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, vectorFile), []byte{1, 2, 3}, 0o644))

	enc, err := embedding.NewHashingEncoder(64)
	require.NoError(t, err)
	_, err = Load(context.Background(), dir, enc, Options{})
	assert.ErrorContains(t, err, "size mismatch")

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing"), enc, Options{})
	assert.Error(t, err)
}

func TestPersistWaitsForLock(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")
	ix := hashingIndex(t, MetricL2)
	_, err := ix.Build(context.Background(), corpus)
	require.NoError(t, err)

	held := flock.New(dir + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = ix.Persist(ctx, dir)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}
