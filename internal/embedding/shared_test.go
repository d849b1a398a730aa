package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/inbox-ranker/internal/logger"
)

func TestSharedInitialisesOnce(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	var calls atomic.Int32
	shared := NewShared(func(context.Context) (Encoder, error) {
		calls.Add(1)
		return NewHashingEncoder(8)
	}, zap.New(core))

	var wg sync.WaitGroup
	encoders := make([]Encoder, 16)
	for i := range encoders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			enc, err := shared.Get(context.Background())
			assert.NoError(t, err)
			encoders[i] = enc
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, enc := range encoders {
		assert.Same(t, encoders[0], enc)
	}

	entries := observed.FilterMessage("embedding encoder ready").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, ProviderHashing, entries[0].ContextMap()[logger.FieldEncoder])
	}
}

func TestSharedKeepsInitialisationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("model download failed")
	var calls atomic.Int32
	shared := NewShared(func(context.Context) (Encoder, error) {
		calls.Add(1)
		return nil, boom
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := shared.Get(context.Background())
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSharedIgnoresFirstCallerCancellation(t *testing.T) {
	t.Parallel()

	shared := NewShared(func(ctx context.Context) (Encoder, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewHashingEncoder(8)
	}, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	enc, err := shared.Get(cancelled)
	assert.NoError(t, err)
	assert.NotNil(t, enc)

	again, err := shared.Get(context.Background())
	assert.NoError(t, err)
	assert.Same(t, enc, again)
}
