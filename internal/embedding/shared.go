package embedding

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/logger"
)

// Shared initialises one encoder per process on first use. Concurrent
// callers block until the single initialisation finishes and then share its
// outcome, including a failure. Cancelling the first caller's context does
// not abort the initialisation.
type Shared struct {
	once   sync.Once
	init   func(context.Context) (Encoder, error)
	logger *zap.Logger

	enc Encoder
	err error
}

func NewShared(init func(context.Context) (Encoder, error), l *zap.Logger) *Shared {
	return &Shared{init: init, logger: logger.WithFields(l)}
}

// SharedFromConfig lazily builds the encoder described by cfg.
func SharedFromConfig(cfg Config, l *zap.Logger) *Shared {
	return NewShared(func(ctx context.Context) (Encoder, error) {
		return New(ctx, cfg)
	}, l)
}

func (s *Shared) Get(ctx context.Context) (Encoder, error) {
	s.once.Do(func() {
		s.enc, s.err = s.init(context.WithoutCancel(ctx))
		if s.err != nil {
			s.logger.Error("embedding encoder initialisation failed", zap.Error(s.err))
			return
		}
		logger.WithEncoderFields(s.logger, s.enc.Name(), s.enc.ModelID()).
			Info("embedding encoder ready", zap.Int("dim", s.enc.Dim()))
	})
	return s.enc, s.err
}
