package recompute

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/inbox-ranker/internal/inbox"
	"github.com/spigell/inbox-ranker/internal/logger"
)

type PairingSaver interface {
	SavePairing(ctx context.Context, p *inbox.Pairing) error
}

// Service writes pairings and schedules their recompute once the write has
// committed.
type Service struct {
	saver      PairingSaver
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewService(saver PairingSaver, dispatcher Dispatcher, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{saver: saver, dispatcher: dispatcher, logger: l}
}

// Save persists the pairing. Writes with OriginRecompute are not dispatched.
// A dispatch failure is returned after the write has already committed.
func (s *Service) Save(ctx context.Context, p *inbox.Pairing, origin inbox.Origin) error {
	if err := s.saver.SavePairing(ctx, p); err != nil {
		return err
	}

	if origin == inbox.OriginRecompute {
		return nil
	}

	if err := s.dispatcher.Dispatch(ctx, p.ID); err != nil {
		s.logger.Warn("pairing saved but recompute was not scheduled",
			append(logger.PairingFields(p.ID, 0, 0), zap.Error(err))...)
		return fmt.Errorf("schedule recompute of pairing %d: %w", p.ID, err)
	}
	return nil
}
