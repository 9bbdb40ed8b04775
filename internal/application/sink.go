package application

import (
	"context"
	"errors"

	"voicechat/internal/domain"
)

// TurnSink displays turns as they are appended to the conversation log.
type TurnSink interface {
	Publish(ctx context.Context, turn domain.ConversationTurn) error
}

type NoopSink struct{}

func (n *NoopSink) Publish(_ context.Context, _ domain.ConversationTurn) error {
	return nil
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []TurnSink

func (m MultiSink) Publish(ctx context.Context, turn domain.ConversationTurn) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, turn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
