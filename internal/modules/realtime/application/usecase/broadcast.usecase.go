package usecase

import (
	"context"
	"log/slog"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

type BroadcastUseCase struct {
	broadcaster port.Broadcaster
	logger      *slog.Logger
}

func NewBroadcastUseCase(b port.Broadcaster, logger *slog.Logger) *BroadcastUseCase {
	return &BroadcastUseCase{broadcaster: b, logger: logging.OrDefault(logger)}
}

// Execute fills the topic when missing and fans the message out. Messages without any
// routing information are dropped.
func (uc *BroadcastUseCase) Execute(ctx context.Context, msg *domain.Message) {
	if msg == nil {
		return
	}
	msg.EnsureTopic()
	if msg.Topic == "" {
		uc.logger.Debug("broadcast skipped message without topic", slog.String("entity", msg.Entity), slog.String("action", msg.Action))
		return
	}
	uc.broadcaster.Broadcast(ctx, msg)
}
