package usecase

import (
	"context"
	"log/slog"

	realtimeport "mesaYaReviews/internal/modules/realtime/application/port"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
)

// eventSink publishes change events without failing the request that caused them.
type eventSink struct {
	publisher realtimeport.Publisher
	logger    *slog.Logger
}

func (s eventSink) publish(ctx context.Context, msg *realtime.Message) {
	if s.publisher == nil || msg == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.logger.Warn("change event not published", slog.String("topic", msg.Topic), slog.String("resourceId", msg.ResourceID), slog.Any("error", err))
	}
}
