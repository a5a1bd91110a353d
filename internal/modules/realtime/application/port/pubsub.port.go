package port

import (
	"context"

	"mesaYaReviews/internal/modules/realtime/domain"
)

// Publisher hands change events to the fan-out path, either in-process or through the broker.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.Message) error
}

// Broadcaster sends messages to the connected websocket clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *domain.Message)
}

// TopicHandler is registered under a topic ("reviews.created") or a bare entity ("reviews").
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, msg *domain.Message) error
}
