package broker

import (
	"context"
	"log/slog"
	"sync"

	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/modules/realtime/infrastructure"
)

// StartKafkaConsumers feeds every topic into registry until ctx is done. The returned
// WaitGroup completes once all readers are closed. Without brokers nothing is started.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
	topics []string,
	logger *slog.Logger,
) *sync.WaitGroup {
	var wg sync.WaitGroup
	if len(brokers) == 0 {
		return &wg
	}
	for _, topic := range topics {
		wg.Add(1)
		go func(tp string) {
			defer wg.Done()
			consumer := NewKafkaConsumer(brokers, groupID, tp, logger)
			_ = consumer.Consume(ctx, func(msg *domain.Message) error {
				return registry.Dispatch(ctx, msg)
			})
		}(topic)
	}
	return &wg
}
