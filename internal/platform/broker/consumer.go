package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

const readRetryDelay = time.Second

type KafkaConsumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewKafkaConsumer(brokers []string, groupID string, topic string, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		logger: logging.OrDefault(logger),
	}
}

// Consume reads until ctx is done. Handler failures are logged and the offset still advances.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.Message) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn("kafka read error", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		msg := decodeMessage(m)
		c.logger.Debug("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("entity", msg.Entity),
			slog.String("action", msg.Action),
			slog.String("resourceId", msg.ResourceID),
		)
		if err := handler(msg); err != nil {
			c.logger.Warn("kafka handler error", slog.String("topic", msg.Topic), slog.Any("error", err))
		}
	}
}
