package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes change events to a single Kafka topic, keyed by restaurant so the
// events of one restaurant stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logging.OrDefault(logger)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	msg.EnsureTopic()
	record, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Topic, err)
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.Topic, err)
	}
	p.logger.Debug("kafka message published", slog.String("kafkaTopic", p.topic), slog.String("topic", msg.Topic), slog.String("resourceId", msg.ResourceID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ port.Publisher = (*KafkaPublisher)(nil)
