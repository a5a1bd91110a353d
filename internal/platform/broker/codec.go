package broker

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"mesaYaReviews/internal/modules/realtime/domain"
)

// rawEvent is the broker wire form of a change event.
type rawEvent struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func encodeMessage(msg *domain.Message) (kafka.Message, error) {
	value, err := json.Marshal(rawEvent{
		Entity:     msg.Entity,
		Action:     msg.Action,
		ResourceID: msg.ResourceID,
		Topic:      msg.Topic,
		Metadata:   msg.Metadata,
		Data:       msg.Data,
		Timestamp:  msg.Timestamp.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	key := msg.ResourceID
	if restaurantID := msg.Metadata[domain.MetadataRestaurantID]; restaurantID != "" {
		key = restaurantID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  msg.Timestamp,
	}, nil
}

func decodeMessage(m kafka.Message) *domain.Message {
	msg := &domain.Message{Timestamp: time.Now().UTC()}

	var event rawEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		msg.Topic = m.Topic
		entity, action := inferEntityActionFromTopic(m.Topic)
		msg.Entity = entity
		msg.Action = action
		msg.Data = string(m.Value)
		return msg
	}

	if entity, action, ok := domain.SplitTopic(event.Topic); ok {
		event.Entity = firstNonEmpty(event.Entity, entity)
		event.Action = firstNonEmpty(event.Action, action)
	}
	msg.Entity = firstNonEmpty(event.Entity, normalizeTopic(m.Topic))
	msg.Action = firstNonEmpty(event.Action, "unknown")
	msg.ResourceID = event.ResourceID
	msg.Metadata = event.Metadata
	msg.Data = event.Data
	if !event.Timestamp.IsZero() {
		msg.Timestamp = event.Timestamp.UTC()
	}

	if event.Topic != "" {
		msg.Topic = event.Topic
	} else {
		msg.Topic = domain.CustomTopic(msg.Entity, msg.Action)
	}

	return msg
}

func inferEntityActionFromTopic(topic string) (string, string) {
	parts := strings.Split(topic, ".")
	if len(parts) >= 2 {
		entity := strings.TrimSpace(parts[len(parts)-2])
		action := strings.TrimSpace(parts[len(parts)-1])
		if entity != "" && action != "" {
			return entity, action
		}
	}
	if entity := normalizeTopic(topic); entity != "" {
		return entity, "unknown"
	}
	return "", "unknown"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeTopic(topic string) string {
	if idx := strings.LastIndex(topic, "."); idx >= 0 {
		topic = topic[idx+1:]
	}
	return strings.TrimSpace(topic)
}
