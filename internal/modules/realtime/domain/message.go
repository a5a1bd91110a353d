package domain

import (
	"strings"
	"time"
)

// Message is the envelope pushed to websocket subscribers and carried on the broker.
type Message struct {
	Topic      string            `json:"topic"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewEntityMessage builds a change event for entity/action about resourceID.
func NewEntityMessage(entity, action, resourceID string, data any, at time.Time) *Message {
	entity = strings.ToLower(strings.TrimSpace(entity))
	action = strings.ToLower(strings.TrimSpace(action))
	return &Message{
		Topic:      CustomTopic(entity, action),
		Entity:     entity,
		Action:     action,
		ResourceID: strings.TrimSpace(resourceID),
		Data:       data,
		Timestamp:  at.UTC(),
	}
}

// WithMetadata returns msg with key set in its metadata. Blank values are skipped.
func (m *Message) WithMetadata(key, value string) *Message {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return m
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
	return m
}

// EnsureTopic fills Topic from Entity and Action when the producer left it out.
func (m *Message) EnsureTopic() {
	if strings.TrimSpace(m.Topic) == "" {
		m.Topic = CustomTopic(m.Entity, m.Action)
	}
}

// SystemMessage builds a message on the system entity.
func SystemMessage(action string, data any, at time.Time) *Message {
	return NewEntityMessage(SystemEntity, action, "", data, at)
}
