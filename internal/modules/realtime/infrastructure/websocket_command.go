package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"mesaYaReviews/internal/modules/realtime/domain"
)

type Command struct {
	Action  string          `json:"action"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c Command) actionKey() string {
	return normalizeAction(c.Action)
}

type CommandHandler func(ctx context.Context, client *Client, cmd Command)

// TopicFilter reports whether clients may subscribe to topic.
type TopicFilter func(topic string) bool

// CommandProcessor executes the commands a client sends over its socket. It is shared by
// all clients of a handler and must be fully registered before the first connection.
type CommandProcessor struct {
	hub      *Hub
	handlers map[string]CommandHandler
	allow    TopicFilter
	now      func() time.Time
}

func NewCommandProcessor(hub *Hub, allow TopicFilter) *CommandProcessor {
	if allow == nil {
		allow = func(string) bool { return true }
	}
	processor := &CommandProcessor{
		hub:      hub,
		handlers: make(map[string]CommandHandler),
		allow:    allow,
		now:      time.Now,
	}
	processor.Register("subscribe", processor.handleSubscribe)
	processor.Register("unsubscribe", processor.handleUnsubscribe)
	processor.Register("ping", processor.handlePing)
	return processor
}

func (p *CommandProcessor) Register(action string, handler CommandHandler) {
	if handler == nil {
		return
	}
	key := normalizeAction(action)
	if key == "" {
		return
	}
	p.handlers[key] = handler
}

func (p *CommandProcessor) Process(client *Client, cmd Command) {
	if client == nil {
		return
	}

	action := cmd.actionKey()
	if action == "" {
		p.sendError(client, "", "missing action")
		return
	}

	handler, ok := p.handlers[action]
	if !ok {
		p.hub.logger.Debug("ws command unsupported", slog.String("clientId", client.id), slog.String("action", action))
		p.sendError(client, action, "unsupported action")
		return
	}
	handler(context.Background(), client, cmd)
}

func (p *CommandProcessor) handleSubscribe(_ context.Context, client *Client, cmd Command) {
	topic := strings.ToLower(strings.TrimSpace(cmd.Topic))
	if topic == "" {
		p.sendError(client, "subscribe", "missing topic")
		return
	}
	if !p.allow(topic) {
		p.sendError(client, "subscribe", "topic not available: "+topic)
		return
	}
	if !p.hub.subscribe(client, topic) {
		return
	}
	p.hub.logger.Debug("ws subscribe", slog.String("clientId", client.id), slog.String("topic", topic))
	p.sendAck(client, domain.ActionSubscribed, topic)
}

func (p *CommandProcessor) handleUnsubscribe(_ context.Context, client *Client, cmd Command) {
	topic := strings.ToLower(strings.TrimSpace(cmd.Topic))
	if topic == "" {
		p.sendError(client, "unsubscribe", "missing topic")
		return
	}
	p.hub.unsubscribe(client, topic)
	p.sendAck(client, domain.ActionUnsubscribed, topic)
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ Command) {
	client.SendDomainMessage(domain.SystemMessage(domain.ActionPong, nil, p.now()))
}

func (p *CommandProcessor) sendAck(client *Client, action, topic string) {
	msg := domain.SystemMessage(action, map[string]any{
		"topic":  topic,
		"topics": p.hub.topicsOf(client),
	}, p.now())
	client.SendDomainMessage(msg)
}

func (p *CommandProcessor) sendError(client *Client, action, reason string) {
	msg := domain.SystemMessage(domain.ActionError, map[string]string{"error": reason}, p.now()).
		WithMetadata("action", action)
	client.SendDomainMessage(msg)
}

func normalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
