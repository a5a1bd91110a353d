package infrastructure

import (
	"context"
	"errors"
	"strings"
	"sync"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/domain"
)

// HandlerRegistry routes messages to the handlers registered under their exact topic, then
// to those registered under their entity.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(h.Topic())
	if key == "" {
		return
	}
	r.mu.Lock()
	r.handlers[key] = append(r.handlers[key], h)
	r.mu.Unlock()
}

// Dispatch runs every matching handler and joins their errors. Unrouted messages are ignored.
func (r *HandlerRegistry) Dispatch(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	msg.EnsureTopic()

	r.mu.RLock()
	matched := append([]port.TopicHandler(nil), r.handlers[msg.Topic]...)
	if entity := strings.TrimSpace(msg.Entity); entity != "" && entity != msg.Topic {
		matched = append(matched, r.handlers[entity]...)
	}
	r.mu.RUnlock()

	var errs []error
	for _, handler := range matched {
		if err := handler.Handle(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LocalPublisher delivers published messages straight to the registry, for single-instance
// deployments without a broker.
type LocalPublisher struct {
	registry *HandlerRegistry
}

func NewLocalPublisher(registry *HandlerRegistry) *LocalPublisher {
	return &LocalPublisher{registry: registry}
}

func (p *LocalPublisher) Publish(ctx context.Context, msg *domain.Message) error {
	return p.registry.Dispatch(ctx, msg)
}

var _ port.Publisher = (*LocalPublisher)(nil)
