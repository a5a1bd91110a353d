package infrastructure

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

type Hub struct {
	topics  map[string]map[*Client]struct{}
	clients map[string]*Client
	global  map[*Client]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[string]*Client),
		global:  make(map[*Client]struct{}),
		logger:  logging.OrDefault(logger),
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.key()]; ok && existing != c {
		h.detachLocked(existing)
	}
	h.clients[c.key()] = c
	h.logger.Info("ws client registered", slog.String("clientId", c.id), slog.String("userId", c.userID))
}

func (h *Hub) subscribe(c *Client, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, attached := h.clients[c.key()]; !attached {
		return false
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.subscribed[topic] = struct{}{}
	return true
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.subscribed, topic)
	h.logger.Debug("ws client unsubscribed", slog.String("clientId", c.id), slog.String("topic", topic))
}

// topicsOf snapshots the client's subscriptions under the hub lock.
func (h *Hub) topicsOf(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := make([]string, 0, len(c.subscribed))
	for topic := range c.subscribed {
		topics = append(topics, topic)
	}
	return topics
}

func (h *Hub) detachClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) {
	if c == nil {
		return
	}
	for topic := range c.subscribed {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	if current, ok := h.clients[c.key()]; ok && current == c {
		delete(h.clients, c.key())
	}
	delete(h.global, c)
	c.close()
	h.logger.Info("ws client detached", slog.String("clientId", c.id), slog.String("userId", c.userID))
}

// Broadcast delivers msg to the topic subscribers and the global subscribers. A userId in the
// metadata restricts delivery to that user's connections. Clients whose buffer is full are
// detached instead of blocking the broadcaster.
func (h *Hub) Broadcast(_ context.Context, msg *domain.Message) {
	if msg == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast marshal error", slog.String("topic", msg.Topic), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	clientsMap := h.topics[msg.Topic]
	clients := make([]*Client, 0, len(clientsMap)+len(h.global))
	seen := make(map[*Client]struct{}, len(clientsMap)+len(h.global))
	for c := range clientsMap {
		clients = append(clients, c)
		seen[c] = struct{}{}
	}
	for c := range h.global {
		if _, ok := seen[c]; ok {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	targetUser := ""
	if msg.Metadata != nil {
		targetUser = strings.TrimSpace(msg.Metadata["userId"])
	}

	delivered := 0
	for _, c := range clients {
		if targetUser != "" && c.userID != targetUser {
			continue
		}
		if c.enqueue(data) {
			delivered++
			continue
		}
		h.logger.Warn("ws client too slow, detaching", slog.String("clientId", c.id), slog.String("topic", msg.Topic))
		go h.detachClient(c)
	}
	h.logger.Debug("broadcast delivered", slog.String("topic", msg.Topic), slog.Int("clients", delivered))
}

func (h *Hub) AttachClient(c *Client, topics []string) {
	h.registerClient(c)
	for _, topic := range topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			h.subscribe(c, trimmed)
		}
	}
	h.logger.Info("ws client attached", slog.String("clientId", c.id), slog.String("userId", c.userID), slog.Any("topics", topics))
}

// AttachClientToAll registers the client as a global subscriber receiving every broadcasted message.
func (h *Hub) AttachClientToAll(c *Client) {
	h.registerClient(c)
	h.mu.Lock()
	h.global[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("ws client attached to all topics", slog.String("clientId", c.id), slog.String("userId", c.userID))
}

// ClientCount reports the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount reports how many clients receive messages published on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := len(h.global)
	for c := range h.topics[topic] {
		if _, global := h.global[c]; !global {
			count++
		}
	}
	return count
}

// Close detaches every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.detachLocked(c)
	}
}

var _ port.Broadcaster = (*Hub)(nil)
