package infrastructure

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mesaYaReviews/internal/modules/realtime/domain"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 1 << 16
)

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	id         string
	userID     string
	sessionID  string
	commands   *CommandProcessor
	subscribed map[string]struct{}
	closeOnce  sync.Once
	closeHooks []func(*Client)
	hookMu     sync.Mutex
}

// NewClient wraps conn for the hub. userID and sessionID are empty for anonymous viewers.
func NewClient(hub *Hub, conn *websocket.Conn, userID, sessionID string, buf int, commands *CommandProcessor) *Client {
	if buf <= 0 {
		buf = 16
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, buf),
		done:       make(chan struct{}),
		id:         uuid.NewString(),
		userID:     strings.TrimSpace(userID),
		sessionID:  strings.TrimSpace(sessionID),
		commands:   commands,
		subscribed: make(map[string]struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() string { return c.userID }

// key identifies the connection in the hub. A new connection for the same login session
// replaces the previous one; anonymous connections never collide.
func (c *Client) key() string {
	if c.userID == "" || c.sessionID == "" {
		return c.id
	}
	return c.userID + ":" + c.sessionID
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		c.invokeCloseHooks()
	})
}

// Done is closed once the client has been detached.
func (c *Client) Done() <-chan struct{} { return c.done }

// AddCloseHook registers a callback that will be executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					c.hub.logger.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// enqueue reports false only when the send buffer is full. Closed clients swallow the data.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) SendDomainMessage(msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("websocket marshal error", slog.Any("error", err))
		return
	}
	if !c.enqueue(data) {
		c.hub.logger.Warn("websocket send buffer full", slog.String("clientId", c.id), slog.String("userId", c.userID))
		go c.hub.detachClient(c)
	}
}

func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Warn("websocket write error", slog.String("clientId", c.id), slog.Any("error", err))
				c.hub.detachClient(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Warn("websocket ping error", slog.String("clientId", c.id), slog.Any("error", err))
				c.hub.detachClient(c)
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	defer c.hub.detachClient(c)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("websocket read ended", slog.String("clientId", c.id), slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.processCommand(cmd)
	}
}

func (c *Client) processCommand(cmd Command) {
	if c.commands == nil {
		return
	}
	c.commands.Process(c, cmd)
}
