package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	domain "mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/modules/realtime/infrastructure"
	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandlerConfig wires the /ws/events endpoint.
type EventsHandlerConfig struct {
	Hub    *infrastructure.Hub
	Topics *TopicSet
	// Validator authenticates the optional token. Nil accepts anonymous viewers only.
	Validator  auth.TokenValidator
	BufferSize int
	Logger     *slog.Logger
}

// NewEventsHandler exposes the change feed. Reads are public, so a token is optional; a
// token that is present must be valid.
func NewEventsHandler(cfg EventsHandlerConfig) echo.HandlerFunc {
	logger := logging.OrDefault(cfg.Logger)
	topicSet := cfg.Topics
	if topicSet == nil {
		topicSet = NewTopicSet(nil)
	}
	commands := infrastructure.NewCommandProcessor(cfg.Hub, topicSet.Allows)

	return func(c echo.Context) error {
		req := c.Request()
		token := auth.ExtractToken(req, "token")
		peerIP := c.RealIP()

		var userID, sessionID string
		if token != "" {
			if cfg.Validator == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token not accepted")
			}
			claims, err := cfg.Validator.Validate(token)
			if err != nil {
				status := http.StatusUnauthorized
				if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrMissingToken) {
					status = http.StatusInternalServerError
				}
				logger.Warn("ws handler token rejected", slog.String("ip", peerIP), logging.TokenAttr(token), slog.Any("error", err))
				return echo.NewHTTPError(status, "invalid token")
			}
			userID = claims.Subject
			sessionID = claims.SessionID
		}

		topics, rejected := topicSet.Resolve(c.QueryParam("topics"))
		if len(rejected) > 0 {
			logger.Debug("ws handler unknown topics", slog.Any("topics", rejected))
			return echo.NewHTTPError(http.StatusBadRequest, "unknown topics: "+strings.Join(rejected, ","))
		}

		conn, err := upgrader.Upgrade(c.Response(), req, nil)
		if err != nil {
			logger.Error("ws handler upgrade failed", slog.String("ip", peerIP), slog.Any("error", err))
			return err
		}

		client := infrastructure.NewClient(cfg.Hub, conn, userID, sessionID, cfg.BufferSize, commands)
		cfg.Hub.AttachClient(client, topics)

		go client.WritePump()
		go client.ReadPump()

		connected := domain.SystemMessage(domain.ActionConnected, map[string]any{
			"clientId":      client.ID(),
			"topics":        topics,
			"allowedTopics": topicSet.All(),
			"authenticated": userID != "",
		}, time.Now()).WithMetadata("userId", userID)
		client.SendDomainMessage(connected)

		logger.Info("ws connected", slog.String("clientId", client.ID()), slog.String("userId", userID), slog.String("ip", peerIP), slog.Int("topics", len(topics)))
		return nil
	}
}
