package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

// PublishRequest lets integrations push a change event into the feed over REST.
type PublishRequest struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
}

type PublishResponse struct {
	Success bool   `json:"success"`
	Topic   string `json:"topic"`
}

// NewPublishHTTPHandler accepts events whose topic is in topics and hands them to publisher.
func NewPublishHTTPHandler(publisher port.Publisher, topics *TopicSet, logger *slog.Logger) echo.HandlerFunc {
	logger = logging.OrDefault(logger)
	if topics == nil {
		topics = NewTopicSet(nil)
	}
	return func(c echo.Context) error {
		var req PublishRequest
		if err := c.Bind(&req); err != nil {
			logger.Warn("publish http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(req.Entity) == "" || strings.TrimSpace(req.Action) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "entity and action are required")
		}

		msg := domain.NewEntityMessage(normalizeEntity(req.Entity), req.Action, req.ResourceID, req.Data, time.Now())
		for key, value := range req.Metadata {
			msg.WithMetadata(key, value)
		}
		if !topics.Allows(msg.Topic) {
			return echo.NewHTTPError(http.StatusBadRequest, "topic not available: "+msg.Topic)
		}

		if err := publisher.Publish(c.Request().Context(), msg); err != nil {
			logger.Error("publish http: publish failed", slog.String("topic", msg.Topic), slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadGateway, "publish failed")
		}

		logger.Info("publish http: message sent", slog.String("topic", msg.Topic), slog.String("resourceId", msg.ResourceID))
		return c.JSON(http.StatusAccepted, PublishResponse{Success: true, Topic: msg.Topic})
	}
}
