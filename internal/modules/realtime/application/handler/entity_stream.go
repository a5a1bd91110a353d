package handler

import (
	"context"
	"log/slog"
	"strings"

	"mesaYaReviews/internal/modules/realtime/application/port"
	"mesaYaReviews/internal/modules/realtime/application/usecase"
	"mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/logging"
)

// EntityStreamHandler forwards change events of one entity to the websocket clients,
// dropping actions outside the allowed set.
type EntityStreamHandler struct {
	entity         string
	allowedActions map[string]struct{}
	broadcastUC    *usecase.BroadcastUseCase
	logger         *slog.Logger
}

func NewEntityStreamHandler(entity string, allowedActions []string, broadcastUC *usecase.BroadcastUseCase, logger *slog.Logger) *EntityStreamHandler {
	actionSet := make(map[string]struct{}, len(allowedActions))
	for _, a := range allowedActions {
		if v := strings.TrimSpace(strings.ToLower(a)); v != "" {
			actionSet[v] = struct{}{}
		}
	}
	return &EntityStreamHandler{
		entity:         strings.ToLower(strings.TrimSpace(entity)),
		allowedActions: actionSet,
		broadcastUC:    broadcastUC,
		logger:         logging.OrDefault(logger),
	}
}

func (h *EntityStreamHandler) Topic() string { return h.entity }

func (h *EntityStreamHandler) Handle(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	action := strings.ToLower(strings.TrimSpace(msg.Action))
	if len(h.allowedActions) > 0 {
		if _, ok := h.allowedActions[action]; !ok {
			h.logger.Debug("entity-stream action filtered", slog.String("entity", h.entity), slog.String("action", action))
			return nil
		}
	}
	if msg.Entity == "" {
		msg.Entity = h.entity
	}
	h.broadcastUC.Execute(ctx, msg)
	h.logger.Debug("entity-stream forwarded", slog.String("topic", msg.Topic), slog.String("resourceId", msg.ResourceID))
	return nil
}

var _ port.TopicHandler = (*EntityStreamHandler)(nil)
