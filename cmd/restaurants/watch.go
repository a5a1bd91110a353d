package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	realtime "mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/shared/auth"
)

const (
	reconnectDelay   = 2 * time.Second
	handshakeTimeout = 10 * time.Second
)

var errHandshakeRejected = errors.New("event stream handshake rejected")

func newWatchCommand(a *app) *cobra.Command {
	var endpoint string
	var topics []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream restaurant, review and photo changes",
		Long: "Stream change events from the realtime feed. Topics are entity names " +
			"(restaurants, reviews, photos), full topics such as reviews.created, or * for everything.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			target, err := eventsURL(endpoint, a.cfg.REST.BaseURL, topics)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if a.oidc != nil {
				go func() {
					if err := a.oidc.Follow(ctx, a.sessions); err != nil && ctx.Err() == nil {
						a.logger.Debug("session file not followed", slog.Any("error", err))
					}
				}()
			}
			for {
				err := a.streamEvents(ctx, cmd.OutOrStdout(), target)
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, errHandshakeRejected) {
					return err
				}
				a.logger.Warn("event stream interrupted, reconnecting", slog.Any("error", err), slog.Duration("delay", reconnectDelay))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(reconnectDelay):
				}
			}
		},
	}
	cmd.Flags().StringVar(&endpoint, "url", "", "websocket endpoint (derived from API_BASE_URL when empty)")
	cmd.Flags().StringSliceVar(&topics, "topics", []string{"*"}, "topics or entities to subscribe to")
	return cmd
}

// eventsURL maps http(s)://host/api to ws(s)://host/ws/events unless endpoint is given.
func eventsURL(endpoint, apiBase string, topics []string) (string, error) {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		raw = apiBase
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse events url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported events url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(endpoint) == "" {
		base := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
		u.Path = base + "/ws/events"
	}
	if len(topics) > 0 {
		q := u.Query()
		q.Set("topics", strings.Join(topics, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (a *app) streamEvents(ctx context.Context, out io.Writer, target string) error {
	header := http.Header{}
	session := a.tokens.Session()
	if session.HasToken() && session.ExpiringWithin(time.Now(), time.Minute) {
		if err := a.tokens.RefreshSilent(ctx); err != nil {
			a.logger.Debug("refresh before connecting failed", slog.Any("error", err))
		}
		session = a.tokens.Session()
	}
	if session.HasToken() {
		header.Set("Authorization", auth.BearerValue(session.AccessToken))
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("%w: %s", errHandshakeRejected, resp.Status)
		}
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	a.logger.Info("event stream connected", slog.String("url", target))
	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if err := a.printEvent(out, msg); err != nil {
			return err
		}
	}
}

func (a *app) printEvent(out io.Writer, msg realtime.Message) error {
	if a.jsonOutput {
		return printJSON(out, msg)
	}
	line := msg.Timestamp.Local().Format("15:04:05") + "  " + msg.Topic
	if msg.ResourceID != "" {
		line += "  " + msg.ResourceID
	}
	if restaurantID := msg.Metadata[realtime.MetadataRestaurantID]; restaurantID != "" {
		line += "  restaurant=" + restaurantID
	}
	_, err := fmt.Fprintln(out, line)
	return err
}
