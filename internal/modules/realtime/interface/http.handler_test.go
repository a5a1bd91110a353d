package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesaYaReviews/internal/modules/realtime/application/handler"
	"mesaYaReviews/internal/modules/realtime/application/usecase"
	domain "mesaYaReviews/internal/modules/realtime/domain"
	"mesaYaReviews/internal/modules/realtime/infrastructure"
	"mesaYaReviews/internal/shared/auth"
)

const (
	testSecret = "realtime-test-secret"
	testIssuer = "http://idp.test/realms/reviews"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type feed struct {
	hub *infrastructure.Hub
	srv *httptest.Server
}

func newFeed(t *testing.T) *feed {
	t.Helper()
	hub := infrastructure.NewHub(quietLogger())
	e := echo.New()
	e.GET("/ws/events", NewEventsHandler(EventsHandlerConfig{
		Hub:       hub,
		Topics:    NewTopicSet(nil),
		Validator: auth.NewJWTValidator(testSecret, testIssuer),
		Logger:    quietLogger(),
	}))
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &feed{hub: hub, srv: srv}
}

func (f *feed) dial(t *testing.T, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url(query), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *feed) url(query string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/events" + query
}

func read(t *testing.T, conn *websocket.Conn) domain.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg domain.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEventsHandlerSubscribesFromQuery(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, "?topics=review", nil)

	connected := read(t, conn)
	require.Equal(t, domain.TopicSystemConnected, connected.Topic)
	data, ok := connected.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["authenticated"])
	assert.ElementsMatch(t, []any{"reviews.created", "reviews.updated", "reviews.deleted"}, data["topics"])

	f.hub.Broadcast(context.Background(), domain.NewEntityMessage(domain.RestaurantEntity, domain.ActionCreated, "r-0", nil, time.Now()))
	f.hub.Broadcast(context.Background(), domain.NewEntityMessage(domain.ReviewEntity, domain.ActionCreated, "rev-1", nil, time.Now()))

	got := read(t, conn)
	assert.Equal(t, "reviews.created", got.Topic)
	assert.Equal(t, "rev-1", got.ResourceID)
}

func TestEventsHandlerCommands(t *testing.T) {
	f := newFeed(t)
	conn := f.dial(t, "", nil)
	require.Equal(t, domain.TopicSystemConnected, read(t, conn).Topic)

	require.NoError(t, conn.WriteJSON(infrastructure.Command{Action: "ping"}))
	assert.Equal(t, domain.TopicSystemPong, read(t, conn).Topic)

	require.NoError(t, conn.WriteJSON(infrastructure.Command{Action: "subscribe", Topic: "tables.created"}))
	rejected := read(t, conn)
	assert.Equal(t, domain.TopicSystemError, rejected.Topic)
	assert.Equal(t, "subscribe", rejected.Metadata["action"])

	require.NoError(t, conn.WriteJSON(infrastructure.Command{Action: "dance"}))
	assert.Equal(t, domain.TopicSystemError, read(t, conn).Topic)

	require.NoError(t, conn.WriteJSON(infrastructure.Command{Action: "Subscribe", Topic: " Photos.Deleted "}))
	ack := read(t, conn)
	require.Equal(t, domain.TopicSystemSubscribed, ack.Topic)
	assert.Equal(t, 1, f.hub.SubscriberCount("photos.deleted"))

	f.hub.Broadcast(context.Background(), domain.NewEntityMessage(domain.PhotoEntity, domain.ActionDeleted, "p-1", nil, time.Now()))
	assert.Equal(t, "p-1", read(t, conn).ResourceID)

	require.NoError(t, conn.WriteJSON(infrastructure.Command{Action: "unsubscribe", Topic: "photos.deleted"}))
	assert.Equal(t, domain.TopicSystemUnsubscribed, read(t, conn).Topic)
	assert.Equal(t, 0, f.hub.SubscriberCount("photos.deleted"))
}

func TestEventsHandlerTargetsAuthenticatedUser(t *testing.T) {
	f := newFeed(t)
	issuer := auth.NewIssuer(testSecret, testIssuer, time.Minute, time.Hour)
	pair, err := issuer.Issue(auth.Identity{Subject: "user-1", Username: "ana"}, "session-1")
	require.NoError(t, err)

	conn := f.dial(t, "?topics=reviews&token="+pair.Access.Value, nil)
	connected := read(t, conn)
	assert.Equal(t, "user-1", connected.Metadata["userId"])

	other := domain.NewEntityMessage(domain.ReviewEntity, domain.ActionUpdated, "for-someone-else", nil, time.Now()).
		WithMetadata("userId", "user-2")
	mine := domain.NewEntityMessage(domain.ReviewEntity, domain.ActionUpdated, "for-me", nil, time.Now()).
		WithMetadata("userId", "user-1")
	f.hub.Broadcast(context.Background(), other)
	f.hub.Broadcast(context.Background(), mine)

	assert.Equal(t, "for-me", read(t, conn).ResourceID)
}

func TestEventsHandlerRejectsBadRequests(t *testing.T) {
	f := newFeed(t)

	cases := map[string]struct {
		query  string
		header http.Header
		status int
	}{
		"invalid token":  {query: "?token=not-a-jwt", status: http.StatusUnauthorized},
		"bearer header":  {header: http.Header{"Authorization": {"Bearer not-a-jwt"}}, status: http.StatusUnauthorized},
		"unknown topics": {query: "?topics=reviews,tables", status: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(f.url(tc.query), tc.header)
			require.Error(t, err)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestTopicSetResolve(t *testing.T) {
	set := NewTopicSet([]string{"created"})

	topics, rejected := set.Resolve("*")
	assert.Equal(t, []string{"restaurants.created", "reviews.created", "photos.created"}, topics)
	assert.Empty(t, rejected)

	topics, rejected = set.Resolve(" restaurant , reviews.created, images, reviews.deleted ")
	assert.Equal(t, []string{"restaurants.created", "reviews.created", "photos.created"}, topics)
	assert.Equal(t, []string{"reviews.deleted"}, rejected)

	topics, rejected = set.Resolve("")
	assert.Empty(t, topics)
	assert.Empty(t, rejected)
}

type recordingBroadcaster struct {
	messages []*domain.Message
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, msg *domain.Message) {
	r.messages = append(r.messages, msg)
}

func TestPublishHTTPHandler(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	registry := infrastructure.NewHandlerRegistry()
	registry.Register(handler.NewEntityStreamHandler(domain.ReviewEntity, []string{"created"}, usecase.NewBroadcastUseCase(broadcaster, quietLogger()), quietLogger()))
	h := NewPublishHTTPHandler(infrastructure.NewLocalPublisher(registry), NewTopicSet([]string{"created"}), quietLogger())

	e := echo.New()
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ws/publish", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		if err := h(e.NewContext(req, rec)); err != nil {
			e.HTTPErrorHandler(err, e.NewContext(req, rec))
		}
		return rec
	}

	rec := post(`{"entity":"review","action":"created","resourceId":"rev-9","metadata":{"restaurantId":"r-1"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"topic":"reviews.created"`)
	require.Len(t, broadcaster.messages, 1)
	assert.Equal(t, "r-1", broadcaster.messages[0].Metadata[domain.MetadataRestaurantID])

	assert.Equal(t, http.StatusBadRequest, post(`{"entity":"reviews"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"entity":"reviews","action":"deleted"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
	assert.Len(t, broadcaster.messages, 1)
}
