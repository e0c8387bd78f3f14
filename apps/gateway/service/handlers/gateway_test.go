package handlers //nolint:testpackage // Tests exercise the unexported stream adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pitabwire/frame/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahadathhs/service-media/apps/gateway/service/business"
	"github.com/shahadathhs/service-media/internal"
)

type staticVerifier struct {
	subject string
}

func (v staticVerifier) Verify(_ context.Context, token string) (string, error) {
	return v.subject, nil
}

type staticResolver struct {
	user *business.User
}

func (r staticResolver) ResolveUser(_ context.Context, _ string) (*business.User, error) {
	return r.user, nil
}

func newTestHandler(t *testing.T) *GatewayHandler {
	t.Helper()

	cm := business.NewConnectionManager(
		context.Background(),
		staticVerifier{subject: "user1"},
		staticResolver{user: &business.User{ID: "user1", Email: "u@example.com"}},
		cache.NewInMemoryCache(),
		100, // maxConnections
		5,   // handshakeTimeoutSec
		300, // connectionTimeoutSec
		30,  // heartbeatIntervalSec
		100, // maxEventsPerSecond
	)
	t.Cleanup(func() {
		_ = cm.Shutdown(context.Background())
	})

	return NewGatewayHandler(nil, cm, []string{"*"}, 5)
}

func dialSocket(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *business.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame := &business.Frame{}
	require.NoError(t, conn.ReadJSON(frame))
	return frame
}

func TestGatewayHandler_SuccessfulHandshake(t *testing.T) {
	gh := newTestHandler(t)
	server := httptest.NewServer(gh.Handler())
	defer server.Close()

	conn := dialSocket(t, server, "?token=valid-token")

	frame := readFrame(t, conn)
	assert.Equal(t, internal.EventSuccess, frame.Event)
	assert.True(t, frame.Payload.Success)
}

func TestGatewayHandler_MissingToken(t *testing.T) {
	gh := newTestHandler(t)
	server := httptest.NewServer(gh.Handler())
	defer server.Close()

	conn := dialSocket(t, server, "")

	frame := readFrame(t, conn)
	assert.Equal(t, internal.EventError, frame.Event)
	assert.False(t, frame.Payload.Success)
	assert.Equal(t, "Missing token", frame.Payload.Message)
}

func TestGatewayHandler_PingPong(t *testing.T) {
	gh := newTestHandler(t)
	server := httptest.NewServer(gh.Handler())
	defer server.Close()

	conn := dialSocket(t, server, "?token=valid-token")

	// Drain the handshake acknowledgment first
	frame := readFrame(t, conn)
	require.Equal(t, internal.EventSuccess, frame.Event)

	require.NoError(t, conn.WriteJSON(&business.Frame{Event: internal.EventPing}))

	frame = readFrame(t, conn)
	assert.Equal(t, internal.EventPong, frame.Event)
}

func TestExtractToken(t *testing.T) {
	t.Run("authorization header with bearer prefix", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Authorization", "Bearer abc123")
		assert.Equal(t, "abc123", extractToken(r))
	})

	t.Run("authorization header without prefix", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Authorization", "abc123")
		assert.Equal(t, "abc123", extractToken(r))
	})

	t.Run("query parameter fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=qtoken", nil)
		assert.Equal(t, "qtoken", extractToken(r))
	})

	t.Run("header wins over query parameter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=qtoken", nil)
		r.Header.Set("Authorization", "Bearer htoken")
		assert.Equal(t, "htoken", extractToken(r))
	})

	t.Run("no credential", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		assert.Empty(t, extractToken(r))
	})
}

func TestOriginChecker(t *testing.T) {
	t.Run("wildcard allows any origin", func(t *testing.T) {
		check := originChecker([]string{"*"})
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Origin", "https://anywhere.example.com")
		assert.True(t, check(r))
	})

	t.Run("listed origin allowed", func(t *testing.T) {
		check := originChecker([]string{"http://localhost:3000"})
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		assert.True(t, check(r))
	})

	t.Run("unlisted origin denied", func(t *testing.T) {
		check := originChecker([]string{"http://localhost:3000"})
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		assert.False(t, check(r))
	})

	t.Run("missing origin allowed for non-browser clients", func(t *testing.T) {
		check := originChecker([]string{"http://localhost:3000"})
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		assert.True(t, check(r))
	})
}
