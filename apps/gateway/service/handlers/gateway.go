package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/apps/gateway/service/business"
)

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
)

// GatewayHandler terminates websocket connections and hands them to the
// connection manager.
type GatewayHandler struct {
	svc          *frame.Service
	cm           business.ConnectionManager
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewGatewayHandler creates a websocket gateway handler.
// allowedOrigins lists acceptable browser origins, "*" allows any.
func NewGatewayHandler(
	svc *frame.Service,
	cm business.ConnectionManager,
	allowedOrigins []string,
	writeTimeoutSec int,
) *GatewayHandler {
	gh := &GatewayHandler{
		svc:          svc,
		cm:           cm,
		writeTimeout: time.Duration(writeTimeoutSec) * time.Second,
	}

	gh.upgrader = websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return gh
}

// Handler returns the HTTP handler serving the realtime endpoint.
func (gh *GatewayHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gh.handleSocket)
	return mux
}

// handleSocket upgrades the request and services the connection until it
// closes. The credential rides in on the upgrade request; the handshake
// verdict is delivered over the socket itself so browser clients can read it.
func (gh *GatewayHandler) handleSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := extractToken(r)

	wsConn, err := gh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		util.Log(ctx).WithError(err).Debug("websocket upgrade failed")
		return
	}

	stream := newSocketStream(wsConn, gh.writeTimeout)

	err = gh.cm.HandleConnection(ctx, stream, token)
	if err != nil && !errors.Is(err, business.ErrShuttingDown) {
		util.Log(ctx).WithError(err).Debug("connection ended")
	}
}

// extractToken pulls the bearer credential off the upgrade request.
// The Authorization header wins; the token query parameter is the fallback
// for browser websocket clients that cannot set headers.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// originChecker builds the upgrade origin policy from the configured list.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients carry no origin
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// socketStream adapts a gorilla websocket connection to business.ClientStream.
type socketStream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newSocketStream(conn *websocket.Conn, writeTimeout time.Duration) *socketStream {
	return &socketStream{conn: conn, writeTimeout: writeTimeout}
}

func (s *socketStream) Receive() (*business.Frame, error) {
	frame := &business.Frame{}
	if err := s.conn.ReadJSON(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (s *socketStream) Send(frame *business.Frame) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

func (s *socketStream) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return s.conn.Close()
}
