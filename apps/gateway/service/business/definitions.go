package business

import (
	"context"

	"github.com/shahadathhs/service-media/internal"
)

// Metadata represents the cached connection metadata.
type Metadata struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	LastActive   int64  `json:"last_active"` // Unix timestamp
	Connected    int64  `json:"connected"`   // Unix timestamp
	GatewayID    string `json:"gateway_id"`  // Which gateway instance owns this connection
}

func (m *Metadata) Key() string {
	return m.ConnectionID
}

// User is the resolved identity record attached to an authenticated connection.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// Frame is the unit of exchange on the realtime channel: a named event plus
// a response envelope payload.
type Frame struct {
	Event   string            `json:"event"`
	Payload internal.Envelope `json:"payload"`
}

// NewFrame builds an outbound frame carrying a successful payload.
func NewFrame(event string, payload any) *Frame {
	return &Frame{Event: event, Payload: internal.SuccessEnvelope(payload)}
}

// NewErrorFrame builds an outbound frame carrying a failure message.
func NewErrorFrame(event, message string) *Frame {
	return &Frame{Event: event, Payload: internal.ErrorEnvelope(message)}
}

// ClientStream abstracts the bidirectional channel to a connected client.
type ClientStream interface {
	Receive() (*Frame, error)
	Send(*Frame) error
	Close() error
}

// TokenVerifier validates a bearer credential and extracts the subject it
// was issued for. An empty subject on a valid token is the caller's problem.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (subject string, err error)
}

// IdentityResolver looks up the user record behind a token subject.
// Returns (nil, nil) when no such user exists.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, subject string) (*User, error)
}

// ConnectionManager owns the lifecycle of realtime client connections.
type ConnectionManager interface {
	// HandleConnection authenticates the stream and services it until it
	// closes. Blocks for the lifetime of the connection.
	HandleConnection(ctx context.Context, stream ClientStream, token string) error

	// GetConnection returns a live connection by its connection id.
	GetConnection(ctx context.Context, connectionID string) (Connection, bool)

	Dispatcher() *Dispatcher
	Registry() *Registry

	ActiveConnections() int32
	DrainConnections(ctx context.Context)
	Shutdown(ctx context.Context) error
}
