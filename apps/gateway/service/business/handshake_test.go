package business //nolint:testpackage // Tests inspect unexported connection state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahadathhs/service-media/internal"
)

type stubVerifier struct {
	subject string
	err     error
}

func (v stubVerifier) Verify(_ context.Context, _ string) (string, error) {
	return v.subject, v.err
}

type stubResolver struct {
	user *User
	err  error
}

func (r stubResolver) ResolveUser(_ context.Context, _ string) (*User, error) {
	return r.user, r.err
}

func requireRejectedWith(t *testing.T, stream *fakeStream, conn Connection, reason string) {
	t.Helper()

	assert.Equal(t, StateRejected, conn.State())

	frames := stream.sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, internal.EventError, frames[0].Event)
	assert.False(t, frames[0].Payload.Success)
	assert.Equal(t, reason, frames[0].Payload.Message)

	select {
	case <-conn.Done():
	default:
		t.Fatal("connection should be closed after rejection")
	}
}

func TestHandshake_MissingToken(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{subject: "user1"},
		stubResolver{user: &User{ID: "user1"}},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	user, err := hc.Authenticate(context.Background(), conn, "")
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Nil(t, user)
	requireRejectedWith(t, stream, conn, "Missing token")
}

func TestHandshake_InvalidToken(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{err: errors.New("token is expired")},
		stubResolver{user: &User{ID: "user1"}},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	user, err := hc.Authenticate(context.Background(), conn, "bad-token")
	require.ErrorIs(t, err, ErrInvalidCredential)
	assert.Nil(t, user)
	requireRejectedWith(t, stream, conn, "token is expired")
}

func TestHandshake_InvalidTokenBlankMessage(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{err: errors.New("")},
		stubResolver{user: &User{ID: "user1"}},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	_, err := hc.Authenticate(context.Background(), conn, "bad-token")
	require.ErrorIs(t, err, ErrInvalidCredential)
	requireRejectedWith(t, stream, conn, "Auth failed")
}

func TestHandshake_EmptySubject(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{subject: ""},
		stubResolver{user: &User{ID: "user1"}},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	_, err := hc.Authenticate(context.Background(), conn, "token-without-subject")
	require.ErrorIs(t, err, ErrMalformedSubject)
	requireRejectedWith(t, stream, conn, "Invalid token")
}

func TestHandshake_UnknownUser(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{subject: "ghost"},
		stubResolver{user: nil},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	_, err := hc.Authenticate(context.Background(), conn, "valid-token")
	require.ErrorIs(t, err, ErrUnknownUser)
	requireRejectedWith(t, stream, conn, "User not found")
}

func TestHandshake_ResolverFailure(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{subject: "user1"},
		stubResolver{err: errors.New("database unreachable")},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	_, err := hc.Authenticate(context.Background(), conn, "valid-token")
	require.ErrorIs(t, err, ErrIdentityLookupFailed)
	requireRejectedWith(t, stream, conn, "User not found")
}

func TestHandshake_Success(t *testing.T) {
	wantUser := &User{ID: "user1", Email: "u@example.com", Role: "USER", Name: "User One"}
	hc := NewHandshakeController(
		stubVerifier{subject: "user1"},
		stubResolver{user: wantUser},
	)
	stream := newFakeStream()
	conn := NewConnection(stream, "conn1")

	user, err := hc.Authenticate(context.Background(), conn, "valid-token")
	require.NoError(t, err)
	assert.Equal(t, wantUser, user)
	assert.Equal(t, StateAuthenticated, conn.State())
	assert.Equal(t, "user1", conn.UserID())

	// The success acknowledgment is the lifecycle's job, not the handshake's
	assert.Empty(t, stream.sentFrames())
}

func TestHandshake_AlreadyRejected(t *testing.T) {
	hc := NewHandshakeController(
		stubVerifier{subject: "user1"},
		stubResolver{user: &User{ID: "user1"}},
	)
	conn := NewConnection(newFakeStream(), "conn1")
	require.True(t, conn.Reject())

	_, err := hc.Authenticate(context.Background(), conn, "valid-token")
	require.Error(t, err)
	assert.Equal(t, StateRejected, conn.State())
}
