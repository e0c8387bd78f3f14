package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/internal"
)

// Sentinel errors for handshake outcomes, checkable with errors.Is().
var (
	ErrMissingCredential    = errors.New("credential missing")
	ErrInvalidCredential    = errors.New("credential invalid")
	ErrMalformedSubject     = errors.New("credential subject missing")
	ErrUnknownUser          = errors.New("user not found")
	ErrIdentityLookupFailed = errors.New("identity lookup failed")
)

// Client-facing rejection reasons. These are part of the wire contract and
// must not change.
const (
	reasonMissingToken = "Missing token"
	reasonInvalidToken = "Invalid token"
	reasonAuthFailed   = "Auth failed"
	reasonUserNotFound = "User not found"
)

// HandshakeController authenticates fresh connections before they are
// admitted to the registry. On rejection it emits a terminal ERROR frame to
// the client and closes the connection.
type HandshakeController struct {
	verifier TokenVerifier
	resolver IdentityResolver
}

func NewHandshakeController(verifier TokenVerifier, resolver IdentityResolver) *HandshakeController {
	return &HandshakeController{
		verifier: verifier,
		resolver: resolver,
	}
}

// Authenticate runs the handshake on a pending connection.
//
// Steps, in order:
//  1. Credential presence - no token rejects immediately.
//  2. Token verification - signature, expiry and subject extraction.
//  3. Identity resolution - the subject must map to a known user.
//
// On success the connection transitions to authenticated with the resolved
// user attached. On any failure the connection is rejected, the client gets
// an ERROR frame with the rejection reason, and the stream is closed.
func (h *HandshakeController) Authenticate(ctx context.Context, conn Connection, token string) (*User, error) {
	if token == "" {
		return nil, h.reject(ctx, conn, ErrMissingCredential, reasonMissingToken)
	}

	subject, err := h.verifier.Verify(ctx, token)
	if err != nil {
		// The verifier's own message goes out on the wire, so the client can
		// tell an expired token from a tampered one.
		reason := err.Error()
		if reason == "" {
			reason = reasonAuthFailed
		}
		return nil, h.reject(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidCredential, err), reason)
	}

	if subject == "" {
		return nil, h.reject(ctx, conn, ErrMalformedSubject, reasonInvalidToken)
	}

	user, err := h.resolver.ResolveUser(ctx, subject)
	if err != nil {
		return nil, h.reject(ctx, conn, fmt.Errorf("%w: %w", ErrIdentityLookupFailed, err), reasonUserNotFound)
	}

	if user == nil {
		return nil, h.reject(ctx, conn, ErrUnknownUser, reasonUserNotFound)
	}

	if !conn.SetAuthenticated(user) {
		return nil, fmt.Errorf("connection %s is no longer pending", conn.ID())
	}

	util.Log(ctx).WithFields(map[string]any{
		"connection_id": conn.ID(),
		"user_id":       user.ID,
	}).Debug("connection authenticated")

	return user, nil
}

// reject transitions the connection to rejected, notifies the client and
// closes the stream. The returned error carries the sentinel cause.
func (h *HandshakeController) reject(ctx context.Context, conn Connection, cause error, reason string) error {
	conn.Reject()

	if sendErr := conn.Send(NewErrorFrame(internal.EventError, reason)); sendErr != nil {
		util.Log(ctx).WithError(sendErr).
			WithField("connection_id", conn.ID()).
			Debug("could not deliver handshake rejection")
	}

	conn.Close()

	util.Log(ctx).WithError(cause).WithFields(map[string]any{
		"connection_id": conn.ID(),
		"reason":        reason,
	}).Debug("connection rejected")

	return cause
}
