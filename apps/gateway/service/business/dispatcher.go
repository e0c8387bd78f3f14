package business

import (
	"context"

	"github.com/pitabwire/frame/telemetry"
	"github.com/pitabwire/util"
)

//nolint:gochecknoglobals // OpenTelemetry metrics must be global for instrumentation
var (
	framesDeliveredCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.frames.delivered",
		"Frames queued for delivery to clients",
	)
	framesDroppedCounter = telemetry.DimensionlessMeasure(
		"",
		"gateway.frames.dropped",
		"Frames dropped on slow or absent clients",
	)
)

// Dispatcher routes outbound frames to registered connections.
//
// Delivery is best-effort: a frame addressed to a connection that is gone,
// or to a slow consumer whose dispatch channel stays full, is dropped and
// counted. Senders that need retries keep the frame on their queue instead.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// SendToConnection delivers a frame to one specific connection.
// Returns false when the connection is unknown or its channel is full.
func (d *Dispatcher) SendToConnection(ctx context.Context, connectionID string, frame *Frame) bool {
	conn, ok := d.registry.Get(connectionID)
	if !ok {
		util.Log(ctx).WithFields(map[string]any{
			"connection_id": connectionID,
			"event":         frame.Event,
		}).Debug("connection not found: client may have disconnected")
		framesDroppedCounter.Add(ctx, 1)
		return false
	}

	if !conn.Dispatch(frame) {
		util.Log(ctx).WithFields(map[string]any{
			"connection_id": connectionID,
			"event":         frame.Event,
		}).Debug("dispatch channel full: slow consumer detected")
		framesDroppedCounter.Add(ctx, 1)
		return false
	}

	framesDeliveredCounter.Add(ctx, 1)
	return true
}

// SendToFirstOnlineConnection delivers a frame to the user's oldest live
// connection, skipping excludeConnectionID. Delivery is best effort: when the
// oldest connection's dispatch channel is full (slow consumer), the frame
// falls through to the next connection in accept order rather than being
// dropped outright. Returns false when the user has no connection able to
// take it.
func (d *Dispatcher) SendToFirstOnlineConnection(
	ctx context.Context,
	userID string,
	frame *Frame,
	excludeConnectionID string,
) bool {
	conns := d.registry.ConnectionsForUser(userID, excludeConnectionID)
	for _, conn := range conns {
		if conn.Dispatch(frame) {
			framesDeliveredCounter.Add(ctx, 1)
			return true
		}
		framesDroppedCounter.Add(ctx, 1)
	}

	if len(conns) == 0 {
		util.Log(ctx).WithFields(map[string]any{
			"user_id": userID,
			"event":   frame.Event,
		}).Debug("user has no online connection")
	}

	return false
}

// BroadcastToUser delivers a frame to every live connection of the user.
// Returns the number of connections that accepted the frame.
func (d *Dispatcher) BroadcastToUser(ctx context.Context, userID string, frame *Frame) int {
	delivered := 0
	for _, conn := range d.registry.ConnectionsForUser(userID, "") {
		if conn.Dispatch(frame) {
			delivered++
			framesDeliveredCounter.Add(ctx, 1)
		} else {
			framesDroppedCounter.Add(ctx, 1)
		}
	}
	return delivered
}
