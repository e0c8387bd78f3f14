package business

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/internal"
)

// handleInboundFrame processes frames sent by clients.
//
// The channel is push-oriented: clients mostly listen. The only inbound
// frames with meaning are heartbeats; anything else refreshes activity and
// is otherwise ignored.
func (cm *connectionManager) handleInboundFrame(
	ctx context.Context,
	conn Connection,
	frame *Frame,
) error {
	if !conn.AllowInbound() {
		util.Log(ctx).WithFields(map[string]any{
			"connection_id": conn.ID(),
			"event":         frame.Event,
		}).Debug("inbound frame rate limited")
		return nil
	}

	conn.Touch()

	switch frame.Event {
	case internal.EventPing:
		if !conn.Dispatch(NewFrame(internal.EventPong, nil)) {
			util.Log(ctx).WithField("connection_id", conn.ID()).
				Debug("could not queue heartbeat response")
		}
		return nil
	default:
		util.Log(ctx).WithFields(map[string]any{
			"connection_id": conn.ID(),
			"event":         frame.Event,
		}).Debug("ignoring unrecognized inbound event")
		return nil
	}
}
