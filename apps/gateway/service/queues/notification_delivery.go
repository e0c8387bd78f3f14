package queues

import (
	"context"
	"encoding/json"

	"github.com/pitabwire/frame/queue"
	"github.com/pitabwire/util"

	"github.com/shahadathhs/service-media/apps/gateway/config"
	"github.com/shahadathhs/service-media/apps/gateway/service/business"
	"github.com/shahadathhs/service-media/internal"
	"github.com/shahadathhs/service-media/internal/telemetry"
)

// NotificationDeliveryQueueHandler consumes user-addressed notifications
// published by the media service and pushes them to live connections.
//
// Routing, by header precedence:
//  1. connection_id set: deliver to that one connection
//  2. delivery_mode "broadcast": deliver to every session of the user
//  3. otherwise: deliver to the user's oldest online connection
//
// Delivery is at-most-once from this gateway's perspective: an offline user
// or a slow consumer drops the notification here rather than wedging the
// queue.
type NotificationDeliveryQueueHandler struct {
	cfg        *config.GatewayConfig
	qManager   queue.Manager
	dispatcher *business.Dispatcher
}

func NewNotificationDeliveryQueueHandler(
	cfg *config.GatewayConfig,
	qManager queue.Manager,
	dispatcher *business.Dispatcher,
) queue.SubscribeWorker {
	return &NotificationDeliveryQueueHandler{
		cfg:        cfg,
		qManager:   qManager,
		dispatcher: dispatcher,
	}
}

func (nq *NotificationDeliveryQueueHandler) Handle(ctx context.Context, headers map[string]string, payload []byte) error {
	ctx, span := telemetry.DeliveryTracer.Start(ctx, "NotificationDelivery")
	defer func() { telemetry.DeliveryTracer.End(ctx, span, nil) }()

	userID := headers[internal.HeaderUserID]
	eventName := headers[internal.HeaderEventName]
	if userID == "" || eventName == "" {
		util.Log(ctx).WithFields(map[string]any{
			"user_id": userID,
			"event":   eventName,
		}).Warn("dropping notification with incomplete addressing")
		telemetry.NotificationsDroppedCounter.Add(ctx, 1)
		return nil
	}

	var envelope internal.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		util.Log(ctx).WithError(err).Error("failed to parse notification payload")
		telemetry.NotificationsDroppedCounter.Add(ctx, 1)
		return nil
	}

	frame := &business.Frame{Event: eventName, Payload: envelope}

	delivered := nq.deliver(ctx, headers, userID, frame)
	if delivered {
		telemetry.NotificationsDeliveredCounter.Add(ctx, 1)
	} else {
		telemetry.NotificationsDroppedCounter.Add(ctx, 1)
		util.Log(ctx).WithFields(map[string]any{
			"user_id": userID,
			"event":   eventName,
		}).Debug("notification not delivered: user offline or slow consumer")
	}

	return nil
}

func (nq *NotificationDeliveryQueueHandler) deliver(
	ctx context.Context,
	headers map[string]string,
	userID string,
	frame *business.Frame,
) bool {
	if connectionID := headers[internal.HeaderConnectionID]; connectionID != "" {
		return nq.dispatcher.SendToConnection(ctx, connectionID, frame)
	}

	if headers[internal.HeaderDeliveryMode] == internal.DeliveryModeBroadcast {
		return nq.dispatcher.BroadcastToUser(ctx, userID, frame) > 0
	}

	return nq.dispatcher.SendToFirstOnlineConnection(ctx, userID, frame, "")
}
