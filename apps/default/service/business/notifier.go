package business

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pitabwire/frame/queue"
	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/internal"
	"github.com/shahadathhs/service-media/internal/telemetry"
)

type queueNotifier struct {
	cfg  *config.MediaConfig
	qMan queue.Manager
}

// NewQueueNotifier creates a notifier that publishes user-addressed events to
// the sharded gateway delivery queues. The shard is derived from the user ID
// so all of a user's events land on the same gateway partition.
func NewQueueNotifier(cfg *config.MediaConfig, qMan queue.Manager) Notifier {
	return &queueNotifier{cfg: cfg, qMan: qMan}
}

func (qn *queueNotifier) NotifyUser(
	ctx context.Context,
	userID, event string,
	data any,
	message string,
) error {
	return qn.publish(ctx, userID, event, internal.DeliveryModeFirst, data, message)
}

func (qn *queueNotifier) BroadcastToUser(
	ctx context.Context,
	userID, event string,
	data any,
	message string,
) error {
	return qn.publish(ctx, userID, event, internal.DeliveryModeBroadcast, data, message)
}

func (qn *queueNotifier) publish(
	ctx context.Context,
	userID, event, deliveryMode string,
	data any,
	message string,
) error {
	shardID := internal.ShardForKey(userID, qn.cfg.TotalShards)

	topic, err := qn.qMan.GetPublisher(qn.cfg.NotificationQueueName(shardID))
	if err != nil {
		return fmt.Errorf("resolving delivery queue for shard %d: %w", shardID, err)
	}

	envelope := internal.SuccessEnvelope(data, message)
	headers := notificationHeaders(userID, event, deliveryMode, shardID)

	if err = topic.Publish(ctx, envelope, headers); err != nil {
		return fmt.Errorf("publishing %s notification: %w", event, err)
	}

	telemetry.NotificationsPublishedCounter.Add(ctx, 1)
	util.Log(ctx).WithFields(map[string]any{
		"user_id":  userID,
		"event":    event,
		"shard_id": shardID,
	}).Debug("published notification event")

	return nil
}

// notificationHeaders builds the addressing headers the gateway delivery
// handler routes on.
func notificationHeaders(userID, event, deliveryMode string, shardID int) map[string]string {
	return map[string]string{
		internal.HeaderUserID:       userID,
		internal.HeaderEventName:    event,
		internal.HeaderDeliveryMode: deliveryMode,
		internal.HeaderShardID:      strconv.Itoa(shardID),
	}
}
