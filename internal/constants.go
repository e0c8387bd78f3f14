package internal

const (
	// Queue message headers for user-addressed notification deliveries.
	HeaderUserID       = "user_id"
	HeaderConnectionID = "connection_id"
	HeaderEventName    = "event_name"
	HeaderDeliveryMode = "delivery_mode"
	HeaderShardID      = "shard_id"

	// Delivery modes carried in HeaderDeliveryMode.
	DeliveryModeBroadcast = "broadcast"
	DeliveryModeFirst     = "first"
)

// Named events pushed over the realtime channel. SUCCESS and ERROR acknowledge
// the connection handshake; the rest are job notifications.
const (
	EventSuccess        = "SUCCESS"
	EventError          = "ERROR"
	EventFileUploaded   = "FILE_UPLOADED"
	EventFilesDeleted   = "FILES_DELETED"
	EventMergeSubmitted = "VIDEO_MERGE_SUBMITTED"
	EventMergeCompleted = "VIDEO_MERGE_COMPLETED"
	EventMergeFailed    = "VIDEO_MERGE_FAILED"

	// Heartbeat events exchanged to keep idle sockets from going stale.
	EventPing = "PING"
	EventPong = "PONG"
)
