package internal

import "fmt"

// ShardForKey deterministically maps a string key to a shard in [0, shardCount).
// It is allocation-free and stable across restarts, so a user's notifications
// always land on the same delivery queue shard.
//
// shardCount must be > 0.
func ShardForKey(key string, shardCount int) int {
	if shardCount <= 0 {
		panic("shardCount must be > 0")
	}

	// FNV-1a 32-bit
	var hash uint32 = 2166136261
	for i := range len(key) {
		hash ^= uint32(key[i])
		hash *= 16777619
	}

	return int(hash) % shardCount
}

// ShardedQueueName resolves the delivery queue name for a key.
// nameFormat carries a single %d verb, e.g. "gateway.notification.delivery.%d".
func ShardedQueueName(nameFormat, key string, shardCount int) string {
	return fmt.Sprintf(nameFormat, ShardForKey(key, shardCount))
}

// QueueNameForShard resolves the delivery queue name for a known shard id.
// Subscribers use this; publishers resolve the shard from the key first.
func QueueNameForShard(nameFormat string, shardID int) string {
	return fmt.Sprintf(nameFormat, shardID)
}
