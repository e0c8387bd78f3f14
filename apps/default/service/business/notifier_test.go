package business

import (
	"testing"

	"github.com/shahadathhs/service-media/internal"
	"github.com/stretchr/testify/assert"
)

func TestNotificationHeaders(t *testing.T) {
	headers := notificationHeaders("user1", internal.EventFileUploaded, internal.DeliveryModeFirst, 3)

	assert.Equal(t, "user1", headers[internal.HeaderUserID])
	assert.Equal(t, internal.EventFileUploaded, headers[internal.HeaderEventName])
	assert.Equal(t, internal.DeliveryModeFirst, headers[internal.HeaderDeliveryMode])
	assert.Equal(t, "3", headers[internal.HeaderShardID])
}

func TestNotificationShardIsStablePerUser(t *testing.T) {
	const shards = 8

	first := internal.ShardForKey("user1", shards)
	for range 100 {
		assert.Equal(t, first, internal.ShardForKey("user1", shards))
	}

	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, shards)
}
