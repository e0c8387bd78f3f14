package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMediaConfig() MediaConfig {
	return MediaConfig{
		MaxUploadFiles:                5,
		MaxUploadSizeMB:               100,
		MinMergeVideos:                2,
		MaxMergeVideos:                10,
		MaxMergeFileSizeMB:            500,
		QueueNotificationDeliveryName: "media.notification.delivery.%d",
		QueueNotificationDeliveryURI:  []string{"mem://media.notification.delivery.0"},
		TotalShards:                   1,
		MergePollIntervalSec:          30,
	}
}

func TestMediaConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := validMediaConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("zero max upload files fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MaxUploadFiles = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxUploadFiles")
	})

	t.Run("zero max merge file size fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MaxMergeFileSizeMB = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxMergeFileSizeMB")
	})

	t.Run("min merge videos below two fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MinMergeVideos = 1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MinMergeVideos")
	})

	t.Run("max merge below min merge fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MaxMergeVideos = 1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxMergeVideos")
	})

	t.Run("zero poll interval fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MergePollIntervalSec = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MergePollIntervalSec")
	})

	t.Run("zero shards fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.TotalShards = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TotalShards")
	})

	t.Run("queue uri count must match shard count", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.TotalShards = 2
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must match TotalShards")
	})

	t.Run("queue name without shard placeholder fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.QueueNotificationDeliveryName = "media.notification.delivery"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shard placeholder")
	})

	t.Run("invalid queue scheme fails", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.QueueNotificationDeliveryURI = []string{"http://media.notification.delivery.0"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid scheme")
	})

	t.Run("multiple violations are joined", func(t *testing.T) {
		cfg := validMediaConfig()
		cfg.MaxUploadFiles = 0
		cfg.TotalShards = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxUploadFiles")
		assert.Contains(t, err.Error(), "TotalShards")
	})
}

func TestMediaConfig_NotificationQueueName(t *testing.T) {
	cfg := validMediaConfig()
	assert.Equal(t, "media.notification.delivery.0", cfg.NotificationQueueName(0))
	assert.Equal(t, "media.notification.delivery.7", cfg.NotificationQueueName(7))
}
