package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahadathhs/service-media/apps/gateway/config"
)

func TestGatewayConfig_Validate(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		cfg := validGatewayConfig()
		err := cfg.Validate()
		require.NoError(t, err)
	})

	t.Run("JWTSecret cannot be empty", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.JWTSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWTSecret")
	})

	t.Run("MaxConnections must be >= 1", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.MaxConnections = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxConnections")
	})

	t.Run("HandshakeTimeoutSec must be > 0", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.HandshakeTimeoutSec = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HandshakeTimeoutSec")
	})

	t.Run("ConnectionTimeoutSec must be > 0", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.ConnectionTimeoutSec = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ConnectionTimeoutSec")
	})

	t.Run("HeartbeatIntervalSec must be > 0", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.HeartbeatIntervalSec = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HeartbeatIntervalSec")
	})

	t.Run("ConnectionTimeoutSec must be > HeartbeatIntervalSec", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.ConnectionTimeoutSec = 30
		cfg.HeartbeatIntervalSec = 30
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ConnectionTimeoutSec")
		assert.Contains(t, err.Error(), "HeartbeatIntervalSec")

		// Also test when timeout < heartbeat
		cfg.ConnectionTimeoutSec = 20
		cfg.HeartbeatIntervalSec = 30
		err = cfg.Validate()
		require.Error(t, err)
	})

	t.Run("WriteTimeoutSec must be > 0", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.WriteTimeoutSec = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WriteTimeoutSec")
	})

	t.Run("MaxEventsPerSecond must be > 0", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.MaxEventsPerSecond = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxEventsPerSecond")
	})

	t.Run("CacheURI cannot be empty", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.CacheURI = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CacheURI")
	})

	t.Run("CacheURI must have valid scheme", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.CacheURI = "invalid://localhost:6379"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CacheURI")
		assert.Contains(t, err.Error(), "invalid scheme")
	})

	t.Run("valid cache URI schemes", func(t *testing.T) {
		validSchemes := []string{
			"redis://localhost:6379",
			"nats://localhost:4222",
			"mem://cache",
		}

		for _, uri := range validSchemes {
			cfg := validGatewayConfig()
			cfg.CacheURI = uri
			err := cfg.Validate()
			require.NoError(t, err, "should accept valid cache URI: %s", uri)
		}
	})

	t.Run("QueueNotificationDeliveryURI must be valid", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.QueueNotificationDeliveryURI = "invalid://queue"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "QueueNotificationDeliveryURI")
	})

	t.Run("multiple validation errors", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.JWTSecret = ""
		cfg.MaxConnections = 0
		cfg.MaxEventsPerSecond = 0
		err := cfg.Validate()
		require.Error(t, err)
		// Should contain multiple errors
		assert.Contains(t, err.Error(), "JWTSecret")
		assert.Contains(t, err.Error(), "MaxConnections")
		assert.Contains(t, err.Error(), "MaxEventsPerSecond")
	})
}

func TestGatewayConfig_ValidateSharding(t *testing.T) {
	t.Run("valid shard", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: 0, TotalShards: 4}
		require.NoError(t, cfg.ValidateSharding())
	})

	t.Run("last shard", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: 3, TotalShards: 4}
		require.NoError(t, cfg.ValidateSharding())
	})

	t.Run("single shard", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: 0, TotalShards: 1}
		require.NoError(t, cfg.ValidateSharding())
	})

	t.Run("shard id exceeds total shards", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: 4, TotalShards: 4}
		err := cfg.ValidateSharding()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SHARD_ID (4) must be < TOTAL_SHARDS (4)")
	})

	t.Run("negative shard id", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: -1, TotalShards: 4}
		err := cfg.ValidateSharding()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SHARD_ID must be >= 0")
	})

	t.Run("zero total shards", func(t *testing.T) {
		cfg := config.GatewayConfig{ShardID: 0, TotalShards: 0}
		err := cfg.ValidateSharding()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TOTAL_SHARDS must be > 0")
	})
}

func TestGatewayConfig_NotificationQueueName(t *testing.T) {
	cfg := validGatewayConfig()
	cfg.ShardID = 2

	assert.Equal(t, "media.notification.delivery.2", cfg.NotificationQueueName())
	assert.Equal(t, "mem://media.notification.delivery.2", cfg.NotificationQueueURI())
}

func TestGatewayConfig_Origins(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		cfg := validGatewayConfig()
		assert.Equal(t, []string{"*"}, cfg.Origins())
	})

	t.Run("comma separated with whitespace", func(t *testing.T) {
		cfg := validGatewayConfig()
		cfg.AllowedOrigins = "http://localhost:3000, https://app.example.com ,"
		assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Origins())
	})
}

func validGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		JWTSecret:                     "test-secret",
		MaxConnections:                10000,
		HandshakeTimeoutSec:           10,
		ConnectionTimeoutSec:          300,
		HeartbeatIntervalSec:          30,
		WriteTimeoutSec:               10,
		MaxEventsPerSecond:            100,
		AllowedOrigins:                "*",
		CacheName:                     "defaultCache",
		CacheURI:                      "redis://localhost:6379",
		CacheCredentialsFile:          "",
		QueueNotificationDeliveryName: "media.notification.delivery.%d",
		QueueNotificationDeliveryURI:  "mem://media.notification.delivery.%d",
		ShardID:                       0,
		TotalShards:                   1,
	}
}
