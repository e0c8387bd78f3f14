package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pitabwire/frame/config"

	"github.com/shahadathhs/service-media/internal"
)

type GatewayConfig struct {
	config.ConfigurationDefault

	// Token verification - sockets authenticate with an HS256 signed token
	JWTSecret string `envDefault:"" env:"JWT_SECRET"`

	// Connection management
	MaxConnections       int `envDefault:"10000" env:"MAX_CONNECTIONS"`
	HandshakeTimeoutSec  int `envDefault:"10"    env:"HANDSHAKE_TIMEOUT_SEC"`
	ConnectionTimeoutSec int `envDefault:"300"   env:"CONNECTION_TIMEOUT_SEC"`
	HeartbeatIntervalSec int `envDefault:"30"    env:"HEARTBEAT_INTERVAL_SEC"`
	WriteTimeoutSec      int `envDefault:"10"    env:"WRITE_TIMEOUT_SEC"`

	// Rate limiting
	MaxEventsPerSecond int `envDefault:"100" env:"MAX_EVENTS_PER_SECOND"`

	// Browser clients - comma separated list of allowed origins, "*" allows all
	AllowedOrigins string `envDefault:"*" env:"ALLOWED_ORIGINS"`

	// Cache configuration (Redis or similar)
	// Connection metadata is stored in cache to enable horizontal scaling
	// and allow multiple gateway instances to coordinate
	CacheName            string `envDefault:"defaultCache"           env:"CACHE_NAME"`
	CacheURI             string `envDefault:"redis://localhost:6379" env:"CACHE_URI"`
	CacheCredentialsFile string `envDefault:""                       env:"CACHE_CREDENTIALS_FILE"`

	// Queue for receiving user-targeted notifications from the media service.
	// The name is a format string - the shard id is substituted in at startup.
	QueueNotificationDeliveryName string `envDefault:"media.notification.delivery.%d"       env:"QUEUE_NOTIFICATION_DELIVERY_NAME"`
	QueueNotificationDeliveryURI  string `envDefault:"mem://media.notification.delivery.%d" env:"QUEUE_NOTIFICATION_DELIVERY_URI"`

	// Shard configuration - must be coordinated with the media service's TotalShards.
	// ShardID identifies this gateway instance's shard (0-indexed).
	ShardID     int `envDefault:"0" env:"SHARD_ID"`
	TotalShards int `envDefault:"1" env:"TOTAL_SHARDS"`
}

// Validate checks that the configuration is valid.
// Returns an error if any validation fails.
func (c *GatewayConfig) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWTSecret cannot be empty"))
	}

	// Validate connection management settings
	if c.MaxConnections < 1 {
		errs = append(errs, errors.New("MaxConnections must be >= 1"))
	}

	if c.HandshakeTimeoutSec <= 0 {
		errs = append(errs, errors.New("HandshakeTimeoutSec must be > 0"))
	}

	if c.ConnectionTimeoutSec <= 0 {
		errs = append(errs, errors.New("ConnectionTimeoutSec must be > 0"))
	}

	if c.HeartbeatIntervalSec <= 0 {
		errs = append(errs, errors.New("HeartbeatIntervalSec must be > 0"))
	}

	if c.ConnectionTimeoutSec <= c.HeartbeatIntervalSec {
		errs = append(errs, fmt.Errorf("ConnectionTimeoutSec (%d) must be > HeartbeatIntervalSec (%d)",
			c.ConnectionTimeoutSec, c.HeartbeatIntervalSec))
	}

	if c.WriteTimeoutSec <= 0 {
		errs = append(errs, errors.New("WriteTimeoutSec must be > 0"))
	}

	// Validate rate limiting
	if c.MaxEventsPerSecond <= 0 {
		errs = append(errs, errors.New("MaxEventsPerSecond must be > 0"))
	}

	// Validate cache configuration
	if err := validateCacheURI(c.CacheURI, "CacheURI"); err != nil {
		errs = append(errs, err)
	}

	// Validate queue URIs
	if err := validateQueueURI(c.QueueNotificationDeliveryURI, "QueueNotificationDeliveryURI"); err != nil {
		errs = append(errs, err)
	}

	if err := c.ValidateSharding(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateSharding checks the shard configuration against the delivery topology.
// A gateway subscribed to the wrong shard would silently miss notifications, so
// mismatches must fail fast at startup.
func (c *GatewayConfig) ValidateSharding() error {
	var errs []error

	if c.ShardID < 0 {
		errs = append(errs, errors.New("SHARD_ID must be >= 0"))
	}

	if c.TotalShards <= 0 {
		errs = append(errs, errors.New("TOTAL_SHARDS must be > 0"))
	}

	if c.TotalShards > 0 && c.ShardID >= c.TotalShards {
		errs = append(errs, fmt.Errorf("SHARD_ID (%d) must be < TOTAL_SHARDS (%d)",
			c.ShardID, c.TotalShards))
	}

	return errors.Join(errs...)
}

// NotificationQueueName returns the delivery queue name for this gateway's shard.
func (c *GatewayConfig) NotificationQueueName() string {
	return internal.QueueNameForShard(c.QueueNotificationDeliveryName, c.ShardID)
}

// NotificationQueueURI returns the delivery queue URI for this gateway's shard.
func (c *GatewayConfig) NotificationQueueURI() string {
	return internal.QueueNameForShard(c.QueueNotificationDeliveryURI, c.ShardID)
}

// Origins returns the parsed allowed origins list.
func (c *GatewayConfig) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// validateCacheURI checks that a cache URI has a valid scheme.
func validateCacheURI(uri, name string) error {
	if uri == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}

	validSchemes := []string{"redis://", "nats://", "mem://", "memory://"}
	for _, scheme := range validSchemes {
		if strings.HasPrefix(uri, scheme) {
			return nil
		}
	}

	return fmt.Errorf("%s has invalid scheme (must be one of: %s): %s", name, strings.Join(validSchemes, ", "), uri)
}

// validateQueueURI checks that a queue URI has a valid scheme.
func validateQueueURI(uri, name string) error {
	if uri == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}

	validSchemes := []string{"mem://", "redis://", "amqp://", "nats://", "kafka://"}
	for _, scheme := range validSchemes {
		if strings.HasPrefix(uri, scheme) {
			return nil
		}
	}

	return fmt.Errorf("%s has invalid scheme (must be one of: %s): %s", name, strings.Join(validSchemes, ", "), uri)
}
