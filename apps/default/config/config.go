package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pitabwire/frame/config"
)

type MediaConfig struct {
	config.ConfigurationDefault

	JWTSecret string `envDefault:"" env:"JWT_SECRET"`

	AWSRegion               string `envDefault:"us-east-1" env:"AWS_REGION"`
	AWSAccessKeyID          string `envDefault:""          env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey      string `envDefault:""          env:"AWS_SECRET_ACCESS_KEY"`
	AWSS3BucketName         string `envDefault:""          env:"AWS_S3_BUCKET_NAME"`
	AWSMediaConvertEndpoint string `envDefault:""          env:"AWS_MEDIACONVERT_ENDPOINT"`
	AWSMediaConvertRoleARN  string `envDefault:""          env:"AWS_MEDIACONVERT_ROLE_ARN"`

	MaxUploadFiles     int `envDefault:"5"   env:"MAX_UPLOAD_FILES"`
	MaxUploadSizeMB    int `envDefault:"100" env:"MAX_UPLOAD_SIZE_MB"`
	MinMergeVideos     int `envDefault:"2"   env:"MIN_MERGE_VIDEOS"`
	MaxMergeVideos     int `envDefault:"10"  env:"MAX_MERGE_VIDEOS"`
	MaxMergeFileSizeMB int `envDefault:"500" env:"MAX_MERGE_FILE_SIZE_MB"`

	QueueNotificationDeliveryName string   `envDefault:"media.notification.delivery.%d"      env:"QUEUE_NOTIFICATION_DELIVERY_NAME"`
	QueueNotificationDeliveryURI  []string `envDefault:"mem://media.notification.delivery.0" env:"QUEUE_NOTIFICATION_DELIVERY_URI"`

	TotalShards int `envDefault:"1" env:"TOTAL_SHARDS"`

	MergePollIntervalSec int `envDefault:"30" env:"MERGE_POLL_INTERVAL_SEC"`
}

// Validate checks that the configuration is valid.
// Returns an error if any validation fails.
func (c *MediaConfig) Validate() error {
	var errs []error

	if c.MaxUploadFiles <= 0 {
		errs = append(errs, errors.New("MaxUploadFiles must be > 0"))
	}
	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("MaxUploadSizeMB must be > 0"))
	}
	if c.MaxMergeFileSizeMB <= 0 {
		errs = append(errs, errors.New("MaxMergeFileSizeMB must be > 0"))
	}
	if c.MinMergeVideos < 2 {
		errs = append(errs, errors.New("MinMergeVideos must be >= 2"))
	}
	if c.MaxMergeVideos < c.MinMergeVideos {
		errs = append(errs, fmt.Errorf("MaxMergeVideos (%d) must be >= MinMergeVideos (%d)",
			c.MaxMergeVideos, c.MinMergeVideos))
	}
	if c.MergePollIntervalSec <= 0 {
		errs = append(errs, errors.New("MergePollIntervalSec must be > 0"))
	}

	if c.TotalShards <= 0 {
		errs = append(errs, errors.New("TotalShards must be > 0"))
	}
	if len(c.QueueNotificationDeliveryURI) != c.TotalShards {
		errs = append(errs, fmt.Errorf("QueueNotificationDeliveryURI count (%d) must match TotalShards (%d)",
			len(c.QueueNotificationDeliveryURI), c.TotalShards))
	}
	if !strings.Contains(c.QueueNotificationDeliveryName, "%d") {
		errs = append(errs, errors.New("QueueNotificationDeliveryName must contain a %d shard placeholder"))
	}
	for i, uri := range c.QueueNotificationDeliveryURI {
		if err := validateQueueURI(uri, fmt.Sprintf("QueueNotificationDeliveryURI[%d]", i)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NotificationQueueName returns the delivery queue name for a shard.
func (c *MediaConfig) NotificationQueueName(shardID int) string {
	return fmt.Sprintf(c.QueueNotificationDeliveryName, shardID)
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
