package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/internal/resilience"
)

const (
	s3BreakerMaxFailures  = 5
	s3BreakerResetTimeout = 30 * time.Second
)

// s3API is the slice of the S3 client this package uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
}

type s3Storage struct {
	client  s3API
	bucket  string
	region  string
	breaker *resilience.CircuitBreaker
}

// NewS3Storage creates object storage backed by an S3 bucket. Calls are
// guarded by a circuit breaker so a broken bucket fails fast.
func NewS3Storage(client s3API, bucket, region string) ObjectStorage {
	return &s3Storage{
		client: client,
		bucket: bucket,
		region: region,
		breaker: resilience.New(resilience.Settings{
			Name:         "s3",
			MaxFailures:  s3BreakerMaxFailures,
			ResetTimeout: s3BreakerResetTimeout,
		}),
	}
}

func (ss *s3Storage) Upload(ctx context.Context, input UploadInput) (*StoredObject, error) {
	ext := extensionOf(input.OriginalFilename)
	folder := FolderForMimeType(input.MimeType)
	filename := uuid.NewString()
	if ext != "" {
		filename = filename + "." + ext
	}
	key := folder + "/" + filename

	err := ss.breaker.Execute(ctx, func(execCtx context.Context) error {
		_, putErr := ss.client.PutObject(execCtx, &s3.PutObjectInput{
			Bucket:      aws.String(ss.bucket),
			Key:         aws.String(key),
			Body:        input.Body,
			ContentType: aws.String(input.MimeType),
		})
		return putErr
	})
	if err != nil {
		util.Log(ctx).WithError(err).WithField("key", key).Error("failed to store object")
		return nil, fmt.Errorf("storing object %s: %w", key, err)
	}

	return &StoredObject{
		Key:      key,
		URL:      ss.objectURL(key),
		Filename: filename,
	}, nil
}

func (ss *s3Storage) Delete(ctx context.Context, key string) error {
	err := ss.breaker.Execute(ctx, func(execCtx context.Context) error {
		_, delErr := ss.client.DeleteObject(execCtx, &s3.DeleteObjectInput{
			Bucket: aws.String(ss.bucket),
			Key:    aws.String(key),
		})
		return delErr
	})
	if err != nil {
		util.Log(ctx).WithError(err).WithField("key", key).Error("failed to delete object")
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

func (ss *s3Storage) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", ss.bucket, ss.region, key)
}

func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}
