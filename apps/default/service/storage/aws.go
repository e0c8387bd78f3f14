package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSClientOptions carry everything needed to talk to S3 and MediaConvert.
type AWSClientOptions struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	MediaConvertEndpoint string
}

// NewAWSClients builds the S3 and MediaConvert clients. Static credentials
// are used when provided, otherwise the default provider chain applies.
func NewAWSClients(ctx context.Context, opts AWSClientOptions) (*s3.Client, *mediaconvert.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	mcClient := mediaconvert.NewFromConfig(awsCfg, func(o *mediaconvert.Options) {
		if opts.MediaConvertEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.MediaConvertEndpoint)
		}
	})

	return s3Client, mcClient, nil
}
