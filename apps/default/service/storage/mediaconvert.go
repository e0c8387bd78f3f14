package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/google/uuid"
	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/internal/resilience"
)

// Output encoding constants for concatenated videos.
const (
	mergeVideoMaxBitrate  = 5000000
	mergeAudioBitrate     = 96000
	mergeAudioSampleRate  = 48000
	mergedOutputPrefix    = "merged/"
	minMergeInputs        = 2
	mcBreakerMaxFailures  = 5
	mcBreakerResetTimeout = 60 * time.Second
)

var (
	ErrTooFewMergeInputs = errors.New("at least 2 videos are required for merging")
	ErrJobMissingID      = errors.New("transcoder returned a job without an ID")
	ErrJobMissingStatus  = errors.New("transcoder returned a job without a status")
)

// mediaConvertAPI is the slice of the MediaConvert client this package uses.
type mediaConvertAPI interface {
	CreateJob(
		ctx context.Context,
		params *mediaconvert.CreateJobInput,
		optFns ...func(*mediaconvert.Options),
	) (*mediaconvert.CreateJobOutput, error)
	GetJob(
		ctx context.Context,
		params *mediaconvert.GetJobInput,
		optFns ...func(*mediaconvert.Options),
	) (*mediaconvert.GetJobOutput, error)
}

type mediaConvertMerger struct {
	client  mediaConvertAPI
	bucket  string
	region  string
	roleARN string
	breaker *resilience.CircuitBreaker
}

// NewMediaConvertMerger creates a merge converter backed by AWS MediaConvert.
func NewMediaConvertMerger(client mediaConvertAPI, bucket, region, roleARN string) MergeConverter {
	return &mediaConvertMerger{
		client:  client,
		bucket:  bucket,
		region:  region,
		roleARN: roleARN,
		breaker: resilience.New(resilience.Settings{
			Name:         "mediaconvert",
			MaxFailures:  mcBreakerMaxFailures,
			ResetTimeout: mcBreakerResetTimeout,
		}),
	}
}

// CreateMergeJob submits a concatenation job. Inputs play in order; audio is
// taken from the first input.
func (mm *mediaConvertMerger) CreateMergeJob(ctx context.Context, videoURLs []string) (*MergeJob, error) {
	if len(videoURLs) < minMergeInputs {
		return nil, ErrTooFewMergeInputs
	}

	nameModifier := "merged-" + uuid.NewString()
	destination := fmt.Sprintf("s3://%s/%s", mm.bucket, mergedOutputPrefix)

	inputs := make([]types.Input, 0, len(videoURLs))
	for i, url := range videoURLs {
		inputs = append(inputs, types.Input{
			FileInput: aws.String(url),
			// Empty clippings are required for concatenation.
			InputClippings: []types.InputClipping{},
			AudioSelectors: map[string]types.AudioSelector{
				fmt.Sprintf("AudioSelector%d", i): {
					DefaultSelection: types.AudioDefaultSelectionDefault,
				},
			},
			VideoSelector: &types.VideoSelector{},
		})
	}

	job := &mediaconvert.CreateJobInput{
		Role: aws.String(mm.roleARN),
		Settings: &types.JobSettings{
			Inputs: inputs,
			OutputGroups: []types.OutputGroup{
				{
					OutputGroupSettings: &types.OutputGroupSettings{
						Type: types.OutputGroupTypeFileGroupSettings,
						FileGroupSettings: &types.FileGroupSettings{
							Destination: aws.String(destination),
						},
					},
					Outputs: []types.Output{
						{
							NameModifier: aws.String(nameModifier),
							ContainerSettings: &types.ContainerSettings{
								Container: types.ContainerTypeMp4,
							},
							VideoDescription: &types.VideoDescription{
								CodecSettings: &types.VideoCodecSettings{
									Codec: types.VideoCodecH264,
									H264Settings: &types.H264Settings{
										RateControlMode:   types.H264RateControlModeQvbr,
										MaxBitrate:        aws.Int32(mergeVideoMaxBitrate),
										SceneChangeDetect: types.H264SceneChangeDetectTransitionDetection,
									},
								},
							},
							AudioDescriptions: []types.AudioDescription{
								{
									AudioSourceName: aws.String("AudioSelector0"),
									CodecSettings: &types.AudioCodecSettings{
										Codec: types.AudioCodecAac,
										AacSettings: &types.AacSettings{
											Bitrate:    aws.Int32(mergeAudioBitrate),
											CodingMode: types.AacCodingModeCodingMode20,
											SampleRate: aws.Int32(mergeAudioSampleRate),
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	var result *mediaconvert.CreateJobOutput
	err := mm.breaker.Execute(ctx, func(execCtx context.Context) error {
		var createErr error
		result, createErr = mm.client.CreateJob(execCtx, job)
		return createErr
	})
	if err != nil {
		util.Log(ctx).WithError(err).Error("failed to create merge job")
		return nil, fmt.Errorf("creating merge job: %w", err)
	}

	if result.Job == nil || result.Job.Id == nil {
		return nil, ErrJobMissingID
	}

	return &MergeJob{
		JobID:     aws.ToString(result.Job.Id),
		OutputURL: mm.outputURL(videoURLs[0], nameModifier),
	}, nil
}

// GetJobStatus returns the current MediaConvert status of a job.
func (mm *mediaConvertMerger) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	var result *mediaconvert.GetJobOutput
	err := mm.breaker.Execute(ctx, func(execCtx context.Context) error {
		var getErr error
		result, getErr = mm.client.GetJob(execCtx, &mediaconvert.GetJobInput{
			Id: aws.String(jobID),
		})
		return getErr
	})
	if err != nil {
		util.Log(ctx).WithError(err).WithField("job_id", jobID).Error("failed to get merge job status")
		return "", fmt.Errorf("getting merge job %s: %w", jobID, err)
	}

	if result.Job == nil || result.Job.Status == "" {
		return "", ErrJobMissingStatus
	}

	return string(result.Job.Status), nil
}

// outputURL derives the final object URL. MediaConvert names the output after
// the first input's base name with the NameModifier appended.
func (mm *mediaConvertMerger) outputURL(firstInputURL, nameModifier string) string {
	base := firstInputURL
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".mp4")

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s%s%s.mp4",
		mm.bucket, mm.region, mergedOutputPrefix, base, nameModifier)
}
