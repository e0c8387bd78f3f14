package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pitabwire/frame/data"
	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/apps/default/config"
	"github.com/shahadathhs/service-media/apps/default/service"
	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/default/service/storage"
	"github.com/shahadathhs/service-media/internal"
	"github.com/shahadathhs/service-media/internal/telemetry"
)

const bytesPerMB = 1 << 20

type mergeBusiness struct {
	cfg       *config.MediaConfig
	fileRepo  FileStore
	mergeRepo MergeJobStore
	store     storage.ObjectStorage
	converter storage.MergeConverter
	workMan   workerpool.Manager
	notifier  Notifier
}

// NewMergeBusiness creates a new instance of MergeBusiness.
func NewMergeBusiness(
	cfg *config.MediaConfig,
	fileRepo FileStore,
	mergeRepo MergeJobStore,
	store storage.ObjectStorage,
	converter storage.MergeConverter,
	workMan workerpool.Manager,
	notifier Notifier,
) MergeBusiness {
	return &mergeBusiness{
		cfg:       cfg,
		fileRepo:  fileRepo,
		mergeRepo: mergeRepo,
		store:     store,
		converter: converter,
		workMan:   workMan,
		notifier:  notifier,
	}
}

func (mb *mergeBusiness) MergeVideos(
	ctx context.Context,
	userID string,
	files []UploadFile,
) (submission *MergeSubmission, err error) {
	ctx, span := telemetry.MergeTracer.Start(ctx, "MergeVideos")
	defer func() { telemetry.MergeTracer.End(ctx, span, err) }()

	if len(files) == 0 {
		return nil, service.ErrNoVideosProvided
	}
	if len(files) < mb.cfg.MinMergeVideos {
		return nil, service.ErrTooFewVideos
	}
	if len(files) > mb.cfg.MaxMergeVideos {
		return nil, service.ErrTooManyVideos
	}

	var invalidTypes []string
	for _, file := range files {
		if !strings.HasPrefix(file.MimeType, "video/") {
			invalidTypes = append(invalidTypes, file.MimeType)
		}
	}
	if len(invalidTypes) > 0 {
		return nil, service.ErrInvalidVideoTypes(invalidTypes)
	}

	maxFileBytes := int64(mb.cfg.MaxMergeFileSizeMB) * bytesPerMB
	for _, file := range files {
		if file.Size > maxFileBytes {
			return nil, service.ErrMergeFileTooBig
		}
	}

	records, err := uploadInParallel(ctx, mb.workMan, mb.store, mb.fileRepo, userID, files)
	if err != nil {
		telemetry.FileOperationsFailedCounter.Add(ctx, 1)
		return nil, err
	}

	videoURLs := make([]string, 0, len(records))
	sourceIDs := make([]string, 0, len(records))
	sourceFiles := make([]MergeSourceFile, 0, len(records))
	for _, record := range records {
		videoURLs = append(videoURLs, record.URL)
		sourceIDs = append(sourceIDs, record.GetID())
		sourceFiles = append(sourceFiles, MergeSourceFile{
			ID:       record.GetID(),
			Filename: record.OriginalFilename,
			URL:      record.URL,
			Size:     record.Size,
		})
	}

	util.Log(ctx).WithFields(map[string]any{
		"user_id":     userID,
		"video_count": len(videoURLs),
	}).Info("uploaded videos for merging")

	job, err := mb.converter.CreateMergeJob(ctx, videoURLs)
	if err != nil {
		util.Log(ctx).WithError(err).Error("failed to create merge job")
		telemetry.MergeJobsFailedCounter.Add(ctx, 1)
		return nil, service.ErrMergeJobCreateFailed
	}

	record := &models.VideoMergeJob{
		JobID:       job.JobID,
		OutputURL:   job.OutputURL,
		Status:      models.MergeStatusSubmitted,
		SubmittedBy: userID,
	}
	record.SetSourceFileIDs(sourceIDs)
	record.GenID(ctx)

	if err = mb.mergeRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("saving merge job record: %w", err)
	}

	telemetry.MergeJobsSubmittedCounter.Add(ctx, 1)

	submission = &MergeSubmission{
		JobID:       job.JobID,
		OutputURL:   job.OutputURL,
		Status:      models.MergeStatusSubmitted,
		MergeID:     record.GetID(),
		SourceFiles: sourceFiles,
		Count:       len(sourceFiles),
	}

	if notifyErr := mb.notifier.NotifyUser(
		ctx, userID, internal.EventMergeSubmitted, submission,
		"Videos uploaded and merge job created successfully",
	); notifyErr != nil {
		util.Log(ctx).WithError(notifyErr).WithField("user_id", userID).
			Warn("failed to publish merge submission notification")
	}

	util.Log(ctx).WithFields(map[string]any{
		"job_id":   job.JobID,
		"merge_id": record.GetID(),
	}).Info("created merge job")

	return submission, nil
}

func (mb *mergeBusiness) MergeJobStatus(ctx context.Context, mergeID string) (*MergeStatus, error) {
	record, err := mb.mergeRepo.GetByID(ctx, mergeID)
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, service.ErrMergeJobNotFound
		}
		return nil, fmt.Errorf("looking up merge job %s: %w", mergeID, err)
	}

	startTime := time.Now()
	status, err := mb.converter.GetJobStatus(ctx, record.JobID)
	telemetry.MergeStatusLatencyHistogram.Record(ctx, float64(time.Since(startTime).Milliseconds()))
	if err != nil {
		util.Log(ctx).WithError(err).WithField("job_id", record.JobID).
			Error("failed to fetch merge job status")
		return nil, service.ErrMergeJobStatusFailed
	}

	// Keep the stored status in step with what the transcoder reports.
	if status != record.Status {
		if updateErr := mb.mergeRepo.UpdateStatus(ctx, record.GetID(), status); updateErr != nil {
			util.Log(ctx).WithError(updateErr).WithField("merge_id", record.GetID()).
				Warn("failed to persist merge status transition")
		}
	}

	return &MergeStatus{
		MergeID:   record.GetID(),
		JobID:     record.JobID,
		Status:    status,
		OutputURL: record.OutputURL,
	}, nil
}
