package business

import (
	"context"
	"errors"
	"fmt"
	"sync"

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

const (
	defaultPage  = 1
	defaultLimit = 10
)

type fileBusiness struct {
	cfg      *config.MediaConfig
	fileRepo FileStore
	store    storage.ObjectStorage
	workMan  workerpool.Manager
	notifier Notifier
}

// NewFileBusiness creates a new instance of FileBusiness.
func NewFileBusiness(
	cfg *config.MediaConfig,
	fileRepo FileStore,
	store storage.ObjectStorage,
	workMan workerpool.Manager,
	notifier Notifier,
) FileBusiness {
	return &fileBusiness{
		cfg:      cfg,
		fileRepo: fileRepo,
		store:    store,
		workMan:  workMan,
		notifier: notifier,
	}
}

func (fb *fileBusiness) UploadFiles(
	ctx context.Context,
	userID string,
	files []UploadFile,
) (result *UploadResult, err error) {
	ctx, span := telemetry.UploadTracer.Start(ctx, "UploadFiles")
	defer func() { telemetry.UploadTracer.End(ctx, span, err) }()

	if len(files) == 0 {
		return nil, service.ErrNoFilesUploaded
	}
	if len(files) > fb.cfg.MaxUploadFiles {
		return nil, service.ErrTooManyUploadFiles
	}

	records, err := uploadInParallel(ctx, fb.workMan, fb.store, fb.fileRepo, userID, files)
	if err != nil {
		telemetry.FileOperationsFailedCounter.Add(ctx, 1)
		return nil, err
	}

	telemetry.FilesUploadedCounter.Add(ctx, int64(len(records)))

	result = &UploadResult{Files: records, Count: len(records)}

	if notifyErr := fb.notifier.NotifyUser(
		ctx, userID, internal.EventFileUploaded, result, "Files uploaded successfully",
	); notifyErr != nil {
		util.Log(ctx).WithError(notifyErr).WithField("user_id", userID).
			Warn("failed to publish upload notification")
	}

	return result, nil
}

func (fb *fileBusiness) DeleteFiles(
	ctx context.Context,
	userID string,
	fileIDs []string,
) (*DeleteResult, error) {
	if len(fileIDs) == 0 {
		return nil, service.ErrNoFileIDsProvided
	}

	files, err := fb.fileRepo.GetByIDs(ctx, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("looking up files: %w", err)
	}
	if len(files) == 0 {
		return nil, service.ErrFilesNotFound
	}

	deleteErrs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		job := workerpool.NewJob[any](func(jobCtx context.Context, _ workerpool.JobResultPipe[any]) error {
			defer wg.Done()
			delErr := fb.deleteOne(jobCtx, file)
			if delErr != nil {
				deleteErrs[i] = delErr
			}
			return delErr
		})
		if submitErr := workerpool.SubmitJob(ctx, fb.workMan, job); submitErr != nil {
			wg.Done()
			deleteErrs[i] = submitErr
		}
	}
	wg.Wait()

	if err = errors.Join(deleteErrs...); err != nil {
		telemetry.FileOperationsFailedCounter.Add(ctx, 1)
		return nil, err
	}

	telemetry.FilesDeletedCounter.Add(ctx, int64(len(files)))

	result := &DeleteResult{Files: files, Count: len(files)}

	if notifyErr := fb.notifier.NotifyUser(
		ctx, userID, internal.EventFilesDeleted, result, "Files deleted successfully",
	); notifyErr != nil {
		util.Log(ctx).WithError(notifyErr).WithField("user_id", userID).
			Warn("failed to publish delete notification")
	}

	return result, nil
}

func (fb *fileBusiness) deleteOne(ctx context.Context, file *models.FileInstance) error {
	if err := fb.store.Delete(ctx, file.Path); err != nil {
		return err
	}
	return fb.fileRepo.Delete(ctx, file.GetID())
}

func (fb *fileBusiness) ListFiles(
	ctx context.Context,
	page, limit int,
) ([]*models.FileInstance, internal.PageMeta, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	files, total, err := fb.fileRepo.ListPaged(ctx, page, limit)
	if err != nil {
		return nil, internal.PageMeta{}, fmt.Errorf("listing files: %w", err)
	}

	return files, internal.PageMeta{Page: page, Limit: limit, Total: total}, nil
}

func (fb *fileBusiness) GetFile(ctx context.Context, id string) (*models.FileInstance, error) {
	file, err := fb.fileRepo.GetByID(ctx, id)
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, service.ErrFileNotFound
		}
		return nil, fmt.Errorf("looking up file %s: %w", id, err)
	}
	return file, nil
}

// uploadInParallel stores and records every file concurrently, preserving
// request order in the returned slice. Any failure fails the whole batch.
func uploadInParallel(
	ctx context.Context,
	workMan workerpool.Manager,
	store storage.ObjectStorage,
	fileRepo FileStore,
	userID string,
	files []UploadFile,
) ([]*models.FileInstance, error) {
	records := make([]*models.FileInstance, len(files))
	uploadErrs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		job := workerpool.NewJob[any](func(jobCtx context.Context, _ workerpool.JobResultPipe[any]) error {
			defer wg.Done()
			record, upErr := uploadOne(jobCtx, store, fileRepo, userID, file)
			if upErr != nil {
				uploadErrs[i] = upErr
				return upErr
			}
			records[i] = record
			return nil
		})
		if submitErr := workerpool.SubmitJob(ctx, workMan, job); submitErr != nil {
			wg.Done()
			uploadErrs[i] = submitErr
		}
	}
	wg.Wait()

	if err := errors.Join(uploadErrs...); err != nil {
		return nil, fmt.Errorf("uploading files: %w", err)
	}
	return records, nil
}

func uploadOne(
	ctx context.Context,
	store storage.ObjectStorage,
	fileRepo FileStore,
	userID string,
	file UploadFile,
) (*models.FileInstance, error) {
	obj, err := store.Upload(ctx, storage.UploadInput{
		OriginalFilename: file.Filename,
		MimeType:         file.MimeType,
		Size:             file.Size,
		Body:             file.Content,
	})
	if err != nil {
		return nil, err
	}

	record := &models.FileInstance{
		Filename:         obj.Filename,
		OriginalFilename: file.Filename,
		Path:             obj.Key,
		URL:              obj.URL,
		FileType:         storage.FileTypeForMimeType(file.MimeType),
		MimeType:         file.MimeType,
		Size:             file.Size,
		OwnerID:          userID,
	}
	record.GenID(ctx)

	if err = fileRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("saving file record: %w", err)
	}
	return record, nil
}
