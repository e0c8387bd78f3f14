package repository

import (
	"context"

	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/datastore/pool"
	"github.com/pitabwire/frame/workerpool"
	"github.com/shahadathhs/service-media/apps/default/service/models"
)

type videoMergeJobRepository struct {
	datastore.BaseRepository[*models.VideoMergeJob]
}

// GetByJobID retrieves a merge job by its MediaConvert job ID.
func (mr *videoMergeJobRepository) GetByJobID(ctx context.Context, jobID string) (*models.VideoMergeJob, error) {
	var job models.VideoMergeJob
	err := mr.Pool().DB(ctx, true).
		Where("job_id = ?", jobID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetUnfinished retrieves merge jobs still awaiting a terminal state, oldest
// first so no job is starved.
func (mr *videoMergeJobRepository) GetUnfinished(ctx context.Context, limit int) ([]*models.VideoMergeJob, error) {
	var jobs []*models.VideoMergeJob
	err := mr.Pool().DB(ctx, true).
		Where("status IN ?", []string{models.MergeStatusSubmitted, models.MergeStatusProgressing}).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// UpdateStatus sets the status of a merge job.
func (mr *videoMergeJobRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return mr.Pool().DB(ctx, false).
		Model(&models.VideoMergeJob{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// NewVideoMergeJobRepository creates a new video merge job repository.
func NewVideoMergeJobRepository(
	ctx context.Context,
	dbPool pool.Pool,
	workMan workerpool.Manager,
) VideoMergeJobRepository {
	return &videoMergeJobRepository{
		BaseRepository: datastore.NewBaseRepository[*models.VideoMergeJob](
			ctx, dbPool, workMan, func() *models.VideoMergeJob { return &models.VideoMergeJob{} },
		),
	}
}
