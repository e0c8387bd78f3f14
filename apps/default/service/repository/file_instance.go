package repository

import (
	"context"

	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/datastore/pool"
	"github.com/pitabwire/frame/workerpool"
	"github.com/shahadathhs/service-media/apps/default/service/models"
)

type fileInstanceRepository struct {
	datastore.BaseRepository[*models.FileInstance]
}

// GetByIDs retrieves all files matching the supplied IDs. Unknown IDs are
// silently skipped.
func (fr *fileInstanceRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.FileInstance, error) {
	var files []*models.FileInstance
	err := fr.Pool().DB(ctx, true).
		Where("id IN ?", ids).
		Find(&files).Error
	return files, err
}

// ListPaged retrieves one page of files, newest first, together with the
// total count.
func (fr *fileInstanceRepository) ListPaged(
	ctx context.Context,
	page, limit int,
) ([]*models.FileInstance, int64, error) {
	var total int64
	err := fr.Pool().DB(ctx, true).
		Model(&models.FileInstance{}).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var files []*models.FileInstance
	err = fr.Pool().DB(ctx, true).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&files).Error
	return files, total, err
}

// NewFileInstanceRepository creates a new file instance repository.
func NewFileInstanceRepository(
	ctx context.Context,
	dbPool pool.Pool,
	workMan workerpool.Manager,
) FileInstanceRepository {
	return &fileInstanceRepository{
		BaseRepository: datastore.NewBaseRepository[*models.FileInstance](
			ctx, dbPool, workMan, func() *models.FileInstance { return &models.FileInstance{} },
		),
	}
}
