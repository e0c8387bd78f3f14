package repository

import (
	"context"

	"github.com/pitabwire/frame/datastore"
	"github.com/shahadathhs/service-media/apps/default/service/models"
)

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	datastore.BaseRepository[*models.User]
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// FileInstanceRepository defines the interface for stored file data access operations.
type FileInstanceRepository interface {
	datastore.BaseRepository[*models.FileInstance]
	GetByIDs(ctx context.Context, ids []string) ([]*models.FileInstance, error)
	ListPaged(ctx context.Context, page, limit int) ([]*models.FileInstance, int64, error)
}

// VideoMergeJobRepository defines the interface for merge job data access operations.
type VideoMergeJobRepository interface {
	datastore.BaseRepository[*models.VideoMergeJob]
	GetByJobID(ctx context.Context, jobID string) (*models.VideoMergeJob, error)
	GetUnfinished(ctx context.Context, limit int) ([]*models.VideoMergeJob, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
