package repository

import (
	"context"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
	"github.com/shahadathhs/service-media/apps/default/service/models"
)

func Migrate(ctx context.Context, svc *frame.Service, migrationPath string) error {
	dbPool := svc.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName)
	return svc.DatastoreManager().Migrate(ctx, dbPool, migrationPath,
		&models.User{}, &models.FileInstance{}, &models.VideoMergeJob{})
}
