package repository

import (
	"context"

	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/datastore/pool"
	"github.com/pitabwire/frame/workerpool"
	"github.com/shahadathhs/service-media/apps/default/service/models"
)

type userRepository struct {
	datastore.BaseRepository[*models.User]
}

// GetByEmail retrieves a user by email address.
func (ur *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := ur.Pool().DB(ctx, true).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// NewUserRepository creates a new user repository instance.
func NewUserRepository(ctx context.Context, dbPool pool.Pool, workMan workerpool.Manager) UserRepository {
	return &userRepository{
		BaseRepository: datastore.NewBaseRepository[*models.User](
			ctx, dbPool, workMan, func() *models.User { return &models.User{} },
		),
	}
}
