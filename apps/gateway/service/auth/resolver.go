package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/apps/gateway/service/business"
)

// UserSource fetches user records by id. Satisfied by the media service's
// user repository; both apps share one database.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// DatastoreResolver resolves token subjects against the user table.
type DatastoreResolver struct {
	users UserSource
}

func NewDatastoreResolver(users UserSource) *DatastoreResolver {
	return &DatastoreResolver{users: users}
}

// ResolveUser returns the user record behind the subject, or (nil, nil)
// when the subject maps to nobody.
func (r *DatastoreResolver) ResolveUser(ctx context.Context, subject string) (*business.User, error) {
	user, err := r.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if user == nil {
		return nil, nil
	}

	return &business.User{
		ID:    user.GetID(),
		Email: user.Email,
		Role:  user.Role,
		Name:  user.Name,
	}, nil
}
