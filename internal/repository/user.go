package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (bool, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error
	SetUsername(ctx context.Context, id, username string) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

// Create inserts the user unless the id is already present.
func (r *userRepository) Create(ctx context.Context, user *models.User) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user)
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "create", "User", user.ID)
	}
	return result.RowsAffected > 0, nil
}

// GetByID reads the primary; profile reads usually follow a write by the
// same caller.
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, dbError(ctx, r.log, err, "get", "User", id)
	}
	return &user, nil
}

// UpdateProfile writes only the given columns.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return dbError(ctx, r.log, result.Error, "update_profile", "User", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) SetUsername(ctx context.Context, id, username string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("username", username)
	if result.Error != nil {
		return dbError(ctx, r.log, result.Error, "set_username", "User", id)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}
