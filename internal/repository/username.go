package repository

import (
	"context"
	"errors"
	"log/slog"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsernameClaimRepository is the username uniqueness index.
type UsernameClaimRepository interface {
	Claim(ctx context.Context, name, userID string) (bool, error)
	GetByUser(ctx context.Context, userID string) (*models.UsernameClaim, error)
	GetByName(ctx context.Context, name string) (*models.UsernameClaim, error)
}

type usernameClaimRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUsernameClaimRepository creates a new UsernameClaimRepository
func NewUsernameClaimRepository(db *gorm.DB) UsernameClaimRepository {
	return &usernameClaimRepository{db: db, log: observability.NewRepoLogger("username_claims")}
}

// Claim inserts the claim in one statement. It reports false when either the
// name or the user already has a claim.
func (r *usernameClaimRepository) Claim(ctx context.Context, name, userID string) (bool, error) {
	defer observability.TrackQuery("claim", "username_claims")()
	claim := &models.UsernameClaim{Name: name, UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(claim)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			r.log.LogWarn(ctx, "claim rejected by unique index", "claim", slog.String("name", name))
			return false, nil
		}
		return false, dbError(ctx, r.log, result.Error, "claim", "UsernameClaim", name)
	}
	return result.RowsAffected > 0, nil
}

// GetByUser returns the user's claim, or nil when the user has none.
func (r *usernameClaimRepository) GetByUser(ctx context.Context, userID string) (*models.UsernameClaim, error) {
	var claim models.UsernameClaim
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(ctx, r.log, err, "get_by_user", "UsernameClaim", userID)
	}
	return &claim, nil
}

// GetByName returns the claim for a lowercased name, or nil when unclaimed.
func (r *usernameClaimRepository) GetByName(ctx context.Context, name string) (*models.UsernameClaim, error) {
	var claim models.UsernameClaim
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dbError(ctx, r.log, err, "get_by_name", "UsernameClaim", name)
	}
	return &claim, nil
}
