package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow edge operations
type FollowRepository interface {
	Create(ctx context.Context, followerID, followingID string) (bool, error)
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowers(ctx context.Context, userID string, limit int) ([]string, error)
	ListFollowing(ctx context.Context, userID string, limit int) ([]string, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
}

type followRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follow_edges")}
}

// Create inserts the edge; an existing edge is left as is and reported as false.
func (r *followRepository) Create(ctx context.Context, followerID, followingID string) (bool, error) {
	edge := &models.FollowEdge{FollowerID: followerID, FollowingID: followingID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "create", "FollowEdge", followerID)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.FollowEdge{})
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "delete", "FollowEdge", followerID)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.FollowEdge{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, dbError(ctx, r.log, err, "exists", "FollowEdge", followerID)
	}
	return count > 0, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string, limit int) ([]string, error) {
	return r.list(ctx, "following_id", "follower_id", userID, limit)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string, limit int) ([]string, error) {
	return r.list(ctx, "follower_id", "following_id", userID, limit)
}

func (r *followRepository) list(ctx context.Context, matchColumn, pluckColumn, userID string, limit int) ([]string, error) {
	ids := []string{}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.FollowEdge{}).
		Where(matchColumn+" = ?", userID).
		Order("created_at ASC").
		Order(pluckColumn + " ASC").
		Limit(limit).
		Pluck(pluckColumn, &ids).Error
	if err != nil {
		return nil, dbError(ctx, r.log, err, "list_"+pluckColumn, "FollowEdge", userID)
	}
	return ids, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "following_id", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "follower_id", userID)
}

func (r *followRepository) count(ctx context.Context, column, userID string) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.FollowEdge{}).
		Where(column+" = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, dbError(ctx, r.log, err, "count", "FollowEdge", userID)
	}
	return count, nil
}
