package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages like-set membership rows. Add and Remove are each a
// compare-and-set on one (post_id, user_id) row.
type LikeRepository interface {
	Add(ctx context.Context, postID, userID string) (bool, error)
	Remove(ctx context.Context, postID, userID string) (bool, error)
	Count(ctx context.Context, postID string) (int, error)
	ListUsers(ctx context.Context, postID string) ([]string, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("post_likes")}
}

// Add inserts the membership row. It reports false when the row was already present.
func (r *likeRepository) Add(ctx context.Context, postID, userID string) (bool, error) {
	defer observability.TrackQuery("add", "post_likes")()
	like := &models.Like{PostID: postID, UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like)
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "add", "Like", postID)
	}
	return result.RowsAffected > 0, nil
}

// Remove deletes the membership row. It reports false when no row was present.
func (r *likeRepository) Remove(ctx context.Context, postID, userID string) (bool, error) {
	defer observability.TrackQuery("remove", "post_likes")()
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "remove", "Like", postID)
	}
	return result.RowsAffected > 0, nil
}

func (r *likeRepository) Count(ctx context.Context, postID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, dbError(ctx, r.log, err, "count", "Like", postID)
	}
	return int(count), nil
}

func (r *likeRepository) ListUsers(ctx context.Context, postID string) ([]string, error) {
	users := []string{}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("user_id ASC").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, dbError(ctx, r.log, err, "list_users", "Like", postID)
	}
	return users, nil
}

func (r *likeRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{})
	if result.Error != nil {
		return 0, dbError(ctx, r.log, result.Error, "delete_by_post", "Like", postID)
	}
	return result.RowsAffected, nil
}
