package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string, limit int) ([]*models.Comment, error)
	ListIDsByPost(ctx context.Context, postID string, limit int) ([]string, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// Create inserts the comment unless a comment with the same id exists.
// It reports whether a row was written.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (bool, error) {
	defer observability.TrackQuery("create", "comments")()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(comment)
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "create", "Comment", comment.ID)
	}
	return result.RowsAffected > 0, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&comment).Error; err != nil {
		return nil, dbError(ctx, r.log, err, "get", "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := readDB(r.db).WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, dbError(ctx, r.log, err, "list", "Comment", postID)
	}
	return comments, nil
}

// ListIDsByPost reads from the primary so a cascade sees its own deletes.
func (r *commentRepository) ListIDsByPost(ctx context.Context, postID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, dbError(ctx, r.log, err, "list_ids", "Comment", postID)
	}
	return ids, nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, dbError(ctx, r.log, err, "count", "Comment", postID)
	}
	return count, nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "delete", "Comment", id)
	}
	return result.RowsAffected > 0, nil
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	if result.Error != nil {
		return 0, dbError(ctx, r.log, result.Error, "delete_by_post", "Comment", postID)
	}
	return result.RowsAffected, nil
}
