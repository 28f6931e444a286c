package repository

import (
	"context"
	"time"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
)

// PostCursor is the keyset position of the last post on a feed page.
type PostCursor struct {
	CreatedAt time.Time
	ID        string
}

// PostFilter selects a page of posts ordered by created_at DESC, id ASC.
type PostFilter struct {
	AuthorID string
	Limit    int
	After    *PostCursor
	// Primary bypasses the read replica.
	Primary bool
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	Delete(ctx context.Context, id string) (bool, error)
	IncrementCommentCount(ctx context.Context, id string) (bool, error)
	RecountComments(ctx context.Context, id string) (count int, changed bool, err error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return dbError(ctx, r.log, err, "create", "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ?", id).Take(&post).Error; err != nil {
		return nil, dbError(ctx, r.log, err, "get", "Post", id)
	}
	if err := loadLikeSets(db, []*models.Post{&post}); err != nil {
		return nil, dbError(ctx, r.log, err, "get_likes", "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError(ctx, r.log, err, "exists", "Post", id)
	}
	return count > 0, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	db := r.db
	if !filter.Primary {
		db = readDB(r.db)
	}
	db = db.WithContext(ctx)
	q := db.Model(&models.Post{})
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.After != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id > ?))",
			filter.After.CreatedAt, filter.After.CreatedAt, filter.After.ID)
	}

	var posts []*models.Post
	err := q.Order("created_at DESC").
		Order("id ASC").
		Limit(filter.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, dbError(ctx, r.log, err, "list", "Post", filter.AuthorID)
	}
	if err := loadLikeSets(db, posts); err != nil {
		return nil, dbError(ctx, r.log, err, "list_likes", "Post", filter.AuthorID)
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "delete", "Post", id)
	}
	return result.RowsAffected > 0, nil
}

// IncrementCommentCount adds one to comment_count in a single statement.
// It reports false when the post no longer exists.
func (r *postRepository) IncrementCommentCount(ctx context.Context, id string) (bool, error) {
	defer observability.TrackQuery("increment_comment_count", "posts")()
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("comment_count", gorm.Expr("comment_count + ?", 1))
	if result.Error != nil {
		return false, dbError(ctx, r.log, result.Error, "increment_comment_count", "Post", id)
	}
	return result.RowsAffected > 0, nil
}

// RecountComments replaces comment_count with the number of stored comments.
func (r *postRepository) RecountComments(ctx context.Context, id string) (int, bool, error) {
	defer observability.TrackQuery("recount_comments", "posts")()
	db := r.db.WithContext(ctx)

	var before models.Post
	if err := db.Select("id", "comment_count").Where("id = ?", id).Take(&before).Error; err != nil {
		return 0, false, dbError(ctx, r.log, err, "recount_comments", "Post", id)
	}

	result := db.Model(&models.Post{}).
		Where("id = ?", id).
		Update("comment_count", gorm.Expr("(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)"))
	if result.Error != nil {
		return 0, false, dbError(ctx, r.log, result.Error, "recount_comments", "Post", id)
	}
	if result.RowsAffected == 0 {
		return 0, false, models.NewNotFoundError("Post", id)
	}

	var after models.Post
	if err := db.Select("id", "comment_count").Where("id = ?", id).Take(&after).Error; err != nil {
		return 0, false, dbError(ctx, r.log, err, "recount_comments", "Post", id)
	}
	return after.CommentCount, after.CommentCount != before.CommentCount, nil
}

// loadLikeSets fills LikeSet and LikeCount from post_likes in one query.
func loadLikeSets(db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		p.LikeSet = []string{}
		p.LikeCount = 0
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	var likes []models.Like
	if err := db.Where("post_id IN ?", ids).
		Order("created_at ASC").
		Order("user_id ASC").
		Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		if p := byID[l.PostID]; p != nil {
			p.LikeSet = append(p.LikeSet, l.UserID)
			p.LikeCount++
		}
	}
	return nil
}
