// Package service implements the consistency core: posts and comments, likes,
// the follow graph, usernames, profiles and feeds.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxPostContentLength    = 5000
	MaxCommentContentLength = 1000
	DefaultCommentPageSize  = 100
	MaxCommentPageSize      = 500
	// MaxCommentIDLength matches the comments.id column.
	MaxCommentIDLength = 36

	cascadeBatchSize = 500
	// maxCascadeRounds caps re-enumerations that find comments added after
	// the previous pass reached the end.
	maxCascadeRounds = 5
)

type ContentService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	images      *imageUploader
	now         func() time.Time
}

type CreatePostInput struct {
	AuthorID string
	Content  string
	ImageURL string
}

// PublishPostInput is CreatePostInput with raw image bytes instead of a URL.
type PublishPostInput struct {
	AuthorID string
	Content  string
	Image    *models.ImageUpload
}

type AddCommentInput struct {
	PostID   string
	AuthorID string
	Content  string
	// CommentID makes the call idempotent when a caller retries with the same value.
	CommentID string
}

type DeletePostInput struct {
	PostID      string
	RequesterID string
}

func NewContentService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	images ImageHost,
	cfg *config.Config,
) *ContentService {
	return &ContentService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		images:      newImageUploader(images, cfg),
		now:         time.Now,
	}
}

func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "create_post", attribute.String("author_id", in.AuthorID))
	defer finish(&err)

	return s.createPost(ctx, in)
}

func (s *ContentService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	imageURL := strings.TrimSpace(in.ImageURL)
	if err := validatePostFields(in.AuthorID, content); err != nil {
		return nil, err
	}
	if content == "" && imageURL == "" {
		return nil, models.NewValidationError("Post must have content or an image")
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  in.AuthorID,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	if imageURL != "" {
		post.ImageURL = &imageURL
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	cache.InvalidateGlobalFeed(ctx)

	post.LikeSet = []string{}
	post.LikeCount = 0
	return post, nil
}

func validatePostFields(authorID, content string) error {
	if strings.TrimSpace(authorID) == "" {
		return models.NewValidationError("Author is required")
	}
	if utf8.RuneCountInString(content) > MaxPostContentLength {
		return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", MaxPostContentLength))
	}
	return nil
}

// PublishPost uploads the attached image, if any, and then creates the post.
// A failed upload leaves no post behind.
func (s *ContentService) PublishPost(ctx context.Context, in PublishPostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "publish_post", attribute.String("author_id", in.AuthorID))
	defer finish(&err)

	create := CreatePostInput{AuthorID: in.AuthorID, Content: in.Content}
	if in.Image != nil {
		if err := validatePostFields(in.AuthorID, strings.TrimSpace(in.Content)); err != nil {
			return nil, err
		}
		url, err := s.images.upload(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		create.ImageURL = url
	}
	return s.createPost(ctx, create)
}

func (s *ContentService) GetPost(ctx context.Context, postID string) (post *models.Post, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "get_post", attribute.String("post_id", postID))
	defer finish(&err)

	return s.postRepo.GetByID(ctx, postID)
}

// AddComment stores the comment and then bumps comment_count with an atomic
// increment.
func (s *ContentService) AddComment(ctx context.Context, in AddCommentInput) (comment *models.Comment, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "add_comment",
		attribute.String("post_id", in.PostID), attribute.String("author_id", in.AuthorID))
	defer finish(&err)

	content := strings.TrimSpace(in.Content)
	if strings.TrimSpace(in.AuthorID) == "" {
		return nil, models.NewValidationError("Author is required")
	}
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentContentLength {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", MaxCommentContentLength))
	}
	if len(strings.TrimSpace(in.CommentID)) > MaxCommentIDLength {
		return nil, models.NewValidationError(fmt.Sprintf("Comment ID too long (max %d characters)", MaxCommentIDLength))
	}
	if err := s.requirePost(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment = &models.Comment{
		ID:        strings.TrimSpace(in.CommentID),
		PostID:    in.PostID,
		AuthorID:  in.AuthorID,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}

	created, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.resumeComment(ctx, comment)
	}

	incremented, err := s.postRepo.IncrementCommentCount(ctx, in.PostID)
	switch {
	case err != nil:
		// The comment is stored but the count is one behind.
		if _, recErr := s.recount(ctx, in.PostID); recErr != nil {
			return nil, err
		}
	case !incremented:
		// The post was deleted after the comment was written.
		if _, delErr := s.commentRepo.Delete(ctx, comment.ID); delErr != nil {
			observability.Logger.WarnContext(ctx, "orphan comment left behind",
				slog.String("comment_id", comment.ID), slog.String("error", delErr.Error()))
		}
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	cache.InvalidateGlobalFeed(ctx)
	return comment, nil
}

// resumeComment handles a retried AddComment whose comment id already exists.
func (s *ContentService) resumeComment(ctx context.Context, want *models.Comment) (*models.Comment, error) {
	existing, err := s.commentRepo.GetByID(ctx, want.ID)
	if err != nil {
		return nil, err
	}
	if existing.PostID != want.PostID || existing.AuthorID != want.AuthorID {
		return nil, models.NewValidationError("Comment ID is already in use")
	}
	// The earlier attempt may have stopped before the increment.
	if _, err := s.recount(ctx, want.PostID); err != nil {
		return nil, err
	}
	cache.InvalidateGlobalFeed(ctx)
	return existing, nil
}

// ListComments returns the comments stored for postID, oldest first. A
// deleted or unknown post has no comments.
func (s *ContentService) ListComments(ctx context.Context, postID string, limit int) (comments []*models.Comment, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "list_comments", attribute.String("post_id", postID))
	defer finish(&err)

	if limit <= 0 {
		limit = DefaultCommentPageSize
	}
	if limit > MaxCommentPageSize {
		limit = MaxCommentPageSize
	}
	comments, err = s.commentRepo.ListByPost(ctx, postID, limit)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// DeletePost removes a post with all of its comments and likes. Comments are
// deleted one by one before the post; if that stops part-way the post stays,
// its count is reconciled to the surviving comments and CASCADE_FAILURE is
// returned. Calling DeletePost again continues from where it stopped.
func (s *ContentService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "delete_post",
		attribute.String("post_id", in.PostID), attribute.String("requester_id", in.RequesterID))
	defer finish(&err)

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			s.sweepOrphans(ctx, in.PostID)
		}
		return err
	}
	if post.AuthorID != in.RequesterID {
		return models.NewPermissionDeniedError("You can only delete your own posts")
	}

	deleted, total := 0, 0
	fail := func(cause error) error {
		observability.CascadeFailures.Inc()
		if _, recErr := s.recount(context.WithoutCancel(ctx), in.PostID); recErr != nil {
			observability.Logger.WarnContext(ctx, "comment count not reconciled after failed delete",
				slog.String("post_id", in.PostID), slog.String("error", recErr.Error()))
		}
		return models.NewCascadeFailureError(in.PostID, deleted, total, cause)
	}

	reachedEnd := false
	for rounds := 0; ; {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		ids, err := s.commentRepo.ListIDsByPost(ctx, in.PostID, cascadeBatchSize)
		if err != nil {
			return fail(err)
		}
		if len(ids) == 0 {
			break
		}
		if reachedEnd {
			rounds++
			if rounds > maxCascadeRounds {
				return fail(errors.New("comments are still being added"))
			}
		}
		reachedEnd = len(ids) < cascadeBatchSize

		total += len(ids)
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
			if _, err := s.commentRepo.Delete(ctx, id); err != nil {
				return fail(err)
			}
			deleted++
		}
	}

	if _, err := s.likeRepo.DeleteByPost(ctx, in.PostID); err != nil {
		return fail(err)
	}
	if _, err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return fail(err)
	}

	cache.InvalidateGlobalFeed(ctx)

	// Writes that passed their existence check before the post went away.
	if err := s.sweep(context.WithoutCancel(ctx), in.PostID); err != nil {
		observability.CascadeFailures.Inc()
		return models.NewCascadeFailureError(in.PostID, deleted, total, err)
	}
	return nil
}

func (s *ContentService) sweep(ctx context.Context, postID string) error {
	if _, err := s.commentRepo.DeleteByPost(ctx, postID); err != nil {
		return err
	}
	if _, err := s.likeRepo.DeleteByPost(ctx, postID); err != nil {
		return err
	}
	return nil
}

func (s *ContentService) sweepOrphans(ctx context.Context, postID string) {
	if err := s.sweep(ctx, postID); err != nil {
		observability.Logger.WarnContext(ctx, "orphan sweep failed",
			slog.String("post_id", postID), slog.String("error", err.Error()))
	}
}

// ReconcileCommentCount recomputes comment_count from the stored comments.
func (s *ContentService) ReconcileCommentCount(ctx context.Context, postID string) (count int, err error) {
	ctx, finish := observability.StartOperation(ctx, "content", "reconcile_comment_count", attribute.String("post_id", postID))
	defer finish(&err)

	return s.recount(ctx, postID)
}

func (s *ContentService) recount(ctx context.Context, postID string) (int, error) {
	count, changed, err := s.postRepo.RecountComments(ctx, postID)
	if err != nil {
		return 0, err
	}
	if changed {
		observability.CommentCountRepairs.Inc()
		observability.Logger.InfoContext(ctx, "comment count repaired",
			slog.String("post_id", postID), slog.Int("count", count))
	}
	return count, nil
}

func (s *ContentService) requirePost(ctx context.Context, postID string) error {
	if strings.TrimSpace(postID) == "" {
		return models.NewNotFoundError("Post", postID)
	}
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// timestamp is truncated to the precision postgres stores so keyset cursors
// compare equal to the persisted value.
func (s *ContentService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
