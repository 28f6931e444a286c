package service

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/database"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn    func(context.Context, *models.Post) error
	getByIDFn   func(context.Context, string) (*models.Post, error)
	existsFn    func(context.Context, string) (bool, error)
	listFn      func(context.Context, repository.PostFilter) ([]*models.Post, error)
	deleteFn    func(context.Context, string) (bool, error)
	incrementFn func(context.Context, string) (bool, error)
	recountFn   func(context.Context, string) (int, bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementCommentCount(ctx context.Context, id string) (bool, error) {
	return s.incrementFn(ctx, id)
}
func (s *postRepoStub) RecountComments(ctx context.Context, id string) (int, bool, error) {
	return s.recountFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:    func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:   func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		existsFn:    func(_ context.Context, _ string) (bool, error) { return true, nil },
		listFn:      func(_ context.Context, _ repository.PostFilter) ([]*models.Post, error) { return nil, nil },
		deleteFn:    func(_ context.Context, _ string) (bool, error) { return true, nil },
		incrementFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		recountFn:   func(_ context.Context, _ string) (int, bool, error) { return 0, false, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) (bool, error)
	getByIDFn      func(context.Context, string) (*models.Comment, error)
	listByPostFn   func(context.Context, string, int) ([]*models.Comment, error)
	listIDsFn      func(context.Context, string, int) ([]string, error)
	countByPostFn  func(context.Context, string) (int64, error)
	deleteFn       func(context.Context, string) (bool, error)
	deleteByPostFn func(context.Context, string) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) (bool, error) {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string, limit int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit)
}
func (s *commentRepoStub) ListIDsByPost(ctx context.Context, postID string, limit int) ([]string, error) {
	return s.listIDsFn(ctx, postID, limit)
}
func (s *commentRepoStub) CountByPost(ctx context.Context, postID string) (int64, error) {
	return s.countByPostFn(ctx, postID)
}
func (s *commentRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	return s.deleteFn(ctx, id)
}
func (s *commentRepoStub) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	return s.deleteByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:       func(_ context.Context, _ *models.Comment) (bool, error) { return true, nil },
		getByIDFn:      func(_ context.Context, id string) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn:   func(_ context.Context, _ string, _ int) ([]*models.Comment, error) { return nil, nil },
		listIDsFn:      func(_ context.Context, _ string, _ int) ([]string, error) { return nil, nil },
		countByPostFn:  func(_ context.Context, _ string) (int64, error) { return 0, nil },
		deleteFn:       func(_ context.Context, _ string) (bool, error) { return true, nil },
		deleteByPostFn: func(_ context.Context, _ string) (int64, error) { return 0, nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	addFn          func(context.Context, string, string) (bool, error)
	removeFn       func(context.Context, string, string) (bool, error)
	countFn        func(context.Context, string) (int, error)
	listUsersFn    func(context.Context, string) ([]string, error)
	deleteByPostFn func(context.Context, string) (int64, error)
}

func (s *likeRepoStub) Add(ctx context.Context, postID, userID string) (bool, error) {
	return s.addFn(ctx, postID, userID)
}
func (s *likeRepoStub) Remove(ctx context.Context, postID, userID string) (bool, error) {
	return s.removeFn(ctx, postID, userID)
}
func (s *likeRepoStub) Count(ctx context.Context, postID string) (int, error) {
	return s.countFn(ctx, postID)
}
func (s *likeRepoStub) ListUsers(ctx context.Context, postID string) ([]string, error) {
	return s.listUsersFn(ctx, postID)
}
func (s *likeRepoStub) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	return s.deleteByPostFn(ctx, postID)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		addFn:          func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		removeFn:       func(_ context.Context, _, _ string) (bool, error) { return false, nil },
		countFn:        func(_ context.Context, _ string) (int, error) { return 0, nil },
		listUsersFn:    func(_ context.Context, _ string) ([]string, error) { return []string{}, nil },
		deleteByPostFn: func(_ context.Context, _ string) (int64, error) { return 0, nil },
	}
}

// failingCommentRepo wraps a real repository and fails Delete on selected calls.
type failingCommentRepo struct {
	repository.CommentRepository
	deletes  int
	failOn   func(call int) bool
	deleteErr error
}

func (r *failingCommentRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.deletes++
	if r.failOn != nil && r.failOn(r.deletes) {
		return false, r.deleteErr
	}
	return r.CommentRepository.Delete(ctx, id)
}

// stack is a sqlite-backed set of repositories and services.
type stack struct {
	db         *gorm.DB
	posts      repository.PostRepository
	comments   repository.CommentRepository
	likes      repository.LikeRepository
	follows    repository.FollowRepository
	claims     repository.UsernameClaimRepository
	users      repository.UserRepository
	images     *testutil.ImageHostStub
	content    *ContentService
	engagement *EngagementService
	graph      *GraphService
	feed       *FeedService
	profiles   *UserService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	s := &stack{
		db:       db,
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeRepository(db),
		follows:  repository.NewFollowRepository(db),
		claims:   repository.NewUsernameClaimRepository(db),
		users:    repository.NewUserRepository(db),
		images:   &testutil.ImageHostStub{},
	}
	s.content = NewContentService(s.posts, s.comments, s.likes, s.images, nil)
	s.engagement = NewEngagementService(s.posts, s.likes)
	s.graph = NewGraphService(s.follows, s.claims, s.users, nil)
	s.feed = NewFeedService(s.posts, nil)
	s.profiles = NewUserService(s.users, s.claims, s.images, nil)
	return s
}

func (s *stack) post(t *testing.T, author, content string) *models.Post {
	t.Helper()
	p, err := s.content.CreatePost(context.Background(), CreatePostInput{AuthorID: author, Content: content})
	require.NoError(t, err)
	return p
}

// laggingReplica installs an empty database as the read replica. Callers
// must not run in parallel.
func laggingReplica(t *testing.T) {
	t.Helper()
	database.SetReadDB(testutil.NewSQLiteDB(t))
	t.Cleanup(func() { database.SetReadDB(nil) })
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
