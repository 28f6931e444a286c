package main

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/bootstrap"
	"chirp/internal/models"
	"chirp/internal/service"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFunc func(context.Context, string) (int, error)

func (f reconcilerFunc) ReconcileCommentCount(ctx context.Context, postID string) (int, error) {
	return f(ctx, postID)
}

func TestReconcileComments_SkipsDeletedPosts(t *testing.T) {
	ctx := context.Background()
	services := bootstrap.NewServices(testutil.NewSQLiteDB(t), nil, nil)
	post, err := services.Content.CreatePost(ctx, service.CreatePostInput{AuthorID: "u1", Content: "hello"})
	require.NoError(t, err)

	reconciled, err := reconcileComments(ctx, services.Content, []string{"deleted", post.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled)
}

func TestReconcileComments_StoreErrorAborts(t *testing.T) {
	boom := models.NewInternalError(errors.New("connection reset"))
	var seen []string
	content := reconcilerFunc(func(_ context.Context, id string) (int, error) {
		seen = append(seen, id)
		if id == "b" {
			return 0, boom
		}
		return 0, nil
	})

	reconciled, err := reconcileComments(context.Background(), content, []string{"a", "b", "c"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, reconciled)
	assert.Equal(t, []string{"a", "b"}, seen)
}
