package repository

import (
	"context"
	"testing"
	"time"

	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateIsIdempotentOnID(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	c := &models.Comment{ID: "c1", PostID: "p1", AuthorID: "u1", Content: "first"}
	created, err := repo.Create(ctx, c)
	require.NoError(t, err)
	assert.True(t, created)

	retry := &models.Comment{ID: "c1", PostID: "p1", AuthorID: "u1", Content: "first"}
	created, err = repo.Create(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCommentRepository_ListByPost_OldestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"c3", "c1", "c2"} {
		_, err := repo.Create(ctx, &models.Comment{
			ID: id, PostID: "p1", AuthorID: "u", Content: id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &models.Comment{ID: "other", PostID: "p2", AuthorID: "u", Content: "x"})
	require.NoError(t, err)

	comments, err := repo.ListByPost(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "c3", comments[0].ID)
	assert.Equal(t, "c2", comments[2].ID)

	ids, err := repo.ListIDsByPost(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1"}, ids)
}

func TestCommentRepository_DeleteAndSweep(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := repo.Create(ctx, &models.Comment{ID: id, PostID: "p1", AuthorID: "u", Content: id})
		require.NoError(t, err)
	}

	removed, err := repo.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, removed, "deleting an already deleted comment is a no-op")

	n, err := repo.DeleteByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetByID(ctx, "c2")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
