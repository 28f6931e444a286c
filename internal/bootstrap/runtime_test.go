package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/service"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:                  "test",
		DBDriver:             config.DriverSQLite,
		DBSQLitePath:         filepath.Join(t.TempDir(), "runtime.db"),
		DBAutoMigrate:        true,
		DBMaxOpenConns:       1,
		FeedMaxLimit:         50,
		GraphPageSize:        100,
		RetryMaxAttempts:     3,
		ImageMaxUploadSizeMB: 1,
		LogLevel:             "error",
	}
}

func TestInitRuntime_SQLiteWithoutRedis(t *testing.T) {
	cfg := sqliteConfig(t)

	rt, err := InitRuntime(cfg, Options{ImageHost: &testutil.ImageHostStub{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	assert.Nil(t, rt.Redis)
	require.NotNil(t, rt.Services)

	ctx := context.Background()
	post, err := rt.Services.Content.CreatePost(ctx, service.CreatePostInput{AuthorID: "u1", Content: "hello"})
	require.NoError(t, err)

	res, err := rt.Services.Engagement.ToggleLike(ctx, post.ID, "u2")
	require.NoError(t, err)
	assert.True(t, res.Liked)

	page, err := rt.Services.Feed.GlobalFeed(ctx, service.FeedQuery{})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, 1, page.Posts[0].LikeCount)
}

func TestInitRuntime_Errors(t *testing.T) {
	_, err := InitRuntime(nil, Options{})
	assert.Error(t, err)

	cfg := sqliteConfig(t)
	cfg.DBDriver = "oracle"
	_, err = InitRuntime(cfg, Options{})
	assert.Error(t, err)
}

func TestNewServices_NilImageHostRejectsUploads(t *testing.T) {
	t.Parallel()
	db := testutil.NewSQLiteDB(t)
	svcs := NewServices(db, nil, nil)

	_, err := svcs.Content.PublishPost(context.Background(), service.PublishPostInput{
		AuthorID: "u1",
		Image:    &models.ImageUpload{Filename: "a.png", Data: testutil.TinyPNG(t, 1, 1)},
	})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}
