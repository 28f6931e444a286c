package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEnsureUser_CreatesOnce(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()

	user, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "  Alice  ", PhotoURL: "https://p/1"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, "https://p/1", user.PhotoURL)

	_, err = s.profiles.UpdateProfile(ctx, UpdateProfileInput{UserID: "u1", Bio: strPtr("hi")})
	require.NoError(t, err)

	again, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.DisplayName, "sign-in must not overwrite an existing profile")
	assert.Equal(t, "hi", again.Bio)

	_, err = s.profiles.EnsureUser(ctx, Principal{})
	assertValidationError(t, err)
}

func TestEnsureUser_TruncatesLongDisplayName(t *testing.T) {
	t.Parallel()
	s := newStack(t)

	user, err := s.profiles.EnsureUser(context.Background(), Principal{ID: "u1", DisplayName: strings.Repeat("é", MaxDisplayNameLength+10)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", MaxDisplayNameLength), user.DisplayName)
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()

	_, err := s.profiles.GetUser(ctx, "missing")
	assertCode(t, err, models.CodeNotFound)

	_, err = s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)
	ok, err := s.claims.Claim(ctx, "alice", "u1")
	require.NoError(t, err)
	require.True(t, ok)

	user, err := s.profiles.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestUpdateProfile_Validation(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()
	_, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"missing user", UpdateProfileInput{DisplayName: strPtr("x")}},
		{"blank display name", UpdateProfileInput{UserID: "u1", DisplayName: strPtr("   ")}},
		{"long display name", UpdateProfileInput{UserID: "u1", DisplayName: strPtr(strings.Repeat("a", MaxDisplayNameLength+1))}},
		{"long bio", UpdateProfileInput{UserID: "u1", Bio: strPtr(strings.Repeat("a", MaxBioLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.profiles.UpdateProfile(ctx, tt.in)
			assertValidationError(t, err)
		})
	}

	_, err = s.profiles.UpdateProfile(ctx, UpdateProfileInput{UserID: "missing", Bio: strPtr("x")})
	assertCode(t, err, models.CodeNotFound)
}

func TestUpdateProfile_PhotoUpload(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()
	_, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)

	user, err := s.profiles.UpdateProfile(ctx, UpdateProfileInput{
		UserID:      "u1",
		DisplayName: strPtr("Alice B"),
		Photo:       &models.ImageUpload{Filename: "me.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 4, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", user.DisplayName)
	assert.Equal(t, "https://images.test/1/me.png", user.PhotoURL)
	assert.Equal(t, 1, s.images.Count())
}

func TestUpdateProfile_FailedUploadLeavesProfileUnchanged(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()
	_, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Alice", PhotoURL: "https://p/old"})
	require.NoError(t, err)

	host := &testutil.ImageHostStub{Err: errors.New("bucket unreachable")}
	profiles := NewUserService(s.users, s.claims, host, nil)

	_, err = profiles.UpdateProfile(ctx, UpdateProfileInput{
		UserID:      "u1",
		DisplayName: strPtr("Changed"),
		Photo:       &models.ImageUpload{Filename: "me.png", Data: testutil.TinyPNG(t, 2, 2)},
	})
	assertCode(t, err, models.CodeUpstreamUnavailable)

	user, err := s.profiles.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, "https://p/old", user.PhotoURL)
}

func TestUpdateProfile_InvalidImageNotUploaded(t *testing.T) {
	t.Parallel()
	s := newStack(t)
	ctx := context.Background()
	_, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1"})
	require.NoError(t, err)

	_, err = s.profiles.UpdateProfile(ctx, UpdateProfileInput{
		UserID: "u1",
		Photo:  &models.ImageUpload{Filename: "me.png", Data: []byte("not an image")},
	})
	assertValidationError(t, err)
	assert.Zero(t, s.images.Count())
}

func TestProfileWritesReadBackFromPrimary(t *testing.T) {
	laggingReplica(t)
	s := newStack(t)
	ctx := context.Background()

	user, err := s.profiles.EnsureUser(ctx, Principal{ID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)

	user, err = s.profiles.UpdateProfile(ctx, UpdateProfileInput{UserID: "u1", Bio: strPtr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", user.Bio)

	user, err = s.profiles.UpdateProfile(ctx, UpdateProfileInput{
		UserID: "u1",
		Photo:  &models.ImageUpload{Filename: "me.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 4, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://images.test/1/me.png", user.PhotoURL)
	assert.Equal(t, "hello", user.Bio)
}
