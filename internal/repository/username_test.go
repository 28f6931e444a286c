package repository

import (
	"context"
	"testing"

	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameClaimRepository_Claim(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUsernameClaimRepository(db)
	ctx := context.Background()

	ok, err := repo.Claim(ctx, "alice", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, "alice", "u2")
	require.NoError(t, err)
	assert.False(t, ok, "name already owned")

	ok, err = repo.Claim(ctx, "alice2", "u1")
	require.NoError(t, err)
	assert.False(t, ok, "user already owns a name")

	claim, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "alice", claim.Name)

	claim, err = repo.GetByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, claim)

	claim, err = repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "u1", claim.UserID)

	claim, err = repo.GetByName(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, claim)
}
