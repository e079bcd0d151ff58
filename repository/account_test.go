package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/store"
)

func TestAccountSaveAndLookups(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewAccountRepository(exec, dialect)
	ctx := context.Background()

	account := &store.Account{PlayerUUID: "11111111-2222-3333-4444-555555555555", Name: "Aria"}
	id, err := repo.Save(ctx, account).Get()
	require.NoError(t, err)
	require.Positive(t, id)

	byUUID, err := repo.GetByUUID(ctx, account.PlayerUUID).Get()
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, id, byUUID.ID)
	assert.Equal(t, "Aria", byUUID.Name)
	assert.False(t, byUUID.LastSeenAt.IsZero())

	byName, err := repo.GetByName(ctx, "Aria").Get()
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)

	missing, err := repo.GetByName(ctx, "Nobody").Get()
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountRenameRecordsHistory(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewAccountRepository(exec, dialect)
	ctx := context.Background()

	id, err := repo.Save(ctx, &store.Account{PlayerUUID: "u-1", Name: "Aria"}).Get()
	require.NoError(t, err)

	ok, err := repo.Rename(ctx, id, "Ariadne").Get()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Rename(ctx, id, "Ari").Get()
	require.NoError(t, err)
	assert.True(t, ok)

	account, err := repo.GetByID(ctx, id).Get()
	require.NoError(t, err)
	assert.Equal(t, "Ari", account.Name)

	history, err := repo.ListNameChanges(ctx, id).Get()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Ariadne", history[0].OldName, "newest change first")
	assert.Equal(t, "Ari", history[0].NewName)
	assert.Equal(t, "Aria", history[1].OldName)
}

func TestAccountRenameToSameNameIsNoOp(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewAccountRepository(exec, dialect)
	ctx := context.Background()

	id, err := repo.Save(ctx, &store.Account{PlayerUUID: "u-1", Name: "Aria"}).Get()
	require.NoError(t, err)

	ok, err := repo.Rename(ctx, id, "Aria").Get()
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := repo.ListNameChanges(ctx, id).Get()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAccountRenameMissingAccountPropagates(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewAccountRepository(exec, dialect)

	_, err := repo.Rename(context.Background(), 4040, "Ghost").Get()
	assert.Error(t, err)
}

func TestAccountTouchLastSeen(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewAccountRepository(exec, dialect)
	ctx := context.Background()

	id, err := repo.Save(ctx, &store.Account{PlayerUUID: "u-1", Name: "Aria"}).Get()
	require.NoError(t, err)

	before, err := repo.GetByID(ctx, id).Get()
	require.NoError(t, err)

	touched, err := repo.TouchLastSeen(ctx, id).Get()
	require.NoError(t, err)
	assert.True(t, touched)

	after, err := repo.GetByID(ctx, id).Get()
	require.NoError(t, err)
	assert.False(t, after.LastSeenAt.Before(before.LastSeenAt))
}
