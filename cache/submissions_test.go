package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/repository"
	"github.com/lorekeep/lorekeep/store"
)

func TestCachedSubmissionsCurrentVersionCoherence(t *testing.T) {
	exec, dialect, c := newTestStack(t)
	entries := repository.NewEntryRepository(exec, dialect)
	repo := repository.NewSubmissionRepository(exec, dialect)
	cached := NewCachedSubmissions(repo, c)
	ctx := context.Background()

	entryID, err := entries.Save(ctx, &store.ContentEntry{Category: "towns", DisplayName: "Riverhold"}).Get()
	require.NoError(t, err)

	first, err := cached.Submit(ctx, &store.ContentSubmission{EntryID: entryID, Slug: "riverhold", Body: "v1"}).Get()
	require.NoError(t, err)
	second, err := cached.Submit(ctx, &store.ContentSubmission{EntryID: entryID, Slug: "riverhold", Body: "v2"}).Get()
	require.NoError(t, err)

	current, err := cached.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, first.ID, current.ID)

	// Approval swaps the current version; the cached answer must go with
	// it.
	ok, err := cached.Approve(ctx, entryID, second.ID, 77).Get()
	require.NoError(t, err)
	require.True(t, ok)

	current, err = cached.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, store.ApprovalApproved, current.ApprovalStatus)
}

func TestCachedSubmissionsRepeatReadsHitCache(t *testing.T) {
	exec, dialect, c := newTestStack(t)
	entries := repository.NewEntryRepository(exec, dialect)
	repo := repository.NewSubmissionRepository(exec, dialect)
	cached := NewCachedSubmissions(repo, c)
	ctx := context.Background()

	entryID, err := entries.Save(ctx, &store.ContentEntry{Category: "towns", DisplayName: "Riverhold"}).Get()
	require.NoError(t, err)
	stored, err := repo.Submit(ctx, &store.ContentSubmission{EntryID: entryID, Slug: "riverhold", Body: "v1"}).Get()
	require.NoError(t, err)

	_, err = cached.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	_, err = cached.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.Positive(t, c.Stats().Hits)

	versions, err := cached.ListVersionsForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestCachedSubmissionsRejectDropsSubmissionFamily(t *testing.T) {
	exec, dialect, c := newTestStack(t)
	entries := repository.NewEntryRepository(exec, dialect)
	repo := repository.NewSubmissionRepository(exec, dialect)
	cached := NewCachedSubmissions(repo, c)
	ctx := context.Background()

	entryID, err := entries.Save(ctx, &store.ContentEntry{Category: "towns", DisplayName: "Riverhold"}).Get()
	require.NoError(t, err)
	stored, err := cached.Submit(ctx, &store.ContentSubmission{EntryID: entryID, Slug: "riverhold", Body: "v1"}).Get()
	require.NoError(t, err)

	current, err := cached.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)

	ok, err := cached.Reject(ctx, stored.ID, 77).Get()
	require.NoError(t, err)
	require.True(t, ok)

	current, err = cached.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	assert.Nil(t, current, "the rejected version must stop being served")
}
