package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/sqlgen"
	"github.com/lorekeep/lorekeep/store"
)

func createEntry(t *testing.T, exec *executor.Executor, dialect sqlgen.Dialect, name string) int64 {
	t.Helper()
	id, err := NewEntryRepository(exec, dialect).
		Save(context.Background(), &store.ContentEntry{Category: "towns", DisplayName: name}).
		Get()
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

func submit(t *testing.T, repo *SubmissionRepository, entryID int64, slug, body string) *store.ContentSubmission {
	t.Helper()
	stored, err := repo.Submit(context.Background(), &store.ContentSubmission{
		EntryID: entryID,
		Slug:    slug,
		Body:    body,
	}).Get()
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored
}

func TestFirstSubmissionBecomesCurrent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	entryID := createEntry(t, exec, dialect, "Riverhold")

	stored := submit(t, repo, entryID, "riverhold", "The founding of Riverhold.")
	assert.Equal(t, 1, stored.Version)
	assert.True(t, stored.IsCurrentVersion, "first submission auto-activates")
	assert.Equal(t, store.ApprovalPending, stored.ApprovalStatus)
	assert.Equal(t, store.StatusPending, stored.Status)

	current, err := repo.GetCurrentForEntry(context.Background(), entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, stored.ID, current.ID)
}

func TestLaterSubmissionDoesNotStealCurrent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	entryID := createEntry(t, exec, dialect, "Riverhold")

	first := submit(t, repo, entryID, "riverhold", "v1")
	second := submit(t, repo, entryID, "riverhold", "v2")

	assert.Equal(t, 2, second.Version)
	assert.False(t, second.IsCurrentVersion)

	current, err := repo.GetCurrentForEntry(context.Background(), entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, first.ID, current.ID, "readers keep seeing the old version until approval")
}

func TestApprovePromotesAndDemotesAtomically(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	first := submit(t, repo, entryID, "riverhold", "v1")
	second := submit(t, repo, entryID, "riverhold", "v2")

	ok, err := repo.Approve(ctx, entryID, second.ID, 77).Get()
	require.NoError(t, err)
	assert.True(t, ok)

	current, err := repo.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, store.ApprovalApproved, current.ApprovalStatus)
	assert.Equal(t, store.StatusActive, current.Status)
	require.NotNil(t, current.ApprovedBy)
	assert.Equal(t, int64(77), *current.ApprovedBy)
	assert.NotNil(t, current.ApprovedAt)

	demoted, err := repo.GetByID(ctx, first.ID).Get()
	require.NoError(t, err)
	require.NotNil(t, demoted)
	assert.False(t, demoted.IsCurrentVersion)
	assert.Equal(t, store.StatusArchived, demoted.Status)

	// At most one current version per entry, always.
	versions, err := repo.ListVersionsForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	currentCount := 0
	for _, v := range versions {
		if v.IsCurrentVersion {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestApproveIsIdempotent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	stored := submit(t, repo, entryID, "riverhold", "v1")

	ok, err := repo.Approve(ctx, entryID, stored.ID, 77).Get()
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := repo.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	firstApprovedAt := *after.ApprovedAt

	ok, err = repo.Approve(ctx, entryID, stored.ID, 99).Get()
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := repo.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.True(t, again.IsCurrentVersion)
	assert.Equal(t, firstApprovedAt, *again.ApprovedAt, "re-approval touches nothing")
	assert.Equal(t, int64(77), *again.ApprovedBy)
}

func TestApproveMissingSubmissionPropagates(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	entryID := createEntry(t, exec, dialect, "Riverhold")

	_, err := repo.Approve(context.Background(), entryID, 4040, 77).Get()
	assert.Error(t, err, "integrity failures are never swallowed")
}

func TestRejectArchivesAndClearsCurrent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	stored := submit(t, repo, entryID, "riverhold", "v1")

	ok, err := repo.Reject(ctx, stored.ID, 77).Get()
	require.NoError(t, err)
	assert.True(t, ok)

	rejected, err := repo.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.Equal(t, store.ApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, store.StatusArchived, rejected.Status)
	assert.False(t, rejected.IsCurrentVersion)

	// The entry may legitimately end up with no current version.
	current, err := repo.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestNewDraftVersionDemotesCurrent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	first := submit(t, repo, entryID, "riverhold", "v1")
	ok, err := repo.Approve(ctx, entryID, first.ID, 77).Get()
	require.NoError(t, err)
	require.True(t, ok)

	draft, err := repo.NewDraftVersion(ctx, &store.ContentSubmission{
		EntryID: entryID,
		Slug:    "riverhold",
		Body:    "rewrite in progress",
	}).Get()
	require.NoError(t, err)
	assert.Equal(t, 2, draft.Version)
	assert.False(t, draft.IsCurrentVersion)
	assert.Equal(t, store.ApprovalPending, draft.ApprovalStatus)

	current, err := repo.GetCurrentForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	assert.Nil(t, current, "the old current is demoted before the draft lands")
}

func TestVersionsStrictlyIncrease(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	for i := 1; i <= 3; i++ {
		stored := submit(t, repo, entryID, "riverhold", "body")
		assert.Equal(t, i, stored.Version)
	}

	versions, err := repo.ListVersionsForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version, "newest first")
	assert.Equal(t, 1, versions[2].Version)

	count, err := repo.CountForEntry(ctx, entryID).Get()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGetBySlugReturnsOnlyCurrent(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	first := submit(t, repo, entryID, "riverhold", "v1")
	submit(t, repo, entryID, "riverhold", "v2")

	found, err := repo.GetBySlug(ctx, "riverhold").Get()
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := repo.GetBySlug(ctx, "emberfall").Get()
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListPendingOldestFirst(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryA := createEntry(t, exec, dialect, "Riverhold")
	entryB := createEntry(t, exec, dialect, "Emberfall")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older, err := repo.Submit(ctx, &store.ContentSubmission{
		EntryID: entryA, Slug: "riverhold", Body: "v1", SubmittedAt: base,
	}).Get()
	require.NoError(t, err)
	newer, err := repo.Submit(ctx, &store.ContentSubmission{
		EntryID: entryB, Slug: "emberfall", Body: "v1", SubmittedAt: base.Add(time.Hour),
	}).Get()
	require.NoError(t, err)

	pending, err := repo.ListPending(ctx).Get()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID, "reviewers see arrival order")
	assert.Equal(t, newer.ID, pending[1].ID)

	ok, err := repo.Approve(ctx, entryA, older.ID, 77).Get()
	require.NoError(t, err)
	require.True(t, ok)

	pending, err = repo.ListPending(ctx).Get()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, newer.ID, pending[0].ID)
}

func TestRecordViewIncrements(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	stored := submit(t, repo, entryID, "riverhold", "v1")

	for i := 0; i < 3; i++ {
		ok, err := repo.RecordView(ctx, stored.ID).Get()
		require.NoError(t, err)
		assert.True(t, ok)
	}

	after, err := repo.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.Equal(t, int64(3), after.ViewCount)
	assert.NotNil(t, after.LastViewedAt)

	ok, err := repo.RecordView(ctx, 4040).Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmissionDelete(t *testing.T) {
	exec, dialect := newTestExecutor(t)
	repo := NewSubmissionRepository(exec, dialect)
	ctx := context.Background()
	entryID := createEntry(t, exec, dialect, "Riverhold")

	stored := submit(t, repo, entryID, "riverhold", "v1")
	deleted, err := repo.DeleteByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := repo.GetByID(ctx, stored.ID).Get()
	require.NoError(t, err)
	assert.Nil(t, gone)
}
