package cache

import (
	"context"

	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/repository"
	"github.com/lorekeep/lorekeep/store"
)

// CachedSubmissions decorates the submission repository's hot read
// paths. The versioning transitions call through untouched apart from
// invalidation, so their propagate-on-failure contract is preserved.
type CachedSubmissions struct {
	repo  *repository.SubmissionRepository
	cache *ReadCache
}

// NewCachedSubmissions wraps repo with cache.
func NewCachedSubmissions(repo *repository.SubmissionRepository, cache *ReadCache) *CachedSubmissions {
	return &CachedSubmissions{repo: repo, cache: cache}
}

// GetByID serves from cache when fresh.
func (c *CachedSubmissions) GetByID(ctx context.Context, id int64) *executor.Future[*store.ContentSubmission] {
	key := Key("submission.GetByID", id)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.(*store.ContentSubmission))
	}
	inner := c.repo.GetByID(ctx, id)
	return executor.Go(func() (*store.ContentSubmission, error) {
		submission, err := inner.Get()
		if err == nil && submission != nil {
			c.cache.Set(key, submission)
		}
		return submission, err
	})
}

// GetCurrentForEntry serves the entry's current version from cache when
// fresh. This is the hottest read in the system.
func (c *CachedSubmissions) GetCurrentForEntry(ctx context.Context, entryID int64) *executor.Future[*store.ContentSubmission] {
	key := Key("submission.GetCurrentForEntry", entryID)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.(*store.ContentSubmission))
	}
	inner := c.repo.GetCurrentForEntry(ctx, entryID)
	return executor.Go(func() (*store.ContentSubmission, error) {
		submission, err := inner.Get()
		if err == nil && submission != nil {
			c.cache.Set(key, submission)
		}
		return submission, err
	})
}

// ListVersionsForEntry serves from cache when fresh.
func (c *CachedSubmissions) ListVersionsForEntry(ctx context.Context, entryID int64) *executor.Future[[]store.ContentSubmission] {
	key := Key("submission.ListVersionsForEntry", entryID)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.([]store.ContentSubmission))
	}
	inner := c.repo.ListVersionsForEntry(ctx, entryID)
	return executor.Go(func() ([]store.ContentSubmission, error) {
		submissions, err := inner.Get()
		if err == nil && submissions != nil {
			c.cache.Set(key, submissions)
		}
		return submissions, err
	})
}

// Submit calls through and invalidates the entry's cached reads.
func (c *CachedSubmissions) Submit(ctx context.Context, submission *store.ContentSubmission) *executor.Future[*store.ContentSubmission] {
	inner := c.repo.Submit(ctx, submission)
	return executor.Go(func() (*store.ContentSubmission, error) {
		stored, err := inner.Get()
		c.invalidateEntry(submission.EntryID)
		return stored, err
	})
}

// Approve calls through and invalidates; the error, if any, propagates.
func (c *CachedSubmissions) Approve(ctx context.Context, entryID, submissionID, approverID int64) *executor.Future[bool] {
	inner := c.repo.Approve(ctx, entryID, submissionID, approverID)
	return executor.Go(func() (bool, error) {
		ok, err := inner.Get()
		c.invalidateEntry(entryID)
		c.cache.Invalidate(Key("submission.GetByID", submissionID))
		return ok, err
	})
}

// Reject calls through and invalidates.
func (c *CachedSubmissions) Reject(ctx context.Context, submissionID, approverID int64) *executor.Future[bool] {
	inner := c.repo.Reject(ctx, submissionID, approverID)
	return executor.Go(func() (bool, error) {
		ok, err := inner.Get()
		// The rejected row's entry is unknown here; drop the whole
		// submission family rather than guess.
		c.cache.InvalidatePrefix("submission.")
		return ok, err
	})
}

func (c *CachedSubmissions) invalidateEntry(entryID int64) {
	c.cache.Invalidate(Key("submission.GetCurrentForEntry", entryID))
	c.cache.Invalidate(Key("submission.ListVersionsForEntry", entryID))
}
