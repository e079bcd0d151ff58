package cache

import (
	"context"

	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/repository"
	"github.com/lorekeep/lorekeep/store"
)

// CachedEntries decorates the entry repository's read paths with the
// read cache. Write paths call through and invalidate the keys they
// could have changed.
type CachedEntries struct {
	repo  *repository.EntryRepository
	cache *ReadCache
}

// NewCachedEntries wraps repo with cache.
func NewCachedEntries(repo *repository.EntryRepository, cache *ReadCache) *CachedEntries {
	return &CachedEntries{repo: repo, cache: cache}
}

// GetByID serves from cache when fresh, otherwise calls through and
// stores a non-nil result.
func (c *CachedEntries) GetByID(ctx context.Context, id int64) *executor.Future[*store.ContentEntry] {
	key := Key("entry.GetByID", id)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.(*store.ContentEntry))
	}
	inner := c.repo.GetByID(ctx, id)
	return executor.Go(func() (*store.ContentEntry, error) {
		entry, err := inner.Get()
		if err == nil && entry != nil {
			c.cache.Set(key, entry)
		}
		return entry, err
	})
}

// GetByStableID serves from cache when fresh.
func (c *CachedEntries) GetByStableID(ctx context.Context, stableID string) *executor.Future[*store.ContentEntry] {
	key := Key("entry.GetByStableID", stableID)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.(*store.ContentEntry))
	}
	inner := c.repo.GetByStableID(ctx, stableID)
	return executor.Go(func() (*store.ContentEntry, error) {
		entry, err := inner.Get()
		if err == nil && entry != nil {
			c.cache.Set(key, entry)
		}
		return entry, err
	})
}

// ListByCategory serves from cache when fresh.
func (c *CachedEntries) ListByCategory(ctx context.Context, category string) *executor.Future[[]store.ContentEntry] {
	key := Key("entry.ListByCategory", category)
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.([]store.ContentEntry))
	}
	inner := c.repo.ListByCategory(ctx, category)
	return executor.Go(func() ([]store.ContentEntry, error) {
		entries, err := inner.Get()
		if err == nil && entries != nil {
			c.cache.Set(key, entries)
		}
		return entries, err
	})
}

// ListAll serves from cache when fresh.
func (c *CachedEntries) ListAll(ctx context.Context) *executor.Future[[]store.ContentEntry] {
	key := Key("entry.ListAll")
	if cached, ok := c.cache.Get(key); ok {
		return executor.Resolved(cached.([]store.ContentEntry))
	}
	inner := c.repo.ListAll(ctx)
	return executor.Go(func() ([]store.ContentEntry, error) {
		entries, err := inner.Get()
		if err == nil && entries != nil {
			c.cache.Set(key, entries)
		}
		return entries, err
	})
}

// Save writes through the repository and invalidates every read the
// entry could have answered.
func (c *CachedEntries) Save(ctx context.Context, entry *store.ContentEntry) *executor.Future[int64] {
	inner := c.repo.Save(ctx, entry)
	return executor.Go(func() (int64, error) {
		id, err := inner.Get()
		c.invalidateEntry(id, entry.StableID)
		return id, err
	})
}

// SetApproved calls through and invalidates the affected entry.
func (c *CachedEntries) SetApproved(ctx context.Context, id int64, approved bool) *executor.Future[bool] {
	inner := c.repo.SetApproved(ctx, id, approved)
	return executor.Go(func() (bool, error) {
		changed, err := inner.Get()
		c.invalidateEntry(id, "")
		return changed, err
	})
}

// DeleteByID calls through and invalidates the affected entry.
func (c *CachedEntries) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	inner := c.repo.DeleteByID(ctx, id)
	return executor.Go(func() (bool, error) {
		deleted, err := inner.Get()
		c.invalidateEntry(id, "")
		return deleted, err
	})
}

func (c *CachedEntries) invalidateEntry(id int64, stableID string) {
	if id != 0 {
		c.cache.Invalidate(Key("entry.GetByID", id))
	}
	if stableID != "" {
		c.cache.Invalidate(Key("entry.GetByStableID", stableID))
	} else {
		c.cache.InvalidatePrefix("entry.GetByStableID")
	}
	c.cache.InvalidatePrefix("entry.List")
}
