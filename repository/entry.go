package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
	"github.com/lorekeep/lorekeep/store"
)

// EntryRepository is the aggregate facade for content entries.
type EntryRepository struct {
	base
}

// NewEntryRepository constructs the repository. Instances are handed out
// by the database manager.
func NewEntryRepository(exec *executor.Executor, dialect sqlgen.Dialect) *EntryRepository {
	return &EntryRepository{base{exec: exec, dialect: dialect}}
}

func (r *EntryRepository) stmt() *builder.Statement {
	return builder.New(r.dialect)
}

// GetByID resolves to the entry, or nil when absent.
func (r *EntryRepository) GetByID(ctx context.Context, id int64) *executor.Future[*store.ContentEntry] {
	st := r.stmt().Select().From(schema.TableEntries).Where("id = ?", id)
	return degrade("entry.GetByID", fmt.Sprint(id), executor.QueryOne[store.ContentEntry](r.exec, ctx, st))
}

// GetByStableID looks an entry up by its stable external id.
func (r *EntryRepository) GetByStableID(ctx context.Context, stableID string) *executor.Future[*store.ContentEntry] {
	st := r.stmt().Select().From(schema.TableEntries).Where("stable_id = ?", stableID)
	return degrade("entry.GetByStableID", stableID, executor.QueryOne[store.ContentEntry](r.exec, ctx, st))
}

// ListByCategory resolves to the entries in a category, newest first.
func (r *EntryRepository) ListByCategory(ctx context.Context, category string) *executor.Future[[]store.ContentEntry] {
	st := r.stmt().Select().From(schema.TableEntries).
		Where("category = ?", category).
		OrderBy("created_at", "DESC")
	return degrade("entry.ListByCategory", category, executor.QueryMany[store.ContentEntry](r.exec, ctx, st))
}

// ListAll resolves to every entry, newest first.
func (r *EntryRepository) ListAll(ctx context.Context) *executor.Future[[]store.ContentEntry] {
	st := r.stmt().Select().From(schema.TableEntries).OrderBy("created_at", "DESC")
	return degrade("entry.ListAll", "", executor.QueryMany[store.ContentEntry](r.exec, ctx, st))
}

// Count resolves to the number of entries.
func (r *EntryRepository) Count(ctx context.Context) *executor.Future[int64] {
	st := r.stmt().Select("COUNT(*)").From(schema.TableEntries)
	return degrade("entry.Count", "", executor.QueryScalar[int64](r.exec, ctx, st))
}

// Save inserts the entry when it has no identity yet, minting its stable
// id, and upserts otherwise. Resolves to the entry's id, or 0 when the
// write was dropped by a storage failure.
func (r *EntryRepository) Save(ctx context.Context, entry *store.ContentEntry) *executor.Future[int64] {
	now := time.Now().UTC()
	if entry.StableID == "" {
		entry.StableID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if entry.ID == 0 {
		st := r.stmt().InsertInto(schema.TableEntries).
			Columns("stable_id", "category", "display_name", "description", "metadata",
				"anchor_world", "anchor_x", "anchor_y", "anchor_z",
				"approved", "created_by", "created_at", "updated_at").
			Values(entry.StableID, entry.Category, entry.DisplayName, entry.Description, entry.Metadata,
				entry.AnchorWorld, entry.AnchorX, entry.AnchorY, entry.AnchorZ,
				entry.Approved, entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt)
		return degrade("entry.Save", entry.StableID, r.exec.ExecInsert(ctx, st))
	}

	id := entry.ID
	st := r.stmt().InsertInto(schema.TableEntries).
		Columns("id", "stable_id", "category", "display_name", "description", "metadata",
			"anchor_world", "anchor_x", "anchor_y", "anchor_z",
			"approved", "created_by", "created_at", "updated_at").
		Values(entry.ID, entry.StableID, entry.Category, entry.DisplayName, entry.Description, entry.Metadata,
			entry.AnchorWorld, entry.AnchorX, entry.AnchorY, entry.AnchorZ,
			entry.Approved, entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt).
		OnConflictUpdate("category", "display_name", "description", "metadata",
			"anchor_world", "anchor_x", "anchor_y", "anchor_z", "approved", "updated_at")
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("entry.Save", entry.StableID, executor.Go(func() (int64, error) {
		if _, err := inner.Get(); err != nil {
			return 0, err
		}
		return id, nil
	}))
}

// SetApproved flips the entry-level approval flag. Resolves to whether a
// row changed.
func (r *EntryRepository) SetApproved(ctx context.Context, id int64, approved bool) *executor.Future[bool] {
	st := r.stmt().Update(schema.TableEntries).
		Set("approved", approved).
		Set("updated_at", time.Now().UTC()).
		Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("entry.SetApproved", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}

// DeleteByID removes the entry. Resolves to whether a row was deleted.
func (r *EntryRepository) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	st := r.stmt().DeleteFrom(schema.TableEntries).Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("entry.DeleteByID", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}
