package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
	"github.com/lorekeep/lorekeep/store"
)

// CollectionRepository is the aggregate facade for item collections.
type CollectionRepository struct {
	base
}

// NewCollectionRepository constructs the repository.
func NewCollectionRepository(exec *executor.Executor, dialect sqlgen.Dialect) *CollectionRepository {
	return &CollectionRepository{base{exec: exec, dialect: dialect}}
}

func (r *CollectionRepository) stmt() *builder.Statement {
	return builder.New(r.dialect)
}

// GetByID resolves to the collection, or nil when absent.
func (r *CollectionRepository) GetByID(ctx context.Context, id int64) *executor.Future[*store.ItemCollection] {
	st := r.stmt().Select().From(schema.TableCollections).Where("id = ?", id)
	return degrade("collection.GetByID", fmt.Sprint(id), executor.QueryOne[store.ItemCollection](r.exec, ctx, st))
}

// GetByName looks a collection up by name.
func (r *CollectionRepository) GetByName(ctx context.Context, name string) *executor.Future[*store.ItemCollection] {
	st := r.stmt().Select().From(schema.TableCollections).Where("name = ?", name)
	return degrade("collection.GetByName", name, executor.QueryOne[store.ItemCollection](r.exec, ctx, st))
}

// ListByTheme resolves to the collections sharing a theme.
func (r *CollectionRepository) ListByTheme(ctx context.Context, theme string) *executor.Future[[]store.ItemCollection] {
	st := r.stmt().Select().From(schema.TableCollections).
		Where("theme = ?", theme).
		OrderBy("created_at", "DESC")
	return degrade("collection.ListByTheme", theme, executor.QueryMany[store.ItemCollection](r.exec, ctx, st))
}

// ListAll resolves to every collection, newest first.
func (r *CollectionRepository) ListAll(ctx context.Context) *executor.Future[[]store.ItemCollection] {
	st := r.stmt().Select().From(schema.TableCollections).OrderBy("created_at", "DESC")
	return degrade("collection.ListAll", "", executor.QueryMany[store.ItemCollection](r.exec, ctx, st))
}

// Save inserts or upserts the collection. Resolves to its id, or 0 on a
// dropped write.
func (r *CollectionRepository) Save(ctx context.Context, collection *store.ItemCollection) *executor.Future[int64] {
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = time.Now().UTC()
	}
	if collection.ID == 0 {
		st := r.stmt().InsertInto(schema.TableCollections).
			Columns("entry_id", "name", "theme", "created_at").
			Values(collection.EntryID, collection.Name, collection.Theme, collection.CreatedAt)
		return degrade("collection.Save", collection.Name, r.exec.ExecInsert(ctx, st))
	}

	id := collection.ID
	st := r.stmt().InsertInto(schema.TableCollections).
		Columns("id", "entry_id", "name", "theme", "created_at").
		Values(collection.ID, collection.EntryID, collection.Name, collection.Theme, collection.CreatedAt).
		OnConflictUpdate("entry_id", "name", "theme")
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("collection.Save", collection.Name, executor.Go(func() (int64, error) {
		if _, err := inner.Get(); err != nil {
			return 0, err
		}
		return id, nil
	}))
}

// DeleteByID removes the collection. Resolves to whether a row was
// deleted.
func (r *CollectionRepository) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	st := r.stmt().DeleteFrom(schema.TableCollections).Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("collection.DeleteByID", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}
