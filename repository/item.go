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

// ItemRepository is the aggregate facade for configured items.
type ItemRepository struct {
	base
}

// NewItemRepository constructs the repository.
func NewItemRepository(exec *executor.Executor, dialect sqlgen.Dialect) *ItemRepository {
	return &ItemRepository{base{exec: exec, dialect: dialect}}
}

func (r *ItemRepository) stmt() *builder.Statement {
	return builder.New(r.dialect)
}

// GetByID resolves to the item, or nil when absent.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) *executor.Future[*store.ItemProperties] {
	st := r.stmt().Select().From(schema.TableItems).Where("id = ?", id)
	return degrade("item.GetByID", fmt.Sprint(id), executor.QueryOne[store.ItemProperties](r.exec, ctx, st))
}

// GetByName looks an item up by its configured name.
func (r *ItemRepository) GetByName(ctx context.Context, name string) *executor.Future[*store.ItemProperties] {
	st := r.stmt().Select().From(schema.TableItems).Where("name = ?", name)
	return degrade("item.GetByName", name, executor.QueryOne[store.ItemProperties](r.exec, ctx, st))
}

// ListForCollection resolves to a collection's items, newest first.
func (r *ItemRepository) ListForCollection(ctx context.Context, collectionID int64) *executor.Future[[]store.ItemProperties] {
	st := r.stmt().Select().From(schema.TableItems).
		Where("collection_id = ?", collectionID).
		OrderBy("created_at", "DESC")
	return degrade("item.ListForCollection", fmt.Sprint(collectionID), executor.QueryMany[store.ItemProperties](r.exec, ctx, st))
}

// ListForEntry resolves to the items linked to a content entry.
func (r *ItemRepository) ListForEntry(ctx context.Context, entryID int64) *executor.Future[[]store.ItemProperties] {
	st := r.stmt().Select().From(schema.TableItems).
		Where("entry_id = ?", entryID).
		OrderBy("created_at", "DESC")
	return degrade("item.ListForEntry", fmt.Sprint(entryID), executor.QueryMany[store.ItemProperties](r.exec, ctx, st))
}

// ListAll resolves to every item, newest first.
func (r *ItemRepository) ListAll(ctx context.Context) *executor.Future[[]store.ItemProperties] {
	st := r.stmt().Select().From(schema.TableItems).OrderBy("created_at", "DESC")
	return degrade("item.ListAll", "", executor.QueryMany[store.ItemProperties](r.exec, ctx, st))
}

// Save inserts or upserts the item. Resolves to its id, or 0 on a
// dropped write.
func (r *ItemRepository) Save(ctx context.Context, item *store.ItemProperties) *executor.Future[int64] {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.ID == 0 {
		st := r.stmt().InsertInto(schema.TableItems).
			Columns("entry_id", "collection_id", "name", "material", "custom_model_data", "created_at").
			Values(item.EntryID, item.CollectionID, item.Name, item.Material, item.CustomModelData, item.CreatedAt)
		return degrade("item.Save", item.Name, r.exec.ExecInsert(ctx, st))
	}

	id := item.ID
	st := r.stmt().InsertInto(schema.TableItems).
		Columns("id", "entry_id", "collection_id", "name", "material", "custom_model_data", "created_at").
		Values(item.ID, item.EntryID, item.CollectionID, item.Name, item.Material, item.CustomModelData, item.CreatedAt).
		OnConflictUpdate("entry_id", "collection_id", "name", "material", "custom_model_data")
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("item.Save", item.Name, executor.Go(func() (int64, error) {
		if _, err := inner.Get(); err != nil {
			return 0, err
		}
		return id, nil
	}))
}

// DeleteByID removes the item. Resolves to whether a row was deleted.
func (r *ItemRepository) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	st := r.stmt().DeleteFrom(schema.TableItems).Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("item.DeleteByID", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}
